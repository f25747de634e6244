package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/Veraticus/sift/internal/cli"
	"github.com/Veraticus/sift/internal/engine"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type classifyResult struct {
	Item     string `json:"item"`
	Relevant bool   `json:"relevant"`
}

func classifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify [items...]",
		Short: "Decide which items relate to the configured topics",
		Long: `Classify text items against the configured topic set.

Items come from the arguments, from --file, or one per line on stdin.
Items the model cannot classify are kept, never silently dropped.

Examples:
  sift classify "Go 并发编程入门" "Cooking show"
  sift classify --file titles.txt --topics programming,mathematics
  cat titles.txt | sift classify --json`,
		RunE: runClassify,
	}

	// Flags
	cmd.Flags().StringP("file", "f", "", "Read items from file, one per line (- for stdin)")
	cmd.Flags().StringSliceP("topics", "t", nil, "Catalog topic ids to match (default: all)")
	cmd.Flags().StringSlice("custom", nil, "Free-text custom topics")
	cmd.Flags().IntP("batch-size", "b", 0, "Items per request")
	cmd.Flags().Bool("json", false, "Print results as JSON")
	cmd.Flags().Bool("no-progress", false, "Hide the progress bar")

	// Bind to viper (errors are rare and can be ignored in practice)
	_ = viper.BindPFlag("topics.selected", cmd.Flags().Lookup("topics"))
	_ = viper.BindPFlag("topics.custom", cmd.Flags().Lookup("custom"))
	_ = viper.BindPFlag("classify.batch_size", cmd.Flags().Lookup("batch-size"))

	return cmd
}

func runClassify(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	topics, err := cfg.TopicLabels()
	if err != nil {
		return err
	}

	interrupts := cli.NewInterruptHandler(cmd.ErrOrStderr())
	ctx := interrupts.HandleInterrupts(cmd.Context(), true)

	file, _ := cmd.Flags().GetString("file")
	items, err := collectItems(ctx, cmd, args, file)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return errors.New("no items to classify")
	}

	session, err := openCacheSession(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := session.close(ctx); closeErr != nil {
			slog.Warn("Failed to close cache store", "error", closeErr)
		}
	}()

	asJSON, _ := cmd.Flags().GetBool("json")
	noProgress, _ := cmd.Flags().GetBool("no-progress")

	var progress *cli.BatchProgress
	var onBatch func(engine.BatchReport)
	if !asJSON && !noProgress {
		progress = cli.NewBatchProgress(cmd.ErrOrStderr())
		onBatch = progress.Observe
	}

	classifier, queue, err := createClassifier(cfg, session.cache, onBatch)
	if err != nil {
		return err
	}
	defer func() { _ = queue.Close() }()

	slog.Info("Starting classification",
		"items", len(items),
		"topics", len(topics),
		"provider", queue.Name(),
		"min_interval", queue.MinInterval())

	start := time.Now()
	decisions, classifyErr := classifier.ClassifyMany(ctx, items, topics)
	if classifyErr != nil && !interrupts.WasInterrupted() {
		slog.Warn("Classification stopped early", "error", classifyErr)
	}
	slog.Debug("Classification finished", "duration", time.Since(start).Round(time.Millisecond))

	if progress != nil && progress.Failed() > 0 {
		fmt.Fprintln(cmd.ErrOrStderr(), cli.FormatWarning(fmt.Sprintf("%d batches could not be classified; their items were kept", progress.Failed())))
	}

	if asJSON {
		if err := writeJSONResults(cmd.OutOrStdout(), items, decisions); err != nil {
			return err
		}
	} else {
		out := cmd.OutOrStdout()
		if _, err := fmt.Fprintln(out, cli.RenderDecisions(items, decisions)); err != nil {
			return fmt.Errorf("failed to write results: %w", err)
		}
		if _, err := fmt.Fprintln(out, cli.RenderSummary(decisions, classifier.Stats())); err != nil {
			return fmt.Errorf("failed to write summary: %w", err)
		}
	}

	return classifyErr
}

// collectItems gathers items from args, a file, or stdin, in that order of preference.
func collectItems(ctx context.Context, cmd *cobra.Command, args []string, file string) ([]string, error) {
	if len(args) > 0 && file != "" {
		return nil, errors.New("pass items as arguments or with --file, not both")
	}
	if len(args) > 0 {
		return args, nil
	}

	var in io.Reader = cmd.InOrStdin()
	if file != "" && file != "-" {
		f, err := os.Open(file)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", file, err)
		}
		defer func() { _ = f.Close() }()
		in = f
	}

	items, err := cli.NewNonBlockingReader(in).ReadItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read items: %w", err)
	}
	return items, nil
}

func writeJSONResults(w io.Writer, items []string, decisions []bool) error {
	results := make([]classifyResult, len(items))
	for i, item := range items {
		results[i] = classifyResult{Item: item, Relevant: decisions[i]}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(results); err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}
	return nil
}
