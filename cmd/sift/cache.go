package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/sift/internal/cli"
	"github.com/spf13/cobra"
)

func cacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and maintain the decision cache",
		Long: `List, prune and clear cached classification decisions.

The cache maps normalized item text to a decision. Entries older than
cache.ttl are ignored on read; prune removes them from the store.`,
		Example: `  # Show cached decisions
  sift cache list

  # Drop expired entries from the store
  sift cache prune

  # Forget everything, e.g. after changing topics
  sift cache clear`,
	}

	cmd.AddCommand(listCacheCmd())
	cmd.AddCommand(pruneCacheCmd())
	cmd.AddCommand(clearCacheCmd())

	return cmd
}

func listCacheCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List live cache entries",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			session, err := openCacheSession(ctx, cfg, false)
			if err != nil {
				return err
			}
			defer func() {
				if closeErr := session.store.Close(); closeErr != nil {
					slog.Warn("Failed to close cache store", "error", closeErr)
				}
			}()

			entries := session.cache.Drain()
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, cli.FormatTitle("Cached Decisions"))
			fmt.Fprintln(out, cli.RenderEntries(entries, time.Now()))
			if stale := session.cache.Len() - len(entries); stale > 0 {
				fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf("%d expired entries hidden; run 'sift cache prune' to remove them", stale)))
			}
			return nil
		},
	}
}

func pruneCacheCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Remove expired entries from the store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			session, err := openCacheSession(ctx, cfg, false)
			if err != nil {
				return err
			}

			removed := session.cache.Prune()
			if err := session.close(ctx); err != nil {
				return fmt.Errorf("failed to save pruned cache: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Removed %d expired entries, %d remain", removed, session.cache.Len())))
			return nil
		},
	}
}

func clearCacheCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached decision",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			session, err := openCacheSession(ctx, cfg, false)
			if err != nil {
				return err
			}

			count := session.cache.Len()
			session.cache.Clear()
			if err := session.close(ctx); err != nil {
				return fmt.Errorf("failed to save cleared cache: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Cleared %d entries", count)))
			return nil
		},
	}
}
