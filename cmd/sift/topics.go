package main

import (
	"fmt"
	"strings"

	"github.com/Veraticus/sift/internal/cli"
	"github.com/Veraticus/sift/internal/model"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func topicsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "topics",
		Short: "List the topic catalog and the active selection",
		Long: `List every catalog topic id and label, marking those that the current
configuration sends to the model. Select topics with topics.selected in
the config file, SIFT_TOPICS_SELECTED, or classify --topics.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			active, err := cfg.TopicLabels()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, cli.FormatTitle("Topics"))

			idCol := cli.TableCellStyle.Width(14)
			for _, topic := range model.Catalog {
				mark := cli.SubtleStyle.Render("  ")
				if lo.Contains(active, topic.Label) {
					mark = cli.SuccessStyle.Render(cli.SuccessIcon + " ")
				}
				fmt.Fprintln(out, mark+idCol.Render(topic.ID)+topic.Label)
			}

			custom := lo.Filter(active, func(label string, _ int) bool {
				return !lo.ContainsBy(model.Catalog, func(t model.Topic) bool { return t.Label == label })
			})
			if len(custom) > 0 {
				fmt.Fprintln(out)
				fmt.Fprintln(out, cli.FormatInfo("Custom topics: "+strings.Join(custom, ", ")))
			}
			return nil
		},
	}
}
