package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/sift/internal/engine"
	"github.com/Veraticus/sift/internal/model"
	"github.com/charmbracelet/lipgloss"
)

const maxItemColumn = 60

// RenderDecisions renders one row per item with its decision.
func RenderDecisions(items []string, decisions []bool) string {
	width := 4
	for _, item := range items {
		width = max(width, lipgloss.Width(clip(item, maxItemColumn)))
	}
	itemCol := TableCellStyle.Width(width + 2)

	var b strings.Builder
	b.WriteString(TableHeaderStyle.Render(itemCol.Render("Item") + "Decision"))
	b.WriteString("\n")
	for i, item := range items {
		b.WriteString(itemCol.Render(clip(item, maxItemColumn)))
		b.WriteString(FormatDecision(decisions[i]))
		b.WriteString("\n")
	}
	return b.String()
}

// RenderSummary renders the totals of one classify run.
func RenderSummary(decisions []bool, stats engine.Stats) string {
	kept := 0
	for _, d := range decisions {
		if d {
			kept++
		}
	}

	summary := fmt.Sprintf("%s Results:\n", ChartIcon) +
		fmt.Sprintf("  • Items: %d\n", len(decisions)) +
		fmt.Sprintf("  • Kept: %s\n", SuccessStyle.Render(fmt.Sprint(kept))) +
		fmt.Sprintf("  • Filtered: %s\n", SubtleStyle.Render(fmt.Sprint(len(decisions)-kept))) +
		fmt.Sprintf("  • Cache hits: %d\n", stats.Hits) +
		fmt.Sprintf("  • Batches: %d (%d provider calls)", stats.Batches, stats.ProviderCalls)

	if stats.FailedBatches > 0 {
		summary += "\n" + FormatWarning(fmt.Sprintf("%d batch(es) could not be classified and were kept", stats.FailedBatches))
	}

	return RenderBox("Classification Complete", summary)
}

// RenderEntries renders cached decisions with their age.
func RenderEntries(entries []model.CacheEntry, now time.Time) string {
	if len(entries) == 0 {
		return SubtleStyle.Render("Cache is empty.")
	}

	width := 4
	for _, entry := range entries {
		width = max(width, lipgloss.Width(clip(entry.Key, maxItemColumn)))
	}
	keyCol := TableCellStyle.Width(width + 2)
	decisionCol := TableCellStyle.Width(12)

	var b strings.Builder
	b.WriteString(TableHeaderStyle.Render(keyCol.Render("Key") + decisionCol.Render("Decision") + "Age"))
	b.WriteString("\n")
	for _, entry := range entries {
		b.WriteString(keyCol.Render(clip(entry.Key, maxItemColumn)))
		b.WriteString(decisionCol.Render(FormatDecision(entry.Decision)))
		b.WriteString(SubtleStyle.Render(entry.Age(now).Round(time.Second).String()))
		b.WriteString("\n")
	}
	return b.String()
}

func clip(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
