package cli

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/Veraticus/sift/internal/engine"
	"github.com/schollz/progressbar/v3"
)

// BatchProgress draws a progress bar over classification batches. The bar is
// created on the first report, once the batch count is known.
type BatchProgress struct {
	writer io.Writer
	bar    *progressbar.ProgressBar
	failed int
	mu     sync.Mutex
}

// NewBatchProgress creates a progress reporter writing to w.
func NewBatchProgress(w io.Writer) *BatchProgress {
	return &BatchProgress{writer: w}
}

// Observe records one settled batch. It matches engine.Options.OnBatch.
func (p *BatchProgress) Observe(report engine.BatchReport) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.bar == nil {
		p.bar = p.newBar(report.Total)
	}
	if report.Failed {
		p.failed++
		p.bar.Describe(fmt.Sprintf("[cyan][bold]Classifying batches...[reset] [yellow](%d failed)[reset]", p.failed))
	}
	if err := p.bar.Add(1); err != nil {
		slog.Warn("Failed to update progress bar", "error", err)
	}
}

// Failed returns how many batches defaulted.
func (p *BatchProgress) Failed() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.failed
}

func (p *BatchProgress) newBar(total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(p.writer),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]Classifying batches...[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			if _, err := fmt.Fprintln(p.writer); err != nil {
				slog.Warn("Failed to write newline after progress bar", "error", err)
			}
		}),
	)
}
