package cli

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/Veraticus/sift/internal/engine"
	"github.com/Veraticus/sift/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestRenderDecisions(t *testing.T) {
	out := RenderDecisions([]string{"Go tutorial", "cooking"}, []bool{true, false})

	assert.Contains(t, out, "Item")
	assert.Contains(t, out, "Go tutorial")
	assert.Contains(t, out, "keep")
	assert.Contains(t, out, "filter")
	assert.Equal(t, 1, strings.Count(out, "keep"))
}

func TestRenderSummary(t *testing.T) {
	out := RenderSummary([]bool{true, false, true}, engine.Stats{Hits: 1, Batches: 2, ProviderCalls: 3})
	assert.Contains(t, out, "Classification Complete")
	assert.Contains(t, out, "Items: 3")
	assert.Contains(t, out, "Cache hits: 1")
	assert.NotContains(t, out, "could not be classified")

	out = RenderSummary([]bool{true}, engine.Stats{FailedBatches: 1})
	assert.Contains(t, out, "could not be classified")
}

func TestRenderEntries(t *testing.T) {
	now := time.Date(2025, 1, 5, 12, 0, 0, 0, time.UTC)
	assert.Contains(t, RenderEntries(nil, now), "Cache is empty")

	out := RenderEntries([]model.CacheEntry{
		{Key: "python教程", Decision: true, Timestamp: now.Add(-90 * time.Second)},
		{Key: strings.Repeat("x", 100), Decision: false, Timestamp: now},
	}, now)
	assert.Contains(t, out, "python教程")
	assert.Contains(t, out, "1m30s")
	assert.Contains(t, out, "…")
	assert.NotContains(t, out, strings.Repeat("x", 100))
}

func TestBatchProgress(t *testing.T) {
	var buf bytes.Buffer
	progress := NewBatchProgress(&buf)

	progress.Observe(engine.BatchReport{Index: 0, Total: 2, Size: 10})
	progress.Observe(engine.BatchReport{Index: 1, Total: 2, Size: 3, Failed: true})

	assert.Equal(t, 1, progress.Failed())
	assert.NotEmpty(t, buf.String())
}

func TestClip(t *testing.T) {
	assert.Equal(t, "short", clip("short", 10))
	assert.Equal(t, "数学…", clip("数学分析", 3))
}
