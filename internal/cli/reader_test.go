package cli

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNonBlockingReader_ReadLine(t *testing.T) {
	tests := []struct {
		name          string
		input         string
		expectedValue string
	}{
		{
			name:          "successful read",
			input:         "test input\n",
			expectedValue: "test input",
		},
		{
			name:          "read with extra whitespace",
			input:         "  test input  \n",
			expectedValue: "test input",
		},
		{
			name:          "empty line",
			input:         "\n",
			expectedValue: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := NewNonBlockingReader(strings.NewReader(tt.input))
			line, err := reader.ReadLine(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.expectedValue, line)
		})
	}
}

func TestNonBlockingReader_ReadItems(t *testing.T) {
	input := "Go 并发编程\n\n  线性代数 第一讲  \r\nfinal line without newline"
	reader := NewNonBlockingReader(strings.NewReader(input))

	items, err := reader.ReadItems(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Go 并发编程", "线性代数 第一讲", "final line without newline"}, items)

	items, err = NewNonBlockingReader(strings.NewReader("")).ReadItems(context.Background())
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestNonBlockingReader_Cancellation(t *testing.T) {
	pr, pw := io.Pipe()
	defer func() { _ = pw.Close() }()

	reader := NewNonBlockingReader(pr)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := reader.ReadItems(ctx)
	assert.ErrorIs(t, err, ErrInputCancelled)
	assert.Less(t, time.Since(start), time.Second)
}

func TestNewNonBlockingReader_NilPanics(t *testing.T) {
	assert.Panics(t, func() { NewNonBlockingReader(nil) })
}
