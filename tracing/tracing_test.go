package tracing

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "spans.txt")
	require.NoError(t, Init("kproc", "0.0.1", fname))

	ctx, span := StartSpan(context.Background(), "boot", "INTERNAL")
	span.WithAttributes(map[string]string{"policy": "mlfq"}).WithInt("pid", 1)
	_, ok := SpanFromContext(ctx)
	assert.True(t, ok)
	_, child := StartSpan(ctx, "fork", "PRODUCER")
	EndSpan(child, errors.New("no slot"))
	EndSpan(span, nil)

	data, err := os.ReadFile(fname)
	require.NoError(t, err)
	assert.Contains(t, string(data), "boot")
	assert.Contains(t, string(data), "no slot")
}

func TestSpan_Nil(t *testing.T) {
	var span *Span
	assert.Nil(t, span.WithAttributes(map[string]string{"k": "v"}))
	assert.Nil(t, span.WithInt("k", 1))
	EndSpan(span, nil)
	_, ok := SpanFromContext(context.Background())
	assert.False(t, ok)
}
