package ctxlog

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromContext(t *testing.T) {
	t.Run("returns embedded logger", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))
		ctx := WithLogger(context.Background(), logger)

		FromContext(ctx).Info("hello", "k", "v")
		assert.Contains(t, buf.String(), "hello")
		assert.Contains(t, buf.String(), "k=v")
	})

	t.Run("falls back to a discarding logger", func(t *testing.T) {
		logger := FromContext(context.Background())
		require.NotNil(t, logger)
		assert.NotPanics(t, func() { logger.Info("dropped") })
	})
}

func TestWith(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithLogger(context.Background(), slog.New(slog.NewTextHandler(&buf, nil)))
	ctx = With(ctx, "run_id", "abc")

	FromContext(ctx).Info("step")
	assert.Contains(t, buf.String(), "run_id=abc")
}
