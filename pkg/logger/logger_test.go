package logger

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithCtxFallsBackToBaseLogger(t *testing.T) {
	assert.Same(t, L, WithCtx(context.Background()))
	//nolint:staticcheck
	assert.Same(t, L, WithCtx(nil))
}

func TestInjectLoggerRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	scoped := slog.New(slog.NewTextHandler(&buf, nil)).With("request_id", "req-1")

	ctx := InjectLogger(context.Background(), scoped)
	WithCtx(ctx).Info("order placed")

	assert.Contains(t, buf.String(), "request_id=req-1")
	assert.Contains(t, buf.String(), "order placed")
}

func TestMultiHandlerFansOut(t *testing.T) {
	var a, b bytes.Buffer
	h := NewMultiHandler(
		slog.NewTextHandler(&a, nil),
		slog.NewJSONHandler(&b, &slog.HandlerOptions{Level: slog.LevelError}),
	)
	log := slog.New(h)

	log.Info("stock released", "product", "p1")
	log.Error("payment failed")

	assert.Contains(t, a.String(), "stock released")
	assert.Contains(t, a.String(), "payment failed")
	assert.NotContains(t, b.String(), "stock released")
	assert.Contains(t, b.String(), `"msg":"payment failed"`)
}
