// Package logger provides the shop's structured, levelled logger built on
// log/slog.
//
// Handlers and services should log through WithCtx so every line carries the
// request_id injected by the request logging middleware:
//
//	log := logger.WithCtx(r.Context())
//	log.Info("order placed", "order_id", order.ID, "total", order.TotalPrice)
package logger

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/shashiranjanraj/kisanmart/config"
)

var L *slog.Logger

func init() {
	L = slog.New(consoleHandler())
	slog.SetDefault(L)
}

func consoleHandler() slog.Handler {
	switch config.AppEnv() {
	case "production", "prod":
		return slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	case "testing", "test":
		return slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn})
	default:
		return slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
}

// ShipToMongo adds an asynchronous MongoDB sink next to the console handler.
// The returned func flushes pending records and must be called on shutdown.
func ShipToMongo(uri, db, collection string) (func(), error) {
	mh, err := NewMongoHandler(uri, db, collection)
	if err != nil {
		return func() {}, fmt.Errorf("logger: mongo sink: %w", err)
	}

	L = slog.New(NewMultiHandler(consoleHandler(), mh))
	slog.SetDefault(L)
	return mh.Close, nil
}

type ctxKey struct{}

// WithCtx returns the request-scoped logger stored by InjectLogger, or the
// base logger when ctx carries none.
func WithCtx(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return L
	}
	if log, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && log != nil {
		return log
	}
	return L
}

// InjectLogger stores a request-scoped logger in ctx.
func InjectLogger(ctx context.Context, log *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, log)
}

func Debug(msg string, args ...any) { L.Debug(msg, args...) }
func Info(msg string, args ...any)  { L.Info(msg, args...) }
func Warn(msg string, args ...any)  { L.Warn(msg, args...) }
func Error(msg string, args ...any) { L.Error(msg, args...) }
