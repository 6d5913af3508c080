// Package server runs the HTTP API, the gRPC health service and the queue
// workers until the process is told to stop.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/shashiranjanraj/kisanmart/config"
	"github.com/shashiranjanraj/kisanmart/pkg/grpc"
	"github.com/shashiranjanraj/kisanmart/pkg/logger"
	"github.com/shashiranjanraj/kisanmart/pkg/queue"
	"github.com/shashiranjanraj/kisanmart/pkg/schedule"
	"golang.org/x/sync/errgroup"
)

// ShutdownTimeout bounds how long in-flight HTTP requests may run after a
// stop signal.
const ShutdownTimeout = 15 * time.Second

// Options configure Run. Zero listeners mean "listen on the configured port".
type Options struct {
	Handler      http.Handler
	Checks       map[string]grpc.Check
	Queue        *queue.Manager
	Workers      int
	Scheduler    *schedule.Scheduler
	HTTPListener net.Listener
	GRPCListener net.Listener
}

// Run serves until ctx is cancelled or one component fails, then stops all
// of them. A nil Queue skips the workers; a nil Scheduler skips periodic
// tasks.
func Run(ctx context.Context, opts Options) error {
	httpLis, err := listen(opts.HTTPListener, ":"+config.AppPort())
	if err != nil {
		return err
	}
	grpcLis, err := listen(opts.GRPCListener, ":"+config.GRPCPort())
	if err != nil {
		httpLis.Close()
		return err
	}

	g, ctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Handler:           opts.Handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	g.Go(func() error {
		logger.Info("http: serving", "addr", httpLis.Addr().String())
		if err := srv.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http: serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			return fmt.Errorf("http: shutdown: %w", err)
		}
		logger.Info("http: stopped")
		return nil
	})

	g.Go(func() error {
		return grpc.New(opts.Checks).Serve(ctx, grpcLis)
	})

	if opts.Queue != nil {
		g.Go(func() error {
			return opts.Queue.Run(ctx, opts.Workers)
		})
	}

	if opts.Scheduler != nil {
		g.Go(func() error {
			return opts.Scheduler.Run(ctx)
		})
	}

	return g.Wait()
}

func listen(lis net.Listener, addr string) (net.Listener, error) {
	if lis != nil {
		return lis, nil
	}
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("server: listen on %s: %w", addr, err)
	}
	return l, nil
}
