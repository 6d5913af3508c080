// Package grpc runs the gRPC side of the shop: the standard
// grpc.health.v1.Health service, driven by dependency checks, plus
// recovery, logging and metrics interceptors.
//
//	srv := grpc.New(map[string]grpc.Check{"database": database.Ping})
//	g.Go(func() error { return srv.ListenAndServe(ctx, ":"+config.GRPCPort()) })
package grpc

import (
	"context"
	"fmt"
	"net"
	"runtime/debug"
	"sort"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"

	"github.com/shashiranjanraj/kisanmart/pkg/logger"
	"github.com/shashiranjanraj/kisanmart/pkg/metrics"
)

// ServicePrefix namespaces per-dependency health entries, e.g.
// "kisanmart.database".
const ServicePrefix = "kisanmart."

var (
	handledTotal = metrics.NewCounter("grpc", "server_handled_total",
		"Total number of gRPC calls completed by method and code.",
		[]string{"grpc_method", "grpc_code"})

	handlingSeconds = metrics.NewHistogram("grpc", "server_handling_seconds",
		"Histogram of gRPC response latency in seconds.",
		[]float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		[]string{"grpc_method"})
)

// ─── Interceptors ─────────────────────────────────────────────────────────────

func recoveryInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.WithCtx(ctx).Error("grpc: panic recovered",
				"method", info.FullMethod,
				"panic", r,
				"stack", string(debug.Stack()),
			)
			err = status.Errorf(codes.Internal, "internal server error")
		}
	}()
	return handler(ctx, req)
}

// observeInterceptor logs each unary call and records its metrics.
func observeInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	dur := time.Since(start)
	code := status.Code(err)

	handledTotal.WithLabelValues(info.FullMethod, code.String()).Inc()
	handlingSeconds.WithLabelValues(info.FullMethod).Observe(dur.Seconds())
	logger.WithCtx(ctx).Debug("grpc: request",
		"method", info.FullMethod,
		"duration_ms", dur.Milliseconds(),
		"code", code.String(),
	)
	return resp, err
}

// ─── Server ───────────────────────────────────────────────────────────────────

// Check reports whether a dependency is usable.
type Check func(ctx context.Context) error

// Server wraps a grpc.Server whose health status follows its checks.
type Server struct {
	srv      *grpc.Server
	health   *health.Server
	checks   map[string]Check
	interval time.Duration
}

// New builds the server and registers health and reflection.
func New(checks map[string]Check) *Server {
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(recoveryInterceptor, observeInterceptor),
		grpc.MaxRecvMsgSize(4*1024*1024),
		grpc.MaxSendMsgSize(4*1024*1024),
	)
	hs := health.NewServer()
	grpc_health_v1.RegisterHealthServer(srv, hs)
	reflection.Register(srv)

	return &Server{srv: srv, health: hs, checks: checks, interval: 15 * time.Second}
}

// GRPC exposes the underlying server for registering more services.
func (s *Server) GRPC() *grpc.Server { return s.srv }

// Refresh runs every check and updates the health status. The overall ("")
// service is SERVING only when every check passes.
func (s *Server) Refresh(ctx context.Context) {
	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	overall := grpc_health_v1.HealthCheckResponse_SERVING
	for _, name := range names {
		st := grpc_health_v1.HealthCheckResponse_SERVING
		cctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		if err := s.checks[name](cctx); err != nil {
			st = grpc_health_v1.HealthCheckResponse_NOT_SERVING
			overall = st
			logger.WithCtx(ctx).Warn("grpc: health check failed", "check", name, "error", err)
		}
		cancel()
		s.health.SetServingStatus(ServicePrefix+name, st)
	}
	s.health.SetServingStatus("", overall)
}

// Serve serves on lis until ctx is cancelled, then stops gracefully.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	s.Refresh(ctx)

	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.Serve(lis) }()
	logger.Info("grpc: serving", "addr", lis.Addr().String())

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case err := <-errCh:
			return fmt.Errorf("grpc: serve: %w", err)
		case <-ticker.C:
			s.Refresh(ctx)
		case <-ctx.Done():
			s.health.Shutdown()
			s.srv.GracefulStop()
			<-errCh
			logger.Info("grpc: stopped")
			return nil
		}
	}
}

// ListenAndServe listens on addr and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("grpc: listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, lis)
}
