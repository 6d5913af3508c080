package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/shashiranjanraj/kisanmart/app/services"
	"github.com/shashiranjanraj/kisanmart/config"
	"github.com/shashiranjanraj/kisanmart/internal/kernel"
	"github.com/shashiranjanraj/kisanmart/internal/server"
	"github.com/shashiranjanraj/kisanmart/pkg/logger"
	"github.com/shashiranjanraj/kisanmart/pkg/storage"
)

var serveNoWorkers bool

// kisanmart serve
var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"run", "start"},
	Short:   "Start the HTTP API, the gRPC health service and the queue workers",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		k, err := kernel.Boot(ctx)
		if err != nil {
			return err
		}
		defer func() {
			if err := k.Shutdown(context.Background()); err != nil {
				logger.Error("shutdown", "error", err)
			}
		}()

		checks := k.Checks()
		r, err := kernel.NewRouter(k.Services, kernel.HTTPOptions{Checks: checks, Disk: storage.Default()})
		if err != nil {
			return err
		}

		opts := server.Options{
			Handler:   r,
			Checks:    checks,
			Workers:   config.QueueWorkers(),
			Scheduler: k.Scheduler(),
		}
		if !serveNoWorkers {
			opts.Queue = k.Queue
		}
		logger.Info("kisanmart: starting", "env", config.AppEnv(), "http_port", config.AppPort(), "grpc_port", config.GRPCPort())
		return server.Run(ctx, opts)
	},
}

// kisanmart route:list
var routeListCmd = &cobra.Command{
	Use:     "route:list",
	Aliases: []string{"routes"},
	Short:   "List every registered route",
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := kernel.NewRouter(services.NewRegistry(services.Deps{}), kernel.HTTPOptions{})
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "METHOD\tPATH\tNAME")
		for _, ri := range r.Routes() {
			fmt.Fprintf(w, "%s\t%s\t%s\n", ri.Method, ri.Path, ri.Name)
		}
		return w.Flush()
	},
}

func init() {
	serveCmd.Flags().BoolVar(&serveNoWorkers, "no-workers", false, "Do not run queue workers in this process")
}
