package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shashiranjanraj/kisanmart/internal/kernel"
)

var queueWorkersFlag int

// kisanmart queue:work
var queueWorkCmd = &cobra.Command{
	Use:   "queue:work",
	Short: "Process queued mail jobs until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		k, err := kernel.Boot(ctx)
		if err != nil {
			return err
		}
		defer k.Shutdown(context.Background()) //nolint:errcheck

		return k.Queue.Run(ctx, queueWorkersFlag)
	},
}

func init() {
	queueWorkCmd.Flags().IntVarP(&queueWorkersFlag, "workers", "w", 4, "Number of concurrent workers")
}
