package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/shashiranjanraj/kisanmart/database/seeders"
	"github.com/shashiranjanraj/kisanmart/internal/kernel"
	"github.com/shashiranjanraj/kisanmart/pkg/database"
	"github.com/shashiranjanraj/kisanmart/pkg/migration"
)

// withRunner boots the store and hands fn a migration runner. The document
// store has no schema, so its indexes (created by BootStore) are all there
// is to migrate.
func withRunner(fn func(r *migration.Runner) error) error {
	ctx := context.Background()
	k, err := kernel.BootStore(ctx)
	if err != nil {
		return err
	}
	defer k.Shutdown(ctx) //nolint:errcheck

	if database.DB == nil {
		fmt.Println("MongoDB indexes are up to date.")
		return nil
	}
	return fn(migration.New(database.DB))
}

// kisanmart migrate
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run all pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRunner(func(r *migration.Runner) error {
			_, err := r.Run()
			return err
		})
	},
}

// kisanmart migrate:rollback
var migrateRollbackCmd = &cobra.Command{
	Use:   "migrate:rollback",
	Short: "Roll back the last batch of migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRunner(func(r *migration.Runner) error {
			_, err := r.Rollback()
			return err
		})
	},
}

// kisanmart migrate:status
var migrateStatusCmd = &cobra.Command{
	Use:   "migrate:status",
	Short: "Show the status of each migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRunner(func(r *migration.Runner) error {
			rows, err := r.Status()
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "MIGRATION\tSTATUS\tBATCH")
			for _, s := range rows {
				if s.Ran {
					fmt.Fprintf(w, "%s\tRan\t%d\n", s.Name, s.Batch)
				} else {
					fmt.Fprintf(w, "%s\tPending\t-\n", s.Name)
				}
			}
			return w.Flush()
		})
	},
}

// kisanmart seed
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the admin account and the demo catalogue",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		k, err := kernel.BootStore(ctx)
		if err != nil {
			return err
		}
		defer k.Shutdown(ctx) //nolint:errcheck

		return seeders.RunAll(ctx, k.Store, os.Stdout)
	},
}
