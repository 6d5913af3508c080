// Command kisanmart runs the shop API and its maintenance tasks.
//
//	kisanmart serve             # HTTP + gRPC health + queue workers
//	kisanmart migrate           # apply pending migrations
//	kisanmart migrate:rollback  # revert the last batch
//	kisanmart migrate:status
//	kisanmart seed              # admin account and demo catalogue
//	kisanmart route:list
//	kisanmart queue:work        # workers only
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	_ "github.com/shashiranjanraj/kisanmart/database/migrations"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "kisanmart",
	Short:         "KisanMart pesticide storefront API",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(routeListCmd)

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(migrateRollbackCmd)
	rootCmd.AddCommand(migrateStatusCmd)
	rootCmd.AddCommand(seedCmd)

	rootCmd.AddCommand(queueWorkCmd)
}
