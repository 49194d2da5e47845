package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath  string
	storeDriver string
	pgDSN       string
	logLevel    string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "inkwell",
		Short:         "Inkwell - cache-backed posts and comments engine",
		Long:          "Serves posts and comments from in-memory caches kept consistent with a Postgres entity store",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to YAML or JSON config file")
	rootCmd.PersistentFlags().StringVar(&storeDriver, "store", "", "Entity store driver (postgres, memory)")
	rootCmd.PersistentFlags().StringVar(&pgDSN, "pg-dsn", "", "Postgres DSN")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		serveCmd(),
		migrateCmd(),
		searchCmd(),
		postCmd(),
		commentCmd(),
		auditCmd(),
	)

	return rootCmd
}
