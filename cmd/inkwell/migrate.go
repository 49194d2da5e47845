package main

import (
	"context"
	"fmt"

	"github.com/oriys/inkwell/internal/store"
	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the posts and comments tables if missing",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx := context.Background()
			s, err := store.NewPostgresStore(ctx, cfg.Postgres.DSN)
			if err != nil {
				return err
			}
			defer s.Close()
			if err := s.EnsureSchema(ctx); err != nil {
				return err
			}
			fmt.Println("Schema up to date")
			return nil
		},
	}
}
