package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/oriys/inkwell/internal/domain"
	"github.com/oriys/inkwell/internal/service"
	"github.com/spf13/cobra"
)

func auditCmd() *cobra.Command {
	var repair bool

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Compare cached posts with the store and optionally repair them",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(func(ctx context.Context, e *service.Engine) error {
				divs, err := e.Audit(ctx)
				if err != nil {
					return err
				}
				if len(divs) == 0 {
					fmt.Println("No divergences")
					return nil
				}
				for _, d := range divs {
					fmt.Println(d)
				}
				if !repair {
					return fmt.Errorf("%d divergences found", len(divs))
				}

				seen := make(map[int64]bool, len(divs))
				for _, d := range divs {
					if seen[d.PostID] {
						continue
					}
					seen[d.PostID] = true
					_, err := e.Repair(ctx, d.PostID)
					switch {
					case errors.Is(err, domain.ErrNotFound):
						fmt.Printf("Post %d is gone from the store, dropped from cache\n", d.PostID)
					case err != nil:
						return fmt.Errorf("repair post %d: %w", d.PostID, err)
					default:
						fmt.Printf("Repaired post %d\n", d.PostID)
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&repair, "repair", false, "Reload divergent posts and fix stored comment counters")

	return cmd
}
