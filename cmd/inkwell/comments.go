package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/oriys/inkwell/internal/domain"
	"github.com/oriys/inkwell/internal/service"
	"github.com/spf13/cobra"
)

func commentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "comment",
		Short: "Manage comments on a post",
	}
	cmd.AddCommand(commentListCmd(), commentGetCmd(), commentAddCmd(), commentEditCmd(), commentDeleteCmd())
	return cmd
}

func commentArgs(args []string) (postID, commentID int64, err error) {
	if postID, err = parseID(args[0], "post id"); err != nil {
		return 0, 0, err
	}
	if len(args) > 1 {
		if commentID, err = parseID(args[1], "comment id"); err != nil {
			return 0, 0, err
		}
	}
	return postID, commentID, nil
}

func commentListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list <post-id>",
		Short:   "List a post's comments in creation order",
		Aliases: []string{"ls"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			postID, _, err := commentArgs(args)
			if err != nil {
				return err
			}
			return withEngine(func(ctx context.Context, e *service.Engine) error {
				comments, err := e.GetComments(ctx, postID)
				if err != nil {
					return err
				}
				if len(comments) == 0 {
					fmt.Println("No comments")
					return nil
				}
				w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tCREATED\tTEXT")
				for _, c := range comments {
					fmt.Fprintf(w, "%d\t%s\t%s\n", c.ID, c.CreatedAt.Format("2006-01-02 15:04"), truncate(c.Text, 60))
				}
				return w.Flush()
			})
		},
	}
}

func commentGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <post-id> <comment-id>",
		Short: "Show one comment",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			postID, commentID, err := commentArgs(args)
			if err != nil {
				return err
			}
			return withEngine(func(ctx context.Context, e *service.Engine) error {
				c, err := e.GetComment(ctx, postID, commentID)
				if err != nil {
					return err
				}
				return printJSON(c)
			})
		},
	}
}

func commentAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <post-id> <text>",
		Short: "Add a comment to a post",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			postID, _, err := commentArgs(args[:1])
			if err != nil {
				return err
			}
			return withEngine(func(ctx context.Context, e *service.Engine) error {
				c, err := e.CreateComment(ctx, postID, domain.CommentInput{Text: args[1]})
				if err != nil {
					return err
				}
				return printJSON(c)
			})
		},
	}
}

func commentEditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "edit <post-id> <comment-id> <text>",
		Short: "Replace a comment's text",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			postID, commentID, err := commentArgs(args[:2])
			if err != nil {
				return err
			}
			return withEngine(func(ctx context.Context, e *service.Engine) error {
				c, err := e.UpdateComment(ctx, postID, commentID, domain.CommentInput{Text: args[2]})
				if err != nil {
					return err
				}
				return printJSON(c)
			})
		},
	}
}

func commentDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <post-id> <comment-id>",
		Short:   "Delete a comment",
		Aliases: []string{"rm"},
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			postID, commentID, err := commentArgs(args)
			if err != nil {
				return err
			}
			return withEngine(func(ctx context.Context, e *service.Engine) error {
				if err := e.DeleteComment(ctx, postID, commentID); err != nil {
					return err
				}
				fmt.Printf("Comment %d deleted from post %d\n", commentID, postID)
				return nil
			})
		},
	}
}
