package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/oriys/inkwell/internal/domain"
	"github.com/oriys/inkwell/internal/service"
	"github.com/spf13/cobra"
)

func parseID(arg, field string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, &domain.ValidationError{Field: field, Reason: "must be an integer, got " + strconv.Quote(arg)}
	}
	return id, nil
}

func searchCmd() *cobra.Command {
	var (
		page   int
		size   int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "search [terms and #tags...]",
		Short: "Search posts by text and tags",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(func(ctx context.Context, e *service.Engine) error {
				result := e.GetPosts(ctx, strings.Join(args, " "), page, size)
				if asJSON {
					return printJSON(result)
				}

				w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tTITLE\tTAGS\tLIKES\tCOMMENTS")
				for _, p := range result.Posts {
					fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d\n",
						p.ID, truncate(p.Title, 40), strings.Join(p.Tags, ","), p.Likes, p.CommentCount)
				}
				w.Flush()
				fmt.Printf("page %d/%d, %d matches\n", result.PageNumber, result.TotalPages, result.TotalMatches)
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&page, "page", "p", 1, "Page number")
	cmd.Flags().IntVarP(&size, "size", "s", 0, "Page size (0 = configured default)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the page as JSON")

	return cmd
}

func postCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "post",
		Short: "Manage posts",
	}
	cmd.AddCommand(postGetCmd(), postCreateCmd(), postUpdateCmd(), postDeleteCmd(), postLikeCmd())
	return cmd
}

func postGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show a post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "post id")
			if err != nil {
				return err
			}
			return withEngine(func(ctx context.Context, e *service.Engine) error {
				p, err := e.GetPost(ctx, id)
				if err != nil {
					return err
				}
				return printJSON(p)
			})
		},
	}
}

func postInputFlags(cmd *cobra.Command, in *domain.PostInput) {
	cmd.Flags().StringVarP(&in.Title, "title", "t", "", "Post title")
	cmd.Flags().StringVar(&in.Text, "text", "", "Post body")
	cmd.Flags().StringSliceVar(&in.Tags, "tag", nil, "Tag (repeatable)")
	cmd.MarkFlagRequired("title")
	cmd.MarkFlagRequired("text")
}

func postCreateCmd() *cobra.Command {
	var in domain.PostInput
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a post",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(func(ctx context.Context, e *service.Engine) error {
				p, err := e.CreatePost(ctx, in)
				if err != nil {
					return err
				}
				return printJSON(p)
			})
		},
	}
	postInputFlags(cmd, &in)
	return cmd
}

func postUpdateCmd() *cobra.Command {
	var in domain.PostInput
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Replace a post's title, text and tags",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "post id")
			if err != nil {
				return err
			}
			return withEngine(func(ctx context.Context, e *service.Engine) error {
				p, err := e.UpdatePost(ctx, id, in)
				if err != nil {
					return err
				}
				return printJSON(p)
			})
		},
	}
	postInputFlags(cmd, &in)
	return cmd
}

func postDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Short:   "Delete a post and its comments",
		Aliases: []string{"rm"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "post id")
			if err != nil {
				return err
			}
			return withEngine(func(ctx context.Context, e *service.Engine) error {
				if err := e.DeletePost(ctx, id); err != nil {
					return err
				}
				fmt.Printf("Post %d deleted\n", id)
				return nil
			})
		},
	}
}

func postLikeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "like <id>",
		Short: "Add a like to a post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "post id")
			if err != nil {
				return err
			}
			return withEngine(func(ctx context.Context, e *service.Engine) error {
				p, err := e.IncrementLikes(ctx, id)
				if err != nil {
					return err
				}
				fmt.Printf("Post %d now has %d likes\n", p.ID, p.Likes)
				return nil
			})
		},
	}
}
