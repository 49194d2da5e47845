package store

import (
	"context"

	"github.com/oriys/inkwell/internal/domain"
)

// EntityStore is the durable source of truth for posts and comments. It
// assigns identifiers and timestamps and enforces that a comment cannot
// outlive its post.
//
// Methods that address a missing row return an error wrapping
// domain.ErrPostNotFound or domain.ErrCommentNotFound.
type EntityStore interface {
	Close() error
	Ping(ctx context.Context) error

	LoadAllPosts(ctx context.Context) ([]*domain.Post, error)
	GetPost(ctx context.Context, id int64) (*domain.Post, error)
	CreatePost(ctx context.Context, title, text string, tags []string) (*domain.Post, error)
	UpdatePost(ctx context.Context, id int64, title, text string, tags []string) (*domain.Post, error)
	DeletePost(ctx context.Context, id int64) error
	IncrementLikes(ctx context.Context, id int64) error

	// IncrementCommentCount and DecrementCommentCount adjust the stored
	// counter only. CreateComment and DeleteComment already apply the
	// counter change in the same transaction as the row change.
	IncrementCommentCount(ctx context.Context, id int64) error
	DecrementCommentCount(ctx context.Context, id int64) error

	LoadCommentsForPost(ctx context.Context, postID int64) ([]*domain.Comment, error)
	GetComment(ctx context.Context, postID, commentID int64) (*domain.Comment, error)
	CreateComment(ctx context.Context, postID int64, text string) (*domain.Comment, error)
	UpdateComment(ctx context.Context, postID, commentID int64, text string) (*domain.Comment, error)
	// DeleteComment returns the number of rows removed; zero means the comment
	// did not exist on that post.
	DeleteComment(ctx context.Context, postID, commentID int64) (int64, error)
}
