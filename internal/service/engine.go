// Package service implements the cache-backed engine behind every inkwell
// adapter. Reads are answered from the post and comment caches; writes go to
// the entity store first and touch the caches only after the store confirms.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oriys/inkwell/internal/cache"
	"github.com/oriys/inkwell/internal/domain"
	"github.com/oriys/inkwell/internal/logging"
	"github.com/oriys/inkwell/internal/metrics"
	"github.com/oriys/inkwell/internal/store"
)

// Options tunes request bounds.
type Options struct {
	DefaultPageSize int
	MaxPageSize     int
}

// DefaultOptions returns the page bounds used when none are configured.
func DefaultOptions() Options {
	return Options{DefaultPageSize: 20, MaxPageSize: 100}
}

// Engine owns the caches and coordinates them with the entity store.
type Engine struct {
	store    store.EntityStore
	posts    *cache.PostCache
	comments *cache.CommentCache
	opts     Options
}

func New(s store.EntityStore, opts Options) *Engine {
	def := DefaultOptions()
	if opts.DefaultPageSize <= 0 {
		opts.DefaultPageSize = def.DefaultPageSize
	}
	if opts.MaxPageSize < opts.DefaultPageSize {
		opts.MaxPageSize = max(def.MaxPageSize, opts.DefaultPageSize)
	}
	return &Engine{
		store:    s,
		posts:    cache.NewPostCache(),
		comments: cache.NewCommentCache(commentSource{s}),
		opts:     opts,
	}
}

// Start fills the post cache from the store. It must complete before the
// engine serves any request.
func (e *Engine) Start(ctx context.Context) error {
	posts, err := storeCall(ctx, "load_all_posts", e.store.LoadAllPosts)
	if err != nil {
		return err
	}
	e.posts.Load(posts)
	metrics.SetPostCacheEntries(e.posts.Len())
	logging.FromContext(ctx).Info("post cache loaded", "posts", len(posts))
	return nil
}

// Ping reports whether the entity store is reachable.
func (e *Engine) Ping(ctx context.Context) error {
	_, err := storeCall(ctx, "ping", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, e.store.Ping(ctx)
	})
	return err
}

// Stats is a point-in-time summary of engine state.
type Stats struct {
	Posts        int                     `json:"posts"`
	CommentCache cache.CommentCacheStats `json:"comment_cache"`
	Counters     map[string]interface{}  `json:"counters"`
}

func (e *Engine) Stats() Stats {
	return Stats{
		Posts:        e.posts.Len(),
		CommentCache: e.comments.Stats(),
		Counters:     metrics.Global().Snapshot(),
	}
}

// storeCall runs one entity store operation, records it and classifies its
// error: not-found errors pass through unchanged, every other failure becomes
// a *domain.StoreError.
func storeCall[T any](ctx context.Context, op string, fn func(context.Context) (T, error)) (T, error) {
	start := time.Now()
	v, err := fn(ctx)
	if err != nil && errors.Is(err, domain.ErrNotFound) {
		metrics.RecordStoreOperation(op, time.Since(start), nil)
		return v, err
	}
	metrics.RecordStoreOperation(op, time.Since(start), err)
	if err != nil {
		var zero T
		logging.FromContext(ctx).Warn("store operation failed", "op", op, "error", err)
		return zero, &domain.StoreError{Op: op, Err: err}
	}
	return v, nil
}

func storeExec(ctx context.Context, op string, fn func(context.Context) error) error {
	_, err := storeCall(ctx, op, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// commentSource feeds the comment cache through storeCall so lazy loads are
// measured and classified like every other store access.
type commentSource struct {
	store store.EntityStore
}

func (s commentSource) LoadCommentsForPost(ctx context.Context, postID int64) ([]*domain.Comment, error) {
	return storeCall(ctx, "load_comments", func(ctx context.Context) ([]*domain.Comment, error) {
		return s.store.LoadCommentsForPost(ctx, postID)
	})
}

func (s commentSource) GetComment(ctx context.Context, postID, commentID int64) (*domain.Comment, error) {
	return storeCall(ctx, "get_comment", func(ctx context.Context) (*domain.Comment, error) {
		return s.store.GetComment(ctx, postID, commentID)
	})
}

// consistencyFault logs and counts a divergence and returns it as an error.
func consistencyFault(ctx context.Context, op string, postID int64, detail string) error {
	metrics.RecordConsistencyFault(op)
	err := domain.ConsistencyFault(op, postID, detail)
	logging.FromContext(ctx).Error("consistency fault", "op", op, "post_id", postID, "detail", detail)
	return err
}

func postNotFound(id int64) error {
	return fmt.Errorf("%w: %d", domain.ErrPostNotFound, id)
}
