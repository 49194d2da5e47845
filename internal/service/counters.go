package service

import (
	"context"

	"github.com/oriys/inkwell/internal/domain"
	"github.com/oriys/inkwell/internal/logging"
	"github.com/oriys/inkwell/internal/metrics"
)

// bumpCachedCounter applies a counter change the store has already committed
// to the cached snapshot of post id. Snapshots are swapped, never edited, so
// concurrent bumps retry until each lands exactly once.
//
// The store is authoritative at this point: a missing cache entry means the
// cache lost track of a live post and is reported as a consistency fault.
func (e *Engine) bumpCachedCounter(ctx context.Context, op string, id int64, next func(*domain.Post) *domain.Post) (*domain.Post, error) {
	for {
		cur, ok := e.posts.Get(id)
		if !ok {
			e.comments.Forget(id)
			return nil, consistencyFault(ctx, op, id, "store write succeeded but post is absent from cache")
		}
		n := next(cur)
		if e.posts.CompareAndSwap(cur, n) {
			return n, nil
		}
	}
}

func (e *Engine) incrementCommentCount(ctx context.Context, id int64) (*domain.Post, error) {
	return e.bumpCachedCounter(ctx, "create_comment", id, func(cur *domain.Post) *domain.Post {
		return cur.WithCommentCount(cur.CommentCount + 1)
	})
}

// decrementCommentCount floors the cached count at zero. Reaching the floor
// means the cache already under-counted; it is logged and counted but not
// returned.
func (e *Engine) decrementCommentCount(ctx context.Context, id int64) (*domain.Post, error) {
	return e.bumpCachedCounter(ctx, "delete_comment", id, func(cur *domain.Post) *domain.Post {
		if cur.CommentCount == 0 {
			metrics.RecordConsistencyFault("delete_comment")
			logging.FromContext(ctx).Warn("comment count already zero, clamping", "post_id", id)
		}
		return cur.WithCommentCount(cur.CommentCount - 1)
	})
}
