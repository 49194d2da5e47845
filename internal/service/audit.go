package service

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/oriys/inkwell/internal/domain"
	"github.com/oriys/inkwell/internal/logging"
	"github.com/oriys/inkwell/internal/metrics"
	"github.com/oriys/inkwell/internal/observability"
)

// Divergence kinds reported by Audit.
const (
	DivergenceMissingInStore = "missing_in_store"
	DivergenceMissingInCache = "missing_in_cache"
	DivergenceLikes          = "likes"
	DivergenceCommentCount   = "comment_count"
	DivergenceStoredCounter  = "stored_counter"
	DivergenceCommentCache   = "comment_cache"
)

// Divergence is one disagreement found by Audit.
type Divergence struct {
	PostID int64  `json:"post_id"`
	Kind   string `json:"kind"`
	Cached int64  `json:"cached"`
	Stored int64  `json:"stored"`
}

func (d Divergence) String() string {
	return fmt.Sprintf("post %d: %s (cached %d, stored %d)", d.PostID, d.Kind, d.Cached, d.Stored)
}

// Audit compares every cached post with the store: existence, likes, comment
// count, the stored counter against the stored comment sequence, and any
// loaded comment sequence against the cached counter. It reads the store only
// and changes nothing. Results are only meaningful while no writes are in
// flight.
func (e *Engine) Audit(ctx context.Context) (divs []Divergence, err error) {
	ctx, span := observability.StartSpan(ctx, "engine.audit")
	defer func() { observability.EndSpan(span, err) }()

	stored, err := storeCall(ctx, "load_all_posts", e.store.LoadAllPosts)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]*domain.Post, len(stored))
	for _, p := range stored {
		byID[p.ID] = p
		if !e.posts.Contains(p.ID) {
			divs = append(divs, Divergence{PostID: p.ID, Kind: DivergenceMissingInCache, Stored: 1})
		}
	}

	cachedPosts := e.posts.Values()
	slices.SortFunc(cachedPosts, func(a, b *domain.Post) int { return cmp.Compare(a.ID, b.ID) })
	for _, cached := range cachedPosts {
		sp, ok := byID[cached.ID]
		if !ok {
			divs = append(divs, Divergence{PostID: cached.ID, Kind: DivergenceMissingInStore, Cached: 1})
			continue
		}
		if cached.Likes != sp.Likes {
			divs = append(divs, Divergence{PostID: cached.ID, Kind: DivergenceLikes, Cached: cached.Likes, Stored: sp.Likes})
		}
		if cached.CommentCount != sp.CommentCount {
			divs = append(divs, Divergence{PostID: cached.ID, Kind: DivergenceCommentCount, Cached: cached.CommentCount, Stored: sp.CommentCount})
		}

		comments, err := storeCall(ctx, "load_comments", func(ctx context.Context) ([]*domain.Comment, error) {
			return e.store.LoadCommentsForPost(ctx, cached.ID)
		})
		if err != nil {
			return nil, err
		}
		if n := int64(len(comments)); n != sp.CommentCount {
			divs = append(divs, Divergence{PostID: cached.ID, Kind: DivergenceStoredCounter, Cached: sp.CommentCount, Stored: n})
		}

		if e.comments.Loaded(cached.ID) {
			seq, err := e.comments.Get(ctx, cached.ID)
			if err != nil {
				return nil, err
			}
			if n := int64(len(seq)); n != cached.CommentCount {
				divs = append(divs, Divergence{PostID: cached.ID, Kind: DivergenceCommentCache, Cached: n, Stored: cached.CommentCount})
			}
		}
	}

	for _, d := range divs {
		metrics.RecordConsistencyFault("audit")
		logging.FromContext(ctx).Warn("audit divergence", "post_id", d.PostID, "kind", d.Kind, "cached", d.Cached, "stored", d.Stored)
	}
	return divs, nil
}

// Repair makes the store's comment counter for postID match its comment
// sequence, then replaces the cached post with the store's snapshot and drops
// the cached comment sequence so the next read reloads it. A post that no
// longer exists in the store is removed from both caches.
func (e *Engine) Repair(ctx context.Context, postID int64) (p *domain.Post, err error) {
	if err := domain.ValidateID("post id", postID); err != nil {
		return nil, err
	}
	ctx, span := observability.StartSpan(ctx, "engine.repair", observability.AttrPostID.Int64(postID))
	defer func() { observability.EndSpan(span, err) }()

	getPost := func(ctx context.Context) (*domain.Post, error) { return e.store.GetPost(ctx, postID) }

	p, err = storeCall(ctx, "get_post", getPost)
	if errors.Is(err, domain.ErrNotFound) {
		e.posts.Remove(postID)
		e.comments.Forget(postID)
		metrics.SetPostCacheEntries(e.posts.Len())
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	comments, err := storeCall(ctx, "load_comments", func(ctx context.Context) ([]*domain.Comment, error) {
		return e.store.LoadCommentsForPost(ctx, postID)
	})
	if err != nil {
		return nil, err
	}

	for diff := int64(len(comments)) - p.CommentCount; diff != 0; {
		op, fn, step := "increment_comment_count", e.store.IncrementCommentCount, int64(-1)
		if diff < 0 {
			op, fn, step = "decrement_comment_count", e.store.DecrementCommentCount, 1
		}
		if err := storeExec(ctx, op, func(ctx context.Context) error { return fn(ctx, postID) }); err != nil {
			return nil, err
		}
		diff += step
	}

	p, err = storeCall(ctx, "get_post", getPost)
	if err != nil {
		return nil, err
	}
	e.posts.Put(p)
	e.comments.Forget(postID)
	metrics.SetPostCacheEntries(e.posts.Len())
	logging.FromContext(ctx).Info("post repaired", "post_id", postID, "comments", len(comments))
	return p, nil
}
