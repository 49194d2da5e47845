package service

import (
	"context"

	"github.com/oriys/inkwell/internal/domain"
	"github.com/oriys/inkwell/internal/logging"
	"github.com/oriys/inkwell/internal/metrics"
	"github.com/oriys/inkwell/internal/observability"
	"github.com/oriys/inkwell/internal/query"
)

// GetPosts searches the cached posts and returns one page, ordered by id.
// A non-positive size selects the default page size, sizes above the maximum
// are clamped and a page number below 1 means the first page.
func (e *Engine) GetPosts(ctx context.Context, search string, pageNumber, pageSize int) query.Page {
	if pageSize <= 0 {
		pageSize = e.opts.DefaultPageSize
	}
	pageSize = min(pageSize, e.opts.MaxPageSize)
	pageNumber = max(pageNumber, 1)

	_, span := observability.StartSpan(ctx, "engine.get_posts",
		observability.AttrSearch.String(search),
		observability.AttrPage.Int(pageNumber),
		observability.AttrPageSize.Int(pageSize),
	)
	page := query.Search(e.posts.Values(), search, pageNumber, pageSize)
	span.SetAttributes(observability.AttrMatches.Int(page.TotalMatches))
	observability.EndSpan(span, nil)

	metrics.RecordSearch(page.TotalMatches)
	return page
}

// GetPost returns the cached snapshot of post id.
func (e *Engine) GetPost(ctx context.Context, id int64) (*domain.Post, error) {
	if err := domain.ValidateID("post id", id); err != nil {
		return nil, err
	}
	p, ok := e.posts.Get(id)
	if !ok {
		return nil, postNotFound(id)
	}
	return p, nil
}

func (e *Engine) CreatePost(ctx context.Context, in domain.PostInput) (p *domain.Post, err error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	ctx, span := observability.StartSpan(ctx, "engine.create_post")
	defer func() { observability.EndSpan(span, err) }()

	p, err = storeCall(ctx, "create_post", func(ctx context.Context) (*domain.Post, error) {
		return e.store.CreatePost(ctx, in.Title, in.Text, in.Tags)
	})
	if err != nil {
		return nil, err
	}
	e.posts.Put(p)
	metrics.SetPostCacheEntries(e.posts.Len())
	span.SetAttributes(observability.AttrPostID.Int64(p.ID))
	logging.FromContext(ctx).Debug("post created", "post_id", p.ID)
	return p, nil
}

// UpdatePost replaces the post's title, text and tags. Counters in the cached
// snapshot are left as the counter synchronizer maintains them.
func (e *Engine) UpdatePost(ctx context.Context, id int64, in domain.PostInput) (p *domain.Post, err error) {
	if err := domain.ValidateID("post id", id); err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	ctx, span := observability.StartSpan(ctx, "engine.update_post", observability.AttrPostID.Int64(id))
	defer func() { observability.EndSpan(span, err) }()

	updated, err := storeCall(ctx, "update_post", func(ctx context.Context) (*domain.Post, error) {
		return e.store.UpdatePost(ctx, id, in.Title, in.Text, in.Tags)
	})
	if err != nil {
		return nil, err
	}

	for {
		cur, ok := e.posts.Get(id)
		if !ok {
			return nil, consistencyFault(ctx, "update_post", id, "post updated in store but absent from cache")
		}
		next := updated.WithLikes(cur.Likes).WithCommentCount(cur.CommentCount)
		if e.posts.CompareAndSwap(cur, next) {
			logging.FromContext(ctx).Debug("post updated", "post_id", id)
			return next, nil
		}
	}
}

// DeletePost removes the post from the store and then from both caches.
func (e *Engine) DeletePost(ctx context.Context, id int64) (err error) {
	if err := domain.ValidateID("post id", id); err != nil {
		return err
	}
	ctx, span := observability.StartSpan(ctx, "engine.delete_post", observability.AttrPostID.Int64(id))
	defer func() { observability.EndSpan(span, err) }()

	if err := storeExec(ctx, "delete_post", func(ctx context.Context) error {
		return e.store.DeletePost(ctx, id)
	}); err != nil {
		return err
	}
	e.posts.Remove(id)
	e.comments.Forget(id)
	metrics.SetPostCacheEntries(e.posts.Len())
	logging.FromContext(ctx).Debug("post deleted", "post_id", id)
	return nil
}

// IncrementLikes adds one like in the store and then to the cached snapshot.
func (e *Engine) IncrementLikes(ctx context.Context, id int64) (p *domain.Post, err error) {
	if err := domain.ValidateID("post id", id); err != nil {
		return nil, err
	}
	ctx, span := observability.StartSpan(ctx, "engine.increment_likes", observability.AttrPostID.Int64(id))
	defer func() { observability.EndSpan(span, err) }()

	if err := storeExec(ctx, "increment_likes", func(ctx context.Context) error {
		return e.store.IncrementLikes(ctx, id)
	}); err != nil {
		return nil, err
	}
	return e.bumpCachedCounter(ctx, "increment_likes", id, func(cur *domain.Post) *domain.Post {
		return cur.WithLikes(cur.Likes + 1)
	})
}
