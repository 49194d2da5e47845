package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/oriys/inkwell/internal/domain"
	"github.com/oriys/inkwell/internal/logging"
	"github.com/oriys/inkwell/internal/observability"
)

// requirePost validates id and checks the post cache for it.
func (e *Engine) requirePost(id int64) error {
	if err := domain.ValidateID("post id", id); err != nil {
		return err
	}
	if !e.posts.Contains(id) {
		return postNotFound(id)
	}
	return nil
}

// GetComments returns the post's comments in creation order, loading them
// from the store on the first request for the post.
func (e *Engine) GetComments(ctx context.Context, postID int64) (comments []*domain.Comment, err error) {
	if err := e.requirePost(postID); err != nil {
		return nil, err
	}
	ctx, span := observability.StartSpan(ctx, "engine.get_comments", observability.AttrPostID.Int64(postID))
	defer func() { observability.EndSpan(span, err) }()

	loaded := e.comments.Loaded(postID)
	comments, err = e.comments.Get(ctx, postID)
	if err != nil {
		return nil, err
	}
	result := "miss"
	if loaded {
		result = "hit"
	}
	span.SetAttributes(observability.AttrCacheResult.String(result))
	return comments, nil
}

func (e *Engine) GetComment(ctx context.Context, postID, commentID int64) (*domain.Comment, error) {
	if err := e.requirePost(postID); err != nil {
		return nil, err
	}
	if err := domain.ValidateID("comment id", commentID); err != nil {
		return nil, err
	}
	return e.comments.GetOne(ctx, postID, commentID)
}

// CreateComment stores the comment (the store raises the post's counter in
// the same transaction), then appends it to the comment cache and raises the
// cached counter.
func (e *Engine) CreateComment(ctx context.Context, postID int64, in domain.CommentInput) (c *domain.Comment, err error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if err := e.requirePost(postID); err != nil {
		return nil, err
	}
	ctx, span := observability.StartSpan(ctx, "engine.create_comment", observability.AttrPostID.Int64(postID))
	defer func() { observability.EndSpan(span, err) }()

	c, err = storeCall(ctx, "create_comment", func(ctx context.Context) (*domain.Comment, error) {
		return e.store.CreateComment(ctx, postID, in.Text)
	})
	if err != nil {
		return nil, err
	}
	span.SetAttributes(observability.AttrCommentID.Int64(c.ID))

	e.comments.Append(postID, c)
	if _, err := e.incrementCommentCount(ctx, postID); err != nil {
		return nil, err
	}
	logging.FromContext(ctx).Debug("comment created", "post_id", postID, "comment_id", c.ID)
	return c, nil
}

func (e *Engine) UpdateComment(ctx context.Context, postID, commentID int64, in domain.CommentInput) (c *domain.Comment, err error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if err := e.requirePost(postID); err != nil {
		return nil, err
	}
	if err := domain.ValidateID("comment id", commentID); err != nil {
		return nil, err
	}
	ctx, span := observability.StartSpan(ctx, "engine.update_comment",
		observability.AttrPostID.Int64(postID),
		observability.AttrCommentID.Int64(commentID),
	)
	defer func() { observability.EndSpan(span, err) }()

	c, err = storeCall(ctx, "update_comment", func(ctx context.Context) (*domain.Comment, error) {
		return e.store.UpdateComment(ctx, postID, commentID, in.Text)
	})
	if err != nil {
		return nil, err
	}
	e.comments.Replace(postID, c)
	// A DeletePost that ran after the store write has already forgotten the
	// post; drop what Replace just recreated.
	if !e.posts.Contains(postID) {
		e.comments.Forget(postID)
	}
	logging.FromContext(ctx).Debug("comment updated", "post_id", postID, "comment_id", commentID)
	return c, nil
}

// DeleteComment removes the comment from the store (which lowers the post's
// counter in the same transaction), then from the cache, then lowers the
// cached counter. Zero affected rows is CommentNotFound with no cache change.
func (e *Engine) DeleteComment(ctx context.Context, postID, commentID int64) (err error) {
	if err := e.requirePost(postID); err != nil {
		return err
	}
	if err := domain.ValidateID("comment id", commentID); err != nil {
		return err
	}
	ctx, span := observability.StartSpan(ctx, "engine.delete_comment",
		observability.AttrPostID.Int64(postID),
		observability.AttrCommentID.Int64(commentID),
	)
	defer func() { observability.EndSpan(span, err) }()

	rows, err := storeCall(ctx, "delete_comment", func(ctx context.Context) (int64, error) {
		return e.store.DeleteComment(ctx, postID, commentID)
	})
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("%w: %d", domain.ErrCommentNotFound, commentID)
	}

	e.comments.Remove(postID, commentID)
	if _, err := e.decrementCommentCount(ctx, postID); err != nil {
		return err
	}
	logging.FromContext(ctx).Debug("comment deleted", "post_id", postID, "comment_id", commentID)
	return nil
}

// IsConsistencyFault reports whether err marks a cache/store divergence.
func IsConsistencyFault(err error) bool {
	return errors.Is(err, domain.ErrConsistency)
}
