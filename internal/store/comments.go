package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/oriys/inkwell/internal/domain"
)

const commentColumns = `id, post_id, text, created_at, updated_at`

func scanComment(row pgx.Row) (*domain.Comment, error) {
	var c domain.Comment
	if err := row.Scan(&c.ID, &c.PostID, &c.Text, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *PostgresStore) LoadCommentsForPost(ctx context.Context, postID int64) ([]*domain.Comment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+commentColumns+`
		FROM comments
		WHERE post_id = $1
		ORDER BY id
	`, postID)
	if err != nil {
		return nil, fmt.Errorf("load comments: %w", err)
	}
	defer rows.Close()

	comments := []*domain.Comment{}
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("load comments scan: %w", err)
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load comments rows: %w", err)
	}
	return comments, nil
}

func (s *PostgresStore) GetComment(ctx context.Context, postID, commentID int64) (*domain.Comment, error) {
	c, err := scanComment(s.pool.QueryRow(ctx, `
		SELECT `+commentColumns+`
		FROM comments
		WHERE post_id = $1 AND id = $2
	`, postID, commentID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", domain.ErrCommentNotFound, commentID)
	}
	if err != nil {
		return nil, fmt.Errorf("get comment: %w", err)
	}
	return c, nil
}

// CreateComment inserts the comment and bumps the post's comment_count in one
// transaction. The post row is locked first so a concurrent post delete either
// happens before (the insert fails with not found) or after (cascade).
func (s *PostgresStore) CreateComment(ctx context.Context, postID int64, text string) (*domain.Comment, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("create comment: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var locked int64
	err = tx.QueryRow(ctx, `SELECT id FROM posts WHERE id = $1 FOR UPDATE`, postID).Scan(&locked)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", domain.ErrPostNotFound, postID)
	}
	if err != nil {
		return nil, fmt.Errorf("create comment: lock post: %w", err)
	}

	c, err := scanComment(tx.QueryRow(ctx, `
		INSERT INTO comments (post_id, text)
		VALUES ($1, $2)
		RETURNING `+commentColumns,
		postID, text))
	if err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}
	if err := adjustCommentCount(ctx, tx, postID, 1); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("create comment: commit: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) UpdateComment(ctx context.Context, postID, commentID int64, text string) (*domain.Comment, error) {
	c, err := scanComment(s.pool.QueryRow(ctx, `
		UPDATE comments
		SET text = $3, updated_at = NOW()
		WHERE post_id = $1 AND id = $2
		RETURNING `+commentColumns,
		postID, commentID, text))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", domain.ErrCommentNotFound, commentID)
	}
	if err != nil {
		return nil, fmt.Errorf("update comment: %w", err)
	}
	return c, nil
}

// DeleteComment removes the comment and decrements comment_count (floored at
// zero) in one transaction.
func (s *PostgresStore) DeleteComment(ctx context.Context, postID, commentID int64) (int64, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("delete comment: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	ct, err := tx.Exec(ctx, `DELETE FROM comments WHERE post_id = $1 AND id = $2`, postID, commentID)
	if err != nil {
		return 0, fmt.Errorf("delete comment: %w", err)
	}
	n := ct.RowsAffected()
	if n == 0 {
		return 0, nil
	}
	if err := adjustCommentCount(ctx, tx, postID, -1); err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("delete comment: commit: %w", err)
	}
	return n, nil
}
