package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oriys/inkwell/internal/domain"
)

const postColumns = `id, title, text, tags, likes, comment_count, created_at, updated_at`

func scanPost(row pgx.Row) (*domain.Post, error) {
	var p domain.Post
	if err := row.Scan(&p.ID, &p.Title, &p.Text, &p.Tags, &p.Likes, &p.CommentCount, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Tags = domain.NormalizeTags(p.Tags)
	return &p, nil
}

func (s *PostgresStore) LoadAllPosts(ctx context.Context) ([]*domain.Post, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+postColumns+` FROM posts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("load posts: %w", err)
	}
	defer rows.Close()

	var posts []*domain.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("load posts scan: %w", err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load posts rows: %w", err)
	}
	return posts, nil
}

func (s *PostgresStore) GetPost(ctx context.Context, id int64) (*domain.Post, error) {
	p, err := scanPost(s.pool.QueryRow(ctx, `SELECT `+postColumns+` FROM posts WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", domain.ErrPostNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get post: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) CreatePost(ctx context.Context, title, text string, tags []string) (*domain.Post, error) {
	p, err := scanPost(s.pool.QueryRow(ctx, `
		INSERT INTO posts (title, text, tags)
		VALUES ($1, $2, $3)
		RETURNING `+postColumns,
		title, text, domain.NormalizeTags(tags)))
	if err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) UpdatePost(ctx context.Context, id int64, title, text string, tags []string) (*domain.Post, error) {
	p, err := scanPost(s.pool.QueryRow(ctx, `
		UPDATE posts
		SET title = $2, text = $3, tags = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING `+postColumns,
		id, title, text, domain.NormalizeTags(tags)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", domain.ErrPostNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("update post: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) DeletePost(ctx context.Context, id int64) error {
	ct, err := s.pool.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("%w: %d", domain.ErrPostNotFound, id)
	}
	return nil
}

func (s *PostgresStore) IncrementLikes(ctx context.Context, id int64) error {
	ct, err := s.pool.Exec(ctx, `UPDATE posts SET likes = likes + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("increment likes: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("%w: %d", domain.ErrPostNotFound, id)
	}
	return nil
}

func (s *PostgresStore) IncrementCommentCount(ctx context.Context, id int64) error {
	return adjustCommentCount(ctx, s.pool, id, 1)
}

func (s *PostgresStore) DecrementCommentCount(ctx context.Context, id int64) error {
	return adjustCommentCount(ctx, s.pool, id, -1)
}

// execer is satisfied by both *pgxpool.Pool and pgx.Tx.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func adjustCommentCount(ctx context.Context, db execer, id, delta int64) error {
	ct, err := db.Exec(ctx, `
		UPDATE posts SET comment_count = GREATEST(comment_count + $2, 0)
		WHERE id = $1
	`, id, delta)
	if err != nil {
		return fmt.Errorf("adjust comment count: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("%w: %d", domain.ErrPostNotFound, id)
	}
	return nil
}
