package store

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/oriys/inkwell/internal/domain"
)

// MemoryStore is an EntityStore held entirely in process memory. It backs the
// "memory" store driver for local runs and is the reference store in tests.
type MemoryStore struct {
	mu            sync.Mutex
	posts         map[int64]*domain.Post
	comments      map[int64][]*domain.Comment // post id -> creation order
	nextPostID    int64
	nextCommentID int64
	now           func() time.Time
}

var _ EntityStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		posts:    make(map[int64]*domain.Post),
		comments: make(map[int64][]*domain.Comment),
		now:      time.Now,
	}
}

func (s *MemoryStore) Close() error                 { return nil }
func (s *MemoryStore) Ping(_ context.Context) error { return nil }

func (s *MemoryStore) LoadAllPosts(_ context.Context) ([]*domain.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	posts := make([]*domain.Post, 0, len(s.posts))
	for _, p := range s.posts {
		posts = append(posts, p.Clone())
	}
	sort.Slice(posts, func(i, j int) bool { return posts[i].ID < posts[j].ID })
	return posts, nil
}

func (s *MemoryStore) GetPost(_ context.Context, id int64) (*domain.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", domain.ErrPostNotFound, id)
	}
	return p.Clone(), nil
}

func (s *MemoryStore) CreatePost(_ context.Context, title, text string, tags []string) (*domain.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextPostID++
	now := s.now()
	p := &domain.Post{
		ID:        s.nextPostID,
		Title:     title,
		Text:      text,
		Tags:      domain.NormalizeTags(tags),
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.posts[p.ID] = p
	return p.Clone(), nil
}

func (s *MemoryStore) UpdatePost(_ context.Context, id int64, title, text string, tags []string) (*domain.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", domain.ErrPostNotFound, id)
	}
	p.Title = title
	p.Text = text
	p.Tags = domain.NormalizeTags(tags)
	p.UpdatedAt = s.now()
	return p.Clone(), nil
}

func (s *MemoryStore) DeletePost(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.posts[id]; !ok {
		return fmt.Errorf("%w: %d", domain.ErrPostNotFound, id)
	}
	delete(s.posts, id)
	delete(s.comments, id)
	return nil
}

func (s *MemoryStore) IncrementLikes(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[id]
	if !ok {
		return fmt.Errorf("%w: %d", domain.ErrPostNotFound, id)
	}
	p.Likes++
	return nil
}

func (s *MemoryStore) IncrementCommentCount(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.adjustCommentCountLocked(id, 1)
}

func (s *MemoryStore) DecrementCommentCount(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.adjustCommentCountLocked(id, -1)
}

func (s *MemoryStore) adjustCommentCountLocked(id, delta int64) error {
	p, ok := s.posts[id]
	if !ok {
		return fmt.Errorf("%w: %d", domain.ErrPostNotFound, id)
	}
	p.CommentCount = max(p.CommentCount+delta, 0)
	return nil
}

func (s *MemoryStore) LoadCommentsForPost(_ context.Context, postID int64) ([]*domain.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.Comment, 0, len(s.comments[postID]))
	for _, c := range s.comments[postID] {
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

func (s *MemoryStore) GetComment(_ context.Context, postID, commentID int64) (*domain.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.comments[postID] {
		if c.ID == commentID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("%w: %d", domain.ErrCommentNotFound, commentID)
}

func (s *MemoryStore) CreateComment(_ context.Context, postID int64, text string) (*domain.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.posts[postID]; !ok {
		return nil, fmt.Errorf("%w: %d", domain.ErrPostNotFound, postID)
	}
	s.nextCommentID++
	now := s.now()
	c := &domain.Comment{ID: s.nextCommentID, PostID: postID, Text: text, CreatedAt: now, UpdatedAt: now}
	s.comments[postID] = append(s.comments[postID], c)
	if err := s.adjustCommentCountLocked(postID, 1); err != nil {
		return nil, err
	}
	cp := *c
	return &cp, nil
}

func (s *MemoryStore) UpdateComment(_ context.Context, postID, commentID int64, text string) (*domain.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.comments[postID] {
		if c.ID == commentID {
			c.Text = text
			c.UpdatedAt = s.now()
			cp := *c
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("%w: %d", domain.ErrCommentNotFound, commentID)
}

func (s *MemoryStore) DeleteComment(_ context.Context, postID, commentID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seq := s.comments[postID]
	i := slices.IndexFunc(seq, func(c *domain.Comment) bool { return c.ID == commentID })
	if i < 0 {
		return 0, nil
	}
	s.comments[postID] = slices.Delete(seq, i, i+1)
	if err := s.adjustCommentCountLocked(postID, -1); err != nil {
		return 0, err
	}
	return 1, nil
}
