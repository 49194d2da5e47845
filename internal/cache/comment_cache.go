package cache

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/oriys/inkwell/internal/domain"
	"github.com/oriys/inkwell/internal/metrics"
	"golang.org/x/sync/singleflight"
)

// CommentSource is the slice of the entity store the comment cache reads from.
type CommentSource interface {
	// LoadCommentsForPost returns the full comment sequence of a post in
	// creation order.
	LoadCommentsForPost(ctx context.Context, postID int64) ([]*domain.Comment, error)
	// GetComment is a point query used before a post's sequence is loaded.
	GetComment(ctx context.Context, postID, commentID int64) (*domain.Comment, error)
}

// CommentCache holds one lazily loaded comment sequence per post. The first
// read of a post loads the sequence from the source exactly once, even when
// many callers race on it. Writes that land before that load are kept as
// pending changes and folded into the loaded sequence, so an early write never
// hides the comments that already exist in the store.
type CommentCache struct {
	source  CommentSource
	entries sync.Map // int64 -> *commentList
	group   singleflight.Group

	loaded atomic.Int64
	hits   atomic.Int64
	misses atomic.Int64
}

type commentList struct {
	mu     sync.RWMutex
	loaded bool
	items  []*domain.Comment

	// Only used while !loaded.
	pending    []*domain.Comment
	tombstones map[int64]struct{}

	forgotten bool
}

// CommentCacheStats is a point-in-time view of cache activity.
type CommentCacheStats struct {
	LoadedPosts int64 `json:"loaded_posts"`
	Hits        int64 `json:"hits"`
	Misses      int64 `json:"misses"`
}

func NewCommentCache(source CommentSource) *CommentCache {
	return &CommentCache{source: source}
}

func (c *CommentCache) entry(postID int64) *commentList {
	if v, ok := c.entries.Load(postID); ok {
		return v.(*commentList)
	}
	v, _ := c.entries.LoadOrStore(postID, &commentList{})
	return v.(*commentList)
}

// Get returns a copy of the comment sequence for postID, loading it from the
// source on first access.
func (c *CommentCache) Get(ctx context.Context, postID int64) ([]*domain.Comment, error) {
	l := c.entry(postID)

	l.mu.RLock()
	if l.loaded {
		out := slices.Clone(l.items)
		l.mu.RUnlock()
		c.hits.Add(1)
		metrics.RecordCommentCacheRequest("hit")
		return out, nil
	}
	l.mu.RUnlock()
	c.misses.Add(1)
	metrics.RecordCommentCacheRequest("miss")

	// The load outlives any single caller that joined it.
	loadCtx := context.WithoutCancel(ctx)
	key := strconv.FormatInt(postID, 10)
	for {
		_, err, _ := c.group.Do(key, func() (interface{}, error) {
			return nil, c.load(loadCtx, postID, l)
		})
		if err != nil {
			return nil, err
		}
		// A call started for a list that was forgotten in the meantime
		// loads that list, not ours; go round again.
		l.mu.RLock()
		if l.loaded {
			out := slices.Clone(l.items)
			l.mu.RUnlock()
			return out, nil
		}
		l.mu.RUnlock()
	}
}

func (c *CommentCache) load(ctx context.Context, postID int64, l *commentList) error {
	l.mu.RLock()
	done := l.loaded
	l.mu.RUnlock()
	if done {
		return nil
	}

	stored, err := c.source.LoadCommentsForPost(ctx, postID)
	if err != nil {
		return fmt.Errorf("load comments for post %d: %w", postID, err)
	}
	metrics.RecordCommentCacheLoad()

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.loaded {
		return nil
	}
	l.items = mergePending(stored, l.pending, l.tombstones)
	l.pending = nil
	l.tombstones = nil
	l.loaded = true
	if !l.forgotten {
		c.loaded.Add(1)
	}
	return nil
}

// mergePending folds writes recorded before the first load into the stored
// sequence. A pending snapshot supersedes a stored one with the same id and
// moves to the end, like Replace.
func mergePending(stored, pending []*domain.Comment, tombstones map[int64]struct{}) []*domain.Comment {
	out := make([]*domain.Comment, 0, len(stored)+len(pending))
	for _, s := range stored {
		if _, gone := tombstones[s.ID]; gone {
			continue
		}
		if slices.ContainsFunc(pending, func(p *domain.Comment) bool { return p.ID == s.ID }) {
			continue
		}
		out = append(out, s)
	}
	return append(out, pending...)
}

// GetOne prefers the cached sequence and falls back to a point query against
// the source only when the post's sequence has not been loaded yet.
func (c *CommentCache) GetOne(ctx context.Context, postID, commentID int64) (*domain.Comment, error) {
	notFound := fmt.Errorf("%w: %d", domain.ErrCommentNotFound, commentID)
	byID := func(cm *domain.Comment) bool { return cm.ID == commentID }

	if v, ok := c.entries.Load(postID); ok {
		l := v.(*commentList)
		l.mu.RLock()
		if l.loaded {
			i := slices.IndexFunc(l.items, byID)
			var found *domain.Comment
			if i >= 0 {
				found = l.items[i]
			}
			l.mu.RUnlock()
			if found == nil {
				return nil, notFound
			}
			return found, nil
		}
		if i := slices.IndexFunc(l.pending, byID); i >= 0 {
			found := l.pending[i]
			l.mu.RUnlock()
			return found, nil
		}
		_, gone := l.tombstones[commentID]
		l.mu.RUnlock()
		if gone {
			return nil, notFound
		}
	}

	cm, err := c.source.GetComment(ctx, postID, commentID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, notFound
		}
		return nil, err
	}
	return cm, nil
}

// Append adds a freshly created comment to the end of the post's sequence.
// A load that raced with the store write may already have brought the
// comment in; it is not added twice.
func (c *CommentCache) Append(postID int64, cm *domain.Comment) {
	byID := func(x *domain.Comment) bool { return x.ID == cm.ID }
	l := c.entry(postID)
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.loaded {
		if !slices.ContainsFunc(l.items, byID) {
			l.items = append(l.items, cm)
		}
		return
	}
	if !slices.ContainsFunc(l.pending, byID) {
		l.pending = append(l.pending, cm)
	}
}

// Replace removes any cached snapshot with cm's id and appends cm, so the
// sequence never holds two snapshots of one comment.
func (c *CommentCache) Replace(postID int64, cm *domain.Comment) {
	byID := func(x *domain.Comment) bool { return x.ID == cm.ID }
	l := c.entry(postID)
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.loaded {
		l.items = append(slices.DeleteFunc(l.items, byID), cm)
		return
	}
	l.pending = append(slices.DeleteFunc(l.pending, byID), cm)
}

// Remove drops commentID from the post's sequence.
func (c *CommentCache) Remove(postID, commentID int64) {
	byID := func(x *domain.Comment) bool { return x.ID == commentID }
	v, ok := c.entries.Load(postID)
	if !ok {
		return
	}
	l := v.(*commentList)
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.loaded {
		l.items = slices.DeleteFunc(l.items, byID)
		return
	}
	l.pending = slices.DeleteFunc(l.pending, byID)
	if l.tombstones == nil {
		l.tombstones = make(map[int64]struct{})
	}
	l.tombstones[commentID] = struct{}{}
}

// Forget discards everything cached for postID. It is called when the post
// itself is deleted.
func (c *CommentCache) Forget(postID int64) {
	v, ok := c.entries.LoadAndDelete(postID)
	if !ok {
		return
	}
	l := v.(*commentList)
	l.mu.Lock()
	defer l.mu.Unlock()
	l.forgotten = true
	if l.loaded {
		c.loaded.Add(-1)
	}
}

// Loaded reports whether postID's sequence has been loaded from the source.
func (c *CommentCache) Loaded(postID int64) bool {
	v, ok := c.entries.Load(postID)
	if !ok {
		return false
	}
	l := v.(*commentList)
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.loaded
}

func (c *CommentCache) Stats() CommentCacheStats {
	return CommentCacheStats{
		LoadedPosts: c.loaded.Load(),
		Hits:        c.hits.Load(),
		Misses:      c.misses.Load(),
	}
}
