// Package cache holds the in-process mirrors of the entity store that serve
// the read path: a complete post map loaded at startup and per-post comment
// sequences loaded lazily on first read.
package cache

import (
	"sync"
	"sync/atomic"

	"github.com/oriys/inkwell/internal/domain"
)

// PostCache maps post id to an immutable post snapshot. Entries are replaced
// wholesale and never modified in place, so a reader holding a snapshot never
// observes a torn update. Operations on different ids do not contend.
type PostCache struct {
	entries sync.Map // int64 -> *domain.Post
	size    atomic.Int64
}

func NewPostCache() *PostCache {
	return &PostCache{}
}

// Load replaces the entire cache content. It must not run concurrently with
// any other operation.
func (c *PostCache) Load(posts []*domain.Post) {
	c.entries.Clear()
	c.size.Store(0)
	for _, p := range posts {
		c.Put(p)
	}
}

// Get returns the cached snapshot for id.
func (c *PostCache) Get(id int64) (*domain.Post, bool) {
	v, ok := c.entries.Load(id)
	if !ok {
		return nil, false
	}
	return v.(*domain.Post), true
}

// Put inserts or replaces the entry for post.ID. The cache takes ownership of
// post; callers must not modify it afterwards.
func (c *PostCache) Put(post *domain.Post) {
	if _, loaded := c.entries.Swap(post.ID, post); !loaded {
		c.size.Add(1)
	}
}

// CompareAndSwap replaces old with new only if old is still the cached
// snapshot for its id. It is the building block for read-modify-write
// counter updates.
func (c *PostCache) CompareAndSwap(old, new *domain.Post) bool {
	return c.entries.CompareAndSwap(old.ID, old, new)
}

// Remove deletes the entry for id if present.
func (c *PostCache) Remove(id int64) {
	if _, loaded := c.entries.LoadAndDelete(id); loaded {
		c.size.Add(-1)
	}
}

// Contains reports whether id has a cached entry.
func (c *PostCache) Contains(id int64) bool {
	_, ok := c.entries.Load(id)
	return ok
}

// Len returns the number of cached posts.
func (c *PostCache) Len() int {
	return int(c.size.Load())
}

// Values returns a point-in-time copy of all entries in no particular order.
func (c *PostCache) Values() []*domain.Post {
	out := make([]*domain.Post, 0, c.Len())
	c.entries.Range(func(_, v any) bool {
		out = append(out, v.(*domain.Post))
		return true
	})
	return out
}
