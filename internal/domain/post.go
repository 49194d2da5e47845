package domain

import (
	"slices"
	"time"
)

// Post is an immutable snapshot of a post. Writers never modify a Post that
// has been handed to the cache; they derive a new one with the With* helpers.
type Post struct {
	ID           int64     `json:"id"`
	Title        string    `json:"title"`
	Text         string    `json:"text"`
	Tags         []string  `json:"tags"`
	Likes        int64     `json:"likes"`
	CommentCount int64     `json:"comment_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Comment is a text item attached to exactly one post.
type Comment struct {
	ID        int64     `json:"id"`
	PostID    int64     `json:"post_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasTag reports whether tag is in the post's tag set (exact match).
func (p *Post) HasTag(tag string) bool {
	return slices.Contains(p.Tags, tag)
}

// Clone returns a copy that shares nothing mutable with p.
func (p *Post) Clone() *Post {
	cp := *p
	cp.Tags = slices.Clone(p.Tags)
	return &cp
}

// WithLikes returns a copy of p with the likes counter replaced.
func (p *Post) WithLikes(likes int64) *Post {
	cp := p.Clone()
	cp.Likes = likes
	return cp
}

// WithCommentCount returns a copy of p with the comment counter replaced.
// Negative values are floored at zero.
func (p *Post) WithCommentCount(n int64) *Post {
	if n < 0 {
		n = 0
	}
	cp := p.Clone()
	cp.CommentCount = n
	return cp
}

// NormalizeTags returns the tag set sorted and without duplicates.
// Tags are case-sensitive and compared exactly.
func NormalizeTags(tags []string) []string {
	out := slices.Clone(tags)
	slices.Sort(out)
	out = slices.Compact(out)
	if out == nil {
		out = []string{}
	}
	return out
}
