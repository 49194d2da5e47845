// Package query implements search, tag filtering and page windowing over a
// snapshot of cached posts. Everything here is pure: no locking, no store
// access.
package query

import (
	"sort"
	"strings"

	"github.com/oriys/inkwell/internal/domain"
)

// TagMarker prefixes a search token that must match a post tag exactly.
const TagMarker = "#"

// Query is a parsed search string.
type Query struct {
	// Text is the free-text fragment: non-tag tokens joined by single
	// spaces. Empty matches every post.
	Text string
	// Tags must all be present on a post. Empty matches every post.
	Tags []string
}

// Parse splits search on whitespace and partitions the tokens into tag
// tokens (marker stripped) and text tokens.
func Parse(search string) Query {
	var q Query
	var text []string
	for _, tok := range strings.Fields(search) {
		if tag, ok := strings.CutPrefix(tok, TagMarker); ok {
			// A bare "#" yields the empty tag, which no post carries.
			q.Tags = append(q.Tags, tag)
			continue
		}
		text = append(text, tok)
	}
	q.Text = strings.Join(text, " ")
	return q
}

// Match reports whether p satisfies both the text and the tag dimension.
// Text matching is case-sensitive substring containment in title or body.
func (q Query) Match(p *domain.Post) bool {
	if q.Text != "" && !strings.Contains(p.Title, q.Text) && !strings.Contains(p.Text, q.Text) {
		return false
	}
	for _, tag := range q.Tags {
		if !p.HasTag(tag) {
			return false
		}
	}
	return true
}

// Filter returns the posts matching q ordered by id ascending. posts is not
// modified.
func (q Query) Filter(posts []*domain.Post) []*domain.Post {
	out := make([]*domain.Post, 0, len(posts))
	for _, p := range posts {
		if q.Match(p) {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Page is one window of a filtered, ordered result.
type Page struct {
	Posts        []*domain.Post `json:"posts"`
	PageNumber   int            `json:"page"`
	PageSize     int            `json:"size"`
	HasPrev      bool           `json:"has_prev"`
	HasNext      bool           `json:"has_next"`
	TotalMatches int            `json:"total_matches"`
	TotalPages   int            `json:"total_pages"`
}

// Window computes the half-open range [from, to) of page pageNumber (1-based)
// over total items. A page number below 1 is treated as 1 and a negative size
// as 0; out-of-range pages produce an empty window.
func Window(total, pageNumber, pageSize int) (from, to int) {
	pageNumber = max(pageNumber, 1)
	pageSize = max(pageSize, 0)
	if pageSize == 0 {
		return 0, 0
	}
	// skip*pageSize cannot overflow once skip <= total/pageSize.
	if skip := pageNumber - 1; skip > total/pageSize {
		from = total
	} else {
		from = skip * pageSize
	}
	to = from + min(pageSize, total-from)
	return from, to
}

// Paginate slices an already ordered result into a Page.
func Paginate(matches []*domain.Post, pageNumber, pageSize int) Page {
	total := len(matches)
	from, to := Window(total, pageNumber, pageSize)

	page := Page{
		Posts:        append([]*domain.Post{}, matches[from:to]...),
		PageNumber:   max(pageNumber, 1),
		PageSize:     max(pageSize, 0),
		HasPrev:      from > 0,
		HasNext:      to < total,
		TotalMatches: total,
	}
	if page.PageSize > 0 {
		page.TotalPages = total / page.PageSize
		if total%page.PageSize != 0 {
			page.TotalPages++
		}
	}
	return page
}

// Search parses search, filters posts and returns the requested page.
func Search(posts []*domain.Post, search string, pageNumber, pageSize int) Page {
	return Paginate(Parse(search).Filter(posts), pageNumber, pageSize)
}
