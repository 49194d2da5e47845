package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/oriys/inkwell/internal/domain"
	"github.com/oriys/inkwell/internal/query"
	"github.com/oriys/inkwell/internal/ratelimit"
	"github.com/oriys/inkwell/internal/service"
	"github.com/oriys/inkwell/internal/store"
)

func newTestServer(t *testing.T, s store.EntityStore, limiter *ratelimit.Limiter) *httptest.Server {
	t.Helper()
	engine := service.New(s, service.Options{DefaultPageSize: 2, MaxPageSize: 10})
	if err := engine.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	srv := httptest.NewServer(NewHandler(ServerConfig{Engine: engine, Limiter: limiter}))
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, srv *httptest.Server, method, path string, body interface{}, out interface{}) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return resp
}

func postIDs(posts []*domain.Post) []int64 {
	out := make([]int64, len(posts))
	for i, p := range posts {
		out[i] = p.ID
	}
	return out
}

func TestPostRoutes(t *testing.T) {
	srv := newTestServer(t, store.NewMemoryStore(), nil)

	inputs := []domain.PostInput{
		{Title: "Go channels", Text: "buffered and not", Tags: []string{"go"}},
		{Title: "Rust", Text: "ownership", Tags: []string{"rust"}},
		{Title: "Go generics", Text: "type params", Tags: []string{"go", "generics"}},
		{Title: "Go maps", Text: "hashing", Tags: []string{"go"}},
	}
	for _, in := range inputs {
		if resp := do(t, srv, http.MethodPost, "/posts", in, nil); resp.StatusCode != http.StatusCreated {
			t.Fatalf("create %q: status %d", in.Title, resp.StatusCode)
		}
	}

	var page query.Page
	do(t, srv, http.MethodGet, "/posts?search=%23go&page=2", nil, &page)
	if diff := cmp.Diff([]int64{4}, postIDs(page.Posts)); diff != "" {
		t.Fatalf("page 2 mismatch (-want +got):\n%s", diff)
	}
	if !page.HasPrev || page.HasNext || page.TotalMatches != 3 || page.PageSize != 2 {
		t.Fatalf("unexpected page metadata: %+v", page)
	}

	do(t, srv, http.MethodGet, "/posts?search=Go+%23generics", nil, &page)
	if diff := cmp.Diff([]int64{3}, postIDs(page.Posts)); diff != "" {
		t.Fatalf("text+tag search mismatch (-want +got):\n%s", diff)
	}

	var p domain.Post
	if resp := do(t, srv, http.MethodPost, "/posts/2/like", nil, &p); resp.StatusCode != http.StatusOK || p.Likes != 1 {
		t.Fatalf("like: status %d likes %d", resp.StatusCode, p.Likes)
	}

	upd := domain.PostInput{Title: "Rust 2024", Text: "editions", Tags: []string{"rust"}}
	if resp := do(t, srv, http.MethodPut, "/posts/2", upd, &p); resp.StatusCode != http.StatusOK {
		t.Fatalf("update: status %d", resp.StatusCode)
	}
	if p.Title != "Rust 2024" || p.Likes != 1 {
		t.Fatalf("update lost fields: %+v", p)
	}

	if resp := do(t, srv, http.MethodDelete, "/posts/2", nil, nil); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete: status %d", resp.StatusCode)
	}
	if resp := do(t, srv, http.MethodGet, "/posts/2", nil, nil); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("get deleted: status %d", resp.StatusCode)
	}
}

func TestCommentRoutes(t *testing.T) {
	srv := newTestServer(t, store.NewMemoryStore(), nil)
	do(t, srv, http.MethodPost, "/posts", domain.PostInput{Title: "t", Text: "x"}, nil)

	for _, text := range []string{"first", "second", "third"} {
		if resp := do(t, srv, http.MethodPost, "/posts/1/comments", domain.CommentInput{Text: text}, nil); resp.StatusCode != http.StatusCreated {
			t.Fatalf("create comment %q: status %d", text, resp.StatusCode)
		}
	}

	var c domain.Comment
	if resp := do(t, srv, http.MethodPut, "/posts/1/comments/1", domain.CommentInput{Text: "first, edited"}, &c); resp.StatusCode != http.StatusOK {
		t.Fatalf("update comment: status %d", resp.StatusCode)
	}
	if resp := do(t, srv, http.MethodDelete, "/posts/1/comments/2", nil, nil); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete comment: status %d", resp.StatusCode)
	}

	var comments []*domain.Comment
	do(t, srv, http.MethodGet, "/posts/1/comments", nil, &comments)
	var texts []string
	for _, c := range comments {
		texts = append(texts, c.Text)
	}
	if diff := cmp.Diff([]string{"third", "first, edited"}, texts); diff != "" {
		t.Fatalf("comment sequence mismatch (-want +got):\n%s", diff)
	}

	do(t, srv, http.MethodGet, "/posts/1/comments/3", nil, &c)
	if c.Text != "third" {
		t.Fatalf("get comment: %+v", c)
	}
	if resp := do(t, srv, http.MethodGet, "/posts/1/comments/2", nil, nil); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("deleted comment: status %d", resp.StatusCode)
	}

	var p domain.Post
	do(t, srv, http.MethodGet, "/posts/1", nil, &p)
	if p.CommentCount != 2 {
		t.Fatalf("comment count = %d, want 2", p.CommentCount)
	}

	var empty []*domain.Comment
	do(t, srv, http.MethodPost, "/posts", domain.PostInput{Title: "quiet", Text: "y"}, nil)
	do(t, srv, http.MethodGet, "/posts/2/comments", nil, &empty)
	if empty == nil || len(empty) != 0 {
		t.Fatalf("expected an empty JSON array, got %v", empty)
	}
}

func TestRequestErrors(t *testing.T) {
	srv := newTestServer(t, store.NewMemoryStore(), nil)
	do(t, srv, http.MethodPost, "/posts", domain.PostInput{Title: "t", Text: "x"}, nil)

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		want   int
	}{
		{"non-numeric id", http.MethodGet, "/posts/abc", nil, http.StatusBadRequest},
		{"zero id", http.MethodGet, "/posts/0", nil, http.StatusBadRequest},
		{"missing post", http.MethodGet, "/posts/99", nil, http.StatusNotFound},
		{"like missing post", http.MethodPost, "/posts/99/like", nil, http.StatusNotFound},
		{"comments of missing post", http.MethodGet, "/posts/99/comments", nil, http.StatusNotFound},
		{"bad comment id", http.MethodGet, "/posts/1/comments/x", nil, http.StatusBadRequest},
		{"missing comment", http.MethodGet, "/posts/1/comments/5", nil, http.StatusNotFound},
		{"invalid JSON", http.MethodPost, "/posts", "{", http.StatusBadRequest},
		{"unknown field", http.MethodPost, "/posts", `{"title":"a","text":"b","likes":9}`, http.StatusBadRequest},
		{"empty title", http.MethodPost, "/posts", domain.PostInput{Text: "x"}, http.StatusBadRequest},
		{"empty comment", http.MethodPost, "/posts/1/comments", domain.CommentInput{}, http.StatusBadRequest},
		{"bad page", http.MethodGet, "/posts?page=two", nil, http.StatusBadRequest},
		{"bad size", http.MethodGet, "/posts?size=1.5", nil, http.StatusBadRequest},
		{"page below one", http.MethodGet, "/posts?page=-3", nil, http.StatusOK},
		{"max page", http.MethodGet, "/posts?page=9223372036854775807&size=10", nil, http.StatusOK},
		{"huge page", http.MethodGet, "/posts?page=92233720368547765", nil, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, srv, tt.method, tt.path, tt.body, nil)
			if resp.StatusCode != tt.want {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}

func TestWriteErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
		code string
	}{
		{&domain.ValidationError{Field: "title", Reason: "is required"}, http.StatusBadRequest, "invalid_request"},
		{fmt.Errorf("%w: 3", domain.ErrPostNotFound), http.StatusNotFound, "not_found"},
		{domain.ConsistencyFault("increment_likes", 3, "missing from cache"), http.StatusInternalServerError, "consistency_fault"},
		{&domain.StoreError{Op: "create_post", Err: errors.New("connection refused")}, http.StatusServiceUnavailable, "store_unavailable"},
		{errors.New("boom"), http.StatusInternalServerError, "internal"},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		writeError(rec, httptest.NewRequest(http.MethodGet, "/posts", nil), tt.err)
		if rec.Code != tt.want {
			t.Errorf("%v: status = %d, want %d", tt.err, rec.Code, tt.want)
		}
		var body errorResponse
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.Error != tt.code || body.Message != tt.err.Error() {
			t.Errorf("%v: body = %+v", tt.err, body)
		}
	}
}

type downStore struct {
	*store.MemoryStore
}

var errDown = errors.New("connection refused")

func (downStore) Ping(context.Context) error { return errDown }

func (downStore) CreatePost(context.Context, string, string, []string) (*domain.Post, error) {
	return nil, errDown
}

func TestStoreFailures(t *testing.T) {
	srv := newTestServer(t, downStore{store.NewMemoryStore()}, nil)

	if resp := do(t, srv, http.MethodPost, "/posts", domain.PostInput{Title: "t", Text: "x"}, nil); resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("create with store down: status %d", resp.StatusCode)
	}
	if resp := do(t, srv, http.MethodGet, "/health", nil, nil); resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("health with store down: status %d", resp.StatusCode)
	}

	var page query.Page
	if resp := do(t, srv, http.MethodGet, "/posts", nil, &page); resp.StatusCode != http.StatusOK {
		t.Fatalf("reads must not touch the store: status %d", resp.StatusCode)
	}
}

func TestHealthAndStats(t *testing.T) {
	srv := newTestServer(t, store.NewMemoryStore(), nil)
	do(t, srv, http.MethodPost, "/posts", domain.PostInput{Title: "t", Text: "x"}, nil)
	do(t, srv, http.MethodGet, "/posts/1/comments", nil, nil)

	var health map[string]string
	if resp := do(t, srv, http.MethodGet, "/health", nil, &health); resp.StatusCode != http.StatusOK || health["status"] != "ok" {
		t.Fatalf("health: status %d body %v", resp.StatusCode, health)
	}

	var stats service.Stats
	do(t, srv, http.MethodGet, "/stats", nil, &stats)
	if stats.Posts != 1 || stats.CommentCache.LoadedPosts != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestRequestID(t *testing.T) {
	srv := newTestServer(t, store.NewMemoryStore(), nil)

	resp := do(t, srv, http.MethodGet, "/health", nil, nil)
	if _, err := uuid.Parse(resp.Header.Get(RequestIDHeader)); err != nil {
		t.Fatalf("generated request id %q: %v", resp.Header.Get(RequestIDHeader), err)
	}

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/health", nil)
	req.Header.Set(RequestIDHeader, "client-supplied")
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()
	if got := resp.Header.Get(RequestIDHeader); got != "client-supplied" {
		t.Fatalf("request id = %q, want client-supplied", got)
	}
}

func TestRateLimitedWrites(t *testing.T) {
	limiter := ratelimit.New(ratelimit.NewLocalBackend(), ratelimit.Config{
		RequestsPerSecond: 0.001,
		BurstSize:         2,
	})
	srv := newTestServer(t, store.NewMemoryStore(), limiter)

	do(t, srv, http.MethodPost, "/posts", domain.PostInput{Title: "t", Text: "x"}, nil)
	for i := 0; i < 2; i++ {
		if resp := do(t, srv, http.MethodPost, "/posts/1/like", nil, nil); resp.StatusCode != http.StatusOK {
			t.Fatalf("like %d within burst: status %d", i, resp.StatusCode)
		}
	}
	resp := do(t, srv, http.MethodPost, "/posts/1/like", nil, nil)
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("like over burst: status %d", resp.StatusCode)
	}
	if resp.Header.Get("Retry-After") == "" {
		t.Fatal("missing Retry-After")
	}

	for i := 0; i < 3; i++ {
		if resp := do(t, srv, http.MethodGet, "/posts/1", nil, nil); resp.StatusCode != http.StatusOK {
			t.Fatalf("reads are not limited: status %d", resp.StatusCode)
		}
	}
	var p domain.Post
	do(t, srv, http.MethodGet, "/posts/1", nil, &p)
	if p.Likes != 2 {
		t.Fatalf("likes = %d, want 2", p.Likes)
	}
	if resp := do(t, srv, http.MethodPost, "/posts/1/comments", domain.CommentInput{Text: "still allowed"}, nil); resp.StatusCode != http.StatusCreated {
		t.Fatalf("comments have their own bucket: status %d", resp.StatusCode)
	}
}

func TestUnknownRoute(t *testing.T) {
	srv := newTestServer(t, store.NewMemoryStore(), nil)
	resp := do(t, srv, http.MethodPatch, "/posts/1", "{}", nil)
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", resp.StatusCode)
	}
}
