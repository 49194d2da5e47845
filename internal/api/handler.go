// Package api is the HTTP adapter over the inkwell engine.
package api

import (
	"net/http"

	"github.com/oriys/inkwell/internal/domain"
	"github.com/oriys/inkwell/internal/metrics"
	"github.com/oriys/inkwell/internal/service"
)

// Handler serves the post, comment and operational routes.
type Handler struct {
	Engine *service.Engine
}

// RegisterRoutes registers all routes on the given mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Posts
	mux.HandleFunc("GET /posts", h.ListPosts)
	mux.HandleFunc("POST /posts", h.CreatePost)
	mux.HandleFunc("GET /posts/{id}", h.GetPost)
	mux.HandleFunc("PUT /posts/{id}", h.UpdatePost)
	mux.HandleFunc("DELETE /posts/{id}", h.DeletePost)
	mux.HandleFunc("POST /posts/{id}/like", h.LikePost)

	// Comments
	mux.HandleFunc("GET /posts/{id}/comments", h.ListComments)
	mux.HandleFunc("POST /posts/{id}/comments", h.CreateComment)
	mux.HandleFunc("GET /posts/{id}/comments/{cid}", h.GetComment)
	mux.HandleFunc("PUT /posts/{id}/comments/{cid}", h.UpdateComment)
	mux.HandleFunc("DELETE /posts/{id}/comments/{cid}", h.DeleteComment)

	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /stats", h.Stats)
	mux.Handle("GET /metrics", metrics.PrometheusHandler())
}

// ListPosts handles GET /posts?search=&page=&size=
func (h *Handler) ListPosts(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page")
	if err != nil {
		writeError(w, r, err)
		return
	}
	size, err := queryInt(r, "size")
	if err != nil {
		writeError(w, r, err)
		return
	}
	result := h.Engine.GetPosts(r.Context(), r.URL.Query().Get("search"), page, size)
	writeJSON(w, http.StatusOK, result)
}

// CreatePost handles POST /posts
func (h *Handler) CreatePost(w http.ResponseWriter, r *http.Request) {
	var in domain.PostInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.Engine.CreatePost(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// GetPost handles GET /posts/{id}
func (h *Handler) GetPost(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "post id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.Engine.GetPost(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// UpdatePost handles PUT /posts/{id}
func (h *Handler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "post id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in domain.PostInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.Engine.UpdatePost(r.Context(), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// DeletePost handles DELETE /posts/{id}
func (h *Handler) DeletePost(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "post id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Engine.DeletePost(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// LikePost handles POST /posts/{id}/like
func (h *Handler) LikePost(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "post id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.Engine.IncrementLikes(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Health handles GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.Engine.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unavailable",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Stats handles GET /stats
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Engine.Stats())
}
