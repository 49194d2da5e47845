package api

import (
	"net/http"

	"github.com/oriys/inkwell/internal/domain"
)

// ListComments handles GET /posts/{id}/comments
func (h *Handler) ListComments(w http.ResponseWriter, r *http.Request) {
	postID, err := pathID(r, "id", "post id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	comments, err := h.Engine.GetComments(r.Context(), postID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if comments == nil {
		comments = []*domain.Comment{}
	}
	writeJSON(w, http.StatusOK, comments)
}

// CreateComment handles POST /posts/{id}/comments
func (h *Handler) CreateComment(w http.ResponseWriter, r *http.Request) {
	postID, err := pathID(r, "id", "post id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in domain.CommentInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.Engine.CreateComment(r.Context(), postID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func commentIDs(r *http.Request) (postID, commentID int64, err error) {
	if postID, err = pathID(r, "id", "post id"); err != nil {
		return 0, 0, err
	}
	if commentID, err = pathID(r, "cid", "comment id"); err != nil {
		return 0, 0, err
	}
	return postID, commentID, nil
}

// GetComment handles GET /posts/{id}/comments/{cid}
func (h *Handler) GetComment(w http.ResponseWriter, r *http.Request) {
	postID, commentID, err := commentIDs(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.Engine.GetComment(r.Context(), postID, commentID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// UpdateComment handles PUT /posts/{id}/comments/{cid}
func (h *Handler) UpdateComment(w http.ResponseWriter, r *http.Request) {
	postID, commentID, err := commentIDs(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in domain.CommentInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.Engine.UpdateComment(r.Context(), postID, commentID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// DeleteComment handles DELETE /posts/{id}/comments/{cid}
func (h *Handler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	postID, commentID, err := commentIDs(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Engine.DeleteComment(r.Context(), postID, commentID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
