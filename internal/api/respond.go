package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/oriys/inkwell/internal/domain"
	"github.com/oriys/inkwell/internal/logging"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps an engine error onto a status code and a JSON body.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		status int
		code   string
		se     *domain.StoreError
	)
	switch {
	case domain.IsValidation(err):
		status, code = http.StatusBadRequest, "invalid_request"
	case errors.Is(err, domain.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrConsistency):
		status, code = http.StatusInternalServerError, "consistency_fault"
	case errors.As(err, &se):
		status, code = http.StatusServiceUnavailable, "store_unavailable"
	default:
		status, code = http.StatusInternalServerError, "internal"
	}
	if status >= http.StatusInternalServerError {
		logging.FromContext(r.Context()).Error("request failed",
			"method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}
	writeJSON(w, status, errorResponse{Error: code, Message: err.Error()})
}

// pathID parses the named path value as an entity id.
func pathID(r *http.Request, name, field string) (int64, error) {
	raw := r.PathValue(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, &domain.ValidationError{Field: field, Reason: "must be an integer, got " + strconv.Quote(raw)}
	}
	if err := domain.ValidateID(field, id); err != nil {
		return 0, err
	}
	return id, nil
}

// queryInt reads an optional integer query parameter; absent means 0.
func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &domain.ValidationError{Field: name, Reason: "must be an integer"}
	}
	return n, nil
}

func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return &domain.ValidationError{Reason: "invalid JSON: " + err.Error()}
	}
	return nil
}
