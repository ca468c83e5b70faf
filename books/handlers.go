package books

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handlers exposes the repository over JSON endpoints.
type Handlers struct {
	repo *Repo
	log  zerolog.Logger
}

// NewHandlers builds the handler set around repo.
func NewHandlers(repo *Repo, log zerolog.Logger) *Handlers {
	return &Handlers{repo: repo, log: log.With().Str("component", "books").Logger()}
}

// ListBooks handles GET /books.
func (h *Handlers) ListBooks(w http.ResponseWriter, r *http.Request) {
	list, err := h.repo.ListBooks(r.Context())
	if err != nil {
		h.serverError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// GetBook handles GET /books/{id}.
func (h *Handlers) GetBook(w http.ResponseWriter, r *http.Request) {
	b, err := h.repo.GetBook(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.repoError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// CreateBook handles POST /books.
func (h *Handlers) CreateBook(w http.ResponseWriter, r *http.Request) {
	var in BookInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	b, err := h.repo.CreateBook(r.Context(), in)
	if err != nil {
		h.repoError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

// UpdateBook handles PUT /books/{id}.
func (h *Handlers) UpdateBook(w http.ResponseWriter, r *http.Request) {
	var in BookInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	b, err := h.repo.UpdateBook(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		h.repoError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// DeleteBook handles DELETE /books/{id}.
func (h *Handlers) DeleteBook(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.DeleteBook(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.repoError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListCategories handles GET /categories.
func (h *Handlers) ListCategories(w http.ResponseWriter, r *http.Request) {
	list, err := h.repo.ListCategories(r.Context())
	if err != nil {
		h.serverError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// CreateCategory handles POST /categories.
func (h *Handlers) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var in CategoryInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	c, err := h.repo.CreateCategory(r.Context(), in)
	if err != nil {
		h.repoError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// repoError maps repository errors onto HTTP statuses.
func (h *Handlers) repoError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, ErrTitleRequired),
		errors.Is(err, ErrAuthorRequired),
		errors.Is(err, ErrCategoryRequired),
		errors.Is(err, ErrNameRequired):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.serverError(w, err)
	}
}

func (h *Handlers) serverError(w http.ResponseWriter, err error) {
	h.log.Error().Err(err).Msg("request failed")
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"statusCode": status,
		"message":    msg,
	})
}
