package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/harunzafer/fastsvelte/internal/domain"
	"github.com/harunzafer/fastsvelte/internal/service"
	"github.com/harunzafer/fastsvelte/pkg/httputil"
	"github.com/harunzafer/fastsvelte/pkg/pagination"
)

// NoteManager is implemented by *service.NoteService.
type NoteManager interface {
	Create(ctx context.Context, actor *domain.AuthenticatedUser, in service.CreateNoteInput) (*domain.Note, error)
	Get(ctx context.Context, actor *domain.AuthenticatedUser, id int64) (*domain.Note, error)
	List(ctx context.Context, actor *domain.AuthenticatedUser, p pagination.Params) (pagination.Page[domain.Note], error)
	Update(ctx context.Context, actor *domain.AuthenticatedUser, id int64, in service.UpdateNoteInput) (*domain.Note, error)
	Delete(ctx context.Context, actor *domain.AuthenticatedUser, id int64) error
	Summarize(ctx context.Context, actor *domain.AuthenticatedUser, id int64) (*domain.Note, error)
}

// NoteHandler handles note CRUD and summarization.
type NoteHandler struct {
	notes  NoteManager
	logger *slog.Logger
}

func NewNoteHandler(notes NoteManager, logger *slog.Logger) *NoteHandler {
	return &NoteHandler{notes: notes, logger: logger}
}

// List handles GET /notes
func (h *NoteHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := h.notes.List(r.Context(), actor(r), pagination.FromRequest(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: page})
}

// Create handles POST /notes
func (h *NoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.CreateNoteInput
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	n, err := h.notes.Create(r.Context(), actor(r), req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: n})
}

// Get handles GET /notes/{id}
func (h *NoteHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	n, err := h.notes.Get(r.Context(), actor(r), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: n})
}

// Update handles PUT /notes/{id}
func (h *NoteHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	var req service.UpdateNoteInput
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	n, err := h.notes.Update(r.Context(), actor(r), id, req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: n})
}

// Delete handles DELETE /notes/{id}
func (h *NoteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	if err := h.notes.Delete(r.Context(), actor(r), id); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Summarize handles POST /notes/{id}/summarize
func (h *NoteHandler) Summarize(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	n, err := h.notes.Summarize(r.Context(), actor(r), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: n})
}
