package handler

import (
	"context"
	"net/http"

	"github.com/chavepixclub/backend/internal/domain"
	"github.com/go-chi/chi/v5"
)

// KeyRegistry provisions and lists personalized keys.
type KeyRegistry interface {
	CreateKey(ctx context.Context, user *domain.Identity, handle string) (*domain.PixKey, error)
	List(ctx context.Context, userID string) ([]*domain.PixKey, error)
	SetStatus(ctx context.Context, id string, status domain.KeyStatus) (*domain.PixKey, error)
}

type KeyHandler struct {
	svc KeyRegistry
}

func NewKeyHandler(svc KeyRegistry) *KeyHandler {
	return &KeyHandler{svc: svc}
}

// List handles GET /api/keys.
func (h *KeyHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := CurrentUser(r)
	if !ok {
		Error(w, domain.ErrUnauthorized("unauthorized"))
		return
	}
	keys, err := h.svc.List(r.Context(), user.ID)
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, keys)
}

// Create handles POST /api/keys.
func (h *KeyHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := CurrentUser(r)
	if !ok {
		Error(w, domain.ErrUnauthorized("unauthorized"))
		return
	}

	var req domain.CreateKeyRequest
	if err := DecodeJSON(r, &req); err != nil {
		Error(w, err)
		return
	}

	key, err := h.svc.CreateKey(r.Context(), user, req.LocalHandle)
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusCreated, key)
}

// SetStatus handles PATCH /api/admin/keys/{id}.
func (h *KeyHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateKeyStatusRequest
	if err := DecodeJSON(r, &req); err != nil {
		Error(w, err)
		return
	}
	key, err := h.svc.SetStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, key)
}
