package handler

import (
	"context"
	"net/http"

	"github.com/chavepixclub/backend/internal/domain"
)

type ProfileSyncer interface {
	Sync(ctx context.Context, user *domain.Identity) (*domain.Profile, error)
}

// SessionHandler exposes the current identity and mirrors it on sign-in.
type SessionHandler struct {
	profiles ProfileSyncer
}

func NewSessionHandler(profiles ProfileSyncer) *SessionHandler {
	return &SessionHandler{profiles: profiles}
}

// Me handles GET /api/me.
func (h *SessionHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := CurrentUser(r)
	if !ok {
		Error(w, domain.ErrUnauthorized("unauthorized"))
		return
	}
	JSON(w, http.StatusOK, user)
}

// Sync handles POST /api/session, called by the client after sign-in.
func (h *SessionHandler) Sync(w http.ResponseWriter, r *http.Request) {
	user, ok := CurrentUser(r)
	if !ok {
		Error(w, domain.ErrUnauthorized("unauthorized"))
		return
	}
	p, err := h.profiles.Sync(r.Context(), user)
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, p)
}
