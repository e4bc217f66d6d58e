package handler

import (
	"context"
	"net/http"

	"github.com/chavepixclub/backend/internal/domain"
)

type DashboardReader interface {
	Get(ctx context.Context, userID string) (*domain.Dashboard, error)
}

type DashboardHandler struct {
	svc DashboardReader
}

func NewDashboardHandler(svc DashboardReader) *DashboardHandler {
	return &DashboardHandler{svc: svc}
}

// Get handles GET /api/dashboard.
func (h *DashboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := CurrentUser(r)
	if !ok {
		Error(w, domain.ErrUnauthorized("unauthorized"))
		return
	}
	d, err := h.svc.Get(r.Context(), user.ID)
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, d)
}
