package handler

import (
	"context"
	"net/http"

	"github.com/chavepixclub/backend/internal/domain"
)

type AdminOperations interface {
	Stats(ctx context.Context) (*domain.AdminStats, error)
	SweepAbandoned(ctx context.Context) (int64, error)
}

type AdminHandler struct {
	svc AdminOperations
}

func NewAdminHandler(svc AdminOperations) *AdminHandler {
	return &AdminHandler{svc: svc}
}

// GetStats handles GET /api/admin/stats.
func (h *AdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context())
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, stats)
}

// SweepOrders handles POST /api/admin/orders/sweep.
func (h *AdminHandler) SweepOrders(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.SweepAbandoned(r.Context())
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]int64{"failed": n})
}
