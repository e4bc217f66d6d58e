package handler

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/chavepixclub/backend/internal/domain"
	"github.com/go-chi/chi/v5"
)

// CheckoutStarter starts hosted checkout and reads the caller's orders.
type CheckoutStarter interface {
	StartCheckout(ctx context.Context, user *domain.Identity, planType domain.PlanType, returnBase string) (*domain.CheckoutResponse, error)
	ListOrders(ctx context.Context, userID string) ([]*domain.Order, error)
	GetOrder(ctx context.Context, userID, id string) (*domain.Order, error)
}

type CheckoutHandler struct {
	svc       CheckoutStarter
	publicURL string
}

// NewCheckoutHandler creates a CheckoutHandler. When publicURL is empty the
// request Origin is used as the return base.
func NewCheckoutHandler(svc CheckoutStarter, publicURL string) *CheckoutHandler {
	return &CheckoutHandler{svc: svc, publicURL: publicURL}
}

// Create handles POST /api/checkout.
func (h *CheckoutHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := CurrentUser(r)
	if !ok {
		Error(w, domain.ErrUnauthorized("unauthorized"))
		return
	}

	var req domain.CheckoutRequest
	if err := DecodeJSON(r, &req); err != nil {
		Error(w, err)
		return
	}

	resp, err := h.svc.StartCheckout(r.Context(), user, req.PlanType, h.returnBase(r))
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, resp)
}

// ListOrders handles GET /api/orders.
func (h *CheckoutHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	user, ok := CurrentUser(r)
	if !ok {
		Error(w, domain.ErrUnauthorized("unauthorized"))
		return
	}
	orders, err := h.svc.ListOrders(r.Context(), user.ID)
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, orders)
}

// GetOrder handles GET /api/orders/{id}.
func (h *CheckoutHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	user, ok := CurrentUser(r)
	if !ok {
		Error(w, domain.ErrUnauthorized("unauthorized"))
		return
	}
	order, err := h.svc.GetOrder(r.Context(), user.ID, chi.URLParam(r, "id"))
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, order)
}

func (h *CheckoutHandler) returnBase(r *http.Request) string {
	if h.publicURL != "" {
		return h.publicURL
	}
	origin := r.Header.Get("Origin")
	u, err := url.Parse(origin)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return strings.TrimRight(u.Scheme+"://"+u.Host, "/")
}
