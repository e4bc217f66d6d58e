package handler

import (
	"errors"
	"net/http"

	"github.com/chavepixclub/backend/internal/domain"
	"github.com/chavepixclub/backend/pkg/payment"
)

// SessionSettler closes mock checkout sessions.
type SessionSettler interface {
	Settle(sessionID string, paid bool) (*payment.Settlement, error)
}

// DevPayHandler stands in for the hosted checkout page when the mock payment
// provider is configured. Settled sessions go through the regular webhook
// service, signature check included.
type DevPayHandler struct {
	settler SessionSettler
	events  EventHandler
}

func NewDevPayHandler(settler SessionSettler, events EventHandler) *DevPayHandler {
	return &DevPayHandler{settler: settler, events: events}
}

// Pay handles GET /dev/pay?session_id=...&outcome=paid|cancel.
// Without an outcome the session is paid.
func (h *DevPayHandler) Pay(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sessionID := q.Get("session_id")
	if sessionID == "" {
		Error(w, domain.ErrBadRequest("missing session_id"))
		return
	}

	var paid bool
	switch q.Get("outcome") {
	case "", "paid":
		paid = true
	case "cancel":
		paid = false
	default:
		Error(w, domain.ErrValidation("outcome must be paid or cancel"))
		return
	}

	st, err := h.settler.Settle(sessionID, paid)
	if err != nil {
		if errors.Is(err, payment.ErrUnknownSession) {
			Error(w, domain.ErrNotFound("checkout session not found or already settled"))
			return
		}
		Error(w, domain.ErrInternal("failed to settle session", err))
		return
	}

	res, err := h.events.HandleEvent(r.Context(), st.Payload, st.Signature)
	if err != nil {
		Error(w, err)
		return
	}
	if st.ReturnURL == "" {
		JSON(w, http.StatusOK, res)
		return
	}
	http.Redirect(w, r, st.ReturnURL, http.StatusSeeOther)
}
