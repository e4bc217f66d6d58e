package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/chavepixclub/backend/internal/domain"
	"github.com/chavepixclub/backend/internal/service"
)

type EventHandler interface {
	HandleEvent(ctx context.Context, payload []byte, signature string) (*service.WebhookResult, error)
}

// PaymentWebhookHandler receives gateway notifications.
type PaymentWebhookHandler struct {
	svc             EventHandler
	signatureHeader string
	maxBytes        int64
}

func NewPaymentWebhookHandler(svc EventHandler, signatureHeader string, maxBytes int64) *PaymentWebhookHandler {
	return &PaymentWebhookHandler{svc: svc, signatureHeader: signatureHeader, maxBytes: maxBytes}
}

// Handle handles POST /api/webhooks/payment. The raw body is passed through
// untouched since the signature covers its exact bytes.
func (h *PaymentWebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			JSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "payload too large"})
			return
		}
		Error(w, domain.ErrBadRequest("failed to read body"))
		return
	}

	signature := r.Header.Get(h.signatureHeader)
	if signature == "" {
		Error(w, domain.ErrSignature("missing signature header", nil))
		return
	}

	res, err := h.svc.HandleEvent(r.Context(), body, signature)
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{"received": true, "result": res})
}
