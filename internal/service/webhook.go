package service

import (
	"context"
	"errors"

	"github.com/chavepixclub/backend/internal/domain"
	"github.com/chavepixclub/backend/pkg/payment"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// WebhookResult describes what a delivery did.
type WebhookResult struct {
	EventID   string `json:"eventId,omitempty"`
	EventType string `json:"eventType"`
	Duplicate bool   `json:"duplicate,omitempty"`
	Applied   bool   `json:"applied"`
}

// WebhookService applies payment outcomes to the order ledger.
type WebhookService struct {
	gateway payment.Gateway
	orders  OrderStore
	events  EventStore
	log     *zap.Logger
}

func NewWebhookService(gateway payment.Gateway, orders OrderStore, events EventStore, log *zap.Logger) *WebhookService {
	return &WebhookService{gateway: gateway, orders: orders, events: events, log: log}
}

// HandleEvent verifies and applies one delivery. Only a SignatureError or an
// internal failure is returned; malformed metadata, unknown event types and
// orders that already left pending are acknowledged.
func (s *WebhookService) HandleEvent(ctx context.Context, payload []byte, signature string) (*WebhookResult, error) {
	ev, err := s.gateway.ParseEvent(payload, signature)
	if err != nil {
		s.log.Warn("webhook rejected", zap.Error(err))
		if errors.Is(err, payment.ErrInvalidSignature) {
			return nil, domain.ErrSignature("invalid webhook signature", err)
		}
		return nil, domain.ErrBadRequest("malformed webhook payload")
	}

	ctx, span := tracer.Start(ctx, "webhook.handle")
	defer span.End()
	span.SetAttributes(
		attribute.String("event_id", ev.ID),
		attribute.String("event_type", ev.Type),
	)

	res := &WebhookResult{EventID: ev.ID, EventType: ev.Type}
	log := s.log.With(zap.String("event_id", ev.ID), zap.String("event_type", ev.Type))

	if ev.ID != "" {
		seen, err := s.events.Exists(ctx, ev.ID)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "dedup lookup")
			return nil, domain.ErrInternal("failed to check webhook event", err)
		}
		if seen {
			log.Info("duplicate webhook event ignored")
			res.Duplicate = true
			return res, nil
		}
	}

	switch ev.Kind {
	case payment.EventCheckoutCompleted, payment.EventAsyncPaymentSucceeded:
		res.Applied, err = s.transition(ctx, log, ev, domain.OrderCompleted)
	case payment.EventCheckoutExpired, payment.EventAsyncPaymentFailed:
		res.Applied, err = s.transition(ctx, log, ev, domain.OrderFailed)
	case payment.EventPaymentFailed:
		// The hosted session stays open after a decline, so the customer may
		// still pay. Only session expiry or async failure closes the order.
		log.Info("payment attempt declined", zap.String("order_id", ev.Meta(payment.MetaOrderID)))
	default:
		log.Info("unhandled webhook event type")
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transition")
		return nil, domain.ErrInternal("failed to update order", err)
	}

	if ev.ID != "" {
		if err := s.events.MarkProcessed(ctx, ev.ID, ev.Type); err != nil {
			// Transitions only leave pending, so a redelivery re-applies nothing.
			return nil, domain.ErrInternal("failed to record webhook event", err)
		}
	}
	return res, nil
}

func (s *WebhookService) transition(ctx context.Context, log *zap.Logger, ev *payment.Event, to domain.OrderStatus) (bool, error) {
	orderID := ev.Meta(payment.MetaOrderID)
	userID := ev.Meta(payment.MetaUserID)
	if orderID == "" || userID == "" {
		log.Warn("webhook event missing order metadata")
		return false, nil
	}
	if to == domain.OrderCompleted && ev.Meta(payment.MetaPlanType) == "" {
		log.Warn("webhook event missing plan metadata", zap.String("order_id", orderID))
		return false, nil
	}

	changed, err := s.orders.Transition(ctx, orderID, userID, to)
	if err != nil {
		return false, err
	}
	if !changed {
		log.Info("order not pending, transition skipped",
			zap.String("order_id", orderID),
			zap.String("target", string(to)),
		)
		return false, nil
	}

	log.Info("order transitioned",
		zap.String("order_id", orderID),
		zap.String("user_id", userID),
		zap.String("status", string(to)),
	)
	return true, nil
}
