package service

import (
	"context"
	"time"

	"github.com/chavepixclub/backend/internal/domain"
	"github.com/chavepixclub/backend/pkg/payment"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// CheckoutService starts hosted checkout sessions.
type CheckoutService struct {
	orders  OrderStore
	gateway payment.Gateway
	log     *zap.Logger
	now     func() time.Time
}

func NewCheckoutService(orders OrderStore, gateway payment.Gateway, log *zap.Logger) *CheckoutService {
	return &CheckoutService{orders: orders, gateway: gateway, log: log, now: time.Now}
}

// StartCheckout records a pending order, opens a hosted session for it and
// returns the redirect. If the gateway call fails the pending order stays
// without a session id and is treated as abandoned.
func (s *CheckoutService) StartCheckout(ctx context.Context, user *domain.Identity, planType domain.PlanType, returnBase string) (*domain.CheckoutResponse, error) {
	if user == nil || user.ID == "" {
		return nil, domain.ErrUnauthorized("sign in to purchase")
	}
	plan, ok := domain.LookupPlan(planType)
	if !ok {
		return nil, domain.ErrValidation("unknown plan type")
	}
	if returnBase == "" {
		return nil, domain.ErrBadRequest("missing return origin")
	}

	ctx, span := tracer.Start(ctx, "checkout.start")
	defer span.End()
	span.SetAttributes(attribute.String("plan_type", string(plan.Type)))

	order := domain.NewOrder(user.ID, plan, s.now())
	if err := s.orders.Create(ctx, order); err != nil {
		span.SetStatus(codes.Error, "create order")
		return nil, domain.ErrDependency("failed to create order", err)
	}
	span.SetAttributes(attribute.String("order_id", order.ID))

	session, err := s.gateway.CreateCheckoutSession(ctx, payment.SessionRequest{
		CustomerEmail: user.Email,
		LineItem: payment.LineItem{
			Name:        plan.ProductName,
			Description: plan.ProductDescription,
			Currency:    plan.Currency,
			UnitAmount:  plan.UnitAmount,
			Quantity:    1,
		},
		SuccessURL: returnBase + "/dashboard?success=true",
		CancelURL:  returnBase + "/?canceled=true",
		Metadata: map[string]string{
			payment.MetaOrderID:  order.ID,
			payment.MetaUserID:   user.ID,
			payment.MetaPlanType: string(plan.Type),
		},
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create session")
		s.log.Error("checkout session failed",
			zap.String("order_id", order.ID),
			zap.String("user_id", user.ID),
			zap.Error(err),
		)
		return nil, domain.ErrDependency("failed to create checkout session", err)
	}

	if err := s.orders.AttachSession(ctx, order.ID, user.ID, session.ID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "attach session")
		return nil, domain.ErrDependency("failed to link checkout session", err)
	}

	s.log.Info("checkout started",
		zap.String("order_id", order.ID),
		zap.String("user_id", user.ID),
		zap.String("plan_type", string(plan.Type)),
		zap.String("session_id", session.ID),
	)
	return &domain.CheckoutResponse{OrderID: order.ID, RedirectURL: session.URL}, nil
}

// GetOrder returns one of the user's orders. The storefront polls it after the
// gateway redirects back, until the webhook settles the order.
func (s *CheckoutService) GetOrder(ctx context.Context, userID, id string) (*domain.Order, error) {
	o, err := s.orders.FindByID(ctx, id, userID)
	if err != nil {
		return nil, domain.ErrDependency("failed to load order", err)
	}
	if o == nil {
		return nil, domain.ErrNotFound("order not found")
	}
	return o, nil
}

// ListOrders returns the user's orders, newest first.
func (s *CheckoutService) ListOrders(ctx context.Context, userID string) ([]*domain.Order, error) {
	orders, err := s.orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, domain.ErrDependency("failed to list orders", err)
	}
	return orders, nil
}
