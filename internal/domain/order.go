package domain

import (
	"time"

	"github.com/google/uuid"
)

// OrderStatus is the lifecycle state of an order.
// Only pending -> completed and pending -> failed are legal.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderCompleted OrderStatus = "completed"
	OrderFailed    OrderStatus = "failed"
)

// IsTerminal reports whether no further transition is allowed.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderCompleted || s == OrderFailed
}

// Order is a record of one purchase attempt.
type Order struct {
	ID               string      `json:"id"`
	UserID           string      `json:"userId"`
	PlanType         PlanType    `json:"planType"`
	Amount           int         `json:"amount"`
	Status           OrderStatus `json:"status"`
	GatewaySessionID *string     `json:"gatewaySessionId,omitempty"`
	CreatedAt        time.Time   `json:"createdAt"`
	UpdatedAt        time.Time   `json:"updatedAt"`
}

// NewOrder builds a pending order priced from the catalog.
func NewOrder(userID string, plan Plan, now time.Time) *Order {
	return &Order{
		ID:        uuid.New().String(),
		UserID:    userID,
		PlanType:  plan.Type,
		Amount:    plan.Price,
		Status:    OrderPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// CheckoutRequest is the body of POST /api/checkout.
type CheckoutRequest struct {
	PlanType PlanType `json:"planType" validate:"required,oneof=single five_pack"`
}

// CheckoutResponse carries the hosted checkout redirect.
type CheckoutResponse struct {
	OrderID     string `json:"orderId"`
	RedirectURL string `json:"url"`
}
