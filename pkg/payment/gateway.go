package payment

import (
	"context"
	"errors"
)

// Metadata keys attached to every hosted session and echoed back on events.
const (
	MetaOrderID  = "order_id"
	MetaUserID   = "user_id"
	MetaPlanType = "plan_type"
)

// ErrInvalidSignature is returned by ParseEvent when the payload is not authentic.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// Gateway is the hosted checkout provider.
type Gateway interface {
	// CreateCheckoutSession opens a hosted payment session.
	CreateCheckoutSession(ctx context.Context, req SessionRequest) (*Session, error)
	// ParseEvent verifies the signature over the raw payload and decodes the event.
	ParseEvent(payload []byte, signature string) (*Event, error)
}

// LineItem is the single product shown on the hosted page.
type LineItem struct {
	Name        string
	Description string
	Currency    string
	UnitAmount  int64 // cents
	Quantity    int64
}

// SessionRequest describes a hosted checkout session.
type SessionRequest struct {
	CustomerEmail string
	LineItem      LineItem
	SuccessURL    string
	CancelURL     string
	Metadata      map[string]string
}

// Session is the gateway's answer to SessionRequest.
type Session struct {
	ID  string
	URL string
}

// EventKind is the closed set of event types the webhook acts on.
type EventKind int

const (
	EventUnknown EventKind = iota
	EventCheckoutCompleted
	EventCheckoutExpired
	EventAsyncPaymentSucceeded
	EventAsyncPaymentFailed
	EventPaymentFailed
)

var eventKinds = map[string]EventKind{
	"checkout.session.completed":               EventCheckoutCompleted,
	"checkout.session.expired":                 EventCheckoutExpired,
	"checkout.session.async_payment_succeeded": EventAsyncPaymentSucceeded,
	"checkout.session.async_payment_failed":    EventAsyncPaymentFailed,
	"payment_intent.payment_failed":            EventPaymentFailed,
}

// KindOf maps a gateway event type to its kind. Unrecognized types map to EventUnknown.
func KindOf(eventType string) EventKind {
	return eventKinds[eventType]
}

func (k EventKind) String() string {
	for name, kind := range eventKinds {
		if kind == k {
			return name
		}
	}
	return "unknown"
}

// Event is a verified webhook notification.
type Event struct {
	ID       string
	Type     string
	Kind     EventKind
	ObjectID string
	Metadata map[string]string
}

// Meta returns a metadata value, or "" when absent.
func (e *Event) Meta(key string) string {
	if e.Metadata == nil {
		return ""
	}
	return e.Metadata[key]
}
