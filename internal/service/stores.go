package service

import (
	"context"
	"time"

	"github.com/chavepixclub/backend/internal/domain"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("github.com/chavepixclub/backend/internal/service")

// OrderStore is the order ledger as seen by the services.
type OrderStore interface {
	Create(ctx context.Context, o *domain.Order) error
	AttachSession(ctx context.Context, id, userID, sessionID string) error
	Transition(ctx context.Context, id, userID string, to domain.OrderStatus) (bool, error)
	ListByUser(ctx context.Context, userID string) ([]*domain.Order, error)
	FindByID(ctx context.Context, id, userID string) (*domain.Order, error)
	CompletedByPlan(ctx context.Context, userID string) (map[domain.PlanType]int, error)
	FailAbandoned(ctx context.Context, olderThan time.Time) (int64, error)
}

// KeyStore is the key registry as seen by the services.
type KeyStore interface {
	CreateWithinEntitlement(ctx context.Context, k *domain.PixKey) error
	ListByUser(ctx context.Context, userID string) ([]*domain.PixKey, error)
	CountByUser(ctx context.Context, userID string) (int, error)
	FindByID(ctx context.Context, id string) (*domain.PixKey, error)
	SetStatus(ctx context.Context, id string, status domain.KeyStatus) (bool, error)
}

type ProfileStore interface {
	Upsert(ctx context.Context, p *domain.Profile) error
}

type EventStore interface {
	Exists(ctx context.Context, eventID string) (bool, error)
	MarkProcessed(ctx context.Context, eventID, eventType string) error
}

type StatsStore interface {
	Summary(ctx context.Context) (*domain.AdminStats, error)
}
