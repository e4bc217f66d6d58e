package repository

import (
	"context"
	"fmt"

	"github.com/chavepixclub/backend/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

type StatsRepository struct {
	db *pgxpool.Pool
}

func NewStatsRepository(db *pgxpool.Pool) *StatsRepository {
	return &StatsRepository{db: db}
}

// Summary returns store-wide counters. Revenue sums completed order amounts.
func (r *StatsRepository) Summary(ctx context.Context) (*domain.AdminStats, error) {
	var s domain.AdminStats
	err := r.db.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM profiles),
			(SELECT COUNT(*) FROM pix_keys),
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'completed'),
			COUNT(*) FILTER (WHERE status = 'failed'),
			COALESCE(SUM(amount) FILTER (WHERE status = 'completed'), 0)
		FROM orders
	`).Scan(&s.Profiles, &s.Keys, &s.PendingOrders, &s.CompletedOrders, &s.FailedOrders, &s.Revenue)
	if err != nil {
		return nil, fmt.Errorf("failed to load stats: %w", err)
	}
	return &s, nil
}
