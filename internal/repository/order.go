package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chavepixclub/backend/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// OrderRepository persists the order ledger.
type OrderRepository struct {
	db *pgxpool.Pool
}

func NewOrderRepository(db *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{db: db}
}

const orderColumns = `id, user_id, plan_type, amount, status, gateway_session_id, created_at, updated_at`

func (r *OrderRepository) Create(ctx context.Context, o *domain.Order) error {
	query := `
		INSERT INTO orders (id, user_id, plan_type, amount, status, gateway_session_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.Exec(ctx, query,
		o.ID, o.UserID, string(o.PlanType), o.Amount, string(o.Status),
		o.GatewaySessionID, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

// AttachSession links a pending order to its hosted checkout session.
func (r *OrderRepository) AttachSession(ctx context.Context, id, userID, sessionID string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE orders SET gateway_session_id = $1, updated_at = NOW() WHERE id = $2 AND user_id = $3`,
		sessionID, id, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to attach session to order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("order %s not found", id)
	}
	return nil
}

// Transition moves an order out of pending. It reports false when the order
// does not exist, belongs to another user or already reached a terminal state.
func (r *OrderRepository) Transition(ctx context.Context, id, userID string, to domain.OrderStatus) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2 AND user_id = $3 AND status = 'pending'`,
		string(to), id, userID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to transition order: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *OrderRepository) FindByID(ctx context.Context, id, userID string) (*domain.Order, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1 AND user_id = $2`, id, userID)
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find order: %w", err)
	}
	return o, nil
}

func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Order, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	orders := []*domain.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// CompletedByPlan counts a user's completed orders per plan type.
func (r *OrderRepository) CompletedByPlan(ctx context.Context, userID string) (map[domain.PlanType]int, error) {
	return completedByPlan(ctx, r.db, userID)
}

// FailAbandoned marks pending orders that never got a checkout session as failed.
func (r *OrderRepository) FailAbandoned(ctx context.Context, olderThan time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE orders SET status = 'failed', updated_at = NOW()
		WHERE status = 'pending' AND gateway_session_id IS NULL AND created_at < $1
	`, olderThan)
	if err != nil {
		return 0, fmt.Errorf("failed to expire abandoned orders: %w", err)
	}
	return tag.RowsAffected(), nil
}

func completedByPlan(ctx context.Context, q DBTX, userID string) (map[domain.PlanType]int, error) {
	rows, err := q.Query(ctx,
		`SELECT plan_type, COUNT(*) FROM orders WHERE user_id = $1 AND status = 'completed' GROUP BY plan_type`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to count completed orders: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.PlanType]int)
	for rows.Next() {
		var planType string
		var n int
		if err := rows.Scan(&planType, &n); err != nil {
			return nil, fmt.Errorf("failed to scan order count: %w", err)
		}
		counts[domain.PlanType(planType)] = n
	}
	return counts, rows.Err()
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var o domain.Order
	var planType, status string
	err := row.Scan(
		&o.ID, &o.UserID, &planType, &o.Amount, &status,
		&o.GatewaySessionID, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	o.PlanType = domain.PlanType(planType)
	o.Status = domain.OrderStatus(status)
	return &o, nil
}
