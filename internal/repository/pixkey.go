package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/chavepixclub/backend/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PixKeyRepository persists the key registry.
type PixKeyRepository struct {
	db *pgxpool.Pool
}

func NewPixKeyRepository(db *pgxpool.Pool) *PixKeyRepository {
	return &PixKeyRepository{db: db}
}

const keyColumns = `id, user_id, local_handle, email, status, created_at, updated_at`

// CreateWithinEntitlement inserts k only if its handle is free and its owner
// still has an unprovisioned key. A taken handle is reported as ErrDuplicate
// even when entitlement is exhausted. Entitlement is recomputed under a
// per-user advisory lock so concurrent requests for the same user serialize.
func (r *PixKeyRepository) CreateWithinEntitlement(ctx context.Context, k *domain.PixKey) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, k.UserID); err != nil {
		return fmt.Errorf("failed to lock user entitlement: %w", err)
	}

	var taken bool
	if err := tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM pix_keys WHERE local_handle = $1)`, k.LocalHandle,
	).Scan(&taken); err != nil {
		return fmt.Errorf("failed to check handle: %w", err)
	}
	if taken {
		return ErrDuplicate
	}

	completed, err := completedByPlan(ctx, tx, k.UserID)
	if err != nil {
		return err
	}
	keys, err := countKeys(ctx, tx, k.UserID)
	if err != nil {
		return err
	}
	if domain.Available(domain.Entitled(completed), keys) <= 0 {
		return ErrEntitlementExhausted
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO pix_keys (id, user_id, local_handle, email, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, k.ID, k.UserID, k.LocalHandle, k.Email, string(k.Status), k.CreatedAt, k.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create pix key: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit pix key: %w", err)
	}
	return nil
}

func (r *PixKeyRepository) ListByUser(ctx context.Context, userID string) ([]*domain.PixKey, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+keyColumns+` FROM pix_keys WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pix keys: %w", err)
	}
	defer rows.Close()

	keys := []*domain.PixKey{}
	for rows.Next() {
		k, err := scanKey(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pix key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (r *PixKeyRepository) CountByUser(ctx context.Context, userID string) (int, error) {
	return countKeys(ctx, r.db, userID)
}

func (r *PixKeyRepository) FindByID(ctx context.Context, id string) (*domain.PixKey, error) {
	k, err := scanKey(r.db.QueryRow(ctx, `SELECT `+keyColumns+` FROM pix_keys WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find pix key: %w", err)
	}
	return k, nil
}

// SetStatus changes a key's status. It reports false if the key does not exist.
func (r *PixKeyRepository) SetStatus(ctx context.Context, id string, status domain.KeyStatus) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE pix_keys SET status = $1, updated_at = NOW() WHERE id = $2`, string(status), id)
	if err != nil {
		return false, fmt.Errorf("failed to update pix key status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func countKeys(ctx context.Context, q DBTX, userID string) (int, error) {
	var n int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM pix_keys WHERE user_id = $1`, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count pix keys: %w", err)
	}
	return n, nil
}

func scanKey(row pgx.Row) (*domain.PixKey, error) {
	var k domain.PixKey
	var status string
	if err := row.Scan(&k.ID, &k.UserID, &k.LocalHandle, &k.Email, &status, &k.CreatedAt, &k.UpdatedAt); err != nil {
		return nil, err
	}
	k.Status = domain.KeyStatus(status)
	return &k, nil
}
