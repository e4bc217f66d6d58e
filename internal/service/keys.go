package service

import (
	"context"
	"errors"
	"time"

	"github.com/chavepixclub/backend/internal/domain"
	"github.com/chavepixclub/backend/internal/repository"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// KeyService provisions personalized keys.
type KeyService struct {
	keys KeyStore
	log  *zap.Logger
	now  func() time.Time
}

func NewKeyService(keys KeyStore, log *zap.Logger) *KeyService {
	return &KeyService{keys: keys, log: log, now: time.Now}
}

// CreateKey validates the handle and inserts the key if the user still has
// entitlement. The handle is checked before anything is written.
func (s *KeyService) CreateKey(ctx context.Context, user *domain.Identity, handle string) (*domain.PixKey, error) {
	if user == nil || user.ID == "" {
		return nil, domain.ErrUnauthorized("sign in to create keys")
	}
	handle = domain.NormalizeHandle(handle)
	if err := domain.ValidateHandle(handle); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "keys.create")
	defer span.End()
	span.SetAttributes(attribute.String("user_id", user.ID))

	key := domain.NewPixKey(user.ID, handle, s.now())
	err := s.keys.CreateWithinEntitlement(ctx, key)
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrDuplicate):
		return nil, domain.ErrConflict("this key already exists")
	case errors.Is(err, repository.ErrEntitlementExhausted):
		return nil, domain.ErrNoEntitlement("no keys available, purchase a plan first")
	default:
		span.RecordError(err)
		return nil, domain.ErrDependency("failed to create key", err)
	}

	s.log.Info("pix key created",
		zap.String("user_id", user.ID),
		zap.String("key", key.Email),
	)
	return key, nil
}

func (s *KeyService) List(ctx context.Context, userID string) ([]*domain.PixKey, error) {
	keys, err := s.keys.ListByUser(ctx, userID)
	if err != nil {
		return nil, domain.ErrDependency("failed to list keys", err)
	}
	return keys, nil
}

// SetStatus is an operator action; keys are never deleted. It returns the
// key as stored after the change.
func (s *KeyService) SetStatus(ctx context.Context, id string, status domain.KeyStatus) (*domain.PixKey, error) {
	if !status.Valid() {
		return nil, domain.ErrValidation("unknown key status")
	}
	found, err := s.keys.SetStatus(ctx, id, status)
	if err != nil {
		return nil, domain.ErrDependency("failed to update key", err)
	}
	if !found {
		return nil, domain.ErrNotFound("key not found")
	}
	s.log.Info("pix key status changed", zap.String("key_id", id), zap.String("status", string(status)))

	key, err := s.keys.FindByID(ctx, id)
	if err != nil {
		return nil, domain.ErrDependency("failed to load key", err)
	}
	if key == nil {
		return nil, domain.ErrNotFound("key not found")
	}
	return key, nil
}
