package service

import (
	"context"

	"github.com/chavepixclub/backend/internal/domain"
)

// EntitlementService derives how many keys a user may still create.
// Nothing is cached; every call reads the ledger and the registry.
type EntitlementService struct {
	orders OrderStore
	keys   KeyStore
}

func NewEntitlementService(orders OrderStore, keys KeyStore) *EntitlementService {
	return &EntitlementService{orders: orders, keys: keys}
}

// Available returns completed allotments minus existing keys. The result is
// negative only if keys were provisioned beyond entitlement.
func (s *EntitlementService) Available(ctx context.Context, userID string) (int, error) {
	completed, err := s.orders.CompletedByPlan(ctx, userID)
	if err != nil {
		return 0, domain.ErrDependency("failed to load orders", err)
	}
	keys, err := s.keys.CountByUser(ctx, userID)
	if err != nil {
		return 0, domain.ErrDependency("failed to count keys", err)
	}
	return domain.Available(domain.Entitled(completed), keys), nil
}
