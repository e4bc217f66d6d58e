package service

import (
	"context"

	"github.com/chavepixclub/backend/internal/domain"
)

// DashboardService assembles the post-purchase view.
type DashboardService struct {
	orders OrderStore
	keys   KeyStore
}

func NewDashboardService(orders OrderStore, keys KeyStore) *DashboardService {
	return &DashboardService{orders: orders, keys: keys}
}

func (s *DashboardService) Get(ctx context.Context, userID string) (*domain.Dashboard, error) {
	keys, err := s.keys.ListByUser(ctx, userID)
	if err != nil {
		return nil, domain.ErrDependency("failed to list keys", err)
	}
	orders, err := s.orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, domain.ErrDependency("failed to list orders", err)
	}

	d := &domain.Dashboard{Keys: keys, Orders: orders, KeyDomain: domain.KeyDomain}
	completed := make(map[domain.PlanType]int)
	for _, o := range orders {
		if o.Status == domain.OrderCompleted {
			completed[o.PlanType]++
			d.CompletedOrders++
		}
	}
	for _, k := range keys {
		if k.Status == domain.KeyActive {
			d.ActiveKeys++
		}
	}
	d.AvailableKeys = domain.ClampAvailable(domain.Available(domain.Entitled(completed), len(keys)))
	return d, nil
}
