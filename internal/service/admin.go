package service

import (
	"context"

	"github.com/chavepixclub/backend/internal/domain"
)

type AdminService struct {
	stats   StatsStore
	janitor *Janitor
}

func NewAdminService(stats StatsStore, janitor *Janitor) *AdminService {
	return &AdminService{stats: stats, janitor: janitor}
}

func (s *AdminService) Stats(ctx context.Context) (*domain.AdminStats, error) {
	st, err := s.stats.Summary(ctx)
	if err != nil {
		return nil, domain.ErrDependency("failed to load stats", err)
	}
	return st, nil
}

// SweepAbandoned runs the janitor once on demand.
func (s *AdminService) SweepAbandoned(ctx context.Context) (int64, error) {
	n, err := s.janitor.Sweep(ctx)
	if err != nil {
		return 0, domain.ErrDependency("failed to sweep orders", err)
	}
	return n, nil
}
