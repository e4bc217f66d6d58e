package service

import (
	"context"

	"github.com/chavepixclub/backend/internal/domain"
	"go.uber.org/zap"
)

// ProfileService mirrors signed-in identities into the profiles table.
type ProfileService struct {
	profiles ProfileStore
	log      *zap.Logger
}

func NewProfileService(profiles ProfileStore, log *zap.Logger) *ProfileService {
	return &ProfileService{profiles: profiles, log: log}
}

// Sync upserts the profile for user. Empty name and avatar keep stored values.
func (s *ProfileService) Sync(ctx context.Context, user *domain.Identity) (*domain.Profile, error) {
	if user == nil || user.ID == "" {
		return nil, domain.ErrUnauthorized("not signed in")
	}
	p := &domain.Profile{
		ID:        user.ID,
		Email:     user.Email,
		FullName:  optional(user.FullName),
		AvatarURL: optional(user.AvatarURL),
	}
	if err := s.profiles.Upsert(ctx, p); err != nil {
		s.log.Error("profile sync failed", zap.String("user_id", user.ID), zap.Error(err))
		return nil, domain.ErrDependency("failed to save profile", err)
	}
	return p, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
