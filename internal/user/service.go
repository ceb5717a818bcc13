// basecampy | 2026
// service.go

package user

import (
	"context"
	"fmt"

	"github.com/Raghav000001/basecampy/internal/core"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) GetMe(ctx context.Context, userID string) (*User, error) {
	if userID == "" {
		return nil, fmt.Errorf("get me: %w", core.ErrUnauthorized)
	}

	return s.repo.GetByID(ctx, userID, false)
}

func (s *Service) ListUsers(
	ctx context.Context,
	params ListUsersParams,
) ([]User, int, error) {
	return s.repo.List(ctx, params)
}

func (s *Service) SoftDelete(ctx context.Context, userID string) error {
	if err := s.repo.SoftDelete(ctx, userID); err != nil {
		return fmt.Errorf("soft delete: %w", err)
	}
	return nil
}

// Restore loads the target with deleted records included; under the
// default filter a soft-deleted user is unfindable, so this is the one
// read path that opts in.
func (s *Service) Restore(ctx context.Context, userID string) (*User, error) {
	target, err := s.repo.GetByID(ctx, userID, true)
	if err != nil {
		return nil, fmt.Errorf("restore: %w", err)
	}

	if !target.IsDeleted {
		return nil, fmt.Errorf("restore: user is not deleted: %w", core.ErrInvalidInput)
	}

	if err := s.repo.Restore(ctx, target.ID); err != nil {
		return nil, fmt.Errorf("restore: %w", err)
	}

	return s.repo.GetByID(ctx, target.ID, false)
}
