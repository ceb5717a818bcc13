// basecampy | 2026
// service.go

package project

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/Raghav000001/basecampy/internal/core"
)

type Service struct {
	projects Repository
	logger   *slog.Logger
}

func NewService(projects Repository, logger *slog.Logger) *Service {
	return &Service{
		projects: projects,
		logger:   logger.With("component", "project"),
	}
}

func (s *Service) Create(
	ctx context.Context,
	userID string,
	req CreateProjectRequest,
) (*Project, error) {
	project := &Project{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Description: req.Description,
		CreatedBy:   userID,
	}

	if err := s.projects.CreateWithOwner(ctx, project); err != nil {
		return nil, err
	}

	s.logger.Info("project created",
		"project_id", project.ID,
		"created_by", userID,
	)

	return project, nil
}

func (s *Service) Get(
	ctx context.Context,
	projectID, userID string,
) (*Project, error) {
	if err := s.requireMember(ctx, projectID, userID); err != nil {
		return nil, err
	}

	return s.projects.GetByID(ctx, projectID)
}

func (s *Service) List(ctx context.Context, userID string) ([]Project, error) {
	return s.projects.ListByMember(ctx, userID)
}

func (s *Service) Update(
	ctx context.Context,
	projectID, userID string,
	req UpdateProjectRequest,
) (*Project, error) {
	if err := s.requireMember(ctx, projectID, userID); err != nil {
		return nil, err
	}

	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		project.Name = *req.Name
	}
	if req.Description != nil {
		project.Description = *req.Description
	}

	if err := s.projects.Update(ctx, project); err != nil {
		return nil, err
	}

	return project, nil
}

func (s *Service) Delete(ctx context.Context, projectID, userID string) error {
	if err := s.requireMember(ctx, projectID, userID); err != nil {
		return err
	}

	if err := s.projects.Delete(ctx, projectID); err != nil {
		return err
	}

	s.logger.Info("project deleted",
		"project_id", projectID,
		"deleted_by", userID,
	)

	return nil
}

func (s *Service) requireMember(ctx context.Context, projectID, userID string) error {
	isMember, err := s.projects.IsMember(ctx, projectID, userID)
	if err != nil {
		return err
	}

	// Non-members get the same answer as a missing project.
	if !isMember {
		return fmt.Errorf("project access: %w", core.ErrNotFound)
	}

	return nil
}
