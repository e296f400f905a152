package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/bjarke-xyz/course-applications/internal/domain"
	"github.com/google/uuid"
)

// ApplicationService performs application operations on behalf of a user.
// Every method takes the acting user explicitly; records owned by someone
// else are reported as domain.ErrNotFound so their existence is not leaked.
type ApplicationService struct {
	repo domain.ApplicationRepository
}

func NewApplicationService(repo domain.ApplicationRepository) *ApplicationService {
	return &ApplicationService{repo: repo}
}

// ListForUser returns the applications owned by userID, in storage order.
func (s *ApplicationService) ListForUser(ctx context.Context, userID string) ([]domain.Application, error) {
	apps, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	return apps, nil
}

// GetForUser loads a single application owned by userID.
func (s *ApplicationService) GetForUser(ctx context.Context, userID string, id uuid.UUID) (domain.Application, error) {
	app, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Application{}, domain.ErrNotFound
		}
		return domain.Application{}, fmt.Errorf("get application: %w", err)
	}
	if app.OwnerUserID != userID {
		return domain.Application{}, domain.ErrNotFound
	}
	return app, nil
}

func (s *ApplicationService) Create(ctx context.Context, userID string, fields domain.ApplicationFields) (domain.Application, error) {
	if userID == "" {
		return domain.Application{}, errors.New("create application: empty user id")
	}
	app := domain.Application{
		ID:          uuid.New(),
		OwnerUserID: userID,
	}
	fields.Apply(&app)
	if err := s.repo.Create(ctx, &app); err != nil {
		return domain.Application{}, fmt.Errorf("create application: %w", err)
	}
	return app, nil
}

func (s *ApplicationService) Update(ctx context.Context, userID string, id uuid.UUID, fields domain.ApplicationFields) (domain.Application, error) {
	app, err := s.GetForUser(ctx, userID, id)
	if err != nil {
		return domain.Application{}, err
	}
	fields.Apply(&app)
	if err := s.repo.Update(ctx, &app); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Application{}, domain.ErrNotFound
		}
		return domain.Application{}, fmt.Errorf("update application: %w", err)
	}
	return app, nil
}

func (s *ApplicationService) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	if _, err := s.GetForUser(ctx, userID, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id, userID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("delete application: %w", err)
	}
	return nil
}
