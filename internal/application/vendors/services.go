package vendors

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/bryanwahyu/rfp-manager/internal/application"
	errs "github.com/bryanwahyu/rfp-manager/internal/domain"
	domain "github.com/bryanwahyu/rfp-manager/internal/domain/vendors"
)

// Service implements use-cases untuk Vendor
type Service struct {
	Repo  domain.Repository
	Clock application.Clock
}

// Command untuk create vendor
type CreateCommand struct {
	Name     string
	Email    string
	Category string
}

func (s *Service) Create(ctx context.Context, cmd CreateCommand) (*domain.Vendor, error) {
	name := strings.TrimSpace(cmd.Name)
	email := strings.ToLower(strings.TrimSpace(cmd.Email))
	category := strings.TrimSpace(cmd.Category)
	switch {
	case name == "":
		return nil, fmt.Errorf("%w: name is required", errs.ErrInvalidInput)
	case email == "":
		return nil, fmt.Errorf("%w: email is required", errs.ErrInvalidInput)
	case category == "":
		return nil, fmt.Errorf("%w: category is required", errs.ErrInvalidInput)
	}

	v := &domain.Vendor{
		ID:        domain.ID(uuid.NewString()),
		Name:      name,
		Email:     email,
		Category:  category,
		CreatedAt: s.Clock.Now(),
	}
	if err := s.Repo.Create(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

func (s *Service) List(ctx context.Context) ([]*domain.Vendor, error) {
	return s.Repo.List(ctx)
}

func (s *Service) Delete(ctx context.Context, id domain.ID) error {
	if id == "" {
		return fmt.Errorf("%w: vendor id is required", errs.ErrInvalidInput)
	}
	return s.Repo.Delete(ctx, id)
}
