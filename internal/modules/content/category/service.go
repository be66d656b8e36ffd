package category

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/inkwell-cms/inkwell/internal/models"
	"github.com/inkwell-cms/inkwell/internal/modules/content/contentutil"
	"github.com/inkwell-cms/inkwell/internal/pkg/apperr"
	"github.com/inkwell-cms/inkwell/internal/repository"
	"go.uber.org/zap"
)

const maxNameLength = 191

type CreateCategoryDTO struct {
	Name        string `json:"name"        binding:"required"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
}

type UpdateCategoryDTO struct {
	Name        *string `json:"name"`
	Slug        *string `json:"slug"`
	Description *string `json:"description"`
}

type Service struct {
	repo   repository.CategoryRepository
	logger *zap.Logger
}

type ServiceOption func(*Service)

func WithLogger(l *zap.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l.Named("CategoryService")
		}
	}
}

func NewService(repo repository.CategoryRepository, opts ...ServiceOption) *Service {
	s := &Service{repo: repo, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns every category with its published post count.
func (s *Service) List(ctx context.Context) ([]models.CategoryModel, error) {
	return s.repo.List(ctx)
}

// Get looks a category up by id, then by slug.
func (s *Service) Get(ctx context.Context, query string) (*models.CategoryModel, error) {
	cat, err := s.repo.FindByID(ctx, query)
	if errors.Is(err, repository.ErrNotFound) {
		return s.repo.FindBySlug(ctx, query)
	}
	return cat, err
}

func (s *Service) Create(ctx context.Context, dto *CreateCategoryDTO) (*models.CategoryModel, error) {
	name, err := s.checkName(ctx, dto.Name, "")
	if err != nil {
		return nil, err
	}
	slug, err := contentutil.Slug(ctx, dto.Slug, name, "category", "", s.repo.SlugExists)
	if err != nil {
		return nil, err
	}
	cat := &models.CategoryModel{Name: name, Slug: slug, Description: strings.TrimSpace(dto.Description)}
	if err := s.repo.Create(ctx, cat); err != nil {
		return nil, err
	}
	s.logger.Info("category created", zap.String("id", cat.ID), zap.String("slug", cat.Slug))
	return cat, nil
}

func (s *Service) Update(ctx context.Context, id string, dto *UpdateCategoryDTO) (*models.CategoryModel, error) {
	cat, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	updates := map[string]interface{}{}
	if dto.Name != nil && *dto.Name != cat.Name {
		name, err := s.checkName(ctx, *dto.Name, cat.ID)
		if err != nil {
			return nil, err
		}
		updates["name"] = name
	}
	if dto.Slug != nil && *dto.Slug != cat.Slug {
		slug, err := contentutil.Slug(ctx, *dto.Slug, cat.Name, "category", cat.ID, s.repo.SlugExists)
		if err != nil {
			return nil, err
		}
		updates["slug"] = slug
	}
	if dto.Description != nil {
		updates["description"] = strings.TrimSpace(*dto.Description)
	}
	if err := s.repo.Update(ctx, cat.ID, updates); err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, cat.ID)
}

// Delete removes the category and its post links; the posts stay.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("category deleted", zap.String("id", id))
	return nil
}

func (s *Service) checkName(ctx context.Context, raw, excludeID string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", apperr.Invalid("name", "is required")
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return "", apperr.Invalid("name", "must be at most %d characters", maxNameLength)
	}
	taken, err := s.repo.NameExists(ctx, name, excludeID)
	if err != nil {
		return "", err
	}
	if taken {
		return "", apperr.Conflict("name", name)
	}
	return name, nil
}
