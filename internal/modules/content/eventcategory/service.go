// Package eventcategory manages the color-coded groups shown on the events calendar.
package eventcategory

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/inkwell-cms/inkwell/internal/models"
	"github.com/inkwell-cms/inkwell/internal/modules/content/contentutil"
	"github.com/inkwell-cms/inkwell/internal/pkg/apperr"
	"github.com/inkwell-cms/inkwell/internal/repository"
	"go.uber.org/zap"
)

// DefaultColor is used when a category is created without one.
const DefaultColor = "#3b82f6"

var colorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

type CreateDTO struct {
	Name        string `json:"name"        binding:"required"`
	Slug        string `json:"slug"`
	Color       string `json:"color"`
	Description string `json:"description"`
}

type UpdateDTO struct {
	Name        *string `json:"name"`
	Slug        *string `json:"slug"`
	Color       *string `json:"color"`
	Description *string `json:"description"`
}

type Service struct {
	repo   repository.EventCategoryRepository
	logger *zap.Logger
}

type ServiceOption func(*Service)

func WithLogger(l *zap.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l.Named("EventCategoryService")
		}
	}
}

func NewService(repo repository.EventCategoryRepository, opts ...ServiceOption) *Service {
	s := &Service{repo: repo, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) List(ctx context.Context) ([]models.EventCategoryModel, error) {
	return s.repo.List(ctx)
}

func (s *Service) Get(ctx context.Context, query string) (*models.EventCategoryModel, error) {
	cat, err := s.repo.FindByID(ctx, query)
	if errors.Is(err, repository.ErrNotFound) {
		return s.repo.FindBySlug(ctx, query)
	}
	return cat, err
}

func (s *Service) Create(ctx context.Context, dto *CreateDTO) (*models.EventCategoryModel, error) {
	name, err := s.checkName(ctx, dto.Name, "")
	if err != nil {
		return nil, err
	}
	color := DefaultColor
	if strings.TrimSpace(dto.Color) != "" {
		if color, err = normalizeColor(dto.Color); err != nil {
			return nil, err
		}
	}
	slug, err := contentutil.Slug(ctx, dto.Slug, name, "event-category", "", s.repo.SlugExists)
	if err != nil {
		return nil, err
	}
	cat := &models.EventCategoryModel{
		Name:        name,
		Slug:        slug,
		Color:       color,
		Description: strings.TrimSpace(dto.Description),
	}
	if err := s.repo.Create(ctx, cat); err != nil {
		return nil, err
	}
	s.logger.Info("event category created", zap.String("id", cat.ID), zap.String("slug", cat.Slug))
	return cat, nil
}

func (s *Service) Update(ctx context.Context, id string, dto *UpdateDTO) (*models.EventCategoryModel, error) {
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
		slug, err := contentutil.Slug(ctx, *dto.Slug, cat.Name, "event-category", cat.ID, s.repo.SlugExists)
		if err != nil {
			return nil, err
		}
		updates["slug"] = slug
	}
	if dto.Color != nil {
		color, err := normalizeColor(*dto.Color)
		if err != nil {
			return nil, err
		}
		updates["color"] = color
	}
	if dto.Description != nil {
		updates["description"] = strings.TrimSpace(*dto.Description)
	}
	if err := s.repo.Update(ctx, cat.ID, updates); err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, cat.ID)
}

// Delete removes the category; its events become uncategorized.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) checkName(ctx context.Context, raw, excludeID string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", apperr.Invalid("name", "is required")
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

// normalizeColor accepts #RRGGBB in any case and stores it lowercase.
func normalizeColor(raw string) (string, error) {
	c := strings.TrimSpace(raw)
	if !colorPattern.MatchString(c) {
		return "", apperr.Invalid("color", "must be a hex color like #3b82f6")
	}
	return strings.ToLower(c), nil
}
