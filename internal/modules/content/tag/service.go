package tag

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

type CreateTagDTO struct {
	Name string `json:"name" binding:"required"`
	Slug string `json:"slug"`
}

type UpdateTagDTO struct {
	Name *string `json:"name"`
	Slug *string `json:"slug"`
}

type Service struct {
	repo   repository.TagRepository
	logger *zap.Logger
}

type ServiceOption func(*Service)

func WithLogger(l *zap.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l.Named("TagService")
		}
	}
}

func NewService(repo repository.TagRepository, opts ...ServiceOption) *Service {
	s := &Service{repo: repo, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns every tag with its published post count.
func (s *Service) List(ctx context.Context) ([]models.TagModel, error) {
	return s.repo.List(ctx)
}

// Get looks a tag up by id, then by slug.
func (s *Service) Get(ctx context.Context, query string) (*models.TagModel, error) {
	tag, err := s.repo.FindByID(ctx, query)
	if errors.Is(err, repository.ErrNotFound) {
		return s.repo.FindBySlug(ctx, query)
	}
	return tag, err
}

func (s *Service) Create(ctx context.Context, dto *CreateTagDTO) (*models.TagModel, error) {
	name, err := s.checkName(ctx, dto.Name, "")
	if err != nil {
		return nil, err
	}
	slug, err := contentutil.Slug(ctx, dto.Slug, name, "tag", "", s.repo.SlugExists)
	if err != nil {
		return nil, err
	}
	tag := &models.TagModel{Name: name, Slug: slug}
	if err := s.repo.Create(ctx, tag); err != nil {
		return nil, err
	}
	s.logger.Info("tag created", zap.String("id", tag.ID), zap.String("slug", tag.Slug))
	return tag, nil
}

func (s *Service) Update(ctx context.Context, id string, dto *UpdateTagDTO) (*models.TagModel, error) {
	tag, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	updates := map[string]interface{}{}
	if dto.Name != nil && *dto.Name != tag.Name {
		name, err := s.checkName(ctx, *dto.Name, tag.ID)
		if err != nil {
			return nil, err
		}
		updates["name"] = name
	}
	if dto.Slug != nil && *dto.Slug != tag.Slug {
		slug, err := contentutil.Slug(ctx, *dto.Slug, tag.Name, "tag", tag.ID, s.repo.SlugExists)
		if err != nil {
			return nil, err
		}
		updates["slug"] = slug
	}
	if err := s.repo.Update(ctx, tag.ID, updates); err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, tag.ID)
}

// Delete removes the tag and its post links; the posts stay.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("tag deleted", zap.String("id", id))
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
