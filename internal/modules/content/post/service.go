package post

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/inkwell-cms/inkwell/internal/database"
	"github.com/inkwell-cms/inkwell/internal/models"
	"github.com/inkwell-cms/inkwell/internal/modules/content/contentutil"
	"github.com/inkwell-cms/inkwell/internal/modules/search"
	"github.com/inkwell-cms/inkwell/internal/pkg/apperr"
	"github.com/inkwell-cms/inkwell/internal/pkg/pagination"
	"github.com/inkwell-cms/inkwell/internal/pkg/response"
	"github.com/inkwell-cms/inkwell/internal/repository"
	"go.uber.org/zap"
)

// Service handles post business logic.
type Service struct {
	posts      repository.PostRepository
	categories repository.CategoryRepository
	tags       repository.TagRepository
	slugs      repository.SlugTrackerRepository
	indexer    search.Indexer
	logger     *zap.Logger
	now        func() time.Time
}

type ServiceOption func(*Service)

func WithLogger(l *zap.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l.Named("PostService")
		}
	}
}

// WithIndexer keeps the search index in step with published posts.
func WithIndexer(ix search.Indexer) ServiceOption {
	return func(s *Service) {
		if ix != nil {
			s.indexer = ix
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

func NewService(
	posts repository.PostRepository,
	categories repository.CategoryRepository,
	tags repository.TagRepository,
	slugs repository.SlugTrackerRepository,
	opts ...ServiceOption,
) *Service {
	s := &Service{
		posts:      posts,
		categories: categories,
		tags:       tags,
		slugs:      slugs,
		indexer:    search.NopIndexer{},
		logger:     zap.NewNop(),
		now:        contentutil.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func canWrite(actor *models.UserModel) bool {
	return actor != nil && actor.HasRole(models.RoleAuthor)
}

// canEdit: editors edit any post, authors only their own.
func canEdit(actor *models.UserModel, p *models.PostModel) bool {
	if actor == nil {
		return false
	}
	return actor.HasRole(models.RoleEditor) || (actor.HasRole(models.RoleAuthor) && p.OwnedBy(actor.ID))
}

// List returns the admin listing. Authors only see their own posts.
func (s *Service) List(ctx context.Context, actor *models.UserModel, lq ListQuery, q pagination.Query) ([]models.PostModel, response.Pagination, error) {
	if !canWrite(actor) {
		return nil, response.Pagination{}, apperr.ErrForbidden
	}
	if lq.Status != "" && !validStatus(lq.Status) {
		return nil, response.Pagination{}, apperr.Invalid("status", "unknown status %q", lq.Status)
	}
	filter := repository.PostFilter{
		Status:       lq.Status,
		AuthorID:     lq.Author,
		Search:       lq.Search,
		CategorySlug: lq.Category,
		TagSlug:      lq.Tag,
	}
	if !actor.HasRole(models.RoleEditor) {
		filter.AuthorID = actor.ID
	}
	return s.posts.List(ctx, filter, q)
}

// Get returns one post for editing.
func (s *Service) Get(ctx context.Context, actor *models.UserModel, id string) (*models.PostModel, error) {
	p, err := s.posts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canEdit(actor, p) {
		return nil, apperr.ErrForbidden
	}
	return p, nil
}

// Create stores a new post authored by actor.
func (s *Service) Create(ctx context.Context, actor *models.UserModel, dto *CreatePostDTO) (*models.PostModel, error) {
	if !canWrite(actor) {
		return nil, apperr.ErrForbidden
	}
	title := strings.TrimSpace(dto.Title)
	if title == "" {
		return nil, apperr.Invalid("title", "is required")
	}

	content, body, err := contentutil.Content(dto.Content, dto.Markdown)
	if err != nil {
		return nil, err
	}
	status, publishedAt, err := contentutil.Publication(dto.Status, dto.PublishedAt, true, s.now())
	if err != nil {
		return nil, err
	}
	slug, err := contentutil.Slug(ctx, dto.Slug, title, "post", "", s.posts.SlugExists)
	if err != nil {
		return nil, err
	}
	rel, err := s.relations(ctx, &dto.CategoryIDs, &dto.TagIDs)
	if err != nil {
		return nil, err
	}

	authorID := actor.ID
	p := &models.PostModel{
		Title:         title,
		Slug:          slug,
		Content:       content,
		Body:          body,
		Excerpt:       contentutil.Excerpt(dto.Excerpt, body),
		FeaturedImage: strings.TrimSpace(dto.FeaturedImage),
		Status:        status,
		PublishedAt:   publishedAt,
		AuthorID:      &authorID,
	}
	if err := s.posts.Create(ctx, p, rel); err != nil {
		return nil, err
	}

	created, err := s.posts.FindByID(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	s.sync(ctx, created)
	s.logger.Info("post created", zap.String("id", created.ID), zap.String("slug", created.Slug), zap.String("status", created.Status))
	return created, nil
}

// Update applies the present fields of dto. A slug change leaves a redirect
// from the old slug.
func (s *Service) Update(ctx context.Context, actor *models.UserModel, id string, dto *UpdatePostDTO) (*models.PostModel, error) {
	p, err := s.posts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canEdit(actor, p) {
		return nil, apperr.ErrForbidden
	}

	updates := map[string]interface{}{}
	title := p.Title
	if dto.Title != nil {
		title = strings.TrimSpace(*dto.Title)
		if title == "" {
			return nil, apperr.Invalid("title", "is required")
		}
		updates["title"] = title
	}
	if dto.Slug != nil && *dto.Slug != p.Slug {
		slug, err := contentutil.Slug(ctx, *dto.Slug, title, "post", p.ID, s.posts.SlugExists)
		if err != nil {
			return nil, err
		}
		if slug != p.Slug {
			updates["slug"] = slug
		}
	}

	body := p.Body
	if dto.Content != nil || dto.Markdown != nil {
		content, text, err := contentutil.Content(dto.Content, dto.Markdown)
		if err != nil {
			return nil, err
		}
		body = text
		updates["content_raw"] = content
		updates["body"] = body
	}
	switch {
	case dto.Excerpt != nil:
		updates["excerpt"] = contentutil.Excerpt(*dto.Excerpt, body)
	case dto.Content != nil || dto.Markdown != nil:
		if p.Excerpt == "" || p.Excerpt == contentutil.Excerpt("", p.Body) {
			updates["excerpt"] = contentutil.Excerpt("", body)
		}
	}
	if dto.FeaturedImage != nil {
		updates["featured_image"] = strings.TrimSpace(*dto.FeaturedImage)
	}

	if dto.Status != nil || dto.PublishedAt != nil {
		status, at := p.Status, p.PublishedAt
		if dto.Status != nil {
			status = *dto.Status
		}
		if dto.PublishedAt != nil {
			at = dto.PublishedAt
		} else if dto.Status != nil && *dto.Status != p.Status && status == models.StatusPublished {
			at = nil
		}
		status, at, err = contentutil.Publication(status, at, true, s.now())
		if err != nil {
			return nil, err
		}
		updates["status"] = status
		updates["published_at"] = at
	}

	rel, err := s.relations(ctx, dto.CategoryIDs, dto.TagIDs)
	if err != nil {
		return nil, err
	}
	if len(updates) > 0 {
		updates["updated_at"] = s.now()
	}
	if err := s.posts.Update(ctx, p.ID, updates, rel); err != nil {
		return nil, err
	}
	if newSlug, ok := updates["slug"].(string); ok {
		s.trackSlug(ctx, p.Slug, newSlug, p.ID)
	}

	updated, err := s.posts.FindByID(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	s.sync(ctx, updated)
	return updated, nil
}

// Publish makes the post public now, or schedules it when at lies in the future.
func (s *Service) Publish(ctx context.Context, actor *models.UserModel, id string, at *time.Time) (*models.PostModel, error) {
	status := models.StatusPublished
	return s.Update(ctx, actor, id, &UpdatePostDTO{Status: &status, PublishedAt: at})
}

// Unpublish returns the post to draft.
func (s *Service) Unpublish(ctx context.Context, actor *models.UserModel, id string) (*models.PostModel, error) {
	p, err := s.posts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canEdit(actor, p) {
		return nil, apperr.ErrForbidden
	}
	if err := s.posts.Update(ctx, id, map[string]interface{}{
		"status":       models.StatusDraft,
		"published_at": nil,
		"updated_at":   s.now(),
	}, repository.PostRelations{}); err != nil {
		return nil, err
	}
	s.indexer.Remove(ctx, search.KindPost, id)
	return s.posts.FindByID(ctx, id)
}

// Delete removes the post with its category and tag links.
func (s *Service) Delete(ctx context.Context, actor *models.UserModel, id string) error {
	p, err := s.posts.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if !canEdit(actor, p) {
		return apperr.ErrForbidden
	}
	if err := s.posts.Delete(ctx, id); err != nil {
		return err
	}
	s.indexer.Remove(ctx, search.KindPost, id)
	s.logger.Info("post deleted", zap.String("id", id), zap.String("slug", p.Slug))
	return nil
}

// ListPublished returns the public listing.
func (s *Service) ListPublished(ctx context.Context, lq ListQuery, q pagination.Query) ([]models.PostModel, response.Pagination, error) {
	return s.posts.ListPublished(ctx, repository.PostFilter{
		Search:       lq.Search,
		CategorySlug: lq.Category,
		TagSlug:      lq.Tag,
	}, s.now(), q)
}

// GetPublished finds a public post by slug. When slug is a retired slug the
// current post is returned with moved set.
func (s *Service) GetPublished(ctx context.Context, slug string) (p *models.PostModel, moved bool, err error) {
	p, err = s.posts.FindBySlug(ctx, slug)
	if errors.Is(err, repository.ErrNotFound) {
		targetID, rerr := s.slugs.Resolve(ctx, slug, repository.TargetPost)
		if rerr != nil {
			return nil, false, err
		}
		p, err = s.posts.FindByID(ctx, targetID)
		moved = true
	}
	if err != nil {
		return nil, false, err
	}
	if !p.IsPublic(s.now()) {
		return nil, false, apperr.NotFound("post")
	}
	return p, moved, nil
}

// PublishDue flips scheduled posts whose time has come and indexes them.
func (s *Service) PublishDue(ctx context.Context) (int, error) {
	published, err := s.posts.PublishDue(ctx, s.now())
	if err != nil {
		return 0, err
	}
	for i := range published {
		s.indexer.Index(ctx, search.PostDocument(&published[i]))
	}
	if len(published) > 0 {
		s.logger.Info("scheduled posts published", zap.Int("count", len(published)))
	}
	return len(published), nil
}

func (s *Service) relations(ctx context.Context, categoryIDs, tagIDs *[]string) (repository.PostRelations, error) {
	var rel repository.PostRelations
	if categoryIDs != nil {
		ids := database.UniqueIDs(*categoryIDs)
		found, err := s.categories.FindByIDs(ctx, ids)
		if err != nil {
			return rel, err
		}
		if len(found) != len(ids) {
			return rel, apperr.Invalid("category_ids", "references an unknown category")
		}
		rel.CategoryIDs = &ids
	}
	if tagIDs != nil {
		ids := database.UniqueIDs(*tagIDs)
		found, err := s.tags.FindByIDs(ctx, ids)
		if err != nil {
			return rel, err
		}
		if len(found) != len(ids) {
			return rel, apperr.Invalid("tag_ids", "references an unknown tag")
		}
		rel.TagIDs = &ids
	}
	return rel, nil
}

func (s *Service) trackSlug(ctx context.Context, oldSlug, newSlug, id string) {
	if err := s.slugs.Track(ctx, oldSlug, repository.TargetPost, id); err != nil {
		s.logger.Warn("track old slug failed", zap.String("slug", oldSlug), zap.Error(err))
	}
	// The new slug may itself be a retired one; it must resolve to the live row.
	if err := s.slugs.Remove(ctx, newSlug, repository.TargetPost); err != nil && !errors.Is(err, repository.ErrNotFound) {
		s.logger.Warn("clear slug redirect failed", zap.String("slug", newSlug), zap.Error(err))
	}
}

// sync mirrors the post's visibility into the search index.
func (s *Service) sync(ctx context.Context, p *models.PostModel) {
	if p.IsPublic(s.now()) {
		s.indexer.Index(ctx, search.PostDocument(p))
		return
	}
	s.indexer.Remove(ctx, search.KindPost, p.ID)
}

func validStatus(status string) bool {
	switch status {
	case models.StatusDraft, models.StatusPublished, models.StatusScheduled:
		return true
	}
	return false
}
