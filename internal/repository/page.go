package repository

import (
	"context"
	"time"

	"github.com/inkwell-cms/inkwell/internal/database"
	"github.com/inkwell-cms/inkwell/internal/models"
	"github.com/inkwell-cms/inkwell/internal/pkg/pagination"
	"github.com/inkwell-cms/inkwell/internal/pkg/response"
	"gorm.io/gorm"
)

// PageFilter narrows page listings.
type PageFilter struct {
	Status string
	Search string
}

type PageRepository interface {
	FindByID(ctx context.Context, id string) (*models.PageModel, error)
	FindBySlug(ctx context.Context, slug string) (*models.PageModel, error)
	SlugExists(ctx context.Context, slug, excludeID string) (bool, error)
	List(ctx context.Context, filter PageFilter, q pagination.Query) ([]models.PageModel, response.Pagination, error)
	ListPublished(ctx context.Context, now time.Time) ([]models.PageModel, error)
	Create(ctx context.Context, page *models.PageModel) error
	Update(ctx context.Context, id string, fields map[string]interface{}) error
	Delete(ctx context.Context, id string) error
	IncrementViews(ctx context.Context, id string) error
	Count(ctx context.Context) (int64, error)
}

type pageRepository struct {
	db *gorm.DB
	t  table[models.PageModel]
}

func NewPageRepository(db *gorm.DB) PageRepository {
	return &pageRepository{
		db: db,
		t: table[models.PageModel]{
			db:       db,
			name:     "page",
			preloads: []string{"Author"},
			deps:     database.PageDependents,
		},
	}
}

func (r *pageRepository) FindByID(ctx context.Context, id string) (*models.PageModel, error) {
	return r.t.findBy(ctx, "id", id)
}

func (r *pageRepository) FindBySlug(ctx context.Context, slug string) (*models.PageModel, error) {
	return r.t.findBy(ctx, "slug", slug)
}

func (r *pageRepository) SlugExists(ctx context.Context, slug, excludeID string) (bool, error) {
	return r.t.taken(ctx, "slug", slug, excludeID)
}

func (r *pageRepository) List(ctx context.Context, filter PageFilter, q pagination.Query) ([]models.PageModel, response.Pagination, error) {
	query := r.db.WithContext(ctx).Model(&models.PageModel{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Search != "" {
		p := likePattern(filter.Search)
		query = query.Where("(LOWER(title) LIKE ? OR LOWER(body) LIKE ?)", p, p)
	}

	pages := []models.PageModel{}
	meta, err := pagination.Paginate(query, q, &pages, func(db *gorm.DB) *gorm.DB {
		return db.Preload("Author").Order("title ASC")
	})
	if err != nil {
		return nil, response.Pagination{}, wrap(err, "list pages")
	}
	return pages, meta, nil
}

// ListPublished returns every page visible at now, ordered by title.
func (r *pageRepository) ListPublished(ctx context.Context, now time.Time) ([]models.PageModel, error) {
	pages := []models.PageModel{}
	err := r.db.WithContext(ctx).
		Where("status = ? AND (published_at IS NULL OR published_at <= ?)", models.StatusPublished, now).
		Order("title ASC").
		Find(&pages).Error
	if err != nil {
		return nil, wrap(err, "list published pages")
	}
	return pages, nil
}

func (r *pageRepository) Create(ctx context.Context, page *models.PageModel) error {
	return r.t.create(ctx, page)
}

func (r *pageRepository) Update(ctx context.Context, id string, fields map[string]interface{}) error {
	return r.t.update(ctx, id, fields)
}

func (r *pageRepository) Delete(ctx context.Context, id string) error {
	return r.t.delete(ctx, id)
}

func (r *pageRepository) IncrementViews(ctx context.Context, id string) error {
	return r.t.incrementViews(ctx, id)
}

func (r *pageRepository) Count(ctx context.Context) (int64, error) {
	return r.t.count(ctx, "")
}
