package repository

import (
	"context"

	"github.com/inkwell-cms/inkwell/internal/database"
	"github.com/inkwell-cms/inkwell/internal/models"
	"gorm.io/gorm"
)

type EventCategoryRepository interface {
	FindByID(ctx context.Context, id string) (*models.EventCategoryModel, error)
	FindBySlug(ctx context.Context, slug string) (*models.EventCategoryModel, error)
	NameExists(ctx context.Context, name, excludeID string) (bool, error)
	SlugExists(ctx context.Context, slug, excludeID string) (bool, error)
	List(ctx context.Context) ([]models.EventCategoryModel, error)
	Create(ctx context.Context, category *models.EventCategoryModel) error
	Update(ctx context.Context, id string, fields map[string]interface{}) error
	Delete(ctx context.Context, id string) error
}

type eventCategoryRepository struct {
	db *gorm.DB
	t  table[models.EventCategoryModel]
}

func NewEventCategoryRepository(db *gorm.DB) EventCategoryRepository {
	return &eventCategoryRepository{
		db: db,
		t:  table[models.EventCategoryModel]{db: db, name: "event category", deps: database.EventCategoryDependents},
	}
}

func (r *eventCategoryRepository) FindByID(ctx context.Context, id string) (*models.EventCategoryModel, error) {
	return r.t.findBy(ctx, "id", id)
}

func (r *eventCategoryRepository) FindBySlug(ctx context.Context, slug string) (*models.EventCategoryModel, error) {
	return r.t.findBy(ctx, "slug", slug)
}

func (r *eventCategoryRepository) NameExists(ctx context.Context, name, excludeID string) (bool, error) {
	return r.t.taken(ctx, "name", name, excludeID)
}

func (r *eventCategoryRepository) SlugExists(ctx context.Context, slug, excludeID string) (bool, error) {
	return r.t.taken(ctx, "slug", slug, excludeID)
}

func (r *eventCategoryRepository) List(ctx context.Context) ([]models.EventCategoryModel, error) {
	categories := []models.EventCategoryModel{}
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&categories).Error; err != nil {
		return nil, wrap(err, "list event categories")
	}
	return categories, nil
}

func (r *eventCategoryRepository) Create(ctx context.Context, category *models.EventCategoryModel) error {
	return r.t.create(ctx, category)
}

func (r *eventCategoryRepository) Update(ctx context.Context, id string, fields map[string]interface{}) error {
	return r.t.update(ctx, id, fields)
}

func (r *eventCategoryRepository) Delete(ctx context.Context, id string) error {
	return r.t.delete(ctx, id)
}
