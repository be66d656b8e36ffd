package repository

import (
	"context"

	"github.com/inkwell-cms/inkwell/internal/database"
	"github.com/inkwell-cms/inkwell/internal/models"
	"gorm.io/gorm"
)

type TagRepository interface {
	FindByID(ctx context.Context, id string) (*models.TagModel, error)
	FindBySlug(ctx context.Context, slug string) (*models.TagModel, error)
	FindByIDs(ctx context.Context, ids []string) ([]models.TagModel, error)
	NameExists(ctx context.Context, name, excludeID string) (bool, error)
	SlugExists(ctx context.Context, slug, excludeID string) (bool, error)
	List(ctx context.Context) ([]models.TagModel, error)
	Create(ctx context.Context, tag *models.TagModel) error
	Update(ctx context.Context, id string, fields map[string]interface{}) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int64, error)
}

type tagRepository struct {
	db *gorm.DB
	t  table[models.TagModel]
}

func NewTagRepository(db *gorm.DB) TagRepository {
	return &tagRepository{
		db: db,
		t:  table[models.TagModel]{db: db, name: "tag", deps: database.TagDependents},
	}
}

func (r *tagRepository) FindByID(ctx context.Context, id string) (*models.TagModel, error) {
	return r.t.findBy(ctx, "id", id)
}

func (r *tagRepository) FindBySlug(ctx context.Context, slug string) (*models.TagModel, error) {
	return r.t.findBy(ctx, "slug", slug)
}

func (r *tagRepository) FindByIDs(ctx context.Context, ids []string) ([]models.TagModel, error) {
	return r.t.findByIDs(ctx, ids)
}

func (r *tagRepository) NameExists(ctx context.Context, name, excludeID string) (bool, error) {
	return r.t.taken(ctx, "name", name, excludeID)
}

func (r *tagRepository) SlugExists(ctx context.Context, slug, excludeID string) (bool, error) {
	return r.t.taken(ctx, "slug", slug, excludeID)
}

func (r *tagRepository) List(ctx context.Context) ([]models.TagModel, error) {
	tags := []models.TagModel{}
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&tags).Error; err != nil {
		return nil, wrap(err, "list tags")
	}
	counts, err := publishedCounts(r.db.WithContext(ctx), models.PostTagsTable, "tag_id")
	if err != nil {
		return nil, wrap(err, "count tag posts")
	}
	for i := range tags {
		tags[i].PostCount = counts[tags[i].ID]
	}
	return tags, nil
}

func (r *tagRepository) Create(ctx context.Context, tag *models.TagModel) error {
	return r.t.create(ctx, tag)
}

func (r *tagRepository) Update(ctx context.Context, id string, fields map[string]interface{}) error {
	return r.t.update(ctx, id, fields)
}

func (r *tagRepository) Delete(ctx context.Context, id string) error {
	return r.t.delete(ctx, id)
}

func (r *tagRepository) Count(ctx context.Context) (int64, error) {
	return r.t.count(ctx, "")
}
