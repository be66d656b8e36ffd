package repository

import (
	"context"

	"github.com/inkwell-cms/inkwell/internal/database"
	"github.com/inkwell-cms/inkwell/internal/models"
	"gorm.io/gorm"
)

type CategoryRepository interface {
	FindByID(ctx context.Context, id string) (*models.CategoryModel, error)
	FindBySlug(ctx context.Context, slug string) (*models.CategoryModel, error)
	FindByIDs(ctx context.Context, ids []string) ([]models.CategoryModel, error)
	NameExists(ctx context.Context, name, excludeID string) (bool, error)
	SlugExists(ctx context.Context, slug, excludeID string) (bool, error)
	List(ctx context.Context) ([]models.CategoryModel, error)
	Create(ctx context.Context, category *models.CategoryModel) error
	Update(ctx context.Context, id string, fields map[string]interface{}) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int64, error)
}

type categoryRepository struct {
	db *gorm.DB
	t  table[models.CategoryModel]
}

func NewCategoryRepository(db *gorm.DB) CategoryRepository {
	return &categoryRepository{
		db: db,
		t:  table[models.CategoryModel]{db: db, name: "category", deps: database.CategoryDependents},
	}
}

func (r *categoryRepository) FindByID(ctx context.Context, id string) (*models.CategoryModel, error) {
	return r.t.findBy(ctx, "id", id)
}

func (r *categoryRepository) FindBySlug(ctx context.Context, slug string) (*models.CategoryModel, error) {
	return r.t.findBy(ctx, "slug", slug)
}

func (r *categoryRepository) FindByIDs(ctx context.Context, ids []string) ([]models.CategoryModel, error) {
	return r.t.findByIDs(ctx, ids)
}

func (r *categoryRepository) NameExists(ctx context.Context, name, excludeID string) (bool, error) {
	return r.t.taken(ctx, "name", name, excludeID)
}

func (r *categoryRepository) SlugExists(ctx context.Context, slug, excludeID string) (bool, error) {
	return r.t.taken(ctx, "slug", slug, excludeID)
}

// List returns all categories by name with their published post counts.
func (r *categoryRepository) List(ctx context.Context) ([]models.CategoryModel, error) {
	categories := []models.CategoryModel{}
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&categories).Error; err != nil {
		return nil, wrap(err, "list categories")
	}
	counts, err := publishedCounts(r.db.WithContext(ctx), models.PostCategoriesTable, "category_id")
	if err != nil {
		return nil, wrap(err, "count category posts")
	}
	for i := range categories {
		categories[i].PostCount = counts[categories[i].ID]
	}
	return categories, nil
}

func (r *categoryRepository) Create(ctx context.Context, category *models.CategoryModel) error {
	return r.t.create(ctx, category)
}

func (r *categoryRepository) Update(ctx context.Context, id string, fields map[string]interface{}) error {
	return r.t.update(ctx, id, fields)
}

func (r *categoryRepository) Delete(ctx context.Context, id string) error {
	return r.t.delete(ctx, id)
}

func (r *categoryRepository) Count(ctx context.Context) (int64, error) {
	return r.t.count(ctx, "")
}

// publishedCounts counts published posts per related id of a post pivot table.
func publishedCounts(db *gorm.DB, pivot, relatedCol string) (map[string]int64, error) {
	var rows []struct {
		RelatedID string
		Total     int64
	}
	err := db.Table(pivot).
		Select(pivot+"."+relatedCol+" AS related_id, COUNT(*) AS total").
		Joins("JOIN posts ON posts.id = "+pivot+".post_id").
		Where("posts.status = ?", models.StatusPublished).
		Group(pivot + "." + relatedCol).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.RelatedID] = row.Total
	}
	return out, nil
}
