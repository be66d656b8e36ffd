package repository

import (
	"context"

	"github.com/inkwell-cms/inkwell/internal/models"
	"gorm.io/gorm"
)

// Redirect target types.
const (
	TargetPost  = "post"
	TargetPage  = "page"
	TargetEvent = "event"
)

// SlugTrackerRepository remembers retired slugs so old links keep resolving.
type SlugTrackerRepository interface {
	Track(ctx context.Context, oldSlug, refType, targetID string) error
	Resolve(ctx context.Context, slug, refType string) (string, error)
	ListFor(ctx context.Context, targetID string) ([]models.SlugTrackerModel, error)
	Remove(ctx context.Context, slug, refType string) error
}

type slugTrackerRepository struct {
	db *gorm.DB
}

func NewSlugTrackerRepository(db *gorm.DB) SlugTrackerRepository {
	return &slugTrackerRepository{db: db}
}

// Track points oldSlug of refType at targetID, replacing any earlier mapping.
func (r *slugTrackerRepository) Track(ctx context.Context, oldSlug, refType, targetID string) error {
	tracker := models.SlugTrackerModel{Slug: oldSlug, Type: refType, TargetID: targetID}
	err := r.db.WithContext(ctx).
		Where(models.SlugTrackerModel{Slug: oldSlug, Type: refType}).
		Assign(models.SlugTrackerModel{TargetID: targetID}).
		FirstOrCreate(&tracker).Error
	return wrap(err, "track slug %q", oldSlug)
}

// Resolve returns the target id for a retired slug.
func (r *slugTrackerRepository) Resolve(ctx context.Context, slug, refType string) (string, error) {
	var tracker models.SlugTrackerModel
	err := r.db.WithContext(ctx).
		Where("slug = ? AND type = ?", slug, refType).
		First(&tracker).Error
	if err != nil {
		return "", wrap(err, "resolve %s slug %q", refType, slug)
	}
	return tracker.TargetID, nil
}

func (r *slugTrackerRepository) ListFor(ctx context.Context, targetID string) ([]models.SlugTrackerModel, error) {
	trackers := []models.SlugTrackerModel{}
	err := r.db.WithContext(ctx).Where("target_id = ?", targetID).Order("created_at DESC").Find(&trackers).Error
	if err != nil {
		return nil, wrap(err, "list slugs of %s", targetID)
	}
	return trackers, nil
}

func (r *slugTrackerRepository) Remove(ctx context.Context, slug, refType string) error {
	res := r.db.WithContext(ctx).Where("slug = ? AND type = ?", slug, refType).Delete(&models.SlugTrackerModel{})
	if res.Error != nil {
		return wrap(res.Error, "remove %s slug %q", refType, slug)
	}
	if res.RowsAffected == 0 {
		return wrap(gorm.ErrRecordNotFound, "remove %s slug %q", refType, slug)
	}
	return nil
}
