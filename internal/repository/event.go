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

// EventFilter narrows event listings.
type EventFilter struct {
	Status       string
	CategoryID   string
	CategorySlug string
	Search       string
}

type EventRepository interface {
	FindByID(ctx context.Context, id string) (*models.EventModel, error)
	FindBySlug(ctx context.Context, slug string) (*models.EventModel, error)
	SlugExists(ctx context.Context, slug, excludeID string) (bool, error)
	List(ctx context.Context, filter EventFilter, q pagination.Query) ([]models.EventModel, response.Pagination, error)
	Upcoming(ctx context.Context, filter EventFilter, now time.Time, q pagination.Query) ([]models.EventModel, response.Pagination, error)
	Past(ctx context.Context, filter EventFilter, now time.Time, q pagination.Query) ([]models.EventModel, response.Pagination, error)
	Between(ctx context.Context, filter EventFilter, from, to time.Time) ([]models.EventModel, error)
	Create(ctx context.Context, event *models.EventModel) error
	Update(ctx context.Context, id string, fields map[string]interface{}) error
	Delete(ctx context.Context, id string) error
	IncrementViews(ctx context.Context, id string) error
	Count(ctx context.Context) (int64, error)
	CountUpcoming(ctx context.Context, now time.Time) (int64, error)
}

type eventRepository struct {
	db *gorm.DB
	t  table[models.EventModel]
}

func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepository{
		db: db,
		t: table[models.EventModel]{
			db:       db,
			name:     "event",
			preloads: []string{"Category"},
			deps:     database.EventDependents,
		},
	}
}

func (r *eventRepository) FindByID(ctx context.Context, id string) (*models.EventModel, error) {
	return r.t.findBy(ctx, "id", id)
}

func (r *eventRepository) FindBySlug(ctx context.Context, slug string) (*models.EventModel, error) {
	return r.t.findBy(ctx, "slug", slug)
}

func (r *eventRepository) SlugExists(ctx context.Context, slug, excludeID string) (bool, error) {
	return r.t.taken(ctx, "slug", slug, excludeID)
}

func (r *eventRepository) filtered(ctx context.Context, filter EventFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&models.EventModel{})
	if filter.Status != "" {
		q = q.Where("events.status = ?", filter.Status)
	}
	if filter.CategoryID != "" {
		q = q.Where("events.category_id = ?", filter.CategoryID)
	}
	if filter.CategorySlug != "" {
		sub := r.db.Model(&models.EventCategoryModel{}).Select("id").Where("slug = ?", filter.CategorySlug)
		q = q.Where("events.category_id IN (?)", sub)
	}
	if filter.Search != "" {
		p := likePattern(filter.Search)
		q = q.Where("(LOWER(events.title) LIKE ? OR LOWER(events.body) LIKE ? OR LOWER(events.location) LIKE ?)", p, p, p)
	}
	return q
}

func orderBy(expr string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB { return db.Order(expr) }
}

func withEventCategory(db *gorm.DB) *gorm.DB {
	return db.Preload("Category")
}

func (r *eventRepository) List(ctx context.Context, filter EventFilter, q pagination.Query) ([]models.EventModel, response.Pagination, error) {
	events := []models.EventModel{}
	meta, err := pagination.Paginate(r.filtered(ctx, filter), q, &events, withEventCategory, orderBy("events.start_date DESC"))
	if err != nil {
		return nil, response.Pagination{}, wrap(err, "list events")
	}
	return events, meta, nil
}

// Upcoming lists events that have not ended at now, soonest first.
func (r *eventRepository) Upcoming(ctx context.Context, filter EventFilter, now time.Time, q pagination.Query) ([]models.EventModel, response.Pagination, error) {
	query := r.filtered(ctx, filter).
		Where("(events.start_date >= ? OR events.end_date >= ?)", now, now)
	events := []models.EventModel{}
	meta, err := pagination.Paginate(query, q, &events, withEventCategory, orderBy("events.start_date ASC"))
	if err != nil {
		return nil, response.Pagination{}, wrap(err, "list upcoming events")
	}
	return events, meta, nil
}

// Past lists events that ended before now, most recent first.
func (r *eventRepository) Past(ctx context.Context, filter EventFilter, now time.Time, q pagination.Query) ([]models.EventModel, response.Pagination, error) {
	query := r.filtered(ctx, filter).
		Where("events.start_date < ? AND (events.end_date IS NULL OR events.end_date < ?)", now, now)
	events := []models.EventModel{}
	meta, err := pagination.Paginate(query, q, &events, withEventCategory, orderBy("events.start_date DESC"))
	if err != nil {
		return nil, response.Pagination{}, wrap(err, "list past events")
	}
	return events, meta, nil
}

// Between returns events overlapping the half-open range [from, to).
func (r *eventRepository) Between(ctx context.Context, filter EventFilter, from, to time.Time) ([]models.EventModel, error) {
	events := []models.EventModel{}
	err := r.filtered(ctx, filter).
		Where("events.start_date < ?", to).
		Where("((events.end_date IS NULL AND events.start_date >= ?) OR events.end_date >= ?)", from, from).
		Preload("Category").
		Order("events.start_date ASC").
		Find(&events).Error
	if err != nil {
		return nil, wrap(err, "list events between %s and %s", from.Format(time.RFC3339), to.Format(time.RFC3339))
	}
	return events, nil
}

func (r *eventRepository) Create(ctx context.Context, event *models.EventModel) error {
	return wrap(r.db.WithContext(ctx).Omit("Category").Create(event).Error, "create event")
}

func (r *eventRepository) Update(ctx context.Context, id string, fields map[string]interface{}) error {
	return r.t.update(ctx, id, fields)
}

func (r *eventRepository) Delete(ctx context.Context, id string) error {
	return r.t.delete(ctx, id)
}

func (r *eventRepository) IncrementViews(ctx context.Context, id string) error {
	return r.t.incrementViews(ctx, id)
}

func (r *eventRepository) Count(ctx context.Context) (int64, error) {
	return r.t.count(ctx, "")
}

func (r *eventRepository) CountUpcoming(ctx context.Context, now time.Time) (int64, error) {
	return r.t.count(ctx, "start_date >= ? OR end_date >= ?", now, now)
}
