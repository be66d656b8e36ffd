package repository

import (
	"context"

	"github.com/inkwell-cms/inkwell/internal/models"
	"github.com/inkwell-cms/inkwell/internal/pkg/pagination"
	"github.com/inkwell-cms/inkwell/internal/pkg/response"
	"gorm.io/gorm"
)

// MediaFilter narrows media listings.
type MediaFilter struct {
	UploadedBy string
	MimePrefix string
	Search     string
}

type MediaRepository interface {
	FindByID(ctx context.Context, id string) (*models.MediaModel, error)
	List(ctx context.Context, filter MediaFilter, q pagination.Query) ([]models.MediaModel, response.Pagination, error)
	Create(ctx context.Context, media *models.MediaModel) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int64, error)
}

type mediaRepository struct {
	db *gorm.DB
	t  table[models.MediaModel]
}

func NewMediaRepository(db *gorm.DB) MediaRepository {
	return &mediaRepository{db: db, t: table[models.MediaModel]{db: db, name: "media"}}
}

func (r *mediaRepository) FindByID(ctx context.Context, id string) (*models.MediaModel, error) {
	return r.t.findBy(ctx, "id", id)
}

func (r *mediaRepository) List(ctx context.Context, filter MediaFilter, q pagination.Query) ([]models.MediaModel, response.Pagination, error) {
	query := r.db.WithContext(ctx).Model(&models.MediaModel{})
	if filter.UploadedBy != "" {
		query = query.Where("uploaded_by = ?", filter.UploadedBy)
	}
	if filter.MimePrefix != "" {
		query = query.Where("mime_type LIKE ?", likePrefix(filter.MimePrefix))
	}
	if filter.Search != "" {
		query = query.Where("LOWER(filename) LIKE ?", likePattern(filter.Search))
	}

	items := []models.MediaModel{}
	meta, err := pagination.Paginate(query, q, &items, orderBy("created_at DESC"))
	if err != nil {
		return nil, response.Pagination{}, wrap(err, "list media")
	}
	return items, meta, nil
}

func (r *mediaRepository) Create(ctx context.Context, media *models.MediaModel) error {
	return r.t.create(ctx, media)
}

func (r *mediaRepository) Delete(ctx context.Context, id string) error {
	return r.t.delete(ctx, id)
}

func (r *mediaRepository) Count(ctx context.Context) (int64, error) {
	return r.t.count(ctx, "")
}
