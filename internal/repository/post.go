package repository

import (
	"context"
	"time"

	"github.com/inkwell-cms/inkwell/internal/database"
	"github.com/inkwell-cms/inkwell/internal/models"
	"github.com/inkwell-cms/inkwell/internal/pkg/pagination"
	"github.com/inkwell-cms/inkwell/internal/pkg/response"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostFilter narrows post listings. Zero values disable a filter.
type PostFilter struct {
	Status       string
	AuthorID     string
	Search       string
	CategorySlug string
	TagSlug      string
}

// PostRelations carries the pivot sets to write with a post. A nil slice leaves the set unchanged.
type PostRelations struct {
	CategoryIDs *[]string
	TagIDs      *[]string
}

type PostRepository interface {
	FindByID(ctx context.Context, id string) (*models.PostModel, error)
	FindBySlug(ctx context.Context, slug string) (*models.PostModel, error)
	SlugExists(ctx context.Context, slug, excludeID string) (bool, error)
	List(ctx context.Context, filter PostFilter, q pagination.Query) ([]models.PostModel, response.Pagination, error)
	ListPublished(ctx context.Context, filter PostFilter, now time.Time, q pagination.Query) ([]models.PostModel, response.Pagination, error)
	Create(ctx context.Context, post *models.PostModel, rel PostRelations) error
	Update(ctx context.Context, id string, fields map[string]interface{}, rel PostRelations) error
	Delete(ctx context.Context, id string) error
	SyncCategories(ctx context.Context, postID string, categoryIDs []string) error
	SyncTags(ctx context.Context, postID string, tagIDs []string) error
	IncrementViews(ctx context.Context, id string) error
	DueScheduled(ctx context.Context, now time.Time) ([]models.PostModel, error)
	PublishDue(ctx context.Context, now time.Time) ([]models.PostModel, error)
	CountByStatus(ctx context.Context) (map[string]int64, error)
	Count(ctx context.Context) (int64, error)
}

type postRepository struct {
	db *gorm.DB
	t  table[models.PostModel]
}

func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{
		db: db,
		t: table[models.PostModel]{
			db:       db,
			name:     "post",
			preloads: []string{"Author", "Categories", "Tags"},
			deps:     database.PostDependents,
		},
	}
}

func (r *postRepository) FindByID(ctx context.Context, id string) (*models.PostModel, error) {
	return r.t.findBy(ctx, "id", id)
}

func (r *postRepository) FindBySlug(ctx context.Context, slug string) (*models.PostModel, error) {
	return r.t.findBy(ctx, "slug", slug)
}

func (r *postRepository) SlugExists(ctx context.Context, slug, excludeID string) (bool, error) {
	return r.t.taken(ctx, "slug", slug, excludeID)
}

func withPostAssociations(db *gorm.DB) *gorm.DB {
	return db.Preload("Author").Preload("Categories").Preload("Tags")
}

func (r *postRepository) filtered(ctx context.Context, filter PostFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&models.PostModel{})
	if filter.Status != "" {
		q = q.Where("posts.status = ?", filter.Status)
	}
	if filter.AuthorID != "" {
		q = q.Where("posts.author_id = ?", filter.AuthorID)
	}
	if filter.Search != "" {
		p := likePattern(filter.Search)
		q = q.Where("(LOWER(posts.title) LIKE ? OR LOWER(posts.body) LIKE ?)", p, p)
	}
	if filter.CategorySlug != "" {
		sub := r.db.Table(models.PostCategoriesTable).
			Select(models.PostCategoriesTable+".post_id").
			Joins("JOIN categories ON categories.id = "+models.PostCategoriesTable+".category_id").
			Where("categories.slug = ?", filter.CategorySlug)
		q = q.Where("posts.id IN (?)", sub)
	}
	if filter.TagSlug != "" {
		sub := r.db.Table(models.PostTagsTable).
			Select(models.PostTagsTable+".post_id").
			Joins("JOIN tags ON tags.id = "+models.PostTagsTable+".tag_id").
			Where("tags.slug = ?", filter.TagSlug)
		q = q.Where("posts.id IN (?)", sub)
	}
	return q
}

func (r *postRepository) List(ctx context.Context, filter PostFilter, q pagination.Query) ([]models.PostModel, response.Pagination, error) {
	posts := []models.PostModel{}
	meta, err := pagination.Paginate(r.filtered(ctx, filter), q, &posts, withPostAssociations,
		func(db *gorm.DB) *gorm.DB { return db.Order("posts.created_at DESC") })
	if err != nil {
		return nil, response.Pagination{}, wrap(err, "list posts")
	}
	return posts, meta, nil
}

// ListPublished lists posts visible to readers at now, newest first.
func (r *postRepository) ListPublished(ctx context.Context, filter PostFilter, now time.Time, q pagination.Query) ([]models.PostModel, response.Pagination, error) {
	filter.Status = models.StatusPublished
	posts := []models.PostModel{}
	query := r.filtered(ctx, filter).
		Where("(posts.published_at IS NULL OR posts.published_at <= ?)", now)
	meta, err := pagination.Paginate(query, q, &posts, withPostAssociations,
		func(db *gorm.DB) *gorm.DB {
			return db.Order("posts.published_at DESC").Order("posts.created_at DESC")
		})
	if err != nil {
		return nil, response.Pagination{}, wrap(err, "list published posts")
	}
	return posts, meta, nil
}

func syncPostRelations(tx *gorm.DB, postID string, rel PostRelations) error {
	if rel.CategoryIDs != nil {
		if err := database.SyncPivot(tx, models.PostCategoriesTable, "post_id", postID, "category_id", *rel.CategoryIDs); err != nil {
			return err
		}
	}
	if rel.TagIDs != nil {
		if err := database.SyncPivot(tx, models.PostTagsTable, "post_id", postID, "tag_id", *rel.TagIDs); err != nil {
			return err
		}
	}
	return nil
}

// Create inserts the post and its pivot rows in one transaction.
func (r *postRepository) Create(ctx context.Context, post *models.PostModel, rel PostRelations) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(post).Error; err != nil {
			return err
		}
		return syncPostRelations(tx, post.ID, rel)
	})
	return wrap(err, "create post")
}

func (r *postRepository) Update(ctx context.Context, id string, fields map[string]interface{}, rel PostRelations) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := updateRow(tx, &models.PostModel{}, id, fields); err != nil {
			return err
		}
		return syncPostRelations(tx, id, rel)
	})
	return wrap(err, "update post %s", id)
}

func (r *postRepository) Delete(ctx context.Context, id string) error {
	return r.t.delete(ctx, id)
}

func (r *postRepository) SyncCategories(ctx context.Context, postID string, categoryIDs []string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return syncPostRelations(tx, postID, PostRelations{CategoryIDs: &categoryIDs})
	})
	return wrap(err, "sync categories of post %s", postID)
}

func (r *postRepository) SyncTags(ctx context.Context, postID string, tagIDs []string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return syncPostRelations(tx, postID, PostRelations{TagIDs: &tagIDs})
	})
	return wrap(err, "sync tags of post %s", postID)
}

func (r *postRepository) IncrementViews(ctx context.Context, id string) error {
	return r.t.incrementViews(ctx, id)
}

// DueScheduled returns scheduled posts whose publish time has passed.
func (r *postRepository) DueScheduled(ctx context.Context, now time.Time) ([]models.PostModel, error) {
	posts := []models.PostModel{}
	err := r.db.WithContext(ctx).
		Where("status = ? AND published_at <= ?", models.StatusScheduled, now).
		Order("published_at ASC").
		Find(&posts).Error
	if err != nil {
		return nil, wrap(err, "find due scheduled posts")
	}
	return posts, nil
}

// PublishDue flips every due scheduled post to published and returns them.
func (r *postRepository) PublishDue(ctx context.Context, now time.Time) ([]models.PostModel, error) {
	var published []models.PostModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		due := []models.PostModel{}
		if err := tx.Where("status = ? AND published_at <= ?", models.StatusScheduled, now).
			Find(&due).Error; err != nil {
			return err
		}
		for i := range due {
			res := tx.Model(&models.PostModel{}).
				Where("id = ? AND status = ?", due[i].ID, models.StatusScheduled).
				Updates(map[string]interface{}{"status": models.StatusPublished, "updated_at": now})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 1 {
				due[i].Status = models.StatusPublished
				published = append(published, due[i])
			}
		}
		return nil
	})
	if err != nil {
		return nil, wrap(err, "publish due posts")
	}
	return published, nil
}

func (r *postRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Status string
		Total  int64
	}
	err := r.db.WithContext(ctx).Model(&models.PostModel{}).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, wrap(err, "count posts by status")
	}
	out := map[string]int64{
		models.StatusDraft:     0,
		models.StatusPublished: 0,
		models.StatusScheduled: 0,
	}
	for _, row := range rows {
		out[row.Status] = row.Total
	}
	return out, nil
}

func (r *postRepository) Count(ctx context.Context) (int64, error) {
	return r.t.count(ctx, "")
}
