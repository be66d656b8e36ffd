package repository

import (
	"context"

	"github.com/inkwell-cms/inkwell/internal/database"
	"gorm.io/gorm"
)

// table holds the lookups shared by every slugged entity.
type table[T any] struct {
	db       *gorm.DB
	name     string
	preloads []string
	deps     []database.Dependent
}

func (t table[T]) query(ctx context.Context) *gorm.DB {
	q := t.db.WithContext(ctx)
	for _, p := range t.preloads {
		q = q.Preload(p)
	}
	return q
}

func (t table[T]) findBy(ctx context.Context, column, value string) (*T, error) {
	var row T
	if err := t.query(ctx).Where(column+" = ?", value).First(&row).Error; err != nil {
		return nil, wrap(err, "find %s by %s %q", t.name, column, value)
	}
	return &row, nil
}

func (t table[T]) findByIDs(ctx context.Context, ids []string) ([]T, error) {
	rows := []T{}
	ids = database.UniqueIDs(ids)
	if len(ids) == 0 {
		return rows, nil
	}
	if err := t.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, wrap(err, "find %s by ids", t.name)
	}
	return rows, nil
}

// taken reports whether any row other than excludeID has column = value.
func (t table[T]) taken(ctx context.Context, column, value, excludeID string) (bool, error) {
	var count int64
	q := t.db.WithContext(ctx).Model(new(T)).Where(column+" = ?", value)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, wrap(err, "check %s %s", t.name, column)
	}
	return count > 0, nil
}

func (t table[T]) create(ctx context.Context, row *T) error {
	return wrap(t.db.WithContext(ctx).Create(row).Error, "create %s", t.name)
}

func (t table[T]) update(ctx context.Context, id string, fields map[string]interface{}) error {
	err := updateRow(t.db.WithContext(ctx), new(T), id, fields)
	return wrap(err, "update %s %s", t.name, id)
}

// updateRow applies fields to the row of model with id; an empty map only checks existence.
func updateRow(db *gorm.DB, model interface{}, id string, fields map[string]interface{}) error {
	if len(fields) == 0 {
		var n int64
		if err := db.Model(model).Where("id = ?", id).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	}
	res := db.Model(model).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (t table[T]) delete(ctx context.Context, id string) error {
	err := database.DeleteWithDependents(t.db.WithContext(ctx), new(T), id, t.deps...)
	return wrap(err, "delete %s %s", t.name, id)
}

// incrementViews bumps view_count in a single UPDATE so concurrent hits are never lost.
func (t table[T]) incrementViews(ctx context.Context, id string) error {
	res := t.db.WithContext(ctx).Model(new(T)).Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + ?", 1))
	if res.Error != nil {
		return wrap(res.Error, "increment %s views", t.name)
	}
	if res.RowsAffected == 0 {
		return wrap(gorm.ErrRecordNotFound, "increment %s views", t.name)
	}
	return nil
}

func (t table[T]) count(ctx context.Context, where string, args ...interface{}) (int64, error) {
	var n int64
	q := t.db.WithContext(ctx).Model(new(T))
	if where != "" {
		q = q.Where(where, args...)
	}
	if err := q.Count(&n).Error; err != nil {
		return 0, wrap(err, "count %s", t.name)
	}
	return n, nil
}
