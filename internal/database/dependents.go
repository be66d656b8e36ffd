package database

import (
	"fmt"

	"github.com/inkwell-cms/inkwell/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DependentStrategy decides what happens to child rows when their parent is deleted.
type DependentStrategy int

const (
	// Nullify sets the child's foreign key column to NULL.
	Nullify DependentStrategy = iota
	// DeleteAll removes the child rows.
	DeleteAll
)

func (s DependentStrategy) String() string {
	switch s {
	case Nullify:
		return "nullify"
	case DeleteAll:
		return "delete_all"
	default:
		return fmt.Sprintf("DependentStrategy(%d)", int(s))
	}
}

// Dependent names a child table column that references a parent id.
type Dependent struct {
	Table    string
	Column   string
	Strategy DependentStrategy
}

// Dependents declared per parent entity.
var (
	UserDependents = []Dependent{
		{Table: "posts", Column: "author_id", Strategy: Nullify},
		{Table: "pages", Column: "author_id", Strategy: Nullify},
		{Table: "events", Column: "created_by", Strategy: Nullify},
		{Table: "media", Column: "uploaded_by", Strategy: Nullify},
		{Table: "email_verification_tokens", Column: "user_id", Strategy: DeleteAll},
		{Table: "user_sessions", Column: "user_id", Strategy: DeleteAll},
	}
	PostDependents = []Dependent{
		{Table: models.PostCategoriesTable, Column: "post_id", Strategy: DeleteAll},
		{Table: models.PostTagsTable, Column: "post_id", Strategy: DeleteAll},
		{Table: "slug_trackers", Column: "target_id", Strategy: DeleteAll},
	}
	PageDependents = []Dependent{
		{Table: "slug_trackers", Column: "target_id", Strategy: DeleteAll},
	}
	EventDependents = []Dependent{
		{Table: "slug_trackers", Column: "target_id", Strategy: DeleteAll},
	}
	CategoryDependents = []Dependent{
		{Table: models.PostCategoriesTable, Column: "category_id", Strategy: DeleteAll},
	}
	TagDependents = []Dependent{
		{Table: models.PostTagsTable, Column: "tag_id", Strategy: DeleteAll},
	}
	EventCategoryDependents = []Dependent{
		{Table: "events", Column: "category_id", Strategy: Nullify},
	}
)

// ApplyDependents runs each dependent's strategy for parent id inside tx.
func ApplyDependents(tx *gorm.DB, id string, deps ...Dependent) error {
	for _, dep := range deps {
		table := clause.Table{Name: dep.Table}
		column := clause.Column{Name: dep.Column}

		var err error
		switch dep.Strategy {
		case Nullify:
			err = tx.Exec("UPDATE ? SET ? = NULL WHERE ? = ?", table, column, column, id).Error
		case DeleteAll:
			err = tx.Exec("DELETE FROM ? WHERE ? = ?", table, column, id).Error
		default:
			err = fmt.Errorf("unknown strategy %s", dep.Strategy)
		}
		if err != nil {
			return fmt.Errorf("%s %s.%s: %w", dep.Strategy, dep.Table, dep.Column, err)
		}
	}
	return nil
}

// DeleteWithDependents removes the row of model with id after applying deps, in one transaction.
// It returns gorm.ErrRecordNotFound when no row was deleted.
func DeleteWithDependents(db *gorm.DB, model interface{}, id string, deps ...Dependent) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := ApplyDependents(tx, id, deps...); err != nil {
			return err
		}
		res := tx.Delete(model, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
