package models

// CategoryModel groups posts; posts link to categories through post_categories.
type CategoryModel struct {
	Base
	Name        string `json:"name"        gorm:"size:191;uniqueIndex;not null"`
	Slug        string `json:"slug"        gorm:"size:191;uniqueIndex;not null"`
	Description string `json:"description" gorm:"type:text"`

	PostCount int64 `json:"post_count,omitempty" gorm:"-"`
}

func (CategoryModel) TableName() string { return "categories" }

// TagModel is a free-form post label; posts link to tags through post_tags.
type TagModel struct {
	Base
	Name string `json:"name" gorm:"size:191;uniqueIndex;not null"`
	Slug string `json:"slug" gorm:"size:191;uniqueIndex;not null"`

	PostCount int64 `json:"post_count,omitempty" gorm:"-"`
}

func (TagModel) TableName() string { return "tags" }

// EventCategoryModel groups events and carries a display color.
type EventCategoryModel struct {
	Base
	Name        string `json:"name"        gorm:"size:191;uniqueIndex;not null"`
	Slug        string `json:"slug"        gorm:"size:191;uniqueIndex;not null"`
	Color       string `json:"color"       gorm:"size:7;not null;default:'#3b82f6'"`
	Description string `json:"description" gorm:"type:text"`
}

func (EventCategoryModel) TableName() string { return "event_categories" }

// Pivot table names.
const (
	PostCategoriesTable = "post_categories"
	PostTagsTable       = "post_tags"
)
