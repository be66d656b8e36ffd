package models

import (
	"time"

	"gorm.io/datatypes"
)

// PageModel is a static page (e.g. About, Contact).
type PageModel struct {
	Base
	Title           string         `json:"title"            gorm:"not null"`
	Slug            string         `json:"slug"             gorm:"size:191;uniqueIndex;not null"`
	Content         datatypes.JSON `json:"content"          gorm:"column:content_raw"`
	Body            string         `json:"body"             gorm:"type:text"`
	Template        string         `json:"template"         gorm:"size:64;default:default"`
	MetaTitle       string         `json:"meta_title"`
	MetaDescription string         `json:"meta_description" gorm:"type:text"`
	MetaKeywords    string         `json:"meta_keywords"`
	Status          string         `json:"status"           gorm:"size:20;index;not null;default:draft"`
	PublishedAt     *time.Time     `json:"published_at"`
	AuthorID        *string        `json:"author_id"        gorm:"type:char(36);index"`
	Author          *UserModel     `json:"author,omitempty" gorm:"foreignKey:AuthorID"`
	ViewCount       int64          `json:"view_count"       gorm:"not null;default:0"`
}

func (PageModel) TableName() string { return "pages" }
