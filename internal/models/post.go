package models

import (
	"time"

	"gorm.io/datatypes"
)

// PostModel is a blog post. Content holds the Editor.js document; Body is its plain text.
type PostModel struct {
	Base
	Title         string         `json:"title"          gorm:"not null"`
	Slug          string         `json:"slug"           gorm:"size:191;uniqueIndex;not null"`
	Content       datatypes.JSON `json:"content"        gorm:"column:content_raw"`
	Body          string         `json:"body"           gorm:"type:text"`
	Excerpt       string         `json:"excerpt"        gorm:"type:text"`
	FeaturedImage string         `json:"featured_image"`
	Status        string         `json:"status"         gorm:"size:20;index;not null;default:draft"`
	PublishedAt   *time.Time     `json:"published_at"   gorm:"index"`
	AuthorID      *string        `json:"author_id"      gorm:"type:char(36);index"`
	Author        *UserModel     `json:"author,omitempty" gorm:"foreignKey:AuthorID"`
	ViewCount     int64          `json:"view_count"     gorm:"not null;default:0"`

	Categories []CategoryModel `json:"categories" gorm:"many2many:post_categories;joinForeignKey:PostID;joinReferences:CategoryID"`
	Tags       []TagModel      `json:"tags"       gorm:"many2many:post_tags;joinForeignKey:PostID;joinReferences:TagID"`
}

func (PostModel) TableName() string { return "posts" }

// IsPublic reports whether the post is visible to anonymous readers at now.
func (p *PostModel) IsPublic(now time.Time) bool {
	return p.Status == StatusPublished && (p.PublishedAt == nil || !p.PublishedAt.After(now))
}

// OwnedBy reports whether userID authored the post.
func (p *PostModel) OwnedBy(userID string) bool {
	return p.AuthorID != nil && *p.AuthorID == userID
}
