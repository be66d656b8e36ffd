package models

import (
	"time"

	"gorm.io/datatypes"
)

// EventModel is a dated happening shown on the events calendar.
type EventModel struct {
	Base
	Title         string              `json:"title"          gorm:"not null"`
	Slug          string              `json:"slug"           gorm:"size:191;uniqueIndex;not null"`
	Description   string              `json:"description"    gorm:"type:text"`
	Content       datatypes.JSON      `json:"content"        gorm:"column:content_raw"`
	Body          string              `json:"body"           gorm:"type:text"`
	Location      string              `json:"location"`
	StartDate     time.Time           `json:"start_date"     gorm:"index;not null"`
	EndDate       *time.Time          `json:"end_date"       gorm:"index"`
	AllDay        bool                `json:"all_day"        gorm:"not null;default:false"`
	CategoryID    *string             `json:"category_id"    gorm:"type:char(36);index"`
	Category      *EventCategoryModel `json:"category,omitempty" gorm:"foreignKey:CategoryID"`
	Status        string              `json:"status"         gorm:"size:20;index;not null;default:draft"`
	FeaturedImage string              `json:"featured_image"`
	Organizer     string              `json:"organizer"`
	ContactEmail  string              `json:"contact_email"`
	ContactPhone  string              `json:"contact_phone"  gorm:"size:64"`
	CreatedBy     *string             `json:"created_by"     gorm:"type:char(36);index"`
	ViewCount     int64               `json:"view_count"     gorm:"not null;default:0"`
}

func (EventModel) TableName() string { return "events" }

// Ends returns the end of the event, falling back to the start.
func (e *EventModel) Ends() time.Time {
	if e.EndDate != nil {
		return *e.EndDate
	}
	return e.StartDate
}
