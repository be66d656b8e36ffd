package event

import (
	"encoding/json"
	"time"

	"github.com/inkwell-cms/inkwell/internal/models"
	"github.com/inkwell-cms/inkwell/internal/modules/search"
)

type CreateEventDTO struct {
	Title         string          `json:"title"          binding:"required"`
	Slug          string          `json:"slug"`
	Description   string          `json:"description"`
	Content       json.RawMessage `json:"content"`
	Markdown      *string         `json:"markdown"`
	Location      string          `json:"location"`
	StartDate     time.Time       `json:"start_date"     binding:"required"`
	EndDate       *time.Time      `json:"end_date"`
	AllDay        bool            `json:"all_day"`
	CategoryID    *string         `json:"category_id"`
	Status        string          `json:"status"`
	FeaturedImage string          `json:"featured_image"`
	Organizer     string          `json:"organizer"`
	ContactEmail  string          `json:"contact_email"`
	ContactPhone  string          `json:"contact_phone"`
}

// UpdateEventDTO: an empty string category_id clears the category and
// clear_end_date removes the end date.
type UpdateEventDTO struct {
	Title         *string         `json:"title"`
	Slug          *string         `json:"slug"`
	Description   *string         `json:"description"`
	Content       json.RawMessage `json:"content"`
	Markdown      *string         `json:"markdown"`
	Location      *string         `json:"location"`
	StartDate     *time.Time      `json:"start_date"`
	EndDate       *time.Time      `json:"end_date"`
	ClearEndDate  bool            `json:"clear_end_date"`
	AllDay        *bool           `json:"all_day"`
	CategoryID    *string         `json:"category_id"`
	Status        *string         `json:"status"`
	FeaturedImage *string         `json:"featured_image"`
	Organizer     *string         `json:"organizer"`
	ContactEmail  *string         `json:"contact_email"`
	ContactPhone  *string         `json:"contact_phone"`
}

type ListQuery struct {
	Status   string `form:"status"`
	Category string `form:"category"`
	Search   string `form:"q"`
}

type categoryResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Slug  string `json:"slug"`
	Color string `json:"color"`
}

type eventResponse struct {
	ID            string            `json:"id"`
	Title         string            `json:"title"`
	Slug          string            `json:"slug"`
	URL           string            `json:"url"`
	Description   string            `json:"description"`
	Content       json.RawMessage   `json:"content,omitempty"`
	Location      string            `json:"location"`
	StartDate     time.Time         `json:"start_date"`
	EndDate       *time.Time        `json:"end_date"`
	AllDay        bool              `json:"all_day"`
	Category      *categoryResponse `json:"category"`
	Status        string            `json:"status"`
	FeaturedImage string            `json:"featured_image"`
	Organizer     string            `json:"organizer"`
	ContactEmail  string            `json:"contact_email"`
	ContactPhone  string            `json:"contact_phone"`
	ViewCount     int64             `json:"view_count"`
	CreatedBy     *string           `json:"created_by"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

func toResponse(e *models.EventModel) eventResponse {
	resp := eventResponse{
		ID: e.ID, Title: e.Title, Slug: e.Slug, URL: search.URLFor(search.KindEvent, e.Slug),
		Description: e.Description, Content: json.RawMessage(e.Content), Location: e.Location,
		StartDate: e.StartDate, EndDate: e.EndDate, AllDay: e.AllDay,
		Status: e.Status, FeaturedImage: e.FeaturedImage, Organizer: e.Organizer,
		ContactEmail: e.ContactEmail, ContactPhone: e.ContactPhone,
		ViewCount: e.ViewCount, CreatedBy: e.CreatedBy,
		CreatedAt: e.CreatedAt, UpdatedAt: e.UpdatedAt,
	}
	if e.Category != nil {
		resp.Category = &categoryResponse{ID: e.Category.ID, Name: e.Category.Name, Slug: e.Category.Slug, Color: e.Category.Color}
	}
	return resp
}

func toSummaries(events []models.EventModel) []eventResponse {
	items := make([]eventResponse, len(events))
	for i := range events {
		items[i] = toResponse(&events[i])
		items[i].Content = nil
	}
	return items
}
