package post

import (
	"encoding/json"
	"time"

	"github.com/inkwell-cms/inkwell/internal/models"
	"github.com/inkwell-cms/inkwell/internal/pkg/editorjs"
)

// CreatePostDTO is the request body for creating a post. Content is an
// Editor.js document; Markdown, when set, replaces it.
type CreatePostDTO struct {
	Title         string          `json:"title"          binding:"required"`
	Slug          string          `json:"slug"`
	Content       json.RawMessage `json:"content"`
	Markdown      *string         `json:"markdown"`
	Excerpt       string          `json:"excerpt"`
	FeaturedImage string          `json:"featured_image"`
	Status        string          `json:"status"`
	PublishedAt   *time.Time      `json:"published_at"`
	CategoryIDs   []string        `json:"category_ids"`
	TagIDs        []string        `json:"tag_ids"`
}

// UpdatePostDTO is the request body for updating a post (all fields optional).
// A present category_ids or tag_ids array replaces the whole set.
type UpdatePostDTO struct {
	Title         *string         `json:"title"`
	Slug          *string         `json:"slug"`
	Content       json.RawMessage `json:"content"`
	Markdown      *string         `json:"markdown"`
	Excerpt       *string         `json:"excerpt"`
	FeaturedImage *string         `json:"featured_image"`
	Status        *string         `json:"status"`
	PublishedAt   *time.Time      `json:"published_at"`
	CategoryIDs   *[]string       `json:"category_ids"`
	TagIDs        *[]string       `json:"tag_ids"`
}

// PublishDTO optionally schedules instead of publishing immediately.
type PublishDTO struct {
	PublishedAt *time.Time `json:"published_at"`
}

// ListQuery holds query params for listing posts.
type ListQuery struct {
	Status   string `form:"status"`
	Author   string `form:"author"`
	Search   string `form:"q"`
	Category string `form:"category"`
	Tag      string `form:"tag"`
}

type authorResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
}

type termResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// postResponse is the API response shape for a post.
type postResponse struct {
	ID            string          `json:"id"`
	Title         string          `json:"title"`
	Slug          string          `json:"slug"`
	URL           string          `json:"url"`
	Content       json.RawMessage `json:"content,omitempty"`
	HTML          string          `json:"html,omitempty"`
	Excerpt       string          `json:"excerpt"`
	FeaturedImage string          `json:"featured_image"`
	Status        string          `json:"status"`
	PublishedAt   *time.Time      `json:"published_at"`
	Author        *authorResponse `json:"author"`
	Categories    []termResponse  `json:"categories"`
	Tags          []termResponse  `json:"tags"`
	ViewCount     int64           `json:"view_count"`
	WordCount     int             `json:"word_count"`
	ReadingTime   int             `json:"reading_time"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

const wordsPerMinute = 200

func toResponse(p *models.PostModel) postResponse {
	resp := postResponse{
		ID:            p.ID,
		Title:         p.Title,
		Slug:          p.Slug,
		URL:           "/blog/" + p.Slug,
		Content:       json.RawMessage(p.Content),
		Excerpt:       p.Excerpt,
		FeaturedImage: p.FeaturedImage,
		Status:        p.Status,
		PublishedAt:   p.PublishedAt,
		Categories:    make([]termResponse, 0, len(p.Categories)),
		Tags:          make([]termResponse, 0, len(p.Tags)),
		ViewCount:     p.ViewCount,
		WordCount:     editorjs.WordCount(p.Body),
		ReadingTime:   editorjs.ReadingTime(p.Body, wordsPerMinute),
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
	if p.Author != nil {
		resp.Author = &authorResponse{ID: p.Author.ID, Username: p.Author.Username, Name: p.Author.DisplayName()}
	}
	for _, c := range p.Categories {
		resp.Categories = append(resp.Categories, termResponse{ID: c.ID, Name: c.Name, Slug: c.Slug})
	}
	for _, t := range p.Tags {
		resp.Tags = append(resp.Tags, termResponse{ID: t.ID, Name: t.Name, Slug: t.Slug})
	}
	return resp
}

// toSummary drops the document for list views.
func toSummary(p *models.PostModel) postResponse {
	resp := toResponse(p)
	resp.Content = nil
	return resp
}

// toPublic renders the document for readers.
func toPublic(p *models.PostModel) postResponse {
	resp := toResponse(p)
	if doc, err := editorjs.Parse(p.Content); err == nil {
		resp.HTML = string(editorjs.RenderHTML(doc))
	}
	return resp
}
