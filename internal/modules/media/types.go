package media

import (
	"time"

	"github.com/inkwell-cms/inkwell/internal/models"
)

type ListQuery struct {
	UploadedBy string `form:"uploaded_by"`
	Type       string `form:"type"`
	Search     string `form:"q"`
}

type UploadByURLDTO struct {
	URL string `json:"url" binding:"required"`
}

// editorFile is the file object of an Editor.js image tool response.
type editorFile struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type editorResponse struct {
	Success int         `json:"success"`
	File    *editorFile `json:"file,omitempty"`
	Message string      `json:"message,omitempty"`
}

type mediaResponse struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	URL        string    `json:"url"`
	Storage    string    `json:"storage"`
	MimeType   string    `json:"mime_type"`
	Size       int64     `json:"size"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	UploadedBy *string   `json:"uploaded_by"`
	CreatedAt  time.Time `json:"created_at"`
}

func toResponse(m *models.MediaModel) *mediaResponse {
	return &mediaResponse{
		ID: m.ID, Filename: m.Filename, URL: m.URL, Storage: m.Storage, MimeType: m.MimeType,
		Size: m.Size, Width: m.Width, Height: m.Height, UploadedBy: m.UploadedBy, CreatedAt: m.CreatedAt,
	}
}

func toResponses(items []models.MediaModel) []*mediaResponse {
	out := make([]*mediaResponse, 0, len(items))
	for i := range items {
		out = append(out, toResponse(&items[i]))
	}
	return out
}
