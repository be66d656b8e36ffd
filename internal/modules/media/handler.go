package media

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/inkwell-cms/inkwell/internal/middleware"
	"github.com/inkwell-cms/inkwell/internal/models"
	"github.com/inkwell-cms/inkwell/internal/pkg/apperr"
	"github.com/inkwell-cms/inkwell/internal/pkg/pagination"
	"github.com/inkwell-cms/inkwell/internal/pkg/response"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterAdminRoutes mounts /media. Uploads answer in the Editor.js image
// tool format.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup, guard gin.HandlerFunc) {
	g := rg.Group("/media", guard)
	g.GET("", h.list)
	g.POST("/upload", h.upload)
	g.POST("/upload-by-url", h.uploadByURL)
	g.POST("/featured", h.featured)
	g.DELETE("/:id", h.delete)
}

// list GET /media
func (h *Handler) list(c *gin.Context) {
	var q ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	items, meta, err := h.svc.List(c.Request.Context(), q, pagination.FromContext(c))
	if err != nil {
		apperr.Write(c, err)
		return
	}
	response.Paged(c, toResponses(items), meta)
}

// upload POST /media/upload
func (h *Handler) upload(c *gin.Context) {
	m, err := h.receive(c)
	if err != nil {
		editorFail(c, err)
		return
	}
	editorOK(c, m)
}

// uploadByURL POST /media/upload-by-url
func (h *Handler) uploadByURL(c *gin.Context) {
	var dto UploadByURLDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		editorFail(c, apperr.Invalid("url", "is required"))
		return
	}
	m, err := h.svc.UploadFromURL(c.Request.Context(), middleware.CurrentUser(c), dto.URL)
	if err != nil {
		editorFail(c, err)
		return
	}
	editorOK(c, m)
}

// featured POST /media/featured
func (h *Handler) featured(c *gin.Context) {
	m, err := h.receive(c)
	if err != nil {
		if errors.Is(err, ErrTooLarge) {
			response.Fail(c, http.StatusRequestEntityTooLarge, err.Error())
			return
		}
		apperr.Write(c, err)
		return
	}
	response.Created(c, toResponse(m))
}

// delete DELETE /media/:id
func (h *Handler) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), middleware.CurrentUser(c), c.Param("id")); err != nil {
		apperr.Write(c, err)
		return
	}
	response.NoContent(c)
}

// receive reads the multipart "image" field, or "file" as a fallback.
func (h *Handler) receive(c *gin.Context) (*models.MediaModel, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.svc.maxBytes+1<<20)
	fh, err := c.FormFile("image")
	if err != nil {
		fh, err = c.FormFile("file")
	}
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return nil, ErrTooLarge
		}
		return nil, apperr.Invalid("image", "is required")
	}
	if fh.Size > h.svc.maxBytes {
		return nil, ErrTooLarge
	}
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return h.svc.Upload(c.Request.Context(), middleware.CurrentUser(c), fh.Filename, f)
}

func editorOK(c *gin.Context, m *models.MediaModel) {
	c.JSON(http.StatusOK, editorResponse{
		Success: 1,
		File:    &editorFile{URL: m.URL, Width: m.Width, Height: m.Height},
	})
}

func editorFail(c *gin.Context, err error) {
	status := apperr.Status(err)
	msg := err.Error()
	switch {
	case errors.Is(err, ErrTooLarge):
		status = http.StatusRequestEntityTooLarge
	case status == http.StatusInternalServerError:
		_ = c.Error(err)
		msg = "upload failed"
	}
	c.AbortWithStatusJSON(status, editorResponse{Success: 0, Message: msg})
}
