package post

import (
	"context"
	"io"
	"net/http"
	"path"

	"github.com/gin-gonic/gin"
	"github.com/inkwell-cms/inkwell/internal/middleware"
	"github.com/inkwell-cms/inkwell/internal/models"
	"github.com/inkwell-cms/inkwell/internal/modules/search"
	"github.com/inkwell-cms/inkwell/internal/modules/views"
	"github.com/inkwell-cms/inkwell/internal/pkg/apperr"
	"github.com/inkwell-cms/inkwell/internal/pkg/pagination"
	"github.com/inkwell-cms/inkwell/internal/pkg/response"
)

// maxImportBytes caps Markdown uploads.
const maxImportBytes = 2 << 20

// ViewRecorder counts a content view off the request path.
type ViewRecorder interface {
	RecordAsync(ctx context.Context, kind, id, visitor string)
}

// Handler handles post HTTP requests.
type Handler struct {
	svc   *Service
	views ViewRecorder
}

func NewHandler(svc *Service, views ViewRecorder) *Handler {
	return &Handler{svc: svc, views: views}
}

// RegisterRoutes mounts the public post routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	posts := rg.Group("/posts")
	posts.GET("", h.listPublished)
	posts.GET("/:slug", h.getPublished)
}

// RegisterAdminRoutes mounts post management; rg must already require an author.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	posts := rg.Group("/posts")
	posts.GET("", h.list)
	posts.GET("/:id", h.get)
	posts.POST("", h.create)
	posts.POST("/import", h.importMarkdown)
	posts.PUT("/:id", h.update)
	posts.PATCH("/:id", h.update)
	posts.POST("/:id/publish", h.publish)
	posts.POST("/:id/unpublish", h.unpublish)
	posts.DELETE("/:id", h.delete)
}

// listPublished GET /posts
func (h *Handler) listPublished(c *gin.Context) {
	var lq ListQuery
	if err := c.ShouldBindQuery(&lq); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	posts, pag, err := h.svc.ListPublished(c.Request.Context(), lq, pagination.FromContext(c))
	if err != nil {
		apperr.Write(c, err)
		return
	}
	response.Paged(c, summaries(posts), pag)
}

// getPublished GET /posts/:slug
func (h *Handler) getPublished(c *gin.Context) {
	post, moved, err := h.svc.GetPublished(c.Request.Context(), c.Param("slug"))
	if err != nil {
		apperr.Write(c, err)
		return
	}
	if moved {
		c.Redirect(http.StatusMovedPermanently, path.Join(path.Dir(c.Request.URL.Path), post.Slug))
		return
	}

	c.Set(middleware.ContextKeyNoCache, true)
	if h.views != nil {
		h.views.RecordAsync(c.Request.Context(), search.KindPost, post.ID, views.Visitor(c.ClientIP(), c.Request.UserAgent()))
	}
	response.OK(c, toPublic(post))
}

// list GET /admin/posts
func (h *Handler) list(c *gin.Context) {
	var lq ListQuery
	if err := c.ShouldBindQuery(&lq); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	posts, pag, err := h.svc.List(c.Request.Context(), middleware.CurrentUser(c), lq, pagination.FromContext(c))
	if err != nil {
		apperr.Write(c, err)
		return
	}
	response.Paged(c, summaries(posts), pag)
}

// get GET /admin/posts/:id
func (h *Handler) get(c *gin.Context) {
	post, err := h.svc.Get(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"))
	if err != nil {
		apperr.Write(c, err)
		return
	}
	response.OK(c, toResponse(post))
}

// create POST /admin/posts
func (h *Handler) create(c *gin.Context) {
	var dto CreatePostDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	post, err := h.svc.Create(c.Request.Context(), middleware.CurrentUser(c), &dto)
	if err != nil {
		apperr.Write(c, err)
		return
	}
	response.Created(c, toResponse(post))
}

// importMarkdown POST /admin/posts/import (multipart "file")
func (h *Handler) importMarkdown(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "file is required")
		return
	}
	if fh.Size > maxImportBytes {
		response.BadRequest(c, "file is too large")
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.InternalError(c, err)
		return
	}
	defer f.Close()
	src, err := io.ReadAll(io.LimitReader(f, maxImportBytes))
	if err != nil {
		response.InternalError(c, err)
		return
	}

	post, err := h.svc.Import(c.Request.Context(), middleware.CurrentUser(c), fh.Filename, src)
	if err != nil {
		apperr.Write(c, err)
		return
	}
	response.Created(c, toResponse(post))
}

// update PUT /admin/posts/:id
func (h *Handler) update(c *gin.Context) {
	var dto UpdatePostDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	post, err := h.svc.Update(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"), &dto)
	if err != nil {
		apperr.Write(c, err)
		return
	}
	response.OK(c, toResponse(post))
}

// publish POST /admin/posts/:id/publish
func (h *Handler) publish(c *gin.Context) {
	var dto PublishDTO
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&dto); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
	}
	post, err := h.svc.Publish(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"), dto.PublishedAt)
	if err != nil {
		apperr.Write(c, err)
		return
	}
	response.OK(c, toResponse(post))
}

// unpublish POST /admin/posts/:id/unpublish
func (h *Handler) unpublish(c *gin.Context) {
	post, err := h.svc.Unpublish(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"))
	if err != nil {
		apperr.Write(c, err)
		return
	}
	response.OK(c, toResponse(post))
}

// delete DELETE /admin/posts/:id
func (h *Handler) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), middleware.CurrentUser(c), c.Param("id")); err != nil {
		apperr.Write(c, err)
		return
	}
	response.NoContent(c)
}

func summaries(posts []models.PostModel) []postResponse {
	items := make([]postResponse, len(posts))
	for i := range posts {
		items[i] = toSummary(&posts[i])
	}
	return items
}
