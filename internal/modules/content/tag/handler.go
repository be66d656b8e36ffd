package tag

import (
	"github.com/gin-gonic/gin"
	"github.com/inkwell-cms/inkwell/internal/pkg/apperr"
	"github.com/inkwell-cms/inkwell/internal/pkg/response"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	tags := rg.Group("/tags")
	tags.GET("", h.list)
	tags.GET("/:query", h.get)
}

// RegisterAdminRoutes mounts tag management behind guard.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup, guard gin.HandlerFunc) {
	tags := rg.Group("/tags", guard)
	tags.GET("", h.list)
	tags.POST("", h.create)
	tags.PUT("/:id", h.update)
	tags.PATCH("/:id", h.update)
	tags.DELETE("/:id", h.delete)
}

// list GET /tags
func (h *Handler) list(c *gin.Context) {
	tags, err := h.svc.List(c.Request.Context())
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"data": tags})
}

// get GET /tags/:query
func (h *Handler) get(c *gin.Context) {
	tag, err := h.svc.Get(c.Request.Context(), c.Param("query"))
	if err != nil {
		apperr.Write(c, err)
		return
	}
	response.OK(c, tag)
}

// create POST /admin/tags
func (h *Handler) create(c *gin.Context) {
	var dto CreateTagDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	tag, err := h.svc.Create(c.Request.Context(), &dto)
	if err != nil {
		apperr.Write(c, err)
		return
	}
	response.Created(c, tag)
}

// update PUT /admin/tags/:id
func (h *Handler) update(c *gin.Context) {
	var dto UpdateTagDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	tag, err := h.svc.Update(c.Request.Context(), c.Param("id"), &dto)
	if err != nil {
		apperr.Write(c, err)
		return
	}
	response.OK(c, tag)
}

// delete DELETE /admin/tags/:id
func (h *Handler) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		apperr.Write(c, err)
		return
	}
	response.NoContent(c)
}
