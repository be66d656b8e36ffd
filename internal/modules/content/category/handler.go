package category

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
	cats := rg.Group("/categories")
	cats.GET("", h.list)
	cats.GET("/:query", h.get)
}

// RegisterAdminRoutes mounts category management behind guard.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup, guard gin.HandlerFunc) {
	cats := rg.Group("/categories", guard)
	cats.GET("", h.list)
	cats.POST("", h.create)
	cats.PUT("/:id", h.update)
	cats.PATCH("/:id", h.update)
	cats.DELETE("/:id", h.delete)
}

// list GET /categories
func (h *Handler) list(c *gin.Context) {
	cats, err := h.svc.List(c.Request.Context())
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"data": cats})
}

// get GET /categories/:query
func (h *Handler) get(c *gin.Context) {
	cat, err := h.svc.Get(c.Request.Context(), c.Param("query"))
	if err != nil {
		apperr.Write(c, err)
		return
	}
	response.OK(c, cat)
}

// create POST /admin/categories
func (h *Handler) create(c *gin.Context) {
	var dto CreateCategoryDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	cat, err := h.svc.Create(c.Request.Context(), &dto)
	if err != nil {
		apperr.Write(c, err)
		return
	}
	response.Created(c, cat)
}

// update PUT /admin/categories/:id
func (h *Handler) update(c *gin.Context) {
	var dto UpdateCategoryDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	cat, err := h.svc.Update(c.Request.Context(), c.Param("id"), &dto)
	if err != nil {
		apperr.Write(c, err)
		return
	}
	response.OK(c, cat)
}

// delete DELETE /admin/categories/:id
func (h *Handler) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		apperr.Write(c, err)
		return
	}
	response.NoContent(c)
}
