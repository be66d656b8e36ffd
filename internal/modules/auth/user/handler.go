package user

import (
	"github.com/gin-gonic/gin"
	"github.com/inkwell-cms/inkwell/internal/middleware"
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

// RegisterAdminRoutes mounts /users behind guard.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup, guard gin.HandlerFunc) {
	g := rg.Group("/users", guard)
	g.GET("", h.list)
	g.GET("/:id", h.get)
	g.POST("", h.create)
	g.PUT("/:id", h.update)
	g.PATCH("/:id", h.update)
	g.DELETE("/:id", h.delete)
	g.POST("/:id/unlock", h.unlock)
}

// RegisterProfileRoutes mounts /profile for any signed-in user.
func (h *Handler) RegisterProfileRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/profile")
	g.GET("", h.me)
	g.PUT("", h.updateProfile)
	g.PATCH("", h.updateProfile)
	g.PUT("/password", h.changePassword)
}

// list GET /users
func (h *Handler) list(c *gin.Context) {
	var q ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	users, meta, err := h.svc.List(c.Request.Context(), q, pagination.FromContext(c))
	if err != nil {
		apperr.Write(c, err)
		return
	}
	response.Paged(c, toResponses(users), meta)
}

// get GET /users/:id
func (h *Handler) get(c *gin.Context) {
	u, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		apperr.Write(c, err)
		return
	}
	response.OK(c, toResponse(u))
}

// create POST /users
func (h *Handler) create(c *gin.Context) {
	var dto CreateUserDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	u, err := h.svc.Create(c.Request.Context(), &dto)
	if err != nil {
		apperr.Write(c, err)
		return
	}
	response.Created(c, toResponse(u))
}

// update PUT|PATCH /users/:id
func (h *Handler) update(c *gin.Context) {
	var dto UpdateUserDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	u, err := h.svc.Update(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"), &dto)
	if err != nil {
		apperr.Write(c, err)
		return
	}
	response.OK(c, toResponse(u))
}

// delete DELETE /users/:id
func (h *Handler) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), middleware.CurrentUser(c), c.Param("id")); err != nil {
		apperr.Write(c, err)
		return
	}
	response.NoContent(c)
}

// unlock POST /users/:id/unlock
func (h *Handler) unlock(c *gin.Context) {
	u, err := h.svc.Unlock(c.Request.Context(), c.Param("id"))
	if err != nil {
		apperr.Write(c, err)
		return
	}
	response.OK(c, toResponse(u))
}

// me GET /profile
func (h *Handler) me(c *gin.Context) {
	u, err := h.svc.Get(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		apperr.Write(c, err)
		return
	}
	response.OK(c, toResponse(u))
}

// updateProfile PUT|PATCH /profile
func (h *Handler) updateProfile(c *gin.Context) {
	var dto UpdateProfileDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	u, err := h.svc.UpdateProfile(c.Request.Context(), middleware.CurrentUserID(c), &dto)
	if err != nil {
		apperr.Write(c, err)
		return
	}
	response.OK(c, toResponse(u))
}

// changePassword PUT /profile/password
func (h *Handler) changePassword(c *gin.Context) {
	var dto ChangePasswordDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.svc.ChangePassword(c.Request.Context(), middleware.CurrentUserID(c), middleware.CurrentSessionID(c), &dto); err != nil {
		apperr.Write(c, err)
		return
	}
	response.NoContent(c)
}
