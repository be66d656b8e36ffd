package views

import (
	"strings"

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
	rg.POST("/views", h.record)
}

type recordDTO struct {
	Type string `json:"type" binding:"required"`
	ID   string `json:"id"   binding:"required"`
}

// record POST /views
func (h *Handler) record(c *gin.Context) {
	var dto recordDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	kind := strings.ToLower(strings.TrimSpace(dto.Type))
	if _, ok := h.svc.counters[kind]; !ok {
		response.BadRequest(c, "type must be post|page|event")
		return
	}

	counted, err := h.svc.Record(c.Request.Context(), kind, strings.TrimSpace(dto.ID), Visitor(c.ClientIP(), c.Request.UserAgent()))
	if err != nil {
		apperr.Write(c, err)
		return
	}
	response.OK(c, gin.H{"counted": counted})
}
