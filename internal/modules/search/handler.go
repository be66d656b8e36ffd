package search

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/inkwell-cms/inkwell/internal/pkg/response"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the public search endpoint.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/search", h.search)
}

// RegisterAdminRoutes mounts index maintenance; guard must restrict it to admins.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup, guard gin.HandlerFunc) {
	rg.POST("/search/reindex", guard, h.reindex)
}

// search GET /search?q=&limit=
func (h *Handler) search(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(DefaultLimit)))
	hits, err := h.svc.Search(c.Request.Context(), c.Query("q"), limit)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"data": hits, "backend": h.svc.Backend()})
}

// reindex POST /admin/search/reindex
func (h *Handler) reindex(c *gin.Context) {
	n, err := h.svc.Reindex(c.Request.Context())
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"indexed": n})
}
