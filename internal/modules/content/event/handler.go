package event

import (
	"context"
	"net/http"
	"path"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/inkwell-cms/inkwell/internal/middleware"
	"github.com/inkwell-cms/inkwell/internal/modules/search"
	"github.com/inkwell-cms/inkwell/internal/modules/views"
	"github.com/inkwell-cms/inkwell/internal/pkg/apperr"
	"github.com/inkwell-cms/inkwell/internal/pkg/pagination"
	"github.com/inkwell-cms/inkwell/internal/pkg/response"
)

// ViewRecorder counts a content view off the request path.
type ViewRecorder interface {
	RecordAsync(ctx context.Context, kind, id, visitor string)
}

type Handler struct {
	svc   *Service
	views ViewRecorder
}

func NewHandler(svc *Service, views ViewRecorder) *Handler {
	return &Handler{svc: svc, views: views}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	events := rg.Group("/events")
	events.GET("", h.upcoming)
	events.GET("/past", h.past)
	events.GET("/calendar", h.calendar)
	events.GET("/calendar/:year/:month", h.calendar)
	events.GET("/:slug", h.getPublished)
}

func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	events := rg.Group("/events")
	events.GET("", h.list)
	events.GET("/:id", h.get)
	events.POST("", h.create)
	events.PUT("/:id", h.update)
	events.PATCH("/:id", h.update)
	events.POST("/:id/publish", h.publish)
	events.POST("/:id/unpublish", h.unpublish)
	events.DELETE("/:id", h.delete)
}

// upcoming GET /events?category=
func (h *Handler) upcoming(c *gin.Context) {
	events, pag, err := h.svc.Upcoming(c.Request.Context(), c.Query("category"), pagination.FromContext(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, toSummaries(events), pag)
}

// past GET /events/past?category=
func (h *Handler) past(c *gin.Context) {
	events, pag, err := h.svc.Past(c.Request.Context(), c.Query("category"), pagination.FromContext(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, toSummaries(events), pag)
}

// calendar GET /events/calendar?year=&month= and /events/calendar/:year/:month.
// Missing values default to the current month.
func (h *Handler) calendar(c *gin.Context) {
	year, month := h.svc.ThisMonth()
	var errY, errM error
	if v := firstNonEmpty(c.Param("year"), c.Query("year")); v != "" {
		year, errY = strconv.Atoi(v)
	}
	if v := firstNonEmpty(c.Param("month"), c.Query("month")); v != "" {
		month, errM = strconv.Atoi(v)
	}
	if errY != nil || errM != nil {
		response.BadRequest(c, "year and month must be numbers")
		return
	}
	m, err := h.svc.Calendar(c.Request.Context(), year, month, c.Query("category"))
	if err != nil {
		apperr.Write(c, err)
		return
	}

	days := make(map[string][]string, len(m.Days))
	for day, idx := range m.Days {
		for _, i := range idx {
			days[day] = append(days[day], m.Events[i].ID)
		}
	}
	response.OK(c, gin.H{
		"year":   m.Year,
		"month":  int(m.Month),
		"start":  m.Start,
		"end":    m.End,
		"events": toSummaries(m.Events),
		"days":   days,
	})
}

// getPublished GET /events/:slug
func (h *Handler) getPublished(c *gin.Context) {
	e, moved, err := h.svc.GetPublished(c.Request.Context(), c.Param("slug"))
	if err != nil {
		apperr.Write(c, err)
		return
	}
	if moved {
		c.Redirect(http.StatusMovedPermanently, path.Join(path.Dir(c.Request.URL.Path), e.Slug))
		return
	}
	c.Set(middleware.ContextKeyNoCache, true)
	if h.views != nil {
		h.views.RecordAsync(c.Request.Context(), search.KindEvent, e.ID, views.Visitor(c.ClientIP(), c.Request.UserAgent()))
	}
	response.OK(c, toResponse(e))
}

// list GET /admin/events
func (h *Handler) list(c *gin.Context) {
	var lq ListQuery
	if err := c.ShouldBindQuery(&lq); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	events, pag, err := h.svc.List(c.Request.Context(), middleware.CurrentUser(c), lq, pagination.FromContext(c))
	if err != nil {
		apperr.Write(c, err)
		return
	}
	response.Paged(c, toSummaries(events), pag)
}

// get GET /admin/events/:id
func (h *Handler) get(c *gin.Context) {
	e, err := h.svc.Get(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"))
	if err != nil {
		apperr.Write(c, err)
		return
	}
	response.OK(c, toResponse(e))
}

// create POST /admin/events
func (h *Handler) create(c *gin.Context) {
	var dto CreateEventDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	e, err := h.svc.Create(c.Request.Context(), middleware.CurrentUser(c), &dto)
	if err != nil {
		apperr.Write(c, err)
		return
	}
	response.Created(c, toResponse(e))
}

// publish POST /admin/events/:id/publish
func (h *Handler) publish(c *gin.Context) {
	e, err := h.svc.Publish(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"))
	if err != nil {
		apperr.Write(c, err)
		return
	}
	response.OK(c, toResponse(e))
}

// unpublish POST /admin/events/:id/unpublish
func (h *Handler) unpublish(c *gin.Context) {
	e, err := h.svc.Unpublish(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"))
	if err != nil {
		apperr.Write(c, err)
		return
	}
	response.OK(c, toResponse(e))
}

// update PUT /admin/events/:id
func (h *Handler) update(c *gin.Context) {
	var dto UpdateEventDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	e, err := h.svc.Update(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"), &dto)
	if err != nil {
		apperr.Write(c, err)
		return
	}
	response.OK(c, toResponse(e))
}

// delete DELETE /admin/events/:id
func (h *Handler) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), middleware.CurrentUser(c), c.Param("id")); err != nil {
		apperr.Write(c, err)
		return
	}
	response.NoContent(c)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
