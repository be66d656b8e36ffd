// Package site serves the public HTML pages, the RSS feed and the sitemap.
package site

import (
	"context"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/inkwell-cms/inkwell/internal/config"
	"github.com/inkwell-cms/inkwell/internal/models"
	"github.com/inkwell-cms/inkwell/internal/modules/content/event"
	"github.com/inkwell-cms/inkwell/internal/modules/content/post"
	"github.com/inkwell-cms/inkwell/internal/modules/search"
	"github.com/inkwell-cms/inkwell/internal/modules/views"
	"github.com/inkwell-cms/inkwell/internal/pkg/apperr"
	"github.com/inkwell-cms/inkwell/internal/pkg/pagination"
	"github.com/inkwell-cms/inkwell/internal/pkg/response"
	"go.uber.org/zap"
)

type PostSource interface {
	ListPublished(ctx context.Context, lq post.ListQuery, q pagination.Query) ([]models.PostModel, response.Pagination, error)
	GetPublished(ctx context.Context, slug string) (*models.PostModel, bool, error)
}

type PageSource interface {
	ListPublished(ctx context.Context) ([]models.PageModel, error)
	GetPublished(ctx context.Context, slug string) (*models.PageModel, bool, error)
}

type EventSource interface {
	Upcoming(ctx context.Context, category string, q pagination.Query) ([]models.EventModel, response.Pagination, error)
	Past(ctx context.Context, category string, q pagination.Query) ([]models.EventModel, response.Pagination, error)
	GetPublished(ctx context.Context, slug string) (*models.EventModel, bool, error)
}

type CategorySource interface {
	Get(ctx context.Context, query string) (*models.CategoryModel, error)
}

type TagSource interface {
	Get(ctx context.Context, query string) (*models.TagModel, error)
}

type EventCategorySource interface {
	List(ctx context.Context) ([]models.EventCategoryModel, error)
}

// ViewRecorder counts a content view off the request path.
type ViewRecorder interface {
	RecordAsync(ctx context.Context, kind, id, visitor string)
}

// Sources bundles the content the site reads.
type Sources struct {
	Posts           PostSource
	Pages           PageSource
	Events          EventSource
	Categories      CategorySource
	Tags            TagSource
	EventCategories EventCategorySource
}

type Handler struct {
	src       Sources
	site      config.SiteConfig
	tmpl      map[string]*template.Template
	recorder  ViewRecorder
	uploadDir string
	logger    *zap.Logger
	now       func() time.Time
}

type HandlerOption func(*Handler)

func WithLogger(l *zap.Logger) HandlerOption {
	return func(h *Handler) {
		if l != nil {
			h.logger = l.Named("Site")
		}
	}
}

// WithViews counts post, page and event views.
func WithViews(r ViewRecorder) HandlerOption {
	return func(h *Handler) { h.recorder = r }
}

// WithUploads serves dir under /uploads.
func WithUploads(dir string) HandlerOption {
	return func(h *Handler) { h.uploadDir = dir }
}

func WithClock(now func() time.Time) HandlerOption {
	return func(h *Handler) { h.now = now }
}

// NewHandler compiles the templates; it fails only on a broken template.
func NewHandler(src Sources, site config.SiteConfig, opts ...HandlerOption) (*Handler, error) {
	parsed, err := parseViews()
	if err != nil {
		return nil, err
	}
	if site.PostsPerPage < 1 {
		site.PostsPerPage = pagination.DefaultSize
	}
	h := &Handler{
		src:    src,
		site:   site,
		tmpl:   parsed,
		logger: zap.NewNop(),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// RegisterRoutes mounts the site on the router root.
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.GET("/", h.home)
	r.GET("/blog", h.blog)
	r.GET("/blog/rss", h.rss)
	r.GET("/blog/category/:slug", h.category)
	r.GET("/blog/tag/:slug", h.tag)
	r.GET("/blog/:slug", h.post)
	r.GET("/pages/:slug", h.page)
	r.GET("/events", h.events)
	r.GET("/events/:slug", h.event)
	r.GET("/sitemap.xml", h.sitemap)
	if h.uploadDir != "" {
		r.Static("/uploads", h.uploadDir)
	}
}

// viewData is shared by every template.
type viewData struct {
	Site        config.SiteConfig
	Title       string
	Description string
	Nav         []models.PageModel
	Year        int

	Heading         string
	Intro           string
	Posts           []models.PostModel
	Pagination      response.Pagination
	Post            *models.PostModel
	Page            *models.PageModel
	Events          []models.EventModel
	Past            []models.EventModel
	Event           *models.EventModel
	EventCategories []models.EventCategoryModel

	Status  int
	Message string
}

func (h *Handler) data(c *gin.Context, title string) *viewData {
	nav, err := h.src.Pages.ListPublished(c.Request.Context())
	if err != nil {
		h.logger.Warn("navigation unavailable", zap.Error(err))
	}
	return &viewData{
		Site:        h.site,
		Title:       title,
		Description: h.site.Description,
		Nav:         nav,
		Year:        h.now().Year(),
	}
}

func (h *Handler) render(c *gin.Context, status int, name string, d *viewData) {
	body, err := h.execute(name, d)
	if err != nil {
		h.logger.Error("render failed", zap.String("view", name), zap.Error(err))
		c.String(http.StatusInternalServerError, "internal server error")
		return
	}
	c.Data(status, "text/html; charset=utf-8", body)
}

// fail renders the error page with the status err maps to.
func (h *Handler) fail(c *gin.Context, err error) {
	status := apperr.Status(err)
	msg := "The page you are looking for does not exist."
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		h.logger.Error("site request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
		msg = "Something went wrong on our side."
	} else if status != http.StatusNotFound {
		msg = http.StatusText(status)
	}
	d := h.data(c, http.StatusText(status))
	d.Status = status
	d.Message = msg
	h.render(c, status, "error", d)
}

func (h *Handler) record(c *gin.Context, kind, id string) {
	if h.recorder == nil {
		return
	}
	h.recorder.RecordAsync(c.Request.Context(), kind, id, views.Visitor(c.ClientIP(), c.Request.UserAgent()))
}

func (h *Handler) pageQuery(c *gin.Context) pagination.Query {
	return pagination.New(pagination.FromContext(c).Page, h.site.PostsPerPage)
}

// home GET /
func (h *Handler) home(c *gin.Context) {
	ctx := c.Request.Context()
	posts, _, err := h.src.Posts.ListPublished(ctx, post.ListQuery{}, pagination.New(1, h.site.PostsPerPage))
	if err != nil {
		h.fail(c, err)
		return
	}
	events, _, err := h.src.Events.Upcoming(ctx, "", pagination.New(1, 3))
	if err != nil {
		h.fail(c, err)
		return
	}
	d := h.data(c, "")
	d.Posts = posts
	d.Events = events
	h.render(c, http.StatusOK, "home", d)
}

// blog GET /blog?q=
func (h *Handler) blog(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	h.listing(c, post.ListQuery{Search: q}, "Blog", "")
}

// category GET /blog/category/:slug
func (h *Handler) category(c *gin.Context) {
	cat, err := h.src.Categories.Get(c.Request.Context(), c.Param("slug"))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.listing(c, post.ListQuery{Category: cat.Slug}, cat.Name, cat.Description)
}

// tag GET /blog/tag/:slug
func (h *Handler) tag(c *gin.Context) {
	t, err := h.src.Tags.Get(c.Request.Context(), c.Param("slug"))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.listing(c, post.ListQuery{Tag: t.Slug}, "#"+t.Name, "")
}

func (h *Handler) listing(c *gin.Context, lq post.ListQuery, heading, intro string) {
	posts, pag, err := h.src.Posts.ListPublished(c.Request.Context(), lq, h.pageQuery(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	d := h.data(c, heading)
	d.Heading = heading
	d.Intro = intro
	d.Posts = posts
	d.Pagination = pag
	h.render(c, http.StatusOK, "blog", d)
}

// post GET /blog/:slug
func (h *Handler) post(c *gin.Context) {
	p, moved, err := h.src.Posts.GetPublished(c.Request.Context(), c.Param("slug"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if moved {
		c.Redirect(http.StatusMovedPermanently, search.URLFor(search.KindPost, p.Slug))
		return
	}
	h.record(c, search.KindPost, p.ID)

	d := h.data(c, p.Title)
	if p.Excerpt != "" {
		d.Description = p.Excerpt
	}
	d.Post = p
	h.render(c, http.StatusOK, "post", d)
}

// page GET /pages/:slug
func (h *Handler) page(c *gin.Context) {
	p, moved, err := h.src.Pages.GetPublished(c.Request.Context(), c.Param("slug"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if moved {
		c.Redirect(http.StatusMovedPermanently, search.URLFor(search.KindPage, p.Slug))
		return
	}
	h.record(c, search.KindPage, p.ID)

	title := p.Title
	if p.MetaTitle != "" {
		title = p.MetaTitle
	}
	d := h.data(c, title)
	if p.MetaDescription != "" {
		d.Description = p.MetaDescription
	}
	d.Page = p
	h.render(c, http.StatusOK, "page", d)
}

// events GET /events?category=
func (h *Handler) events(c *gin.Context) {
	ctx := c.Request.Context()
	category := strings.TrimSpace(c.Query("category"))
	upcoming, pag, err := h.src.Events.Upcoming(ctx, category, h.pageQuery(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	past, _, err := h.src.Events.Past(ctx, category, pagination.New(1, 5))
	if err != nil {
		h.fail(c, err)
		return
	}

	d := h.data(c, "Events")
	d.Events = upcoming
	d.Past = past
	d.Pagination = pag
	if h.src.EventCategories != nil {
		cats, err := h.src.EventCategories.List(ctx)
		if err != nil {
			h.logger.Warn("event categories unavailable", zap.Error(err))
		}
		d.EventCategories = cats
	}
	h.render(c, http.StatusOK, "events", d)
}

// event GET /events/:slug
func (h *Handler) event(c *gin.Context) {
	e, moved, err := h.src.Events.GetPublished(c.Request.Context(), c.Param("slug"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if moved {
		c.Redirect(http.StatusMovedPermanently, search.URLFor(search.KindEvent, e.Slug))
		return
	}
	h.record(c, search.KindEvent, e.ID)

	d := h.data(c, e.Title)
	if e.Description != "" {
		d.Description = e.Description
	}
	d.Event = e
	h.render(c, http.StatusOK, "event_detail", d)
}

var _ EventSource = (*event.Service)(nil)
var _ PostSource = (*post.Service)(nil)
