package page

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/inkwell-cms/inkwell/internal/middleware"
	"github.com/inkwell-cms/inkwell/internal/models"
	"github.com/inkwell-cms/inkwell/internal/modules/content/contentutil"
	"github.com/inkwell-cms/inkwell/internal/modules/search"
	"github.com/inkwell-cms/inkwell/internal/modules/views"
	"github.com/inkwell-cms/inkwell/internal/pkg/apperr"
	"github.com/inkwell-cms/inkwell/internal/pkg/editorjs"
	"github.com/inkwell-cms/inkwell/internal/pkg/pagination"
	"github.com/inkwell-cms/inkwell/internal/pkg/response"
	"github.com/inkwell-cms/inkwell/internal/repository"
	"go.uber.org/zap"
)

// DefaultTemplate renders a page with the standard layout.
const DefaultTemplate = "default"

var templatePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)

type CreatePageDTO struct {
	Title           string          `json:"title"            binding:"required"`
	Slug            string          `json:"slug"`
	Content         json.RawMessage `json:"content"`
	Markdown        *string         `json:"markdown"`
	Template        string          `json:"template"`
	MetaTitle       string          `json:"meta_title"`
	MetaDescription string          `json:"meta_description"`
	MetaKeywords    string          `json:"meta_keywords"`
	Status          string          `json:"status"`
	PublishedAt     *time.Time      `json:"published_at"`
}

type UpdatePageDTO struct {
	Title           *string         `json:"title"`
	Slug            *string         `json:"slug"`
	Content         json.RawMessage `json:"content"`
	Markdown        *string         `json:"markdown"`
	Template        *string         `json:"template"`
	MetaTitle       *string         `json:"meta_title"`
	MetaDescription *string         `json:"meta_description"`
	MetaKeywords    *string         `json:"meta_keywords"`
	Status          *string         `json:"status"`
	PublishedAt     *time.Time      `json:"published_at"`
}

type ListQuery struct {
	Status string `form:"status"`
	Search string `form:"q"`
}

type pageResponse struct {
	ID              string          `json:"id"`
	Title           string          `json:"title"`
	Slug            string          `json:"slug"`
	URL             string          `json:"url"`
	Content         json.RawMessage `json:"content,omitempty"`
	HTML            string          `json:"html,omitempty"`
	Template        string          `json:"template"`
	MetaTitle       string          `json:"meta_title"`
	MetaDescription string          `json:"meta_description"`
	MetaKeywords    string          `json:"meta_keywords"`
	Status          string          `json:"status"`
	PublishedAt     *time.Time      `json:"published_at"`
	AuthorID        *string         `json:"author_id"`
	ViewCount       int64           `json:"view_count"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func toResponse(p *models.PageModel) pageResponse {
	return pageResponse{
		ID: p.ID, Title: p.Title, Slug: p.Slug, URL: search.URLFor(search.KindPage, p.Slug),
		Content: json.RawMessage(p.Content), Template: p.Template,
		MetaTitle: p.MetaTitle, MetaDescription: p.MetaDescription, MetaKeywords: p.MetaKeywords,
		Status: p.Status, PublishedAt: p.PublishedAt, AuthorID: p.AuthorID,
		ViewCount: p.ViewCount, CreatedAt: p.CreatedAt, UpdatedAt: p.UpdatedAt,
	}
}

func toPublic(p *models.PageModel) pageResponse {
	resp := toResponse(p)
	if doc, err := editorjs.Parse(p.Content); err == nil {
		resp.HTML = string(editorjs.RenderHTML(doc))
	}
	return resp
}

type Service struct {
	pages   repository.PageRepository
	slugs   repository.SlugTrackerRepository
	indexer search.Indexer
	logger  *zap.Logger
	now     func() time.Time
}

type ServiceOption func(*Service)

func WithLogger(l *zap.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l.Named("PageService")
		}
	}
}

func WithIndexer(ix search.Indexer) ServiceOption {
	return func(s *Service) {
		if ix != nil {
			s.indexer = ix
		}
	}
}

func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

func NewService(pages repository.PageRepository, slugs repository.SlugTrackerRepository, opts ...ServiceOption) *Service {
	s := &Service{
		pages:   pages,
		slugs:   slugs,
		indexer: search.NopIndexer{},
		logger:  zap.NewNop(),
		now:     contentutil.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// canManage: pages are site structure and belong to editors.
func canManage(actor *models.UserModel) bool {
	return actor.HasRole(models.RoleEditor)
}

func (s *Service) List(ctx context.Context, actor *models.UserModel, lq ListQuery, q pagination.Query) ([]models.PageModel, response.Pagination, error) {
	if !canManage(actor) {
		return nil, response.Pagination{}, apperr.ErrForbidden
	}
	return s.pages.List(ctx, repository.PageFilter{Status: lq.Status, Search: lq.Search}, q)
}

func (s *Service) Get(ctx context.Context, actor *models.UserModel, id string) (*models.PageModel, error) {
	if !canManage(actor) {
		return nil, apperr.ErrForbidden
	}
	return s.pages.FindByID(ctx, id)
}

func (s *Service) Create(ctx context.Context, actor *models.UserModel, dto *CreatePageDTO) (*models.PageModel, error) {
	if !canManage(actor) {
		return nil, apperr.ErrForbidden
	}
	title := strings.TrimSpace(dto.Title)
	if title == "" {
		return nil, apperr.Invalid("title", "is required")
	}
	tmpl, err := checkTemplate(dto.Template)
	if err != nil {
		return nil, err
	}
	content, body, err := contentutil.Content(dto.Content, dto.Markdown)
	if err != nil {
		return nil, err
	}
	status, publishedAt, err := contentutil.Publication(dto.Status, dto.PublishedAt, false, s.now())
	if err != nil {
		return nil, err
	}
	slug, err := contentutil.Slug(ctx, dto.Slug, title, "page", "", s.pages.SlugExists)
	if err != nil {
		return nil, err
	}

	authorID := actor.ID
	p := &models.PageModel{
		Title:           title,
		Slug:            slug,
		Content:         content,
		Body:            body,
		Template:        tmpl,
		MetaTitle:       strings.TrimSpace(dto.MetaTitle),
		MetaDescription: strings.TrimSpace(dto.MetaDescription),
		MetaKeywords:    strings.TrimSpace(dto.MetaKeywords),
		Status:          status,
		PublishedAt:     publishedAt,
		AuthorID:        &authorID,
	}
	if err := s.pages.Create(ctx, p); err != nil {
		return nil, err
	}
	s.sync(ctx, p)
	s.logger.Info("page created", zap.String("id", p.ID), zap.String("slug", p.Slug))
	return s.pages.FindByID(ctx, p.ID)
}

func (s *Service) Update(ctx context.Context, actor *models.UserModel, id string, dto *UpdatePageDTO) (*models.PageModel, error) {
	if !canManage(actor) {
		return nil, apperr.ErrForbidden
	}
	p, err := s.pages.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	title := p.Title
	if dto.Title != nil {
		if title = strings.TrimSpace(*dto.Title); title == "" {
			return nil, apperr.Invalid("title", "is required")
		}
		updates["title"] = title
	}
	if dto.Slug != nil && *dto.Slug != p.Slug {
		slug, err := contentutil.Slug(ctx, *dto.Slug, title, "page", p.ID, s.pages.SlugExists)
		if err != nil {
			return nil, err
		}
		if slug != p.Slug {
			updates["slug"] = slug
		}
	}
	if dto.Content != nil || dto.Markdown != nil {
		content, body, err := contentutil.Content(dto.Content, dto.Markdown)
		if err != nil {
			return nil, err
		}
		updates["content_raw"] = content
		updates["body"] = body
	}
	if dto.Template != nil {
		tmpl, err := checkTemplate(*dto.Template)
		if err != nil {
			return nil, err
		}
		updates["template"] = tmpl
	}
	for col, v := range map[string]*string{
		"meta_title":       dto.MetaTitle,
		"meta_description": dto.MetaDescription,
		"meta_keywords":    dto.MetaKeywords,
	} {
		if v != nil {
			updates[col] = strings.TrimSpace(*v)
		}
	}
	if dto.Status != nil || dto.PublishedAt != nil {
		status, at := p.Status, p.PublishedAt
		if dto.Status != nil {
			status = *dto.Status
		}
		if dto.PublishedAt != nil {
			at = dto.PublishedAt
		}
		if status, at, err = contentutil.Publication(status, at, false, s.now()); err != nil {
			return nil, err
		}
		updates["status"] = status
		updates["published_at"] = at
	}
	if len(updates) > 0 {
		updates["updated_at"] = s.now()
	}

	if err := s.pages.Update(ctx, p.ID, updates); err != nil {
		return nil, err
	}
	if newSlug, ok := updates["slug"].(string); ok {
		if err := s.slugs.Track(ctx, p.Slug, repository.TargetPage, p.ID); err != nil {
			s.logger.Warn("track old slug failed", zap.String("slug", p.Slug), zap.Error(err))
		}
		_ = s.slugs.Remove(ctx, newSlug, repository.TargetPage)
	}

	updated, err := s.pages.FindByID(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	s.sync(ctx, updated)
	return updated, nil
}

// Publish makes the page public now.
func (s *Service) Publish(ctx context.Context, actor *models.UserModel, id string) (*models.PageModel, error) {
	status, now := models.StatusPublished, s.now()
	return s.Update(ctx, actor, id, &UpdatePageDTO{Status: &status, PublishedAt: &now})
}

// Unpublish returns the page to draft.
func (s *Service) Unpublish(ctx context.Context, actor *models.UserModel, id string) (*models.PageModel, error) {
	if !canManage(actor) {
		return nil, apperr.ErrForbidden
	}
	if err := s.pages.Update(ctx, id, map[string]interface{}{
		"status":       models.StatusDraft,
		"published_at": nil,
		"updated_at":   s.now(),
	}); err != nil {
		return nil, err
	}
	s.indexer.Remove(ctx, search.KindPage, id)
	return s.pages.FindByID(ctx, id)
}

func (s *Service) Delete(ctx context.Context, actor *models.UserModel, id string) error {
	if !canManage(actor) {
		return apperr.ErrForbidden
	}
	if err := s.pages.Delete(ctx, id); err != nil {
		return err
	}
	s.indexer.Remove(ctx, search.KindPage, id)
	s.logger.Info("page deleted", zap.String("id", id))
	return nil
}

// ListPublished returns the public pages for navigation.
func (s *Service) ListPublished(ctx context.Context) ([]models.PageModel, error) {
	return s.pages.ListPublished(ctx, s.now())
}

// GetPublished finds a public page by slug, following retired slugs.
func (s *Service) GetPublished(ctx context.Context, slug string) (p *models.PageModel, moved bool, err error) {
	p, err = s.pages.FindBySlug(ctx, slug)
	if errors.Is(err, repository.ErrNotFound) {
		targetID, rerr := s.slugs.Resolve(ctx, slug, repository.TargetPage)
		if rerr != nil {
			return nil, false, err
		}
		p, err = s.pages.FindByID(ctx, targetID)
		moved = true
	}
	if err != nil {
		return nil, false, err
	}
	if !isPublic(p, s.now()) {
		return nil, false, apperr.NotFound("page")
	}
	return p, moved, nil
}

func (s *Service) sync(ctx context.Context, p *models.PageModel) {
	if isPublic(p, s.now()) {
		s.indexer.Index(ctx, search.PageDocument(p))
		return
	}
	s.indexer.Remove(ctx, search.KindPage, p.ID)
}

func isPublic(p *models.PageModel, now time.Time) bool {
	return p.Status == models.StatusPublished && (p.PublishedAt == nil || !p.PublishedAt.After(now))
}

func checkTemplate(raw string) (string, error) {
	t := strings.ToLower(strings.TrimSpace(raw))
	if t == "" {
		return DefaultTemplate, nil
	}
	if !templatePattern.MatchString(t) {
		return "", apperr.Invalid("template", "must be a short lowercase name")
	}
	return t, nil
}

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
	pages := rg.Group("/pages")
	pages.GET("", h.listPublished)
	pages.GET("/:slug", h.getPublished)
}

func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	pages := rg.Group("/pages")
	pages.GET("", h.list)
	pages.GET("/:id", h.get)
	pages.POST("", h.create)
	pages.PUT("/:id", h.update)
	pages.PATCH("/:id", h.update)
	pages.POST("/:id/publish", h.publish)
	pages.POST("/:id/unpublish", h.unpublish)
	pages.DELETE("/:id", h.delete)
}

// listPublished GET /pages
func (h *Handler) listPublished(c *gin.Context) {
	pages, err := h.svc.ListPublished(c.Request.Context())
	if err != nil {
		response.InternalError(c, err)
		return
	}
	items := make([]pageResponse, len(pages))
	for i := range pages {
		items[i] = toResponse(&pages[i])
		items[i].Content = nil
	}
	response.OK(c, items)
}

// getPublished GET /pages/:slug
func (h *Handler) getPublished(c *gin.Context) {
	p, moved, err := h.svc.GetPublished(c.Request.Context(), c.Param("slug"))
	if err != nil {
		apperr.Write(c, err)
		return
	}
	if moved {
		c.Redirect(http.StatusMovedPermanently, path.Join(path.Dir(c.Request.URL.Path), p.Slug))
		return
	}
	c.Set(middleware.ContextKeyNoCache, true)
	if h.views != nil {
		h.views.RecordAsync(c.Request.Context(), search.KindPage, p.ID, views.Visitor(c.ClientIP(), c.Request.UserAgent()))
	}
	response.OK(c, toPublic(p))
}

// list GET /admin/pages
func (h *Handler) list(c *gin.Context) {
	var lq ListQuery
	if err := c.ShouldBindQuery(&lq); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	pages, pag, err := h.svc.List(c.Request.Context(), middleware.CurrentUser(c), lq, pagination.FromContext(c))
	if err != nil {
		apperr.Write(c, err)
		return
	}
	items := make([]pageResponse, len(pages))
	for i := range pages {
		items[i] = toResponse(&pages[i])
		items[i].Content = nil
	}
	response.Paged(c, items, pag)
}

// get GET /admin/pages/:id
func (h *Handler) get(c *gin.Context) {
	p, err := h.svc.Get(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"))
	if err != nil {
		apperr.Write(c, err)
		return
	}
	response.OK(c, toResponse(p))
}

// create POST /admin/pages
func (h *Handler) create(c *gin.Context) {
	var dto CreatePageDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	p, err := h.svc.Create(c.Request.Context(), middleware.CurrentUser(c), &dto)
	if err != nil {
		apperr.Write(c, err)
		return
	}
	response.Created(c, toResponse(p))
}

// publish POST /admin/pages/:id/publish
func (h *Handler) publish(c *gin.Context) {
	p, err := h.svc.Publish(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"))
	if err != nil {
		apperr.Write(c, err)
		return
	}
	response.OK(c, toResponse(p))
}

// unpublish POST /admin/pages/:id/unpublish
func (h *Handler) unpublish(c *gin.Context) {
	p, err := h.svc.Unpublish(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"))
	if err != nil {
		apperr.Write(c, err)
		return
	}
	response.OK(c, toResponse(p))
}

// update PUT /admin/pages/:id
func (h *Handler) update(c *gin.Context) {
	var dto UpdatePageDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	p, err := h.svc.Update(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"), &dto)
	if err != nil {
		apperr.Write(c, err)
		return
	}
	response.OK(c, toResponse(p))
}

// delete DELETE /admin/pages/:id
func (h *Handler) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), middleware.CurrentUser(c), c.Param("id")); err != nil {
		apperr.Write(c, err)
		return
	}
	response.NoContent(c)
}
