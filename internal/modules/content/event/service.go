package event

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/inkwell-cms/inkwell/internal/models"
	"github.com/inkwell-cms/inkwell/internal/modules/content/contentutil"
	"github.com/inkwell-cms/inkwell/internal/modules/search"
	"github.com/inkwell-cms/inkwell/internal/pkg/apperr"
	"github.com/inkwell-cms/inkwell/internal/pkg/pagination"
	"github.com/inkwell-cms/inkwell/internal/pkg/response"
	"github.com/inkwell-cms/inkwell/internal/repository"
	"go.uber.org/zap"
)

type Service struct {
	events     repository.EventRepository
	categories repository.EventCategoryRepository
	slugs      repository.SlugTrackerRepository
	indexer    search.Indexer
	logger     *zap.Logger
	loc        *time.Location
	now        func() time.Time
}

type ServiceOption func(*Service)

func WithLogger(l *zap.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l.Named("EventService")
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

// WithLocation sets the zone calendar months and all-day events are cut in.
func WithLocation(loc *time.Location) ServiceOption {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

func NewService(
	events repository.EventRepository,
	categories repository.EventCategoryRepository,
	slugs repository.SlugTrackerRepository,
	opts ...ServiceOption,
) *Service {
	s := &Service{
		events:     events,
		categories: categories,
		slugs:      slugs,
		indexer:    search.NopIndexer{},
		logger:     zap.NewNop(),
		loc:        time.UTC,
		now:        contentutil.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// canEdit: editors edit any event, authors the ones they created.
func canEdit(actor *models.UserModel, e *models.EventModel) bool {
	if actor.HasRole(models.RoleEditor) {
		return true
	}
	return actor.HasRole(models.RoleAuthor) && e.CreatedBy != nil && *e.CreatedBy == actor.ID
}

func (s *Service) List(ctx context.Context, actor *models.UserModel, lq ListQuery, q pagination.Query) ([]models.EventModel, response.Pagination, error) {
	if !actor.HasRole(models.RoleAuthor) {
		return nil, response.Pagination{}, apperr.ErrForbidden
	}
	return s.events.List(ctx, repository.EventFilter{Status: lq.Status, CategorySlug: lq.Category, Search: lq.Search}, q)
}

func (s *Service) Get(ctx context.Context, actor *models.UserModel, id string) (*models.EventModel, error) {
	e, err := s.events.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canEdit(actor, e) {
		return nil, apperr.ErrForbidden
	}
	return e, nil
}

func (s *Service) Create(ctx context.Context, actor *models.UserModel, dto *CreateEventDTO) (*models.EventModel, error) {
	if !actor.HasRole(models.RoleAuthor) {
		return nil, apperr.ErrForbidden
	}
	title := strings.TrimSpace(dto.Title)
	if title == "" {
		return nil, apperr.Invalid("title", "is required")
	}
	start, end, err := s.dates(dto.StartDate, dto.EndDate, dto.AllDay)
	if err != nil {
		return nil, err
	}
	status, err := checkStatus(dto.Status)
	if err != nil {
		return nil, err
	}
	email, err := checkEmail(dto.ContactEmail)
	if err != nil {
		return nil, err
	}
	categoryID, err := s.checkCategory(ctx, dto.CategoryID)
	if err != nil {
		return nil, err
	}
	content, body, err := contentutil.Content(dto.Content, dto.Markdown)
	if err != nil {
		return nil, err
	}
	slug, err := contentutil.Slug(ctx, dto.Slug, title, "event", "", s.events.SlugExists)
	if err != nil {
		return nil, err
	}

	createdBy := actor.ID
	e := &models.EventModel{
		Title:         title,
		Slug:          slug,
		Description:   strings.TrimSpace(dto.Description),
		Content:       content,
		Body:          body,
		Location:      strings.TrimSpace(dto.Location),
		StartDate:     start,
		EndDate:       end,
		AllDay:        dto.AllDay,
		CategoryID:    categoryID,
		Status:        status,
		FeaturedImage: strings.TrimSpace(dto.FeaturedImage),
		Organizer:     strings.TrimSpace(dto.Organizer),
		ContactEmail:  email,
		ContactPhone:  strings.TrimSpace(dto.ContactPhone),
		CreatedBy:     &createdBy,
	}
	if err := s.events.Create(ctx, e); err != nil {
		return nil, err
	}
	created, err := s.events.FindByID(ctx, e.ID)
	if err != nil {
		return nil, err
	}
	s.sync(ctx, created)
	s.logger.Info("event created", zap.String("id", created.ID), zap.String("slug", created.Slug))
	return created, nil
}

func (s *Service) Update(ctx context.Context, actor *models.UserModel, id string, dto *UpdateEventDTO) (*models.EventModel, error) {
	e, err := s.events.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canEdit(actor, e) {
		return nil, apperr.ErrForbidden
	}

	updates := map[string]interface{}{}
	title := e.Title
	if dto.Title != nil {
		if title = strings.TrimSpace(*dto.Title); title == "" {
			return nil, apperr.Invalid("title", "is required")
		}
		updates["title"] = title
	}
	if dto.Slug != nil && *dto.Slug != e.Slug {
		slug, err := contentutil.Slug(ctx, *dto.Slug, title, "event", e.ID, s.events.SlugExists)
		if err != nil {
			return nil, err
		}
		if slug != e.Slug {
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

	if dto.StartDate != nil || dto.EndDate != nil || dto.ClearEndDate || dto.AllDay != nil {
		start, end, allDay := e.StartDate, e.EndDate, e.AllDay
		if dto.StartDate != nil {
			start = *dto.StartDate
		}
		if dto.EndDate != nil {
			end = dto.EndDate
		}
		if dto.ClearEndDate {
			end = nil
		}
		if dto.AllDay != nil {
			allDay = *dto.AllDay
		}
		start, end, err := s.dates(start, end, allDay)
		if err != nil {
			return nil, err
		}
		updates["start_date"] = start
		updates["end_date"] = end
		updates["all_day"] = allDay
	}
	if dto.Status != nil {
		status, err := checkStatus(*dto.Status)
		if err != nil {
			return nil, err
		}
		updates["status"] = status
	}
	if dto.ContactEmail != nil {
		email, err := checkEmail(*dto.ContactEmail)
		if err != nil {
			return nil, err
		}
		updates["contact_email"] = email
	}
	if dto.CategoryID != nil {
		categoryID, err := s.checkCategory(ctx, dto.CategoryID)
		if err != nil {
			return nil, err
		}
		updates["category_id"] = categoryID
	}
	for col, v := range map[string]*string{
		"description":    dto.Description,
		"location":       dto.Location,
		"featured_image": dto.FeaturedImage,
		"organizer":      dto.Organizer,
		"contact_phone":  dto.ContactPhone,
	} {
		if v != nil {
			updates[col] = strings.TrimSpace(*v)
		}
	}
	if len(updates) > 0 {
		updates["updated_at"] = s.now()
	}

	if err := s.events.Update(ctx, e.ID, updates); err != nil {
		return nil, err
	}
	if newSlug, ok := updates["slug"].(string); ok {
		if err := s.slugs.Track(ctx, e.Slug, repository.TargetEvent, e.ID); err != nil {
			s.logger.Warn("track old slug failed", zap.String("slug", e.Slug), zap.Error(err))
		}
		_ = s.slugs.Remove(ctx, newSlug, repository.TargetEvent)
	}

	updated, err := s.events.FindByID(ctx, e.ID)
	if err != nil {
		return nil, err
	}
	s.sync(ctx, updated)
	return updated, nil
}

// Publish shows the event on the public calendar.
func (s *Service) Publish(ctx context.Context, actor *models.UserModel, id string) (*models.EventModel, error) {
	status := models.StatusPublished
	return s.Update(ctx, actor, id, &UpdateEventDTO{Status: &status})
}

// Unpublish hides the event again.
func (s *Service) Unpublish(ctx context.Context, actor *models.UserModel, id string) (*models.EventModel, error) {
	status := models.StatusDraft
	return s.Update(ctx, actor, id, &UpdateEventDTO{Status: &status})
}

func (s *Service) Delete(ctx context.Context, actor *models.UserModel, id string) error {
	e, err := s.events.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if !canEdit(actor, e) {
		return apperr.ErrForbidden
	}
	if err := s.events.Delete(ctx, id); err != nil {
		return err
	}
	s.indexer.Remove(ctx, search.KindEvent, id)
	s.logger.Info("event deleted", zap.String("id", id))
	return nil
}

// Upcoming lists published events that have not ended yet.
func (s *Service) Upcoming(ctx context.Context, category string, q pagination.Query) ([]models.EventModel, response.Pagination, error) {
	return s.events.Upcoming(ctx, publicFilter(category), s.now(), q)
}

// Past lists published events that are over.
func (s *Service) Past(ctx context.Context, category string, q pagination.Query) ([]models.EventModel, response.Pagination, error) {
	return s.events.Past(ctx, publicFilter(category), s.now(), q)
}

// Month is one page of the events calendar.
type Month struct {
	Year   int
	Month  time.Month
	Start  time.Time
	End    time.Time
	Events []models.EventModel
	// Days maps YYYY-MM-DD to the indexes into Events running that day.
	Days map[string][]int
}

// ThisMonth returns the current year and month in the calendar zone.
func (s *Service) ThisMonth() (int, int) {
	t := s.now().In(s.loc)
	return t.Year(), int(t.Month())
}

// Calendar returns the published events overlapping year/month.
func (s *Service) Calendar(ctx context.Context, year, month int, category string) (*Month, error) {
	if month < 1 || month > 12 {
		return nil, apperr.Invalid("month", "must be between 1 and 12")
	}
	if year < 1970 || year > 9999 {
		return nil, apperr.Invalid("year", "is out of range")
	}
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, s.loc)
	end := start.AddDate(0, 1, 0)
	events, err := s.events.Between(ctx, publicFilter(category), start.UTC(), end.UTC())
	if err != nil {
		return nil, err
	}

	m := &Month{Year: year, Month: time.Month(month), Start: start, End: end, Events: events, Days: map[string][]int{}}
	for i := range events {
		first := events[i].StartDate.In(s.loc)
		last := events[i].Ends().In(s.loc)
		if first.Before(start) {
			first = start
		}
		day := time.Date(first.Year(), first.Month(), first.Day(), 0, 0, 0, 0, s.loc)
		for ; !day.After(last) && day.Before(end); day = day.AddDate(0, 0, 1) {
			key := day.Format("2006-01-02")
			m.Days[key] = append(m.Days[key], i)
		}
	}
	return m, nil
}

// GetPublished finds a published event by slug, following retired slugs.
func (s *Service) GetPublished(ctx context.Context, slug string) (e *models.EventModel, moved bool, err error) {
	e, err = s.events.FindBySlug(ctx, slug)
	if errors.Is(err, repository.ErrNotFound) {
		targetID, rerr := s.slugs.Resolve(ctx, slug, repository.TargetEvent)
		if rerr != nil {
			return nil, false, err
		}
		e, err = s.events.FindByID(ctx, targetID)
		moved = true
	}
	if err != nil {
		return nil, false, err
	}
	if e.Status != models.StatusPublished {
		return nil, false, apperr.NotFound("event")
	}
	return e, moved, nil
}

// dates validates the event span. All-day events are cut to whole days in
// the calendar zone.
func (s *Service) dates(start time.Time, end *time.Time, allDay bool) (time.Time, *time.Time, error) {
	if start.IsZero() {
		return time.Time{}, nil, apperr.Invalid("start_date", "is required")
	}
	if allDay {
		start = s.midnight(start)
		if end != nil {
			e := s.midnight(*end)
			end = &e
		}
	}
	start = start.UTC()
	if end != nil {
		e := end.UTC()
		if e.Before(start) {
			return time.Time{}, nil, apperr.Invalid("end_date", "must not be before start_date")
		}
		end = &e
	}
	return start, end, nil
}

func (s *Service) midnight(t time.Time) time.Time {
	t = t.In(s.loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, s.loc)
}

func (s *Service) checkCategory(ctx context.Context, id *string) (*string, error) {
	if id == nil || strings.TrimSpace(*id) == "" {
		return nil, nil
	}
	cat, err := s.categories.FindByID(ctx, strings.TrimSpace(*id))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.Invalid("category_id", "references an unknown event category")
	}
	if err != nil {
		return nil, err
	}
	return &cat.ID, nil
}

func (s *Service) sync(ctx context.Context, e *models.EventModel) {
	if e.Status == models.StatusPublished {
		s.indexer.Index(ctx, search.EventDocument(e))
		return
	}
	s.indexer.Remove(ctx, search.KindEvent, e.ID)
}

func publicFilter(category string) repository.EventFilter {
	return repository.EventFilter{Status: models.StatusPublished, CategorySlug: category}
}

func checkStatus(raw string) (string, error) {
	switch raw {
	case "", models.StatusDraft:
		return models.StatusDraft, nil
	case models.StatusPublished:
		return models.StatusPublished, nil
	}
	return "", apperr.Invalid("status", "must be draft or published")
}

func checkEmail(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	addr, err := mail.ParseAddress(raw)
	if err != nil || addr.Name != "" {
		return "", apperr.Invalid("contact_email", "is not a valid email address")
	}
	return strings.ToLower(addr.Address), nil
}
