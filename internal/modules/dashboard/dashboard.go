// Package dashboard serves the admin overview counters.
package dashboard

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/inkwell-cms/inkwell/internal/models"
	"github.com/inkwell-cms/inkwell/internal/pkg/apperr"
	"github.com/inkwell-cms/inkwell/internal/pkg/pagination"
	"github.com/inkwell-cms/inkwell/internal/pkg/response"
	"github.com/inkwell-cms/inkwell/internal/repository"
)

const recentLimit = 5

// Repositories groups the stores the dashboard reads from.
type Repositories struct {
	Posts      repository.PostRepository
	Pages      repository.PageRepository
	Events     repository.EventRepository
	Categories repository.CategoryRepository
	Tags       repository.TagRepository
	Users      repository.UserRepository
	Media      repository.MediaRepository
}

type PostCounts struct {
	Total     int64 `json:"total"`
	Draft     int64 `json:"draft"`
	Published int64 `json:"published"`
	Scheduled int64 `json:"scheduled"`
}

type EventCounts struct {
	Total    int64 `json:"total"`
	Upcoming int64 `json:"upcoming"`
}

type recentPost struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Slug        string     `json:"slug"`
	Status      string     `json:"status"`
	PublishedAt *time.Time `json:"published_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type upcomingEvent struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Slug      string     `json:"slug"`
	StartDate time.Time  `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`
	Location  string     `json:"location"`
}

// Stats is the dashboard payload.
type Stats struct {
	Posts          PostCounts       `json:"posts"`
	Pages          int64            `json:"pages"`
	Events         EventCounts      `json:"events"`
	Categories     int64            `json:"categories"`
	Tags           int64            `json:"tags"`
	Media          int64            `json:"media"`
	Users          map[string]int64 `json:"users"`
	RecentPosts    []recentPost     `json:"recent_posts"`
	UpcomingEvents []upcomingEvent  `json:"upcoming_events"`
}

type Service struct {
	repos Repositories
	now   func() time.Time
}

func NewService(repos Repositories) *Service {
	return &Service{repos: repos, now: func() time.Time { return time.Now().UTC() }}
}

func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	now := s.now()
	st := &Stats{Users: map[string]int64{}}

	byStatus, err := s.repos.Posts.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	st.Posts = PostCounts{
		Draft:     byStatus[models.StatusDraft],
		Published: byStatus[models.StatusPublished],
		Scheduled: byStatus[models.StatusScheduled],
	}
	for _, n := range byStatus {
		st.Posts.Total += n
	}

	counters := []struct {
		dst *int64
		fn  func(context.Context) (int64, error)
	}{
		{&st.Pages, s.repos.Pages.Count},
		{&st.Events.Total, s.repos.Events.Count},
		{&st.Categories, s.repos.Categories.Count},
		{&st.Tags, s.repos.Tags.Count},
		{&st.Media, s.repos.Media.Count},
	}
	for _, c := range counters {
		n, err := c.fn(ctx)
		if err != nil {
			return nil, err
		}
		*c.dst = n
	}
	if st.Events.Upcoming, err = s.repos.Events.CountUpcoming(ctx, now); err != nil {
		return nil, err
	}

	total := int64(0)
	for _, role := range []string{models.RoleAdmin, models.RoleEditor, models.RoleAuthor, models.RoleSubscriber} {
		n, err := s.repos.Users.CountByRole(ctx, role)
		if err != nil {
			return nil, err
		}
		st.Users[role] = n
		total += n
	}
	st.Users["total"] = total

	posts, _, err := s.repos.Posts.List(ctx, repository.PostFilter{}, pagination.New(1, recentLimit))
	if err != nil {
		return nil, err
	}
	st.RecentPosts = make([]recentPost, 0, len(posts))
	for _, p := range posts {
		st.RecentPosts = append(st.RecentPosts, recentPost{
			ID: p.ID, Title: p.Title, Slug: p.Slug, Status: p.Status,
			PublishedAt: p.PublishedAt, UpdatedAt: p.UpdatedAt,
		})
	}

	events, _, err := s.repos.Events.Upcoming(ctx, repository.EventFilter{}, now, pagination.New(1, recentLimit))
	if err != nil {
		return nil, err
	}
	st.UpcomingEvents = make([]upcomingEvent, 0, len(events))
	for _, e := range events {
		st.UpcomingEvents = append(st.UpcomingEvents, upcomingEvent{
			ID: e.ID, Title: e.Title, Slug: e.Slug, StartDate: e.StartDate, EndDate: e.EndDate, Location: e.Location,
		})
	}
	return st, nil
}

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.GET("/dashboard", h.stats)
}

// stats GET /dashboard
func (h *Handler) stats(c *gin.Context) {
	st, err := h.svc.Stats(c.Request.Context())
	if err != nil {
		apperr.Write(c, err)
		return
	}
	response.OK(c, st)
}
