package site

import (
	"context"
	"encoding/xml"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/inkwell-cms/inkwell/internal/config"
	"github.com/inkwell-cms/inkwell/internal/database/dbtest"
	"github.com/inkwell-cms/inkwell/internal/models"
	"github.com/inkwell-cms/inkwell/internal/modules/content/category"
	"github.com/inkwell-cms/inkwell/internal/modules/content/event"
	"github.com/inkwell-cms/inkwell/internal/modules/content/eventcategory"
	"github.com/inkwell-cms/inkwell/internal/modules/content/page"
	"github.com/inkwell-cms/inkwell/internal/modules/content/post"
	"github.com/inkwell-cms/inkwell/internal/modules/content/tag"
	"github.com/inkwell-cms/inkwell/internal/repository"
	"gorm.io/datatypes"
)

// =============================================================================
// Test Helpers
// =============================================================================

type recordedViews struct {
	mu  sync.Mutex
	ids []string
}

func (r *recordedViews) RecordAsync(_ context.Context, kind, id, _ string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, kind+":"+id)
}

type fixture struct {
	router  *gin.Engine
	views   *recordedViews
	uploads string
	post    *models.PostModel
	event   *models.EventModel
}

func doc(text string) datatypes.JSON {
	return datatypes.JSON(`{"blocks":[{"type":"paragraph","data":{"text":"` + text + `"}}]}`)
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.New(t)
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	earlier := now.Add(-24 * time.Hour)
	later := now.Add(48 * time.Hour)

	users := repository.NewUserRepository(db)
	author := &models.UserModel{Username: "arthur", Email: "arthur@example.com", Password: "x", Role: models.RoleAuthor, Status: models.UserActive}
	if err := users.Create(ctx, author); err != nil {
		t.Fatalf("create user: %v", err)
	}

	categories := repository.NewCategoryRepository(db)
	tags := repository.NewTagRepository(db)
	news := &models.CategoryModel{Name: "News", Slug: "news", Description: "Announcements"}
	if err := categories.Create(ctx, news); err != nil {
		t.Fatalf("create category: %v", err)
	}
	golang := &models.TagModel{Name: "Go", Slug: "go"}
	if err := tags.Create(ctx, golang); err != nil {
		t.Fatalf("create tag: %v", err)
	}

	posts := repository.NewPostRepository(db)
	published := &models.PostModel{
		Title: "Hello <World>", Slug: "hello", Content: doc("First body"), Excerpt: "A greeting",
		Status: models.StatusPublished, PublishedAt: &earlier, AuthorID: &author.ID,
	}
	if err := posts.Create(ctx, published, repository.PostRelations{
		CategoryIDs: &[]string{news.ID},
		TagIDs:      &[]string{golang.ID},
	}); err != nil {
		t.Fatalf("create post: %v", err)
	}
	for _, p := range []*models.PostModel{
		{Title: "Unfinished", Slug: "unfinished", Status: models.StatusDraft},
		{Title: "Tomorrow", Slug: "tomorrow", Status: models.StatusScheduled, PublishedAt: &later},
		{Title: "Plain", Slug: "plain", Status: models.StatusPublished, PublishedAt: &earlier},
	} {
		if err := posts.Create(ctx, p, repository.PostRelations{}); err != nil {
			t.Fatalf("create post %s: %v", p.Slug, err)
		}
	}

	slugs := repository.NewSlugTrackerRepository(db)
	if err := slugs.Track(ctx, "hello-old", repository.TargetPost, published.ID); err != nil {
		t.Fatalf("track slug: %v", err)
	}

	pages := repository.NewPageRepository(db)
	if err := pages.Create(ctx, &models.PageModel{
		Title: "About", Slug: "about", Content: doc("About us"), MetaDescription: "Who we are",
		Status: models.StatusPublished, PublishedAt: &earlier,
	}); err != nil {
		t.Fatalf("create page: %v", err)
	}
	if err := pages.Create(ctx, &models.PageModel{Title: "Secret", Slug: "secret", Status: models.StatusDraft}); err != nil {
		t.Fatalf("create page: %v", err)
	}

	eventCategories := repository.NewEventCategoryRepository(db)
	meetups := &models.EventCategoryModel{Name: "Meetups", Slug: "meetups", Color: "#ff0000"}
	if err := eventCategories.Create(ctx, meetups); err != nil {
		t.Fatalf("create event category: %v", err)
	}
	events := repository.NewEventRepository(db)
	upcoming := &models.EventModel{
		Title: "Go Night", Slug: "go-night", Description: "Talks", Location: "Town Hall",
		StartDate: later, Status: models.StatusPublished, CategoryID: &meetups.ID,
	}
	if err := events.Create(ctx, upcoming); err != nil {
		t.Fatalf("create event: %v", err)
	}
	if err := events.Create(ctx, &models.EventModel{
		Title: "Old Fair", Slug: "old-fair", StartDate: earlier.Add(-24 * time.Hour), Status: models.StatusPublished,
	}); err != nil {
		t.Fatalf("create event: %v", err)
	}

	f := &fixture{views: &recordedViews{}, uploads: t.TempDir(), post: published, event: upcoming}
	h, err := NewHandler(Sources{
		Posts:           post.NewService(posts, categories, tags, slugs, post.WithClock(clock)),
		Pages:           page.NewService(pages, slugs, page.WithClock(clock)),
		Events:          event.NewService(events, eventCategories, slugs, event.WithClock(clock)),
		Categories:      category.NewService(categories),
		Tags:            tag.NewService(tags),
		EventCategories: eventcategory.NewService(eventCategories),
	}, config.SiteConfig{
		Title:        "Inkwell Test",
		Description:  "A test site",
		URL:          "https://example.com/",
		PostsPerPage: 10,
	}, WithViews(f.views), WithUploads(f.uploads), WithClock(clock))
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}

	gin.SetMode(gin.TestMode)
	f.router = gin.New()
	h.RegisterRoutes(f.router)
	return f
}

func (f *fixture) get(t *testing.T, target string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

// =============================================================================
// HTML pages
// =============================================================================

func TestHome(t *testing.T) {
	f := setup(t)
	w := f.get(t, "/")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	body := w.Body.String()
	for _, want := range []string{"Inkwell Test", "Hello &lt;World&gt;", "Go Night", `href="/pages/about"`} {
		if !strings.Contains(body, want) {
			t.Errorf("home missing %q", want)
		}
	}
	for _, hidden := range []string{"Unfinished", "Tomorrow", "Secret"} {
		if strings.Contains(body, hidden) {
			t.Errorf("home shows unpublished %q", hidden)
		}
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestBlogListings(t *testing.T) {
	f := setup(t)

	tests := []struct {
		target   string
		status   int
		contains []string
		excludes []string
	}{
		{"/blog", http.StatusOK, []string{"Hello &lt;World&gt;", "Plain"}, []string{"Unfinished"}},
		{"/blog?q=plain", http.StatusOK, []string{"Plain"}, []string{"Hello &lt;World&gt;"}},
		{"/blog/category/news", http.StatusOK, []string{"News", "Announcements", "Hello &lt;World&gt;"}, []string{"Plain"}},
		{"/blog/tag/go", http.StatusOK, []string{"#Go", "Hello &lt;World&gt;"}, []string{"Plain"}},
		{"/blog/category/missing", http.StatusNotFound, []string{"does not exist"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			w := f.get(t, tt.target)
			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d", w.Code, tt.status)
			}
			body := w.Body.String()
			for _, want := range tt.contains {
				if !strings.Contains(body, want) {
					t.Errorf("missing %q", want)
				}
			}
			for _, not := range tt.excludes {
				if strings.Contains(body, not) {
					t.Errorf("unexpected %q", not)
				}
			}
		})
	}
}

func TestPostPage(t *testing.T) {
	f := setup(t)

	w := f.get(t, "/blog/hello")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{"<p>First body</p>", `href="/blog/category/news"`, `href="/blog/tag/go"`, `content="A greeting"`} {
		if !strings.Contains(body, want) {
			t.Errorf("post page missing %q", want)
		}
	}
	if len(f.views.ids) != 1 || f.views.ids[0] != "post:"+f.post.ID {
		t.Errorf("views = %v", f.views.ids)
	}

	if w := f.get(t, "/blog/unfinished"); w.Code != http.StatusNotFound {
		t.Errorf("draft status = %d, want 404", w.Code)
	}
	if w := f.get(t, "/blog/tomorrow"); w.Code != http.StatusNotFound {
		t.Errorf("scheduled status = %d, want 404", w.Code)
	}

	w = f.get(t, "/blog/hello-old")
	if w.Code != http.StatusMovedPermanently {
		t.Fatalf("retired slug status = %d, want 301", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/blog/hello" {
		t.Errorf("Location = %q", loc)
	}
}

func TestStaticPage(t *testing.T) {
	f := setup(t)

	w := f.get(t, "/pages/about")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if body := w.Body.String(); !strings.Contains(body, "About us") || !strings.Contains(body, `content="Who we are"`) {
		t.Errorf("about page = %s", body)
	}
	if w := f.get(t, "/pages/secret"); w.Code != http.StatusNotFound {
		t.Errorf("draft page status = %d, want 404", w.Code)
	}
}

func TestEvents(t *testing.T) {
	f := setup(t)

	w := f.get(t, "/events")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := w.Body.String()
	upcoming := strings.Index(body, "Go Night")
	past := strings.Index(body, "Old Fair")
	if upcoming < 0 || past < 0 || upcoming > past {
		t.Errorf("events page order: upcoming at %d, past at %d", upcoming, past)
	}
	if !strings.Contains(body, "Meetups") {
		t.Error("events page missing category filter")
	}

	w = f.get(t, "/events?category=meetups")
	if body := w.Body.String(); !strings.Contains(body, "Go Night") || strings.Contains(body, "Old Fair") {
		t.Error("category filter not applied")
	}

	w = f.get(t, "/events/go-night")
	if w.Code != http.StatusOK {
		t.Fatalf("detail status = %d", w.Code)
	}
	if body := w.Body.String(); !strings.Contains(body, "Sun, May 3, 2026, 9:00 AM") || !strings.Contains(body, "Town Hall") {
		t.Errorf("event detail = %s", body)
	}
	if len(f.views.ids) != 1 || f.views.ids[0] != "event:"+f.event.ID {
		t.Errorf("views = %v", f.views.ids)
	}
}

func TestUploadsServed(t *testing.T) {
	f := setup(t)
	if err := os.MkdirAll(filepath.Join(f.uploads, "images"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(f.uploads, "images", "a.txt"), []byte("pixel"), 0o644); err != nil {
		t.Fatal(err)
	}
	w := f.get(t, "/uploads/images/a.txt")
	if w.Code != http.StatusOK || w.Body.String() != "pixel" {
		t.Errorf("upload = %d %q", w.Code, w.Body.String())
	}
}

// =============================================================================
// Feeds
// =============================================================================

func TestRSS(t *testing.T) {
	f := setup(t)
	w := f.get(t, "/blog/rss")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/rss+xml") {
		t.Errorf("Content-Type = %q", ct)
	}

	var feed rssDoc
	if err := xml.Unmarshal(w.Body.Bytes(), &feed); err != nil {
		t.Fatalf("decode feed: %v", err)
	}
	if feed.Channel.Title != "Inkwell Test" || feed.Channel.Link != "https://example.com/blog" {
		t.Errorf("channel = %+v", feed.Channel)
	}
	if len(feed.Channel.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(feed.Channel.Items))
	}
	var hello *rssItem
	for i := range feed.Channel.Items {
		if feed.Channel.Items[i].GUID.Value == f.post.ID {
			hello = &feed.Channel.Items[i]
		}
	}
	if hello == nil {
		t.Fatal("published post missing from feed")
	}
	if hello.Title != "Hello <World>" || hello.Link != "https://example.com/blog/hello" || hello.Description != "A greeting" {
		t.Errorf("item = %+v", hello)
	}
	if len(hello.Categories) != 1 || hello.Categories[0] != "News" {
		t.Errorf("categories = %v", hello.Categories)
	}
}

func TestSitemap(t *testing.T) {
	f := setup(t)
	w := f.get(t, "/sitemap.xml")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var set urlSet
	if err := xml.Unmarshal(w.Body.Bytes(), &set); err != nil {
		t.Fatalf("decode sitemap: %v", err)
	}
	locs := map[string]bool{}
	for _, u := range set.URLs {
		locs[u.Loc] = true
	}
	for _, want := range []string{
		"https://example.com/",
		"https://example.com/blog/hello",
		"https://example.com/blog/plain",
		"https://example.com/pages/about",
		"https://example.com/events/go-night",
		"https://example.com/events/old-fair",
	} {
		if !locs[want] {
			t.Errorf("sitemap missing %s", want)
		}
	}
	for _, hidden := range []string{"https://example.com/blog/unfinished", "https://example.com/pages/secret"} {
		if locs[hidden] {
			t.Errorf("sitemap lists unpublished %s", hidden)
		}
	}
}

func TestEventWhen(t *testing.T) {
	start := time.Date(2026, 6, 5, 18, 30, 0, 0, time.UTC)
	sameDayEnd := start.Add(2 * time.Hour)
	nextDay := start.AddDate(0, 0, 2)

	tests := []struct {
		name string
		e    models.EventModel
		want string
	}{
		{"open", models.EventModel{StartDate: start}, "Fri, June 5, 2026, 6:30 PM"},
		{"same day", models.EventModel{StartDate: start, EndDate: &sameDayEnd}, "Fri, June 5, 2026, 6:30 PM to 8:30 PM"},
		{"spanning", models.EventModel{StartDate: start, EndDate: &nextDay}, "Fri, June 5, 2026, 6:30 PM to Sun, June 7, 2026, 6:30 PM"},
		{"all day", models.EventModel{StartDate: start, AllDay: true}, "Fri, June 5, 2026"},
		{"all day span", models.EventModel{StartDate: start, EndDate: &nextDay, AllDay: true}, "Fri, June 5, 2026 to Sun, June 7, 2026"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := eventWhen(tt.e); got != tt.want {
				t.Errorf("eventWhen() = %q, want %q", got, tt.want)
			}
		})
	}
}
