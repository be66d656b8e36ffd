package post

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/inkwell-cms/inkwell/internal/database/dbtest"
	"github.com/inkwell-cms/inkwell/internal/models"
	"github.com/inkwell-cms/inkwell/internal/modules/search"
	"github.com/inkwell-cms/inkwell/internal/pkg/apperr"
	"github.com/inkwell-cms/inkwell/internal/pkg/pagination"
	"github.com/inkwell-cms/inkwell/internal/repository"
	"gorm.io/gorm"
)

// =============================================================================
// Test Helpers
// =============================================================================

type recordingIndexer struct {
	mu      sync.Mutex
	indexed map[string]search.Document
	removed []string
}

func (r *recordingIndexer) Index(_ context.Context, doc search.Document) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.indexed == nil {
		r.indexed = map[string]search.Document{}
	}
	r.indexed[doc.ID] = doc
}

func (r *recordingIndexer) Remove(_ context.Context, _ string, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.indexed, id)
	r.removed = append(r.removed, id)
}

type fixture struct {
	db      *gorm.DB
	svc     *Service
	index   *recordingIndexer
	now     time.Time
	admin   *models.UserModel
	editor  *models.UserModel
	author  *models.UserModel
	other   *models.UserModel
	reader  *models.UserModel
	catNews *models.CategoryModel
	tagGo   *models.TagModel
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.New(t)
	f := &fixture{
		db:    db,
		index: &recordingIndexer{},
		now:   time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC),
	}
	users := repository.NewUserRepository(db)
	mk := func(name, role string) *models.UserModel {
		u := &models.UserModel{Username: name, Email: name + "@example.com", Password: "x", Role: role, Status: models.UserActive}
		if err := users.Create(context.Background(), u); err != nil {
			t.Fatalf("create user %s: %v", name, err)
		}
		return u
	}
	f.admin = mk("admin", models.RoleAdmin)
	f.editor = mk("edna", models.RoleEditor)
	f.author = mk("arthur", models.RoleAuthor)
	f.other = mk("olga", models.RoleAuthor)
	f.reader = mk("rita", models.RoleSubscriber)

	categories := repository.NewCategoryRepository(db)
	tags := repository.NewTagRepository(db)
	f.catNews = &models.CategoryModel{Name: "News", Slug: "news"}
	if err := categories.Create(context.Background(), f.catNews); err != nil {
		t.Fatalf("create category: %v", err)
	}
	f.tagGo = &models.TagModel{Name: "Go", Slug: "go"}
	if err := tags.Create(context.Background(), f.tagGo); err != nil {
		t.Fatalf("create tag: %v", err)
	}

	f.svc = NewService(
		repository.NewPostRepository(db),
		categories,
		tags,
		repository.NewSlugTrackerRepository(db),
		WithIndexer(f.index),
		WithClock(func() time.Time { return f.now }),
	)
	return f
}

func paragraph(text string) json.RawMessage {
	return json.RawMessage(`{"blocks":[{"type":"paragraph","data":{"text":"` + text + `"}}]}`)
}

func strPtr(s string) *string { return &s }

// =============================================================================
// Create
// =============================================================================

func TestCreate(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	p, err := f.svc.Create(ctx, f.author, &CreatePostDTO{
		Title:       "Hello World",
		Content:     paragraph("First <b>post</b> body"),
		Status:      models.StatusPublished,
		CategoryIDs: []string{f.catNews.ID, f.catNews.ID},
		TagIDs:      []string{f.tagGo.ID},
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if p.Slug != "hello-world" {
		t.Errorf("Slug = %q, want hello-world", p.Slug)
	}
	if p.Body != "First post body" {
		t.Errorf("Body = %q", p.Body)
	}
	if p.Excerpt != "First post body" {
		t.Errorf("Excerpt = %q", p.Excerpt)
	}
	if p.PublishedAt == nil || !p.PublishedAt.Equal(f.now) {
		t.Errorf("PublishedAt = %v, want %v", p.PublishedAt, f.now)
	}
	if !p.OwnedBy(f.author.ID) {
		t.Error("post should be owned by its creator")
	}
	if len(p.Categories) != 1 || len(p.Tags) != 1 {
		t.Errorf("relations = %d categories, %d tags; want 1, 1", len(p.Categories), len(p.Tags))
	}
	if _, ok := f.index.indexed[p.ID]; !ok {
		t.Error("published post should be indexed")
	}

	second, err := f.svc.Create(ctx, f.author, &CreatePostDTO{Title: "Hello, World!"})
	if err != nil {
		t.Fatalf("Create(second) error = %v", err)
	}
	if second.Slug != "hello-world-2" {
		t.Errorf("derived slug = %q, want hello-world-2", second.Slug)
	}
	if second.Status != models.StatusDraft {
		t.Errorf("default status = %q, want draft", second.Status)
	}
	if _, ok := f.index.indexed[second.ID]; ok {
		t.Error("draft should not be indexed")
	}
}

func TestCreateRejects(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	if _, err := f.svc.Create(ctx, f.author, &CreatePostDTO{Title: "Taken", Slug: "taken"}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	past := f.now.Add(-time.Hour)

	tests := []struct {
		name    string
		actor   *models.UserModel
		dto     CreatePostDTO
		wantErr error
		invalid bool
	}{
		{name: "subscriber", actor: f.reader, dto: CreatePostDTO{Title: "x"}, wantErr: apperr.ErrForbidden},
		{name: "anonymous", actor: nil, dto: CreatePostDTO{Title: "x"}, wantErr: apperr.ErrForbidden},
		{name: "duplicate explicit slug", actor: f.author, dto: CreatePostDTO{Title: "x", Slug: "Taken"}, wantErr: repository.ErrDuplicate},
		{name: "blank title", actor: f.author, dto: CreatePostDTO{Title: "   "}, invalid: true},
		{name: "scheduled in the past", actor: f.author, dto: CreatePostDTO{Title: "x", Status: models.StatusScheduled, PublishedAt: &past}, invalid: true},
		{name: "unknown category", actor: f.author, dto: CreatePostDTO{Title: "x", CategoryIDs: []string{"nope"}}, invalid: true},
		{name: "bad content", actor: f.author, dto: CreatePostDTO{Title: "x", Content: json.RawMessage(`{"blocks":[{"data":{}}]}`)}, invalid: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, tt.actor, &tt.dto)
			if tt.invalid {
				var ve *apperr.ValidationError
				if !errors.As(err, &ve) {
					t.Fatalf("Create() error = %v, want ValidationError", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Create() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// =============================================================================
// Update / permissions
// =============================================================================

func TestUpdatePermissions(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	p, err := f.svc.Create(ctx, f.author, &CreatePostDTO{Title: "Mine"})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	if _, err := f.svc.Update(ctx, f.other, p.ID, &UpdatePostDTO{Title: strPtr("Stolen")}); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("other author Update() error = %v, want ErrForbidden", err)
	}
	if err := f.svc.Delete(ctx, f.other, p.ID); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("other author Delete() error = %v, want ErrForbidden", err)
	}
	if _, err := f.svc.Update(ctx, f.editor, p.ID, &UpdatePostDTO{Title: strPtr("Edited")}); err != nil {
		t.Errorf("editor Update() error = %v", err)
	}
	if _, err := f.svc.Update(ctx, f.author, "missing", &UpdatePostDTO{}); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("Update(missing) error = %v, want ErrNotFound", err)
	}
}

func TestUpdateSlugLeavesRedirect(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	p, err := f.svc.Create(ctx, f.author, &CreatePostDTO{Title: "Old Name", Status: models.StatusPublished})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	updated, err := f.svc.Update(ctx, f.author, p.ID, &UpdatePostDTO{Slug: strPtr("New Name")})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Slug != "new-name" {
		t.Fatalf("Slug = %q, want new-name", updated.Slug)
	}

	got, moved, err := f.svc.GetPublished(ctx, "old-name")
	if err != nil {
		t.Fatalf("GetPublished(old) error = %v", err)
	}
	if !moved || got.ID != p.ID {
		t.Errorf("GetPublished(old) = %s moved=%v, want %s moved=true", got.ID, moved, p.ID)
	}
	if _, moved, _ := f.svc.GetPublished(ctx, "new-name"); moved {
		t.Error("current slug should not be reported as moved")
	}
}

func TestUpdateReplacesRelationsOnlyWhenPresent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	p, err := f.svc.Create(ctx, f.author, &CreatePostDTO{Title: "Tagged", TagIDs: []string{f.tagGo.ID}, CategoryIDs: []string{f.catNews.ID}})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	updated, err := f.svc.Update(ctx, f.author, p.ID, &UpdatePostDTO{Excerpt: strPtr("custom")})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if len(updated.Tags) != 1 || len(updated.Categories) != 1 {
		t.Fatalf("relations changed without being sent: %d tags, %d categories", len(updated.Tags), len(updated.Categories))
	}

	empty := []string{}
	updated, err = f.svc.Update(ctx, f.author, p.ID, &UpdatePostDTO{TagIDs: &empty})
	if err != nil {
		t.Fatalf("Update(clear tags) error = %v", err)
	}
	if len(updated.Tags) != 0 || len(updated.Categories) != 1 {
		t.Errorf("after clearing tags: %d tags, %d categories; want 0, 1", len(updated.Tags), len(updated.Categories))
	}
}

// =============================================================================
// Publication lifecycle
// =============================================================================

func TestScheduleAndPublishDue(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	at := f.now.Add(30 * time.Minute)

	p, err := f.svc.Create(ctx, f.author, &CreatePostDTO{Title: "Later"})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	p, err = f.svc.Publish(ctx, f.author, p.ID, &at)
	if err != nil {
		t.Fatalf("Publish(future) error = %v", err)
	}
	if p.Status != models.StatusScheduled {
		t.Fatalf("Status = %q, want scheduled", p.Status)
	}
	if _, _, err := f.svc.GetPublished(ctx, p.Slug); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("scheduled post should not be public, err = %v", err)
	}

	if n, err := f.svc.PublishDue(ctx); err != nil || n != 0 {
		t.Fatalf("PublishDue(early) = %d, %v; want 0", n, err)
	}

	f.now = f.now.Add(time.Hour)
	n, err := f.svc.PublishDue(ctx)
	if err != nil || n != 1 {
		t.Fatalf("PublishDue() = %d, %v; want 1", n, err)
	}
	if _, ok := f.index.indexed[p.ID]; !ok {
		t.Error("due post should be indexed once published")
	}
	got, _, err := f.svc.GetPublished(ctx, p.Slug)
	if err != nil {
		t.Fatalf("GetPublished() error = %v", err)
	}
	if got.Status != models.StatusPublished || !got.PublishedAt.Equal(at) {
		t.Errorf("published post = %s at %v, want published at %v", got.Status, got.PublishedAt, at)
	}

	got, err = f.svc.Unpublish(ctx, f.author, p.ID)
	if err != nil {
		t.Fatalf("Unpublish() error = %v", err)
	}
	if got.Status != models.StatusDraft || got.PublishedAt != nil {
		t.Errorf("unpublished post = %s at %v, want draft with no date", got.Status, got.PublishedAt)
	}
	if _, ok := f.index.indexed[p.ID]; ok {
		t.Error("unpublished post should leave the index")
	}
}

func TestListScopesAuthors(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	for _, a := range []*models.UserModel{f.author, f.other, f.other} {
		if _, err := f.svc.Create(ctx, a, &CreatePostDTO{Title: "Post by " + a.Username}); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	q := pagination.New(1, 10)

	_, pag, err := f.svc.List(ctx, f.author, ListQuery{}, q)
	if err != nil {
		t.Fatalf("List(author) error = %v", err)
	}
	if pag.Total != 1 {
		t.Errorf("author sees %d posts, want 1", pag.Total)
	}
	_, pag, err = f.svc.List(ctx, f.editor, ListQuery{}, q)
	if err != nil {
		t.Fatalf("List(editor) error = %v", err)
	}
	if pag.Total != 3 {
		t.Errorf("editor sees %d posts, want 3", pag.Total)
	}
	if _, _, err := f.svc.List(ctx, f.editor, ListQuery{Status: "bogus"}, q); err == nil {
		t.Error("unknown status filter should fail")
	}
}

func TestDeleteRemovesFromIndex(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	p, err := f.svc.Create(ctx, f.author, &CreatePostDTO{Title: "Gone", Status: models.StatusPublished})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := f.svc.Delete(ctx, f.admin, p.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, ok := f.index.indexed[p.ID]; ok {
		t.Error("deleted post should leave the index")
	}
	if _, err := f.svc.Get(ctx, f.admin, p.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("Get(deleted) error = %v, want ErrNotFound", err)
	}
}

// =============================================================================
// Markdown import
// =============================================================================

func TestImport(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	src := []byte("---\ntitle: Imported Post\nslug: imported\ntags: [go, unknown]\ncategories:\n  - news\n---\n# Heading\n\nSome **bold** words.\n")

	p, err := f.svc.Import(ctx, f.author, "ignored.md", src)
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if p.Title != "Imported Post" || p.Slug != "imported" {
		t.Errorf("imported = %q/%q", p.Title, p.Slug)
	}
	if len(p.Tags) != 1 || len(p.Categories) != 1 {
		t.Errorf("relations = %d tags, %d categories; want 1, 1", len(p.Tags), len(p.Categories))
	}

	p, err = f.svc.Import(ctx, f.author, "notes.md", []byte("# From Heading\n\nbody text"))
	if err != nil {
		t.Fatalf("Import(no front matter) error = %v", err)
	}
	if p.Title != "From Heading" {
		t.Errorf("Title = %q, want From Heading", p.Title)
	}

	p, err = f.svc.Import(ctx, f.author, "plain-file.md", []byte("just text"))
	if err != nil {
		t.Fatalf("Import(plain) error = %v", err)
	}
	if p.Title != "plain-file" {
		t.Errorf("Title = %q, want plain-file", p.Title)
	}

	var ve *apperr.ValidationError
	if _, err := f.svc.Import(ctx, f.author, "bad.md", []byte("---\ntitle: [unclosed\n---\n")); !errors.As(err, &ve) {
		t.Errorf("Import(bad yaml) error = %v, want ValidationError", err)
	}
}
