package page

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/inkwell-cms/inkwell/internal/database/dbtest"
	"github.com/inkwell-cms/inkwell/internal/models"
	"github.com/inkwell-cms/inkwell/internal/pkg/apperr"
	"github.com/inkwell-cms/inkwell/internal/repository"
)

func setup(t *testing.T) (*Service, *models.UserModel, *models.UserModel) {
	t.Helper()
	db := dbtest.New(t)
	users := repository.NewUserRepository(db)
	editor := &models.UserModel{Username: "ed", Email: "ed@example.com", Password: "x", Role: models.RoleEditor, Status: models.UserActive}
	author := &models.UserModel{Username: "au", Email: "au@example.com", Password: "x", Role: models.RoleAuthor, Status: models.UserActive}
	for _, u := range []*models.UserModel{editor, author} {
		if err := users.Create(context.Background(), u); err != nil {
			t.Fatalf("create user: %v", err)
		}
	}
	now := time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)
	svc := NewService(repository.NewPageRepository(db), repository.NewSlugTrackerRepository(db),
		WithClock(func() time.Time { return now }))
	return svc, editor, author
}

func strPtr(s string) *string { return &s }

func TestPagesRequireEditor(t *testing.T) {
	svc, _, author := setup(t)
	if _, err := svc.Create(context.Background(), author, &CreatePageDTO{Title: "About"}); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("author Create() error = %v, want ErrForbidden", err)
	}
}

func TestPageLifecycle(t *testing.T) {
	svc, editor, _ := setup(t)
	ctx := context.Background()

	p, err := svc.Create(ctx, editor, &CreatePageDTO{Title: "About Us", Template: "Full-Width"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if p.Slug != "about-us" || p.Template != "full-width" || p.Status != models.StatusDraft {
		t.Errorf("created = %q %q %q", p.Slug, p.Template, p.Status)
	}
	if _, _, err := svc.GetPublished(ctx, "about-us"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("draft page should be hidden, err = %v", err)
	}

	published := models.StatusPublished
	p, err = svc.Update(ctx, editor, p.ID, &UpdatePageDTO{Status: &published, Slug: strPtr("about")})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if p.PublishedAt == nil {
		t.Error("publishing should stamp published_at")
	}

	got, moved, err := svc.GetPublished(ctx, "about-us")
	if err != nil || !moved || got.Slug != "about" {
		t.Errorf("GetPublished(old slug) = %v moved=%v err=%v", got, moved, err)
	}

	list, err := svc.ListPublished(ctx)
	if err != nil || len(list) != 1 {
		t.Errorf("ListPublished() = %d pages, %v", len(list), err)
	}

	if err := svc.Delete(ctx, editor, p.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, _, err := svc.GetPublished(ctx, "about-us"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("retired slug of a deleted page should not resolve, err = %v", err)
	}
}

func TestPageValidation(t *testing.T) {
	svc, editor, _ := setup(t)
	ctx := context.Background()
	future := time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		dto  CreatePageDTO
	}{
		{name: "scheduling unsupported", dto: CreatePageDTO{Title: "x", Status: models.StatusScheduled, PublishedAt: &future}},
		{name: "bad template", dto: CreatePageDTO{Title: "x", Template: "../etc"}},
		{name: "blank title", dto: CreatePageDTO{Title: " "}},
		{name: "unknown status", dto: CreatePageDTO{Title: "x", Status: "hidden"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ve *apperr.ValidationError
			if _, err := svc.Create(ctx, editor, &tt.dto); !errors.As(err, &ve) {
				t.Errorf("Create() error = %v, want ValidationError", err)
			}
		})
	}
}

func TestPublishAndUnpublish(t *testing.T) {
	svc, editor, author := setup(t)
	ctx := context.Background()

	p, err := svc.Create(ctx, editor, &CreatePageDTO{Title: "Contact"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := svc.Publish(ctx, author, p.ID); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("author Publish() error = %v, want ErrForbidden", err)
	}

	p, err = svc.Publish(ctx, editor, p.ID)
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if p.Status != models.StatusPublished || p.PublishedAt == nil {
		t.Errorf("published = %q %v", p.Status, p.PublishedAt)
	}
	if _, _, err := svc.GetPublished(ctx, "contact"); err != nil {
		t.Errorf("GetPublished() error = %v", err)
	}

	p, err = svc.Unpublish(ctx, editor, p.ID)
	if err != nil {
		t.Fatalf("Unpublish() error = %v", err)
	}
	if p.Status != models.StatusDraft || p.PublishedAt != nil {
		t.Errorf("unpublished = %q %v", p.Status, p.PublishedAt)
	}
	if _, _, err := svc.GetPublished(ctx, "contact"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("unpublished page should be hidden, err = %v", err)
	}
}
