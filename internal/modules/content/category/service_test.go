package category

import (
	"context"
	"errors"
	"testing"

	"github.com/inkwell-cms/inkwell/internal/database/dbtest"
	"github.com/inkwell-cms/inkwell/internal/models"
	"github.com/inkwell-cms/inkwell/internal/pkg/apperr"
	"github.com/inkwell-cms/inkwell/internal/repository"
)

func strPtr(s string) *string { return &s }

func TestCategoryLifecycle(t *testing.T) {
	db := dbtest.New(t)
	svc := NewService(repository.NewCategoryRepository(db))
	ctx := context.Background()

	news, err := svc.Create(ctx, &CreateCategoryDTO{Name: "  Company News ", Description: "updates"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if news.Name != "Company News" || news.Slug != "company-news" {
		t.Errorf("created = %q/%q", news.Name, news.Slug)
	}

	if _, err := svc.Create(ctx, &CreateCategoryDTO{Name: "Company News"}); !errors.Is(err, repository.ErrDuplicate) {
		t.Errorf("duplicate name error = %v, want ErrDuplicate", err)
	}
	if _, err := svc.Create(ctx, &CreateCategoryDTO{Name: "Other", Slug: "company-news"}); !errors.Is(err, repository.ErrDuplicate) {
		t.Errorf("duplicate slug error = %v, want ErrDuplicate", err)
	}
	var ve *apperr.ValidationError
	if _, err := svc.Create(ctx, &CreateCategoryDTO{Name: "   "}); !errors.As(err, &ve) {
		t.Errorf("blank name error = %v, want ValidationError", err)
	}

	got, err := svc.Get(ctx, "company-news")
	if err != nil || got.ID != news.ID {
		t.Fatalf("Get(slug) = %v, %v", got, err)
	}

	updated, err := svc.Update(ctx, news.ID, &UpdateCategoryDTO{Name: strPtr("News"), Slug: strPtr("news")})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Name != "News" || updated.Slug != "news" || updated.Description != "updates" {
		t.Errorf("updated = %+v", updated)
	}

	// Renaming to its own name is not a conflict.
	if _, err := svc.Update(ctx, news.ID, &UpdateCategoryDTO{Name: strPtr("News")}); err != nil {
		t.Errorf("Update(same name) error = %v", err)
	}

	if err := svc.Delete(ctx, news.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := svc.Delete(ctx, news.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
	if _, err := svc.Update(ctx, news.ID, &UpdateCategoryDTO{}); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("Update(deleted) error = %v, want ErrNotFound", err)
	}
}

func TestDeleteKeepsPosts(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()
	svc := NewService(repository.NewCategoryRepository(db))
	posts := repository.NewPostRepository(db)

	cat, err := svc.Create(ctx, &CreateCategoryDTO{Name: "Go"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	ids := []string{cat.ID}
	p := &models.PostModel{Title: "Hello", Slug: "hello", Status: models.StatusDraft}
	if err := posts.Create(ctx, p, repository.PostRelations{CategoryIDs: &ids}); err != nil {
		t.Fatalf("create post: %v", err)
	}

	if err := svc.Delete(ctx, cat.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	got, err := posts.FindByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("post should survive category delete: %v", err)
	}
	if len(got.Categories) != 0 {
		t.Errorf("post still linked to %d categories", len(got.Categories))
	}
}
