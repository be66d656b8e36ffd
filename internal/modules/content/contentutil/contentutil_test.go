package contentutil

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/inkwell-cms/inkwell/internal/models"
	"github.com/inkwell-cms/inkwell/internal/pkg/apperr"
	"github.com/inkwell-cms/inkwell/internal/repository"
)

func takenSet(slugs ...string) SlugExists {
	set := map[string]bool{}
	for _, s := range slugs {
		set[s] = true
	}
	return func(_ context.Context, s, _ string) (bool, error) { return set[s], nil }
}

func TestSlug(t *testing.T) {
	ctx := context.Background()
	exists := takenSet("hello-world", "hello-world-2")

	tests := []struct {
		name     string
		explicit string
		source   string
		want     string
		wantErr  error
	}{
		{name: "derived from title", source: "Fresh Idea", want: "fresh-idea"},
		{name: "derived gets suffix", source: "Hello, World!", want: "hello-world-3"},
		{name: "explicit normalized", explicit: "My Slug", want: "my-slug"},
		{name: "explicit duplicate rejected", explicit: "hello-world", wantErr: repository.ErrDuplicate},
		{name: "fallback when title has no letters", source: "!!!", want: "post"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Slug(ctx, tt.explicit, tt.source, "post", "", exists)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Slug() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Slug() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Slug() = %q, want %q", got, tt.want)
			}
		})
	}

	var ve *apperr.ValidationError
	if _, err := Slug(ctx, "***", "x", "post", "", exists); !errors.As(err, &ve) {
		t.Errorf("Slug(\"***\") error = %v, want ValidationError", err)
	}
}

func TestPublication(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name      string
		status    string
		at        *time.Time
		scheduled bool
		want      string
		wantAt    *time.Time
		wantErr   bool
	}{
		{name: "empty is draft", status: "", want: models.StatusDraft},
		{name: "published stamps now", status: models.StatusPublished, want: models.StatusPublished, wantAt: &now},
		{name: "published keeps past time", status: models.StatusPublished, at: &past, want: models.StatusPublished, wantAt: &past},
		{name: "published in future schedules", status: models.StatusPublished, at: &future, scheduled: true, want: models.StatusScheduled, wantAt: &future},
		{name: "scheduled needs future", status: models.StatusScheduled, at: &past, scheduled: true, wantErr: true},
		{name: "scheduled needs time", status: models.StatusScheduled, scheduled: true, wantErr: true},
		{name: "scheduled ok", status: models.StatusScheduled, at: &future, scheduled: true, want: models.StatusScheduled, wantAt: &future},
		{name: "scheduling unsupported", status: models.StatusScheduled, at: &future, wantErr: true},
		{name: "unknown status", status: "archived", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, at, err := Publication(tt.status, tt.at, tt.scheduled, now)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Publication() = %q, want error", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Publication() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("status = %q, want %q", got, tt.want)
			}
			if (at == nil) != (tt.wantAt == nil) || (at != nil && !at.Equal(*tt.wantAt)) {
				t.Errorf("published_at = %v, want %v", at, tt.wantAt)
			}
		})
	}
}

func TestContent(t *testing.T) {
	raw, body, err := Content([]byte(`{"blocks":[{"type":"paragraph","data":{"text":"Hello <b>there</b>"}}]}`), nil)
	if err != nil {
		t.Fatalf("Content() error = %v", err)
	}
	if body != "Hello there" {
		t.Errorf("body = %q, want %q", body, "Hello there")
	}
	if len(raw) == 0 {
		t.Error("content should be stored")
	}

	md := "# Title\n\nSome *text*."
	_, body, err = Content(nil, &md)
	if err != nil {
		t.Fatalf("Content(markdown) error = %v", err)
	}
	if !strings.HasPrefix(body, "Title") || !strings.Contains(body, "Some text") {
		t.Errorf("markdown body = %q", body)
	}

	var ve *apperr.ValidationError
	if _, _, err := Content([]byte(`{"blocks":[{"data":{}}]}`), nil); !errors.As(err, &ve) {
		t.Errorf("Content(block without type) error = %v, want ValidationError", err)
	}
}
