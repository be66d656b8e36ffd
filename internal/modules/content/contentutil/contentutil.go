// Package contentutil holds the write rules shared by posts, pages and events:
// content normalization, slug assignment and publication state.
package contentutil

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/inkwell-cms/inkwell/internal/models"
	"github.com/inkwell-cms/inkwell/internal/pkg/apperr"
	"github.com/inkwell-cms/inkwell/internal/pkg/editorjs"
	"github.com/inkwell-cms/inkwell/internal/pkg/markdown"
	"github.com/inkwell-cms/inkwell/internal/pkg/slug"
	"gorm.io/datatypes"
)

// ExcerptLength is the rune budget of derived excerpts.
const ExcerptLength = 200

// Now is the service clock; stored times are always UTC.
func Now() time.Time { return time.Now().UTC() }

// Content converts the request's Editor.js JSON, or Markdown when given,
// into the stored document and its plain-text body.
func Content(raw json.RawMessage, md *string) (datatypes.JSON, string, error) {
	if md != nil {
		doc := markdown.ToDocument([]byte(*md))
		out, err := doc.Marshal()
		if err != nil {
			return nil, "", err
		}
		return datatypes.JSON(out), editorjs.PlainText(doc), nil
	}
	out, body, err := editorjs.Normalize(raw)
	if err != nil {
		return nil, "", apperr.Invalid("content", "%v", err)
	}
	return datatypes.JSON(out), body, nil
}

// SlugExists reports whether slug is used by a row other than excludeID.
type SlugExists func(ctx context.Context, slug, excludeID string) (bool, error)

// Slug picks the slug for a write. An explicit slug is normalized and must be
// free; a slug derived from source gets a -2, -3, ... suffix until it is free.
func Slug(ctx context.Context, explicit, source, fallback, excludeID string, exists SlugExists) (string, error) {
	if strings.TrimSpace(explicit) != "" {
		s := slug.Make(explicit)
		if s == "" {
			return "", apperr.Invalid("slug", "must contain letters or digits")
		}
		taken, err := exists(ctx, s, excludeID)
		if err != nil {
			return "", err
		}
		if taken {
			return "", apperr.Conflict("slug", s)
		}
		return s, nil
	}

	base := slug.Make(source)
	if base == "" {
		base = fallback
	}
	return slug.Unique(base, func(candidate string) (bool, error) {
		return exists(ctx, candidate, excludeID)
	})
}

// Publication resolves the status and publish time of a write. Published
// entries without a time are stamped with now. With allowScheduled, a
// published entry dated in the future becomes scheduled, and a scheduled
// entry must carry a future time.
func Publication(status string, publishedAt *time.Time, allowScheduled bool, now time.Time) (string, *time.Time, error) {
	if publishedAt != nil {
		t := publishedAt.UTC()
		publishedAt = &t
	}
	switch status {
	case "", models.StatusDraft:
		return models.StatusDraft, publishedAt, nil
	case models.StatusPublished:
		if publishedAt == nil {
			return models.StatusPublished, &now, nil
		}
		if allowScheduled && publishedAt.After(now) {
			return models.StatusScheduled, publishedAt, nil
		}
		return models.StatusPublished, publishedAt, nil
	case models.StatusScheduled:
		if !allowScheduled {
			return "", nil, apperr.Invalid("status", "scheduling is not supported here")
		}
		if publishedAt == nil || !publishedAt.After(now) {
			return "", nil, apperr.Invalid("published_at", "a scheduled entry needs a publish time in the future")
		}
		return models.StatusScheduled, publishedAt, nil
	default:
		return "", nil, apperr.Invalid("status", "unknown status %q", status)
	}
}

// Excerpt returns explicit when set, otherwise a summary of body.
func Excerpt(explicit, body string) string {
	if e := strings.TrimSpace(explicit); e != "" {
		return e
	}
	return editorjs.Excerpt(body, ExcerptLength)
}
