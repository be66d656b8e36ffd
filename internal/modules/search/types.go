package search

import (
	"context"
	"time"
)

// Indexed content kinds.
const (
	KindPost  = "post"
	KindPage  = "page"
	KindEvent = "event"
)

// Document is the searchable projection of a published post, page or event.
type Document struct {
	Kind        string     `json:"kind"`
	ID          string     `json:"id"`
	Slug        string     `json:"slug"`
	Title       string     `json:"title"`
	Summary     string     `json:"summary"`
	Body        string     `json:"body"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

// Hit is a single search result returned to clients.
type Hit struct {
	Kind    string `json:"kind"`
	ID      string `json:"id"`
	Slug    string `json:"slug"`
	Title   string `json:"title"`
	Summary string `json:"summary"`
	URL     string `json:"url"`
}

// Backend stores and queries documents.
type Backend interface {
	Name() string
	Index(ctx context.Context, doc Document) error
	Delete(ctx context.Context, kind, id string) error
	Search(ctx context.Context, query string, limit int) ([]Hit, error)
}

// Indexer keeps the search backend in sync with content writes. Calls never
// fail the caller's write.
type Indexer interface {
	Index(ctx context.Context, doc Document)
	Remove(ctx context.Context, kind, id string)
}

// NopIndexer discards every update.
type NopIndexer struct{}

func (NopIndexer) Index(context.Context, Document)        {}
func (NopIndexer) Remove(context.Context, string, string) {}

// URLFor returns the public site path of a document.
func URLFor(kind, slug string) string {
	switch kind {
	case KindPost:
		return "/blog/" + slug
	case KindPage:
		return "/pages/" + slug
	case KindEvent:
		return "/events/" + slug
	default:
		return "/"
	}
}
