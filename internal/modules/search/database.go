package search

import (
	"context"
	"time"

	"github.com/inkwell-cms/inkwell/internal/models"
	"github.com/inkwell-cms/inkwell/internal/pkg/editorjs"
	"github.com/inkwell-cms/inkwell/internal/pkg/pagination"
	"github.com/inkwell-cms/inkwell/internal/repository"
)

const summaryLength = 160

// databaseBackend answers queries with LIKE scans over the content tables.
// The tables are the index, so Index and Delete do nothing.
type databaseBackend struct {
	posts  repository.PostRepository
	pages  repository.PageRepository
	events repository.EventRepository
	now    func() time.Time
}

// NewDatabaseBackend searches published content directly in the database.
func NewDatabaseBackend(posts repository.PostRepository, pages repository.PageRepository, events repository.EventRepository) Backend {
	return &databaseBackend{
		posts:  posts,
		pages:  pages,
		events: events,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (b *databaseBackend) Name() string { return "database" }

func (b *databaseBackend) Index(context.Context, Document) error { return nil }

func (b *databaseBackend) Delete(context.Context, string, string) error { return nil }

func (b *databaseBackend) Search(ctx context.Context, query string, limit int) ([]Hit, error) {
	q := pagination.New(1, limit)
	hits := make([]Hit, 0, limit)

	posts, _, err := b.posts.ListPublished(ctx, repository.PostFilter{Search: query}, b.now(), q)
	if err != nil {
		return nil, err
	}
	for i := range posts {
		hits = append(hits, hitFor(PostDocument(&posts[i])))
	}

	pages, _, err := b.pages.List(ctx, repository.PageFilter{Status: models.StatusPublished, Search: query}, q)
	if err != nil {
		return nil, err
	}
	for i := range pages {
		hits = append(hits, hitFor(PageDocument(&pages[i])))
	}

	events, _, err := b.events.List(ctx, repository.EventFilter{Status: models.StatusPublished, Search: query}, q)
	if err != nil {
		return nil, err
	}
	for i := range events {
		hits = append(hits, hitFor(EventDocument(&events[i])))
	}

	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func hitFor(doc Document) Hit {
	return Hit{
		Kind:    doc.Kind,
		ID:      doc.ID,
		Slug:    doc.Slug,
		Title:   doc.Title,
		Summary: doc.Summary,
		URL:     URLFor(doc.Kind, doc.Slug),
	}
}

// PostDocument projects a post for indexing.
func PostDocument(p *models.PostModel) Document {
	summary := p.Excerpt
	if summary == "" {
		summary = editorjs.Excerpt(p.Body, summaryLength)
	}
	return Document{Kind: KindPost, ID: p.ID, Slug: p.Slug, Title: p.Title, Summary: summary, Body: p.Body, PublishedAt: p.PublishedAt}
}

// PageDocument projects a page for indexing.
func PageDocument(p *models.PageModel) Document {
	summary := p.MetaDescription
	if summary == "" {
		summary = editorjs.Excerpt(p.Body, summaryLength)
	}
	return Document{Kind: KindPage, ID: p.ID, Slug: p.Slug, Title: p.Title, Summary: summary, Body: p.Body, PublishedAt: p.PublishedAt}
}

// EventDocument projects an event for indexing.
func EventDocument(e *models.EventModel) Document {
	summary := e.Description
	if summary == "" {
		summary = editorjs.Excerpt(e.Body, summaryLength)
	}
	start := e.StartDate
	return Document{Kind: KindEvent, ID: e.ID, Slug: e.Slug, Title: e.Title, Summary: summary, Body: e.Body, PublishedAt: &start}
}
