package search

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/inkwell-cms/inkwell/internal/models"
	"github.com/inkwell-cms/inkwell/internal/pkg/pagination"
	"github.com/inkwell-cms/inkwell/internal/repository"
	"go.uber.org/zap"
)

const (
	DefaultLimit = 20
	MaxLimit     = 50
	indexTimeout = 10 * time.Second
)

// Service queries the configured backend and applies index updates in the
// background so writes never wait on the search engine.
type Service struct {
	backend Backend
	posts   repository.PostRepository
	pages   repository.PageRepository
	events  repository.EventRepository
	logger  *zap.Logger
	wg      sync.WaitGroup
}

// ServiceOption configures a search Service.
type ServiceOption func(*Service)

// WithLogger sets the logger for the search service.
func WithLogger(l *zap.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l.Named("SearchService")
		}
	}
}

func NewService(backend Backend, posts repository.PostRepository, pages repository.PageRepository, events repository.EventRepository, opts ...ServiceOption) *Service {
	s := &Service{backend: backend, posts: posts, pages: pages, events: events, logger: zap.NewNop()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Backend returns the name of the active backend.
func (s *Service) Backend() string { return s.backend.Name() }

// Search returns up to limit hits for query. Blank queries return no hits.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]Hit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []Hit{}, nil
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return s.backend.Search(ctx, query, limit)
}

// Index stores doc asynchronously, logging failures.
func (s *Service) Index(ctx context.Context, doc Document) {
	s.async(ctx, func(ctx context.Context) error { return s.backend.Index(ctx, doc) },
		zap.String("kind", doc.Kind), zap.String("id", doc.ID))
}

// Remove deletes a document asynchronously, logging failures.
func (s *Service) Remove(ctx context.Context, kind, id string) {
	s.async(ctx, func(ctx context.Context) error { return s.backend.Delete(ctx, kind, id) },
		zap.String("kind", kind), zap.String("id", id))
}

func (s *Service) async(ctx context.Context, fn func(context.Context) error, fields ...zap.Field) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), indexTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			s.logger.Warn("search index update failed", append(fields, zap.Error(err))...)
		}
	}()
}

// Wait blocks until pending index updates finish.
func (s *Service) Wait() { s.wg.Wait() }

// Reindex pushes every published post, page and event to the backend and
// returns how many documents were written.
func (s *Service) Reindex(ctx context.Context) (int, error) {
	now := time.Now().UTC()
	total := 0

	for page := 1; ; page++ {
		posts, meta, err := s.posts.ListPublished(ctx, repository.PostFilter{}, now, pagination.New(page, pagination.MaxSize))
		if err != nil {
			return total, err
		}
		for i := range posts {
			if err := s.backend.Index(ctx, PostDocument(&posts[i])); err != nil {
				return total, err
			}
			total++
		}
		if !meta.HasNextPage {
			break
		}
	}

	for page := 1; ; page++ {
		pages, meta, err := s.pages.List(ctx, repository.PageFilter{Status: models.StatusPublished}, pagination.New(page, pagination.MaxSize))
		if err != nil {
			return total, err
		}
		for i := range pages {
			if err := s.backend.Index(ctx, PageDocument(&pages[i])); err != nil {
				return total, err
			}
			total++
		}
		if !meta.HasNextPage {
			break
		}
	}

	for page := 1; ; page++ {
		events, meta, err := s.events.List(ctx, repository.EventFilter{Status: models.StatusPublished}, pagination.New(page, pagination.MaxSize))
		if err != nil {
			return total, err
		}
		for i := range events {
			if err := s.backend.Index(ctx, EventDocument(&events[i])); err != nil {
				return total, err
			}
			total++
		}
		if !meta.HasNextPage {
			break
		}
	}

	s.logger.Info("search reindex finished", zap.String("backend", s.backend.Name()), zap.Int("documents", total))
	return total, nil
}
