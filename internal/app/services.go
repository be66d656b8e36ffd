package app

import (
	"context"
	"fmt"
	"time"

	"github.com/inkwell-cms/inkwell/internal/config"
	"github.com/inkwell-cms/inkwell/internal/modules/auth/auth"
	"github.com/inkwell-cms/inkwell/internal/modules/auth/user"
	"github.com/inkwell-cms/inkwell/internal/modules/content/category"
	"github.com/inkwell-cms/inkwell/internal/modules/content/event"
	"github.com/inkwell-cms/inkwell/internal/modules/content/eventcategory"
	"github.com/inkwell-cms/inkwell/internal/modules/content/page"
	"github.com/inkwell-cms/inkwell/internal/modules/content/post"
	"github.com/inkwell-cms/inkwell/internal/modules/content/tag"
	"github.com/inkwell-cms/inkwell/internal/modules/dashboard"
	"github.com/inkwell-cms/inkwell/internal/modules/markdown"
	"github.com/inkwell-cms/inkwell/internal/modules/media"
	"github.com/inkwell-cms/inkwell/internal/modules/search"
	"github.com/inkwell-cms/inkwell/internal/modules/site"
	"github.com/inkwell-cms/inkwell/internal/modules/views"
	"github.com/inkwell-cms/inkwell/internal/pkg/mail"
	"github.com/inkwell-cms/inkwell/internal/pkg/session"
	"github.com/inkwell-cms/inkwell/internal/repository"
	"go.uber.org/zap"
)

// services is the wired object graph shared by routes and cron jobs.
type services struct {
	sessions *session.Store
	users    repository.UserRepository

	auth          *auth.Service
	cookies       *auth.CookieHelper
	user          *user.Service
	posts         *post.Service
	pages         *page.Service
	events        *event.Service
	categories    *category.Service
	tags          *tag.Service
	eventCategory *eventcategory.Service
	media         *media.Service
	search        *search.Service
	views         *views.Service
	dashboard     *dashboard.Service
	markdown      *markdown.Handler
	site          *site.Handler
}

func (a *App) buildServices(ctx context.Context, sessions *session.Store) (*services, error) {
	cfg, log, db := a.cfg, a.logger, a.db

	users := repository.NewUserRepository(db)
	posts := repository.NewPostRepository(db)
	pages := repository.NewPageRepository(db)
	events := repository.NewEventRepository(db)
	categories := repository.NewCategoryRepository(db)
	tags := repository.NewTagRepository(db)
	eventCategories := repository.NewEventCategoryRepository(db)
	mediaRepo := repository.NewMediaRepository(db)
	slugs := repository.NewSlugTrackerRepository(db)

	backend := search.NewDatabaseBackend(posts, pages, events)
	if cfg.Search.Driver == config.SearchElasticsearch {
		es, err := search.NewElasticBackend(ctx, cfg.Search.Elasticsearch)
		if err != nil {
			log.Warn("elasticsearch unavailable, falling back to database search", zap.Error(err))
		} else {
			backend = es
		}
	}
	searchSvc := search.NewService(backend, posts, pages, events, search.WithLogger(log))

	loc := time.UTC
	if cfg.Timezone != "" {
		if l, err := parseTimezoneLocation(cfg.Timezone); err == nil {
			loc = l
		}
	}

	storage, err := media.NewStorage(cfg.Storage, cfg.UploadDir())
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}

	viewSvc := views.NewService(a.rdb, time.Duration(cfg.Security.ViewDedupeWindowHours)*time.Hour, views.WithLogger(log))
	viewSvc.Register(search.KindPost, posts)
	viewSvc.Register(search.KindPage, pages)
	viewSvc.Register(search.KindEvent, events)

	svc := &services{
		sessions:      sessions,
		users:         users,
		auth:          auth.NewService(users, repository.NewTokenRepository(db), sessions, mail.New(cfg.Mail, log.Named("Mailer")), cfg.Security, cfg.Site, auth.WithLogger(log)),
		cookies:       auth.NewCookieHelper(cfg.Security),
		user:          user.NewService(users, sessions, cfg.Security, user.WithLogger(log)),
		posts:         post.NewService(posts, categories, tags, slugs, post.WithIndexer(searchSvc), post.WithLogger(log)),
		pages:         page.NewService(pages, slugs, page.WithIndexer(searchSvc), page.WithLogger(log)),
		events:        event.NewService(events, eventCategories, slugs, event.WithIndexer(searchSvc), event.WithLocation(loc), event.WithLogger(log)),
		categories:    category.NewService(categories, category.WithLogger(log)),
		tags:          tag.NewService(tags, tag.WithLogger(log)),
		eventCategory: eventcategory.NewService(eventCategories, eventcategory.WithLogger(log)),
		media:         media.NewService(mediaRepo, storage, media.WithMaxBytes(cfg.MaxUploadBytes()), media.WithLogger(log)),
		search:        searchSvc,
		views:         viewSvc,
		dashboard: dashboard.NewService(dashboard.Repositories{
			Posts: posts, Pages: pages, Events: events, Categories: categories,
			Tags: tags, Users: users, Media: mediaRepo,
		}),
		markdown: markdown.NewHandler(posts, pages),
	}

	uploads := ""
	if local, ok := storage.(*media.LocalStorage); ok {
		uploads = local.Dir()
	}
	svc.site, err = site.NewHandler(site.Sources{
		Posts:           svc.posts,
		Pages:           svc.pages,
		Events:          svc.events,
		Categories:      svc.categories,
		Tags:            svc.tags,
		EventCategories: svc.eventCategory,
	}, cfg.Site, site.WithViews(viewSvc), site.WithUploads(uploads), site.WithLogger(log))
	if err != nil {
		return nil, fmt.Errorf("site templates: %w", err)
	}
	return svc, nil
}
