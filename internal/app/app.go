package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/inkwell-cms/inkwell/internal/config"
	"github.com/inkwell-cms/inkwell/internal/database"
	"github.com/inkwell-cms/inkwell/internal/middleware"
	"github.com/inkwell-cms/inkwell/internal/modules/search"
	"github.com/inkwell-cms/inkwell/internal/modules/views"
	pkgcron "github.com/inkwell-cms/inkwell/internal/pkg/cron"
	jwtpkg "github.com/inkwell-cms/inkwell/internal/pkg/jwt"
	pkgredis "github.com/inkwell-cms/inkwell/internal/pkg/redis"
	"github.com/inkwell-cms/inkwell/internal/pkg/session"
	"github.com/inkwell-cms/inkwell/internal/repository"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const jwtIssuer = "inkwell"

// App holds all application dependencies.
type App struct {
	cfg      *config.AppConfig
	router   *gin.Engine
	db       *gorm.DB
	rdb      *pkgredis.Client
	logger   *zap.Logger
	registry *prometheus.Registry
	sched    *pkgcron.Scheduler
	search   *search.Service
	views    *views.Service
	cancel   context.CancelFunc
	started  time.Time
}

// New wires the application: database, redis, services, routes and cron.
func New(logger *zap.Logger, cfg *config.AppConfig) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := applyRuntimeSettings(cfg, logger); err != nil {
		return nil, err
	}

	jwt, err := jwtpkg.NewManager(cfg.JWTSecret, jwtIssuer)
	if err != nil {
		return nil, fmt.Errorf("jwt: %w", err)
	}

	db, err := database.Connect(cfg, true)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}

	var rdb *pkgredis.Client
	if cfg.RedisURL != "" {
		rdb, err = pkgredis.Connect(cfg.RedisURL)
		if err != nil {
			_ = database.Close(db)
			return nil, fmt.Errorf("redis: %w", err)
		}
	} else {
		logger.Info("redis disabled, caching and rate limiting are off")
	}

	switch {
	case cfg.IsTest():
		gin.SetMode(gin.TestMode)
	case cfg.IsDev():
		gin.SetMode(gin.DebugMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.Logger(logger))
	router.Use(middleware.NewMetrics(registry).Handler())
	router.Use(newCORS(cfg))

	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		cfg:      cfg,
		router:   router,
		db:       db,
		rdb:      rdb,
		logger:   logger,
		registry: registry,
		sched:    pkgcron.New(logger.Named("CronService")),
		cancel:   cancel,
		started:  time.Now(),
	}

	sessions := session.NewStore(db, jwt, time.Duration(cfg.Security.SessionTTLHours)*time.Hour)
	svc, err := app.buildServices(ctx, sessions)
	if err != nil {
		cancel()
		if rdb != nil {
			_ = rdb.Close()
		}
		_ = database.Close(db)
		return nil, err
	}
	app.search = svc.search
	app.views = svc.views
	app.registerRoutes(svc)

	registerCronJobs(app.sched, cronDeps{
		posts:    svc.posts,
		tokens:   repository.NewTokenRepository(db),
		sessions: sessions,
		search:   svc.search,
		reindex:  cfg.Search.Driver == config.SearchElasticsearch,
	}, logger)
	app.sched.Start(ctx)

	return app, nil
}

// Addr returns the listen address.
func (a *App) Addr() string { return fmt.Sprintf(":%d", a.cfg.Port) }

// Router returns the HTTP handler.
func (a *App) Router() http.Handler { return a.router }

// Shutdown stops background jobs and waits for pending index updates and
// view counts, then closes the connections.
func (a *App) Shutdown() {
	a.cancel()
	a.sched.Wait()
	if a.views != nil {
		a.views.Wait()
	}
	if a.search != nil {
		a.search.Wait()
	}
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
	if err := database.Close(a.db); err != nil {
		a.logger.Warn("database close failed", zap.Error(err))
	}
}
