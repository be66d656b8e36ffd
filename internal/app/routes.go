package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/inkwell-cms/inkwell/internal/database"
	"github.com/inkwell-cms/inkwell/internal/middleware"
	"github.com/inkwell-cms/inkwell/internal/models"
	"github.com/inkwell-cms/inkwell/internal/modules/auth/auth"
	"github.com/inkwell-cms/inkwell/internal/modules/auth/user"
	"github.com/inkwell-cms/inkwell/internal/modules/content/category"
	"github.com/inkwell-cms/inkwell/internal/modules/content/event"
	"github.com/inkwell-cms/inkwell/internal/modules/content/eventcategory"
	"github.com/inkwell-cms/inkwell/internal/modules/content/page"
	"github.com/inkwell-cms/inkwell/internal/modules/content/post"
	"github.com/inkwell-cms/inkwell/internal/modules/content/tag"
	"github.com/inkwell-cms/inkwell/internal/modules/dashboard"
	"github.com/inkwell-cms/inkwell/internal/modules/media"
	"github.com/inkwell-cms/inkwell/internal/modules/search"
	"github.com/inkwell-cms/inkwell/internal/modules/views"
	pkgcron "github.com/inkwell-cms/inkwell/internal/pkg/cron"
	"github.com/inkwell-cms/inkwell/internal/pkg/response"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const apiPrefix = "/api/v1"

func (a *App) registerRoutes(svc *services) {
	r := a.router
	cookieName := a.cfg.Security.CookieName

	r.NoRoute(func(c *gin.Context) { response.NotFound(c) })
	r.NoMethod(func(c *gin.Context) {
		response.Fail(c, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.GET("/healthz", a.health)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})))

	// Public HTML site
	svc.site.RegisterRoutes(r)

	api := r.Group(apiPrefix)
	api.Use(middleware.OptionalAuth(svc.sessions, svc.users, cookieName))
	api.Use(middleware.HTTPCache(a.rdb, middleware.HTTPCacheOptions{
		TTL:       15 * time.Second,
		SkipPaths: []string{apiPrefix + "/auth/*", apiPrefix + "/search"},
	}))
	api.Use(middleware.Idempotence(a.rdb))

	api.GET("/ping", func(c *gin.Context) { response.OK(c, "pong") })
	api.GET("/uptime", func(c *gin.Context) {
		up := time.Since(a.started)
		response.OK(c, gin.H{"seconds": int64(up / time.Second), "humanize": humanizeDuration(up)})
	})

	post.NewHandler(svc.posts, svc.views).RegisterRoutes(api)
	page.NewHandler(svc.pages, svc.views).RegisterRoutes(api)
	event.NewHandler(svc.events, svc.views).RegisterRoutes(api)
	category.NewHandler(svc.categories).RegisterRoutes(api)
	tag.NewHandler(svc.tags).RegisterRoutes(api)
	eventcategory.NewHandler(svc.eventCategory).RegisterRoutes(api)
	search.NewHandler(svc.search).RegisterRoutes(api)
	views.NewHandler(svc.views).RegisterRoutes(api)

	authMW := middleware.Auth(svc.sessions, svc.users, cookieName)
	limit := middleware.RateLimit(a.rdb, middleware.RateLimitOptions{
		Name:   "auth",
		Max:    10,
		Window: time.Minute,
	}, a.logger)
	csrf := middleware.CSRF(middleware.CSRFConfig{
		AllowedOrigins: append(append([]string{}, a.cfg.AllowedOrigins...), a.cfg.Site.URL),
		CookieOnly:     true,
	})
	auth.NewHandler(svc.auth, svc.cookies).RegisterRoutes(api, authMW, csrf, limit)

	admin := api.Group("/admin")
	admin.Use(authMW)
	admin.Use(csrf)
	admin.Use(middleware.PurgeOnWrite(a.rdb, a.logger))

	authorOnly := middleware.RequireRole(models.RoleAuthor)
	editorOnly := middleware.RequireRole(models.RoleEditor)
	adminOnly := middleware.RequireRole(models.RoleAdmin)

	post.NewHandler(svc.posts, svc.views).RegisterAdminRoutes(admin.Group("", authorOnly))
	page.NewHandler(svc.pages, svc.views).RegisterAdminRoutes(admin.Group("", editorOnly))
	event.NewHandler(svc.events, svc.views).RegisterAdminRoutes(admin.Group("", authorOnly))
	category.NewHandler(svc.categories).RegisterAdminRoutes(admin, editorOnly)
	eventcategory.NewHandler(svc.eventCategory).RegisterAdminRoutes(admin, editorOnly)
	tag.NewHandler(svc.tags).RegisterAdminRoutes(admin, authorOnly)
	media.NewHandler(svc.media).RegisterAdminRoutes(admin, authorOnly)
	svc.markdown.RegisterAdminRoutes(admin.Group("", authorOnly), editorOnly)
	dashboard.NewHandler(svc.dashboard).RegisterAdminRoutes(admin.Group("", authorOnly))
	search.NewHandler(svc.search).RegisterAdminRoutes(admin, adminOnly)

	users := user.NewHandler(svc.user)
	users.RegisterAdminRoutes(admin, adminOnly)
	users.RegisterProfileRoutes(admin)

	cron := admin.Group("/cron", adminOnly)
	cron.GET("", a.listJobs)
	cron.POST("/:name/run", a.runJob)
}

// health GET /healthz
func (a *App) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := gin.H{"database": "ok"}
	if err := database.Ping(ctx, a.db); err != nil {
		status = http.StatusServiceUnavailable
		checks["database"] = err.Error()
	}
	if a.rdb.Enabled() {
		checks["redis"] = "ok"
		if err := a.rdb.Ping(ctx); err != nil {
			status = http.StatusServiceUnavailable
			checks["redis"] = err.Error()
		}
	} else {
		checks["redis"] = "disabled"
	}
	c.JSON(status, gin.H{
		"ok":     status == http.StatusOK,
		"checks": checks,
		"uptime": humanizeDuration(time.Since(a.started)),
	})
}

// listJobs GET /admin/cron
func (a *App) listJobs(c *gin.Context) {
	response.OK(c, a.sched.List())
}

// runJob POST /admin/cron/:name/run
func (a *App) runJob(c *gin.Context) {
	name := c.Param("name")
	if err := a.sched.Run(c.Request.Context(), name); err != nil {
		if errors.Is(err, pkgcron.ErrJobNotFound) {
			response.NotFoundMsg(c, "job not found")
			return
		}
		a.logger.Warn("manual job run failed", zap.String("job", name), zap.Error(err))
		response.UnprocessableEntity(c, err.Error())
		return
	}
	response.NoContent(c)
}
