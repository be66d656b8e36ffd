package app

import (
	"context"
	"time"

	pkgcron "github.com/inkwell-cms/inkwell/internal/pkg/cron"
	"go.uber.org/zap"
)

type scheduledPublisher interface {
	PublishDue(ctx context.Context) (int, error)
}

type tokenPurger interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type sessionPurger interface {
	PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

type reindexer interface {
	Reindex(ctx context.Context) (int, error)
}

type cronDeps struct {
	posts    scheduledPublisher
	tokens   tokenPurger
	sessions sessionPurger
	search   reindexer
	// reindex enables the nightly full rebuild of an external search index.
	reindex bool
	now     func() time.Time
}

// registerCronJobs registers all scheduled background jobs.
func registerCronJobs(sched *pkgcron.Scheduler, deps cronDeps, logger *zap.Logger) {
	log := logger.Named("CronService")
	now := deps.now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}

	sched.Register(pkgcron.Job{
		Name:        "publish_scheduled",
		Description: "publish posts whose scheduled time has passed",
		Interval:    time.Minute,
		RunOnStart:  true,
		Fn: func(ctx context.Context) error {
			n, err := deps.posts.PublishDue(ctx)
			if err != nil {
				return err
			}
			if n > 0 {
				log.Info("scheduled posts published", zap.Int("count", n))
			}
			return nil
		},
	})

	sched.Register(pkgcron.Job{
		Name:        "purge_tokens",
		Description: "delete expired password reset and verification tokens",
		Interval:    time.Hour,
		Fn: func(ctx context.Context) error {
			n, err := deps.tokens.DeleteExpired(ctx, now())
			if err != nil {
				return err
			}
			log.Debug("expired tokens purged", zap.Int64("count", n))
			return nil
		},
	})

	sched.Register(pkgcron.Job{
		Name:        "purge_sessions",
		Description: "delete sessions that expired or were revoked",
		Interval:    time.Hour,
		Fn: func(ctx context.Context) error {
			n, err := deps.sessions.PurgeExpired(ctx, now())
			if err != nil {
				return err
			}
			log.Debug("expired sessions purged", zap.Int64("count", n))
			return nil
		},
	})

	if deps.reindex && deps.search != nil {
		sched.Register(pkgcron.Job{
			Name:        "reindex_search",
			Description: "rebuild the search index from published content",
			Interval:    24 * time.Hour,
			Fn: func(ctx context.Context) error {
				n, err := deps.search.Reindex(ctx)
				if err != nil {
					return err
				}
				log.Info("search index rebuilt", zap.Int("documents", n))
				return nil
			},
		})
	}
}
