package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/inkwell-cms/inkwell/internal/config"
	"github.com/inkwell-cms/inkwell/internal/database"
	"github.com/inkwell-cms/inkwell/internal/modules/search"
	"github.com/inkwell-cms/inkwell/internal/repository"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type globalFlags struct {
	configPath string
	envFile    string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:           "cmsctl",
		Short:         "Maintenance commands for an Inkwell site",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&flags.configPath, "config", "c", config.DefaultConfigPath, "path to YAML config file")
	root.PersistentFlags().StringVar(&flags.envFile, "env-file", ".env", "optional dotenv file with CMS_* overrides")
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "log progress to stderr")

	root.AddCommand(
		newMigrateCmd(flags),
		newUserCmd(flags),
		newPublishCmd(flags),
		newReindexCmd(flags),
	)
	return root
}

// env is what every subcommand needs: configuration, a logger and the database.
type env struct {
	cfg    *config.AppConfig
	log    *zap.Logger
	db     *gorm.DB
	closer func()
}

// open loads the configuration and connects, migrating the schema first.
func (f *globalFlags) open() (*env, error) {
	if err := godotenv.Load(f.envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", f.envFile, err)
	}
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, err
	}
	log := zap.NewNop()
	if f.verbose {
		if log, err = zap.NewDevelopment(); err != nil {
			return nil, err
		}
	}
	db, err := database.Connect(cfg, true)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	return &env{cfg: cfg, log: log, db: db, closer: func() {
		_ = database.Close(db)
		_ = log.Sync()
	}}, nil
}

// searchService mirrors the server: elasticsearch when configured, the
// database otherwise.
func (e *env) searchService(ctx context.Context) (*search.Service, error) {
	posts := repository.NewPostRepository(e.db)
	pages := repository.NewPageRepository(e.db)
	events := repository.NewEventRepository(e.db)

	backend := search.NewDatabaseBackend(posts, pages, events)
	if e.cfg.Search.Driver == config.SearchElasticsearch {
		es, err := search.NewElasticBackend(ctx, e.cfg.Search.Elasticsearch)
		if err != nil {
			return nil, fmt.Errorf("elasticsearch: %w", err)
		}
		backend = es
	}
	return search.NewService(backend, posts, pages, events, search.WithLogger(e.log)), nil
}
