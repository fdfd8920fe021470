package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rpggio/saraban/internal/blobstore"
	"github.com/rpggio/saraban/internal/config"
	"github.com/rpggio/saraban/internal/directory"
	"github.com/rpggio/saraban/internal/domain/activity"
	"github.com/rpggio/saraban/internal/domain/document"
	"github.com/rpggio/saraban/internal/domain/registry"
	"github.com/rpggio/saraban/internal/domain/routing"
	"github.com/rpggio/saraban/internal/domain/tasks"
	"github.com/rpggio/saraban/internal/mcp"
	"github.com/rpggio/saraban/internal/metrics"
	"github.com/rpggio/saraban/internal/notify"
	"github.com/rpggio/saraban/internal/redisstore"
	"github.com/rpggio/saraban/internal/sqlite"
)

// app holds the wired services of one server process.
type app struct {
	db        *sqlite.DB
	keys      *sqlite.APIKeyRepository
	documents *document.Service
	registry  *registry.Service
	tasks     *tasks.Service
	activity  *activity.Service
	gatherer  *prometheus.Registry
	closers   []func() error
	logger    *slog.Logger
}

func openDB(cfg config.Config) (*sqlite.DB, error) {
	if err := ensureDBDir(cfg.DB.Path); err != nil {
		return nil, fmt.Errorf("prepare database path: %w", err)
	}
	db, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		return nil, err
	}
	if err := db.RunMigrations(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func buildApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app, error) {
	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}
	a := &app{db: db, keys: sqlite.NewAPIKeyRepository(db), logger: logger}
	a.closers = append(a.closers, db.Close)

	if err := a.wire(ctx, cfg); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) wire(ctx context.Context, cfg config.Config) error {
	logger := a.logger

	personnel := directory.NewPersonnel(nil)
	if path := cfg.Directory.PersonnelPath; path != "" {
		loaded, err := directory.LoadPersonnel(path)
		if err != nil {
			return err
		}
		personnel = loaded
	} else {
		logger.Warn("no personnel file configured, routing will find no approvers")
	}

	policies := directory.NewPolicies(directory.DefaultPolicies())
	if path := cfg.Directory.PoliciesPath; path != "" {
		loaded, err := directory.LoadPolicies(path)
		if err != nil {
			return err
		}
		policies = loaded
	}
	resolver := routing.NewResolver(personnel, policies, logger)

	a.gatherer = prometheus.NewRegistry()
	a.gatherer.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(a.gatherer)

	documentRepo := sqlite.NewDocumentRepository(a.db)
	var numbered document.NumberedRepository = documentRepo
	var sequences registry.SequenceStore = sqlite.NewSequenceRepository(a.db)
	if cfg.Redis.URL != "" {
		client, err := redisstore.New(ctx, cfg.Redis.URL)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, client.Close)
		sequences = redisstore.NewSequenceStore(client, cfg.Redis.Prefix)
		numbered = nil
		logger.Info("registry sequences stored in redis", "prefix", cfg.Redis.Prefix)
	}
	a.registry = registry.NewService(sequences, cfg.Registry.Templates, m, logger)

	var blobs document.BlobStore = sqlite.NewBlobRepository(a.db)
	if cfg.Blob.Backend == "s3" {
		s3cfg := cfg.Blob.S3
		store, err := blobstore.NewS3Store(ctx, blobstore.S3Config{
			Bucket:          s3cfg.Bucket,
			Prefix:          s3cfg.Prefix,
			Region:          s3cfg.Region,
			Endpoint:        s3cfg.Endpoint,
			AccessKeyID:     s3cfg.AccessKeyID,
			SecretAccessKey: s3cfg.SecretAccessKey,
			UsePathStyle:    s3cfg.UsePathStyle,
		})
		if err != nil {
			return err
		}
		blobs = store
		logger.Info("blobs stored in s3", "bucket", s3cfg.Bucket)
	}

	activityRepo := sqlite.NewActivityRepository(a.db)

	opts := []document.Option{
		document.WithSearch(sqlite.NewSearchRepository(a.db)),
		document.WithBlobStore(blobs),
		document.WithMetrics(m),
		document.WithScopeCalendar(cfg.Registry.Calendar),
		document.WithMaxRetries(cfg.Engine.MaxRetries),
	}
	if numbered != nil {
		opts = append(opts, document.WithNumberedRepository(numbered))
	}
	if cfg.NATS.URL != "" {
		publisher, err := notify.Connect(cfg.NATS.URL, logger)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, publisher.Close)
		opts = append(opts, document.WithEventPublisher(publisher))
		logger.Info("publishing document events to nats")
	}

	a.activity = activity.NewService(activityRepo, logger)
	a.documents = document.NewService(documentRepo, resolver, a.registry, a.activity, logger, opts...)
	a.tasks = tasks.NewService(documentRepo, logger)
	return nil
}

func (a *app) services() mcp.Services {
	return mcp.Services{
		Documents: a.documents,
		Registry:  a.registry,
		Tasks:     a.tasks,
		Activity:  a.activity,
	}
}

// Close releases connections in reverse order of creation.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func ensureDBDir(path string) error {
	if path == ":memory:" || path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
