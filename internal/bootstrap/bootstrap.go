// Package bootstrap monta as dependências compartilhadas pela API e pelo worker.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"gorm.io/gorm"

	"github.com/rafabene/avantpro-avatars/internal/domain/ports"
	"github.com/rafabene/avantpro-avatars/internal/infrastructure/config"
	"github.com/rafabene/avantpro-avatars/internal/infrastructure/events"
	"github.com/rafabene/avantpro-avatars/internal/infrastructure/httpfetch"
	"github.com/rafabene/avantpro-avatars/internal/infrastructure/metrics"
	"github.com/rafabene/avantpro-avatars/internal/infrastructure/persistence/postgres"
	"github.com/rafabene/avantpro-avatars/internal/infrastructure/renditions"
	"github.com/rafabene/avantpro-avatars/internal/infrastructure/storage"
	"github.com/rafabene/avantpro-avatars/internal/infrastructure/storage/blob"
	"github.com/rafabene/avantpro-avatars/internal/services"
)

// App reúne os serviços prontos para uso
type App struct {
	Config   *config.Config
	Logger   ports.Logger
	DB       *gorm.DB
	Storer   blob.Storer
	Warmer   *renditions.Warmer
	Registry *prometheus.Registry

	Resolver       *services.AvatarResolver
	Refresher      *services.GravatarRefresher
	Importer       *services.URLImporter
	Preferences    *services.AvatarPreferences
	Sweeper        *services.ConsistencySweeper
	StaleRefresher *services.StaleGravatarRefresher

	closers []func()
}

// New conecta ao banco e monta os serviços a partir da configuração.
// O Warmer é criado parado; quem precisa dele chama Start.
func New(ctx context.Context, cfg *config.Config, logger ports.Logger) (*App, error) {
	db, err := postgres.NewDatabaseConnection(&cfg.Database, cfg.Logging.Level, logger)
	if err != nil {
		return nil, err
	}
	if err := postgres.AutoMigrate(db); err != nil {
		return nil, err
	}
	return NewWithDB(ctx, cfg, db, logger)
}

// NewWithDB monta os serviços sobre uma conexão já aberta
func NewWithDB(ctx context.Context, cfg *config.Config, db *gorm.DB, logger ports.Logger) (*App, error) {
	app := &App{Config: cfg, Logger: logger, DB: db}

	storer, err := blob.New(ctx, cfg.Uploads, cfg.S3)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize uploads backend: %w", err)
	}
	app.Storer = storer
	logger.Info("uploads backend initialized", "backend", cfg.Uploads.Backend, "enabled", cfg.Uploads.Enabled)

	// Repositories
	userRepo := postgres.NewUserRepository(db)
	avatarRepo := postgres.NewUserAvatarRepository(db)
	uploadRepo := postgres.NewUploadRepository(db)
	optimizedRepo := postgres.NewOptimizedImageRepository(db)
	uow := postgres.NewUnitOfWork(db)

	store := storage.NewUploadStore(
		storer, uploadRepo, optimizedRepo, avatarRepo, userRepo, uow, cfg.Uploads.Enabled, logger,
	)
	deriver := renditions.NewDeriver(storer, uploadRepo, optimizedRepo, logger)
	app.Warmer = renditions.NewWarmer(deriver, cfg.Avatars.RenditionWorkers, cfg.Avatars.RenditionQueueSize, logger)

	fetcher := httpfetch.New(httpfetch.Options{
		Timeout:              cfg.Fetcher.Timeout,
		AllowPrivateNetworks: cfg.Fetcher.AllowPrivateNetworks,
		MaxRedirects:         cfg.Fetcher.MaxRedirects,
		UserAgent:            cfg.Fetcher.UserAgent,
	}, logger)

	deps := services.Deps{
		Users:      userRepo,
		Avatars:    avatarRepo,
		Uploads:    uploadRepo,
		Optimized:  optimizedRepo,
		Store:      store,
		Fetcher:    fetcher,
		Renditions: deriver,
		Scheduler:  app.Warmer,
		UoW:        uow,
		Clock:      ports.SystemClock,
		Events:     app.publisher(cfg.NATS),
		Metrics:    app.metrics(cfg.Metrics),
		Locks:      services.NewUserLocks(),
		Logger:     logger,
	}

	sizes := cfg.Avatars.Sizes
	maxBytes := cfg.Avatars.MaxImageBytes()

	app.Resolver = services.NewAvatarResolver(deps, services.ResolverConfig{
		Sizes:              sizes,
		DefaultURLTemplate: cfg.Avatars.DefaultURLTemplate,
	})
	app.Refresher = services.NewGravatarRefresher(deps, services.GravatarConfig{
		BaseURL:     cfg.Avatars.GravatarBaseURL,
		Sizes:       sizes,
		MaxBytes:    maxBytes,
		SystemEmail: cfg.Avatars.SystemEmail,
	})
	app.Importer = services.NewURLImporter(deps, maxBytes)
	app.Preferences = services.NewAvatarPreferences(deps)
	app.Sweeper = services.NewConsistencySweeper(deps, services.SweeperConfig{
		Sizes:                 sizes,
		PageSize:              cfg.Sweeper.PageSize,
		MaxRenditionsToRemove: cfg.Sweeper.MaxRenditionsToRemove,
		ReclaimGracePeriod:    cfg.Sweeper.ReclaimGracePeriod,
	})
	app.StaleRefresher = services.NewStaleGravatarRefresher(deps, app.Refresher, services.StaleRefreshConfig{
		Enabled:       cfg.Avatars.AutomaticallyDownloadGravatars,
		StaleAfter:    cfg.Sweeper.StaleAfter,
		RatePerSecond: cfg.Sweeper.RefreshRatePerSecond,
		PageSize:      cfg.Sweeper.PageSize,
	})

	return app, nil
}

// Close encerra as conexões abertas por New
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	if a.DB == nil {
		return
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// publisher usa NATS quando NATS_URL está definido; sem conexão os eventos são descartados
func (a *App) publisher(cfg config.NATSConfig) ports.EventPublisher {
	if cfg.URL == "" {
		return events.NopPublisher{}
	}
	publisher, err := events.NewNatsPublisher(cfg.URL, cfg.Subject, a.Logger)
	if err != nil {
		a.Logger.Warn("nats unavailable, avatar events disabled", "url", cfg.URL, "error", err)
		return events.NopPublisher{}
	}
	a.closers = append(a.closers, publisher.Close)
	return publisher
}

func (a *App) metrics(cfg config.MetricsConfig) ports.AvatarMetrics {
	if !cfg.Enabled {
		return metrics.Nop{}
	}
	a.Registry = prometheus.NewRegistry()
	a.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return metrics.MustNew(a.Registry)
}
