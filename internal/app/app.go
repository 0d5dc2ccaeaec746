// Package app wires configuration, stores and the photo lifecycle into runnable processes.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"photoapi/docs"
	"photoapi/internal/config"
	"photoapi/internal/database"
	"photoapi/internal/database/migration"
	handlers "photoapi/internal/http/handler"
	"photoapi/internal/http/middleware"
	"photoapi/internal/logging"
	"photoapi/internal/metrics"
	tracing "photoapi/internal/otel"
	"photoapi/internal/repository"
	"photoapi/internal/repository/memory"
	"photoapi/internal/repository/postgres"
	"photoapi/internal/service"
	"photoapi/internal/storage"
	"photoapi/internal/validation"
)

// multipartOverhead leaves room for boundaries and form fields around the largest accepted file.
const multipartOverhead = 1 << 20

// App holds the wired components shared by cmd/api and cmd/renew.
type App struct {
	Config   *config.AppConfig
	Log      zerolog.Logger
	DB       *sql.DB // nil when METADATA_DRIVER=memory
	Registry *prometheus.Registry
	Service  service.PhotoService

	closers []func(context.Context) error
}

// New connects the configured stores and builds the photo service.
// The caller must Close the returned App.
func New(ctx context.Context, cfg *config.AppConfig, log zerolog.Logger) (*App, error) {
	a := &App{
		Config:   cfg,
		Log:      log,
		Registry: prometheus.NewRegistry(),
	}

	shutdown, err := tracing.Init(ctx, log)
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}
	a.closers = append(a.closers, shutdown)

	if err := a.Registry.Register(collectors.NewGoCollector()); err != nil {
		return nil, err
	}
	if err := a.Registry.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return nil, err
	}
	m, err := metrics.New(a.Registry)
	if err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	repo, err := a.newRepository(ctx)
	if err != nil {
		_ = a.Close(ctx)
		return nil, err
	}

	store, err := newStorage(ctx, cfg.Storage)
	if err != nil {
		_ = a.Close(ctx)
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	gateway := storage.NewGateway(store, cfg.Photo.URLValidity,
		storage.WithLogger(log),
		storage.WithMetrics(m),
	)
	validator := validation.New(cfg.Photo.AllowedContentTypes, cfg.Photo.MaxUploadBytes)

	a.Service = service.NewPhotoService(validator, gateway, repo,
		service.WithLogger(log),
		service.WithMetrics(m),
		service.WithKeyPrefix(cfg.Storage.KeyPrefix),
	)

	log.Info().
		Str("metadata_driver", cfg.MetadataDriver).
		Str("storage_driver", cfg.Storage.Driver).
		Str("bucket", cfg.Storage.Bucket).
		Dur("url_validity", gateway.DefaultValidity()).
		Msg("app_initialized")

	return a, nil
}

func (a *App) newRepository(ctx context.Context) (repository.PhotoRepository, error) {
	switch a.Config.MetadataDriver {
	case config.DriverMemory:
		return memory.NewPhotoMemory(), nil
	case config.DriverPostgres:
		db, err := database.NewPostgres(ctx, a.Config.Database)
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		a.DB = db
		a.closers = append(a.closers, func(context.Context) error { return db.Close() })

		if err := migration.EnsureMigrated(ctx, db, a.Log, a.Config.Database.Host); err != nil {
			return nil, fmt.Errorf("migrate database: %w", err)
		}
		return postgres.NewPhotoPostgres(db), nil
	default:
		return nil, fmt.Errorf("unsupported metadata driver %q", a.Config.MetadataDriver)
	}
}

func newStorage(ctx context.Context, cfg config.StorageConfig) (storage.Storage, error) {
	switch cfg.Driver {
	case config.DriverMinIO:
		return storage.NewMinIO(ctx, cfg)
	case config.DriverS3:
		return storage.NewS3(ctx, cfg)
	case config.DriverMemory:
		return storage.NewMemory(cfg.Bucket), nil
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Driver)
	}
}

// HTTP builds the fiber application serving the photo API, metrics and Swagger UI.
func (a *App) HTTP() (*fiber.App, error) {
	app := fiber.New(fiber.Config{
		ErrorHandler:          handlers.ErrorHandler(),
		BodyLimit:             int(a.Config.Photo.MaxUploadBytes) + multipartOverhead,
		DisableStartupMessage: true,
	})

	prom, err := middleware.NewPrometheusMiddleware(a.Registry)
	if err != nil {
		return nil, fmt.Errorf("register http metrics: %w", err)
	}

	app.Use(otelfiber.Middleware(otelfiber.WithNext(func(c *fiber.Ctx) bool {
		return c.Path() == middleware.MetricsPath
	})))
	app.Use(middleware.RequestID())
	app.Use(middleware.ContextLogger(a.Log))
	app.Use(middleware.Logger(a.Log))
	app.Use(prom.Handler())

	app.Get(middleware.MetricsPath, adaptor.HTTPHandler(promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{})))

	handlers.RegisterRoutes(app, a.DB, a.Service)

	// Swagger UI with dynamic host and scheme
	app.Get("/swagger/*", func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.TrimSpace(strings.Split(proto, ",")[0])
		}

		docs.SwaggerInfo.Host = c.Get("Host")
		docs.SwaggerInfo.Schemes = []string{scheme}

		return swagger.HandlerDefault(c)
	})

	return app, nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i](ctx))
	}
	a.closers = nil
	return errors.Join(errs...)
}

// NewLogger builds the root logger from cfg.
func NewLogger(cfg *config.AppConfig) (zerolog.Logger, error) {
	return logging.New(cfg.LogLevel, nil, cfg.Location())
}
