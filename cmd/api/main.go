package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cardapi/internal/config"
	"cardapi/internal/database"
	"cardapi/internal/database/migration"
	handlers "cardapi/internal/http/handler"
	"cardapi/internal/http/middleware"
	"cardapi/internal/jsonlog"
	"cardapi/internal/otel"
	"cardapi/internal/photo"
	"cardapi/internal/repository/postgres"
	"cardapi/internal/service"
	"cardapi/internal/storage"
)

// @title Contact Card API
// @version 1.0
// @description Serves contact cards as downloadable vCard 3.0 files.
// @BasePath /
func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()
	log := jsonlog.Stdout(cfg.Location())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, cfg, log)
	stop()
	if err != nil {
		log.Error("server_failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
}

// run serves until ctx is canceled. Every resource it opens is released
// before it returns, on success and on error.
func run(ctx context.Context, cfg *config.AppConfig, log *jsonlog.Logger) error {
	shutdownTracing, err := otel.Init(ctx, "cardapi", log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(sctx)
	}()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	if err := migration.EnsureMigrated(ctx, db, log, cfg.Database.Host); err != nil {
		return err
	}

	objStore, err := storage.NewMinIO(ctx, cfg.MinIO)
	if err != nil {
		return fmt.Errorf("init object storage: %w", err)
	}

	metrics, err := service.NewMetrics(prometheus.DefaultRegisterer)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	encoder := photo.NewEncoder(&photo.Resolver{
		HTTP: photo.NewHTTPSource(photo.HTTPOptions{
			AllowPrivate: cfg.Export.PhotoAllowPrivate,
			AllowedHosts: cfg.Export.PhotoAllowedHosts,
			MaxRedirects: cfg.Export.PhotoMaxRedirects,
		}),
		Storage: &photo.StorageSource{Store: objStore},
		File:    &photo.FileSource{},
	}, photo.Options{
		Timeout:   cfg.Export.PhotoTimeout,
		MaxBytes:  cfg.Export.PhotoMaxBytes,
		MaxPixels: cfg.Export.PhotoMaxPixels,
		Quality:   cfg.Export.JPEGQuality,
	})
	exporter := service.NewExporter(encoder, service.ExportOptions{
		PhotoPolicy: cfg.Export.PhotoPolicy,
		Filename:    cfg.Export.Filename,
	}, metrics, log)

	contactRepo := postgres.NewContactPostgres(db)
	contactSvc := service.NewContactService(objStore, contactRepo, exporter, service.ContactFromConfig(cfg.Contact), log)

	app := fiber.New(fiber.Config{
		ErrorHandler:          handlers.ErrorHandler(),
		DisableStartupMessage: true,
	})

	promMiddleware, err := middleware.NewPrometheusMiddleware(prometheus.DefaultRegisterer)
	if err != nil {
		return fmt.Errorf("register http metrics: %w", err)
	}

	app.Use(otelfiber.Middleware())
	app.Use(middleware.RequestID())
	app.Use(middleware.Logger(cfg.Location()))
	app.Use(promMiddleware.Handler())

	handlers.RegisterRoutes(app, db, contactSvc)
	handlers.RegisterSwagger(app)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	listenErr := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		log.Info("server_starting", map[string]any{"addr": addr, "photo_policy": cfg.Export.PhotoPolicy})
		listenErr <- app.Listen(addr)
	}()

	select {
	case err := <-listenErr:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
		log.Info("server_stopping", nil)
		return app.ShutdownWithTimeout(10 * time.Second)
	}
}
