package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"molrelay/internal/config"
	"molrelay/internal/credstore"
	handlers "molrelay/internal/http/handler"
	"molrelay/internal/http/middleware"
	"molrelay/internal/otel"
	"molrelay/internal/resolver"
	"molrelay/internal/service"
	"molrelay/internal/storage"
)

func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()

	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx := context.Background()

	shutdownTracing, err := otel.Init(ctx, log)
	if err != nil {
		log.Fatal("failed to initialize tracing", zap.Error(err))
	}

	// Backing store for staged molecule files (local directory or MinIO)
	store, err := storage.New(cfg)
	if err != nil {
		log.Fatal("failed to initialize backing store", zap.Error(err))
	}

	// Tenant registry persists next to the staged files: a flat file for the
	// local driver, a bucket object for the remote one.
	var persister credstore.Persister
	switch cfg.Storage.Driver {
	case config.DriverMinIO:
		persister, err = credstore.NewMinIOPersister(cfg.MinIO, cfg.Storage.Registry)
		if err != nil {
			log.Fatal("failed to initialize registry persister", zap.Error(err))
		}
	default:
		persister = credstore.NewFilePersister(afero.NewOsFs(), cfg.Storage.Registry)
	}

	creds := credstore.New(persister, log)
	if err := creds.LoadAll(ctx); err != nil {
		log.Fatal("failed to load tenant registry", zap.Error(err))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	links := service.NewLinkService(store, creds, resolver.NewSlack(), log, reg)

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
	})

	app.Use(middleware.RequestID())
	app.Use(middleware.Logger(log))
	app.Use(otelfiber.Middleware())

	promMw, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		log.Fatal("failed to register http metrics", zap.Error(err))
	}
	app.Use(promMw.Handler())

	// The local driver serves the staged molecules itself.
	if cfg.Storage.Driver != config.DriverMinIO {
		app.Static("/"+storage.MountPoint, cfg.Storage.LocalDir)
	}

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	handlers.RegisterRoutes(app, handlers.Deps{
		Links:    links,
		Creds:    creds,
		Exchange: handlers.NewSlackOAuthExchange(cfg.Slack),
	})

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatal("server stopped", zap.Error(err))
		}
	}()
	log.Info("molrelay running", zap.String("port", cfg.Port), zap.String("driver", cfg.Storage.Driver))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	// Stop accepting requests, then make the tenant registry durable before
	// exiting. In-flight transfers are abandoned; the next sweep reclaims
	// anything partially written.
	log.Info("shutting down")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Error("server shutdown failed", zap.Error(err))
	}

	flushCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := creds.FlushAll(flushCtx); err != nil {
		log.Error("tenant registry flush failed", zap.Error(err))
	}
	if err := shutdownTracing(flushCtx); err != nil {
		log.Error("tracing shutdown failed", zap.Error(err))
	}
}
