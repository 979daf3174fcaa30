// Package main runs the document layer HTTP server.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	app "github.com/docudrive/document-layer/internal/app"
	"github.com/docudrive/document-layer/internal/app/httpapi"
	"github.com/docudrive/document-layer/internal/app/metrics"
	"github.com/docudrive/document-layer/internal/app/storage/postgres"
	"github.com/docudrive/document-layer/internal/config"
	"github.com/docudrive/document-layer/internal/middleware"
	"github.com/docudrive/document-layer/pkg/logger"
)

func main() {
	envFile := flag.String("env-file", ".env", "Path to an optional .env file")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !os.IsNotExist(err) {
		logger.NewDefault("server").WithError(err).Warn("load env file")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.NewDefault("server").WithError(err).Error("invalid configuration")
		os.Exit(1)
	}
	log := logger.New("server", os.Stderr, cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stores := app.Stores{}
	if cfg.DatabaseURL != "" {
		db, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			log.WithError(err).Error("connect to postgres")
			os.Exit(1)
		}
		defer db.Close()

		if err := postgres.RunMigrations(db); err != nil {
			log.WithError(err).Error("apply migrations")
			os.Exit(1)
		}
		pg := postgres.New(db)
		stores = app.Stores{Users: pg, Tenants: pg, Credentials: pg, Files: pg, Comments: pg}
		log.Info("using postgres storage")
	} else {
		log.Warn("DATABASE_URL not set; using in-memory storage")
	}

	application, err := app.New(ctx, stores, app.Config{
		MasterKey:          cfg.MasterKey,
		JWTSecret:          cfg.JWTSecret,
		JWTTTL:             cfg.JWTTTL,
		SuperadminEmail:    cfg.SuperadminEmail,
		SuperadminPassword: cfg.SuperadminPassword,
	}, log)
	if err != nil {
		log.WithError(err).Error("initialise application")
		os.Exit(1)
	}

	auth := middleware.NewAuthMiddleware(application.Accounts, log.WithField("component", "auth"),
		[]string{"/health", "/metrics", "/auth/register", "/auth/login"})
	cors := middleware.NewCORSMiddleware(cfg.CORSOrigins)
	limiter := middleware.NewRateLimiter(cfg.RateLimitPerSecond, cfg.RateLimitBurst,
		log.WithField("component", "ratelimit"))
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				limiter.Cleanup(10 * time.Minute)
			}
		}
	}()

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/", httpapi.NewHandler(application, log.WithField("component", "httpapi")))

	handler := cors.Handler(auth.Handler(limiter.Handler(metrics.InstrumentHandler(mux))))

	server := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.WithField("addr", cfg.ListenAddr).Info("server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("server error")
			cancel()
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	select {
	case <-stop:
		log.Info("shutdown signal received")
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("graceful shutdown incomplete")
	}
	log.Info("server stopped")
}
