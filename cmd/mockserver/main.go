package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/scim-mock-server/internal/config"
	"github.com/noah-isme/scim-mock-server/internal/database"
	"github.com/noah-isme/scim-mock-server/internal/handler"
	"github.com/noah-isme/scim-mock-server/internal/journal"
	"github.com/noah-isme/scim-mock-server/internal/middleware"
	"github.com/noah-isme/scim-mock-server/internal/observability"
	"github.com/noah-isme/scim-mock-server/internal/router"
	"github.com/noah-isme/scim-mock-server/internal/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat, os.Stdout).
		With().Str("service", cfg.AppName).Logger()

	var mirrors []journal.Mirror

	if cfg.RedisURL != "" {
		redisClient, err := database.ConnectRedis(context.Background(), cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
		mirrors = append(mirrors, journal.NewRedisMirror(redisClient, cfg.ChannelBase))
	}

	if cfg.NATSURL != "" {
		natsConn, err := database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Close()
		mirrors = append(mirrors, journal.NewNATSMirror(natsConn, cfg.ChannelBase))
	}

	records, err := journal.New(cfg.LogDir,
		journal.WithLogger(logger),
		journal.WithMirrors(mirrors...),
	)
	if err != nil {
		log.Fatalf("failed to prepare journal directory: %v", err)
	}

	handlers := make([]*handler.ResourceHandler, 0, len(cfg.Resources))
	for _, kind := range cfg.Resources {
		handlers = append(handlers, handler.NewResourceHandler(kind, records, logger))
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		ErrorHandler: utils.ErrorHandler,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{ResourceHandlers: handlers})

	logger.Info().
		Str("address", cfg.HTTPAddress()).
		Bool("tls", cfg.TLSEnabled()).
		Str("log_dir", records.Dir()).
		Int("resources", len(handlers)).
		Msg("mock server starting")

	go func() {
		var serveErr error
		if cfg.TLSEnabled() {
			serveErr = app.ListenTLS(cfg.HTTPAddress(), cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			serveErr = app.Listen(cfg.HTTPAddress())
		}
		if serveErr != nil {
			log.Fatalf("failed to start server: %v", serveErr)
		}
	}()

	waitForShutdown(app, cfg.ShutdownTimeout, logger)
}

func waitForShutdown(app *fiber.App, timeout time.Duration, logger zerolog.Logger) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("server stopped")
}
