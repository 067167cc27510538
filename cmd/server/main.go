package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/Abhishekpandey1786/flytant-sub000/internal/config"
	"github.com/Abhishekpandey1786/flytant-sub000/internal/database"
	"github.com/Abhishekpandey1786/flytant-sub000/internal/handler"
	"github.com/Abhishekpandey1786/flytant-sub000/internal/middleware"
	"github.com/Abhishekpandey1786/flytant-sub000/internal/service"
	"github.com/Abhishekpandey1786/flytant-sub000/internal/store"
)

func main() {
	cfg := config.Load()

	log := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.IsProduction() {
		log = log.Level(zerolog.InfoLevel)
	}

	// Store
	var msgStore store.MessageStore
	switch cfg.Driver {
	case "sqlite":
		st, err := store.NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to open sqlite store")
		}
		msgStore = st
	default:
		pool, err := database.NewPool(context.Background(), cfg.DatabaseURL, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		if err := database.RunMigrations(context.Background(), pool, log); err != nil {
			log.Fatal().Err(err).Msg("failed to run migrations")
		}
		msgStore = store.NewPostgresStore(pool)
	}
	defer msgStore.Close()

	// Services
	presence := service.NewPresence()
	hub := service.NewHub(presence, log)
	messaging := service.NewMessaging(msgStore, hub, presence, log)

	// Fiber app
	app := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
		BodyLimit:    1 * 1024 * 1024, // 1MB
	})

	app.Use(recover.New())
	app.Use(middleware.Logger(log))

	// Health & metrics
	healthH := handler.NewHealthHandler(msgStore, hub)
	app.Get("/health", healthH.Health)
	app.Get("/ready", healthH.Ready)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// API v1 (JWT-protected)
	v1 := app.Group("/api/v1", middleware.Auth(cfg.JWTSecret))
	chatH := handler.NewChatHandler(messaging, log)
	v1.Get("/chat/history", middleware.RateLimit(60, time.Minute), chatH.GetHistory)

	// WebSocket
	wsH := handler.NewWSHandler(hub, messaging, cfg.JWTSecret, log)
	app.Get("/ws", wsH.Upgrade)

	// Start hub
	go hub.Run()

	// Retention janitor
	stopJanitor := make(chan struct{})
	if cfg.RetentionDays > 0 {
		if ret, ok := msgStore.(store.Retention); ok {
			go runJanitor(ret, cfg.RetentionDays, stopJanitor, log)
		}
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Str("driver", cfg.Driver).Msg("messaging backend running")

	<-quit
	log.Info().Msg("shutting down")
	close(stopJanitor)
	_ = app.ShutdownWithTimeout(5 * time.Second)
	hub.Shutdown()
	log.Info().Msg("server stopped")
}

func runJanitor(ret store.Retention, days int, stop <-chan struct{}, log zerolog.Logger) {
	ticker := time.NewTicker(6 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			deleted, err := ret.DeleteOlderThan(ctx, days)
			cancel()
			if err != nil {
				log.Error().Err(err).Msg("retention sweep failed")
				continue
			}
			if deleted > 0 {
				log.Info().Int64("deleted", deleted).Int("days", days).Msg("retention sweep")
			}
		case <-stop:
			return
		}
	}
}
