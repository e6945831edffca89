package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gitea.jw6.us/james/shalendar/internal/access"
	"gitea.jw6.us/james/shalendar/internal/api"
	"gitea.jw6.us/james/shalendar/internal/auth"
	"gitea.jw6.us/james/shalendar/internal/calendars"
	"gitea.jw6.us/james/shalendar/internal/config"
	"gitea.jw6.us/james/shalendar/internal/days"
	httpserver "gitea.jw6.us/james/shalendar/internal/http"
	"gitea.jw6.us/james/shalendar/internal/logging"
	"gitea.jw6.us/james/shalendar/internal/notify"
	"gitea.jw6.us/james/shalendar/internal/replication"
	"gitea.jw6.us/james/shalendar/internal/store"
	"gitea.jw6.us/james/shalendar/internal/tickets"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		bootLogger := logging.New(os.Stderr, "info", "json")
		bootLogger.Fatal().Err(err).Msg("failed to load config")
	}
	logger := logging.New(os.Stdout, cfg.Log.Level, cfg.Log.Format)
	for _, w := range cfg.Warnings() {
		logger.Warn().Msg(w)
	}
	logger.Info().Msg("starting shalendar server")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stor, err := store.Open(ctx, store.Dialect(cfg.DB.Driver), cfg.DB.DSN)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.DB.Driver).Msg("failed to open database")
	}
	defer stor.Close()

	if err := store.ApplyMigrations(ctx, stor); err != nil {
		logger.Fatal().Err(err).Msg("failed to apply migrations")
	}

	resolver := access.NewResolver(stor.Permissions, stor.Calendars)
	registry := notify.NewRegistry()
	hub := notify.NewHub(notify.HubConfig{
		Tracker:        registry,
		Authorizer:     resolver,
		UserID:         auth.UserIDFromContext,
		AllowedOrigins: cfg.AllowedOrigins,
		Logger:         logger.With().Str("component", "hub").Logger(),
	})
	notifier := notify.NewNotifier(registry, hub, logger.With().Str("component", "notifier").Logger())

	calendarService := calendars.NewService(stor, resolver, notifier, logger)
	authService := auth.NewService(stor, auth.NewSessionManager(cfg), resolver, calendarService, logger)

	handler := api.NewHandler(api.Services{
		Auth:        authService,
		Calendars:   calendarService,
		Days:        days.NewManager(stor, resolver),
		Tickets:     tickets.NewService(stor, resolver, notifier),
		Replication: replication.NewService(stor, resolver, notifier, logger),
	})

	r := httpserver.NewRouter(ctx, httpserver.Deps{
		Config: cfg,
		Store:  stor,
		Auth:   authService,
		API:    handler,
		Hub:    hub,
		Logger: logger,
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.ListenAddr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
}
