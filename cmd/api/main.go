package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"reseller-dashboard/internal/api"
	"reseller-dashboard/internal/conf"
	"reseller-dashboard/internal/database"
	"reseller-dashboard/internal/repository"
	"reseller-dashboard/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func main() {
	// 1. Config + logging
	cfg, err := conf.LoadConfig()
	if err != nil {
		logrus.Fatalf("Config error: %v", err)
	}
	conf.SetupLogger(cfg.Log)
	gin.SetMode(cfg.Server.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. Database
	mongoClient, err := database.Connect(ctx, cfg.MongoDB)
	if err != nil {
		logrus.Fatalf("Database error: %v", err)
	}
	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			logrus.WithError(err).Warn("mongo disconnect")
		}
	}()
	db := mongoClient.Database(cfg.MongoDB.Database)

	// 3. Dependencies: repo -> services -> handlers
	loc := cfg.Dashboard.Location()
	settingsRepo := repository.NewMongoSettingsRepo(db)

	backend := service.NewBackendClient(cfg.Backend.BaseURL, cfg.Backend.APIToken, cfg.Backend.Timeout)
	aggregator := service.NewAggregator(cfg.Dashboard.ExpiryWindowDays, cfg.Dashboard.RecentOrdersLimit)
	session := service.NewDashboardSession(backend, aggregator, loc)

	notifier := service.NewNotifierService(settingsRepo)
	defer notifier.Stop()

	cronService := service.NewCronService(settingsRepo, session, notifier, loc)
	cronService.Start()
	defer cronService.Stop()

	router := api.NewRouter(api.Handlers{
		Dashboard: api.NewDashboardHandler(session),
		Settings:  api.NewSettingsHandler(settingsRepo, notifier, cronService),
		Tools:     api.NewToolHandler(service.NewInspectorService()),
	}, cfg.Auth.JWTSecret)

	if cfg.Auth.JWTSecret == "" {
		logrus.Warn("auth.jwt_secret is empty, /api/v1 is unauthenticated")
	}

	// 4. Serve until signalled
	srv := &http.Server{
		Addr:              cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logrus.Infof("Server starting on %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("Server startup failed: %v", err)
		}
	}()

	<-ctx.Done()
	logrus.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("graceful shutdown failed")
	}
}
