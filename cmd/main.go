package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"

	"github.com/Dosada05/inmatch/config"
	"github.com/Dosada05/inmatch/db"
	"github.com/Dosada05/inmatch/handlers"
	"github.com/Dosada05/inmatch/realtime"
	"github.com/Dosada05/inmatch/repositories"
	api "github.com/Dosada05/inmatch/routes"
	"github.com/Dosada05/inmatch/scheduler"
	"github.com/Dosada05/inmatch/services"
	"github.com/Dosada05/inmatch/storage"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}))
	slog.SetDefault(logger)
	logger.Info("configuration loaded",
		slog.Int("port", cfg.ServerPort),
		slog.String("env", cfg.AppEnv),
		slog.String("timezone", cfg.MatchTimezone))

	handlers.ExposeInternalErrors(cfg.IsDevelopment())

	if err := run(cfg, logger); err != nil {
		logger.Error("application stopped with error", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("application exited")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Подключение к базе данных
	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()
	logger.Info("database connection established")

	if err := db.Migrate(ctx, dbConn); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	logger.Info("database schema is up to date")

	// Объектное хранилище (Cloudflare R2)
	store, err := storage.NewCloudflareR2Store(ctx, storage.CloudflareR2Config{
		AccountID:       cfg.R2AccountID,
		AccessKeyID:     cfg.R2AccessKeyID,
		SecretAccessKey: cfg.R2SecretAccessKey,
		BucketName:      cfg.R2BucketName,
		PublicBaseURL:   cfg.R2PublicBaseURL,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize Cloudflare R2 store: %w", err)
	}
	logger.Info("Cloudflare R2 store initialized", slog.String("bucket", cfg.R2BucketName))

	location, err := time.LoadLocation(cfg.MatchTimezone)
	if err != nil {
		return fmt.Errorf("failed to load match timezone: %w", err)
	}

	// Инициализация WebSocket Hub
	hub := realtime.NewHub(logger)
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go hub.Run(hubCtx)
	logger.Info("WebSocket hub started")

	// Инициализация репозиториев
	adminRepo := repositories.NewPostgresAdminRepository(dbConn)
	leagueRepo := repositories.NewPostgresLeagueRepository(dbConn)
	matchRepo := repositories.NewPostgresMatchRepository(dbConn)
	detailsRepo := repositories.NewPostgresMatchDetailsRepository(dbConn)
	videoRepo := repositories.NewPostgresVideoRepository(dbConn)

	// Инициализация сервисов
	jobs := scheduler.New(logger)
	media := services.NewMediaReconciler(store, videoRepo, services.MediaConfig{
		UploadTimeout: cfg.UploadTimeout,
		Concurrency:   cfg.UploadConcurrency,
	}, logger)
	adminService := services.NewAdminService(adminRepo, logger)
	leagueService := services.NewLeagueService(leagueRepo)
	matchService := services.NewMatchService(matchRepo, leagueRepo, hub, jobs, services.MatchServiceConfig{
		Location:  location,
		Retention: cfg.MatchRetention,
	}, logger)
	detailsService := services.NewMatchDetailsService(detailsRepo, matchRepo, media, hub, logger)
	videoService := services.NewVideoService(videoRepo, detailsRepo, matchRepo, media, services.VideoServiceConfig{
		OrphanAge: cfg.VideoOrphanAge,
	}, logger)
	defer matchService.Shutdown()
	logger.Info("services initialized")

	// Фоновые задачи
	tasks := []scheduler.Task{
		{Name: services.TaskKickoffWatch, Interval: cfg.KickoffPollInterval, Run: matchService.KickoffTick},
		{Name: services.TaskMatchRetention, Interval: cfg.RetentionSweepInterval, Run: matchService.RetentionTick},
		{Name: services.TaskVideoSweep, Interval: cfg.VideoSweepInterval, Run: videoService.SweepOrphans},
	}
	for _, task := range tasks {
		if err := jobs.Add(task); err != nil {
			return err
		}
	}
	jobs.Start(ctx)

	// Настройка маршрутизатора
	router := chi.NewRouter()
	api.SetupRoutes(router, api.Options{
		JWTSecret:      []byte(cfg.JWTSecretKey),
		AllowedOrigins: cfg.CORSAllowedOrigins,
	}, api.Handlers{
		Auth:         handlers.NewAuthHandler(adminService, cfg.JWTSecretKey),
		Admin:        handlers.NewAdminHandler(adminService),
		League:       handlers.NewLeagueHandler(leagueService),
		Match:        handlers.NewMatchHandler(matchService),
		MatchDetails: handlers.NewMatchDetailsHandler(detailsService, cfg.MaxUploadBytes),
		Video:        handlers.NewVideoHandler(videoService, cfg.MaxUploadBytes),
		WebSocket:    handlers.NewWebSocketHandler(hub, cfg.CORSAllowedOrigins, logger),
		Health:       handlers.NewHealthHandler(dbConn),
	})
	logger.Info("routes configured")

	// Загрузка видео может длиться дольше обычного запроса.
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  cfg.UploadTimeout,
		WriteTimeout: cfg.UploadTimeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	logger.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		if closeErr := server.Close(); closeErr != nil {
			logger.Error("failed to force close server", slog.Any("error", closeErr))
		}
	}

	stop()
	jobs.Wait()
	stopHub()
	logger.Info("server shutdown complete")
	return nil
}

func parseLevel(raw string) slog.Level {
	switch strings.ToLower(raw) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
