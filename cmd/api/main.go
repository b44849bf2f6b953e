package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ghost-crew/configs"
	v1 "ghost-crew/internal/api/v1"
	"ghost-crew/internal/cache"
	"ghost-crew/internal/config"
	"ghost-crew/internal/models"
	"ghost-crew/internal/repository"
	"ghost-crew/internal/repository/memory"
	"ghost-crew/internal/seed"
	myws "ghost-crew/internal/websocket"
	"ghost-crew/pkg/database"
	"ghost-crew/pkg/logger"

	"go.uber.org/zap"
)

func main() {
	// Load config
	cfg := configs.LoadConfig()

	// Inisialisasi logger
	if err := logger.InitLoggers(cfg.LogDir); err != nil {
		log.Fatalf("Cannot init loggers: %v", err)
	}
	defer logger.SyncLoggers()
	logger.SystemLogger.Info("Starting application", zap.String("time", time.Now().Format(time.RFC3339)), zap.Stringer("config", cfg))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps := &config.Dependencies{
		SecretKey:    []byte(cfg.JWTSecret),
		TokenTTL:     cfg.TokenTTL,
		UploadDir:    cfg.UploadDir,
		RateLimitMax: cfg.RateLimitMax,
		AllowOrigins: cfg.AllowOrigins,
	}

	switch cfg.Storage {
	case "memory":
		deps.Store = memory.NewStore()
		if err := seedMemory(ctx, deps.Store, cfg); err != nil {
			logger.ErrorLogger.Error("Seeding in-memory store failed", zap.Error(err))
			os.Exit(1)
		}
		logger.SystemLogger.Info("Using in-memory storage with demo data")
	default:
		db := database.ConnectDB(cfg)
		defer db.Close()
		logger.SystemLogger.Info("Database Connected")

		// Buat tabel jika belum ada
		if err := repository.CreateTableIfNotExists(ctx, db); err != nil {
			logger.ErrorLogger.Error("Schema setup failed", zap.Error(err))
			os.Exit(1)
		}
		if cfg.AdminPIN != "" {
			if err := repository.CreateAdminUser(ctx, db, cfg.AdminName, cfg.AdminPIN); err != nil {
				logger.ErrorLogger.Error("Admin bootstrap failed", zap.Error(err))
			}
		}
		deps.Store = repository.NewStore(db)

		if cfg.JobsCacheTTL > 0 {
			redisClient := database.ConnectRedis(ctx, cfg)
			defer redisClient.Close()
			deps.JobCache = cache.NewRedisJobCache(redisClient, cfg.JobsCacheTTL)
			logger.SystemLogger.Info("Redis job cache enabled", zap.Duration("ttl", cfg.JobsCacheTTL))
		}
	}

	hub := myws.NewHub()
	go hub.Run(ctx)
	deps.Hub = hub

	app := v1.NewApp(deps)

	go func() {
		<-ctx.Done()
		logger.SystemLogger.Info("Shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			logger.ErrorLogger.Error("Shutdown error", zap.Error(err))
		}
	}()

	addr := fmt.Sprintf(":%d", cfg.AppPort)
	logger.SystemLogger.Info("Application ready", zap.String("addr", addr))
	if err := app.Listen(addr); err != nil && !errors.Is(err, context.Canceled) {
		logger.ErrorLogger.Error("Application failed to start", zap.Error(err))
	}
}

// seedMemory loads the demo plan so a memory-backed server is usable at once.
func seedMemory(ctx context.Context, store repository.Store, cfg configs.Config) error {
	if cfg.AdminPIN != "" {
		if _, err := store.Users.Create(ctx, models.User{Name: cfg.AdminName, PIN: cfg.AdminPIN, Role: models.RoleAdmin}); err != nil {
			return fmt.Errorf("create admin: %w", err)
		}
	}
	plan, err := seed.DefaultPlan()
	if err != nil {
		return err
	}
	summary, err := seed.Run(ctx, store, plan, time.Now())
	if err != nil {
		return err
	}
	logger.SystemLogger.Info("Demo data loaded", zap.Int("jobs", len(summary.Jobs)))
	return nil
}
