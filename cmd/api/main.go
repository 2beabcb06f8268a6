package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/noah-isme/manabi-api/api/swagger"
	"github.com/noah-isme/manabi-api/internal/handler"
	"github.com/noah-isme/manabi-api/internal/repository"
	"github.com/noah-isme/manabi-api/internal/service"
	"github.com/noah-isme/manabi-api/pkg/cache"
	"github.com/noah-isme/manabi-api/pkg/config"
	"github.com/noah-isme/manabi-api/pkg/database"
	"github.com/noah-isme/manabi-api/pkg/jobs"
	"github.com/noah-isme/manabi-api/pkg/logger"
	"github.com/noah-isme/manabi-api/pkg/realtime"
	"github.com/noah-isme/manabi-api/pkg/storage"
)

// @title Manabi API
// @version 1.0.0
// @description Learning materials, per-student visibility, quizzes and teacher/student chat.
// @BasePath /api
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const exportCleanupInterval = time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, db.DB, logr); err != nil {
			logr.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	// Redis backs the preview cache and chat fan-out. Without it both stay in process.
	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, running without shared cache and bus", zap.Error(err))
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	metricsSvc := service.NewMetricsService()
	validate := validator.New()

	var bus realtime.Bus = realtime.NewMemoryBus()
	if redisClient != nil {
		bus = realtime.NewRedisBus(redisClient, "manabi:", logr.Named("realtime"))
	}
	defer bus.Close()
	cacheSvc := service.NewCacheService(newCacheRepository(redisClient, logr), metricsSvc, cfg.LinkPreview.CacheTTL, logr.Named("cache"), true)

	materialRepo := repository.NewMaterialRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	visibilityRepo := repository.NewVisibilityRepository(db)
	completionRepo := repository.NewCompletionRepository(db)
	quizRepo := repository.NewQuizRepository(db)
	chatRepo := repository.NewChatRepository(db)

	files, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Fatal("failed to prepare export storage", zap.Error(err))
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)

	authSvc := service.NewAuthService(cfg.Auth, logr.Named("auth"))
	materialSvc := service.NewMaterialService(materialRepo, validate, logr.Named("materials"))
	studentSvc := service.NewStudentService(studentRepo, validate, logr.Named("students"))
	visibilitySvc := service.NewVisibilityService(visibilityRepo, materialRepo, studentRepo, metricsSvc, validate, logr.Named("visibility"))
	completionSvc := service.NewCompletionService(completionRepo, materialRepo, studentRepo, validate, logr.Named("completions"))
	quizSvc := service.NewQuizService(quizRepo, validate, logr.Named("quizzes"))
	progressSvc := service.NewProgressService(studentRepo, materialRepo, completionRepo, quizRepo, logr.Named("progress"))
	exportSvc := service.NewExportService(progressSvc, files, signer, service.ExportConfig{APIPrefix: cfg.APIPrefix, ResultTTL: cfg.Exports.SignedURLTTL}, logr.Named("exports"), nil, nil)

	previewSvc := service.NewLinkPreviewService(cfg.LinkPreview, nil, cacheSvc, metricsSvc, logr.Named("linkpreview"))
	warmQueue := jobs.NewQueue("linkpreview-warm", previewSvc.WarmJobHandler(), jobs.QueueConfig{
		Workers:    service.PreviewWorkers,
		MaxRetries: 1,
		RetryDelay: 2 * time.Second,
		Logger:     logr.Named("jobs"),
	})
	warmQueue.Start(ctx)
	defer warmQueue.Stop()

	chatSvc := service.NewChatService(chatRepo, bus, warmQueue, cfg.Chat, metricsSvc, validate, logr.Named("chat"))

	checks := map[string]handler.Pinger{"database": handler.PingFunc(db.PingContext)}
	if redisClient != nil {
		checks["redis"] = handler.PingFunc(func(ctx context.Context) error { return redisClient.Ping(ctx).Err() })
	}

	router := newRouter(cfg, logr, routerDeps{
		auth:        authSvc,
		metrics:     metricsSvc,
		materials:   handler.NewMaterialHandler(materialSvc, visibilitySvc),
		students:    handler.NewStudentHandler(studentSvc),
		visibility:  handler.NewVisibilityHandler(visibilitySvc),
		completions: handler.NewCompletionHandler(completionSvc),
		quizzes:     handler.NewQuizHandler(quizSvc),
		progress:    handler.NewProgressHandler(progressSvc, exportSvc),
		chat:        handler.NewChatHandler(chatSvc),
		previews:    handler.NewLinkPreviewHandler(previewSvc),
		authHandler: handler.NewAuthHandler(),
		health:      handler.NewMetricsHandler(metricsSvc, checks),
	})

	go cleanupExports(ctx, exportSvc, logr)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

// newCacheRepository returns the Redis cache, or an in-process one when Redis is unavailable.
func newCacheRepository(client *redis.Client, logr *zap.Logger) service.CacheRepository {
	if client == nil {
		return repository.NewMemoryCacheRepository()
	}
	return repository.NewCacheRepository(client, logr.Named("cache"))
}

func cleanupExports(ctx context.Context, exports *service.ExportService, logr *zap.Logger) {
	ticker := time.NewTicker(exportCleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := exports.Cleanup(0)
			if err != nil {
				logr.Warn("export cleanup failed", zap.Error(err))
				continue
			}
			if len(removed) > 0 {
				logr.Info("expired exports removed", zap.Int("count", len(removed)))
			}
		}
	}
}
