package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"batball/internal/auth"
	"batball/internal/cache"
	"batball/internal/chat"
	"batball/internal/clients"
	"batball/internal/config"
	"batball/internal/gateway"
	"batball/internal/handlers"
	"batball/internal/logger"
	"batball/internal/middleware"
	"batball/internal/repository"
	"batball/internal/service"
	"batball/internal/worker"
	"batball/pkg/database"
	"batball/pkg/redis"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	goredis "github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// Загрузка .env
	envErr := godotenv.Load()

	// Загрузка конфигурации
	cfg := config.Load()

	log, err := logger.New(cfg.App.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if envErr != nil {
		log.Info("no .env file found, using environment variables")
	}

	if err := run(cfg, log); err != nil {
		log.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	log.Info("=== BatBall Backend Starting ===", zap.String("env", cfg.App.Env))

	// Подключение к PostgreSQL
	db, err := database.Connect(cfg.DB, cfg.App.Debug, log)
	if err != nil {
		return err
	}
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}()

	// Автомиграция моделей
	if err := database.Migrate(db, log); err != nil {
		return err
	}

	// Кэш: in-memory по умолчанию, Redis при CACHE_BACKEND=redis
	var redisClient *goredis.Client
	store := cache.NewMemoryStore()
	if cfg.Cache.Backend == "redis" {
		redisClient, err = redis.Connect(cfg.Redis, log)
		if err != nil {
			return err
		}
		defer redisClient.Close()
		store = cache.NewRedisStore(redisClient, cfg.Cache.MaxStale)
	}
	log.Info("cache backend", zap.String("backend", cfg.Cache.Backend))

	gw := gateway.New(store,
		gateway.WithTimeout(cfg.Upstream.Timeout),
		gateway.WithLogger(log.Named("gateway")),
	)

	retry := clients.RetryPolicy{
		MaxAttempts: cfg.Retry.MaxAttempts,
		BaseDelay:   cfg.Retry.BaseDelay,
		MaxDelay:    cfg.Retry.MaxDelay,
		Jitter:      cfg.Retry.Jitter,
	}
	cricbuzzClient := clients.NewCricbuzzClient(clients.CricbuzzConfig{
		BaseURL: cfg.Cricbuzz.BaseURL,
		APIKey:  cfg.Cricbuzz.APIKey,
		APIHost: cfg.Cricbuzz.APIHost,
		Timeout: cfg.Upstream.Timeout,
		Retry:   retry,
	})
	newsClient := clients.NewNewsClient(clients.NewsConfig{
		BaseURL: cfg.News.BaseURL,
		APIKey:  cfg.News.APIKey,
		Timeout: cfg.Upstream.Timeout,
		Retry:   retry,
	})
	if cfg.Cricbuzz.APIKey == "" {
		log.Warn("CRICBUZZ_API_KEY is not set, match endpoints will fail upstream")
	}

	// Инициализация репозиториев
	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	chatRepo := repository.NewChatRepository(db)
	snapshotRepo := repository.NewSnapshotRepository(db)

	jwtService := auth.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	// Инициализация сервисов
	matchService := service.NewMatchService(gw, cricbuzzClient, snapshotRepo, service.MatchConfig{
		Keywords:  cfg.Cricbuzz.Keywords,
		LiveTTL:   cfg.Cache.LiveTTL,
		StaticTTL: cfg.Cache.StaticTTL,
		PlayerTTL: cfg.Cache.PlayerTTL,
	}, log)
	newsService := service.NewNewsService(gw, newsClient, cfg.Cache.NewsTTL)
	authService := service.NewAuthService(userRepo, jwtService, log)
	forumService := service.NewForumService(postRepo)

	warmCtx, cancelWarm := context.WithTimeout(context.Background(), 10*time.Second)
	if err := matchService.WarmFromSnapshots(warmCtx); err != nil {
		log.Warn("failed to warm cache from snapshots", zap.Error(err))
	}
	cancelWarm()

	hub := chat.NewHub(chatRepo, chat.Config{
		HistoryLimit:  cfg.Chat.HistoryLimit,
		MaxMessageLen: cfg.Chat.MaxMessageLen,
	}, log.Named("hub"))
	defer hub.Close()

	ipLimiter := middleware.NewIPRateLimiter(cfg.RateLimit.Max, cfg.RateLimit.Window)

	// Инициализация воркеров (фоновые задачи)
	scheduler := worker.NewScheduler(log)
	if cfg.Workers.MatchesEnabled {
		scheduler.AddWorker(worker.NewMatchWorker(matchService, cfg.Workers.MatchesInterval, log))
	}
	if cfg.Workers.RetentionEnabled {
		scheduler.AddWorker(worker.NewRetentionWorker(chatRepo, snapshotRepo, worker.RetentionConfig{
			ChatRetention:     time.Duration(cfg.Chat.RetentionDays) * 24 * time.Hour,
			SnapshotRetention: cfg.Workers.SnapshotRetention,
		}, cfg.Workers.RetentionInterval, log))
	}
	scheduler.AddWorker(worker.NewLimiterWorker(ipLimiter, cfg.RateLimit.Window, log))

	// Запускаем воркеры в фоне
	scheduler.Start()
	defer scheduler.Stop()

	// Инициализация Gin
	if cfg.App.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.Recovery(cfg.IsProduction(), log))
	r.Use(middleware.Logger(log.Named("http")))

	// CORS для фронтенда
	origins := []string{"http://localhost:3000", cfg.App.FrontendURL}
	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Cache-Control"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.Use(middleware.ErrorHandler(cfg.IsProduction(), log))
	r.Use(middleware.IPRateLimitMiddleware(ipLimiter, log, "/api/health"))

	handlers.Router{
		Matches: handlers.NewMatchHandler(matchService),
		News:    handlers.NewNewsHandler(newsService),
		Auth:    handlers.NewAuthHandler(authService),
		Forum:   handlers.NewForumHandler(forumService),
		Chat:    handlers.NewChatHandler(hub, chatRepo, jwtService, origins, log),
		System: handlers.NewSystemHandler(gw, matchService, hub, redisClient,
			map[string]handlers.Counter{
				"users":          userRepo,
				"posts":          postRepo,
				"chat_messages":  chatRepo,
				"feed_snapshots": snapshotRepo,
			},
			map[string]bool{
				"matches_enabled":   cfg.Workers.MatchesEnabled,
				"retention_enabled": cfg.Workers.RetentionEnabled,
			},
		),
		JWT:   jwtService,
		Debug: cfg.App.Debug,
	}.Register(r)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	server := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("server starting",
			zap.String("addr", "http://localhost:"+cfg.App.Port),
			zap.String("health", "http://localhost:"+cfg.App.Port+"/api/health"),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-quit:
	case err := <-serverErr:
		return err
	}
	log.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// сокеты чата hijacked, Shutdown их не ждет
	hub.Close()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("server exited properly")
	return nil
}
