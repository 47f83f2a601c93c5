package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	ginprometheus "github.com/zsais/go-gin-prometheus"
	"go.uber.org/zap"

	"github.com/himax12/PlotLine/internal/agents"
	"github.com/himax12/PlotLine/internal/ai"
	"github.com/himax12/PlotLine/internal/auth"
	"github.com/himax12/PlotLine/internal/config"
	"github.com/himax12/PlotLine/internal/emitter"
	"github.com/himax12/PlotLine/internal/handler"
	"github.com/himax12/PlotLine/internal/logger"
	"github.com/himax12/PlotLine/internal/messaging"
	"github.com/himax12/PlotLine/internal/middleware"
	"github.com/himax12/PlotLine/internal/repository"
	"github.com/himax12/PlotLine/internal/worker"
	"github.com/himax12/PlotLine/internal/workflow"
)

func main() {
	// .env нужен только для локальной разработки
	if err := godotenv.Load(); err != nil {
		log.Printf("Файл .env не найден, используем переменные окружения")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	zapLogger, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Ошибка инициализации логгера: %v", err)
	}
	defer zapLogger.Sync() //nolint:errcheck
	zap.ReplaceGlobals(zapLogger)

	// --- Подключения к внешним сервисам ---

	mqConn, err := amqp091.Dial(cfg.RabbitMQURL)
	if err != nil {
		zap.L().Fatal("Failed to connect to RabbitMQ", zap.Error(err))
	}
	defer mqConn.Close()
	zap.L().Info("Connected to RabbitMQ")

	// Redis опционален: без него статусы задач живут в памяти процесса
	var taskRepo repository.TaskRepository
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = redisClient.Ping(pingCtx).Err()
		pingCancel()
		if err != nil {
			zap.L().Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
		taskRepo = repository.NewRedisTaskRepository(redisClient, cfg.TaskRecordTTL, zapLogger)
		zap.L().Info("Connected to Redis", zap.String("addr", cfg.RedisAddr))
	} else {
		taskRepo = repository.NewMemoryTaskRepository()
		zap.L().Warn("Redis not configured, task records are kept in process memory")
	}

	// Postgres опционален: без него результаты не сохраняются между запусками
	var narrativeRepo repository.NarrativeRepository
	if cfg.PersistenceEnabled() {
		pool, err := pgxpool.New(context.Background(), cfg.GetDSN())
		if err != nil {
			zap.L().Fatal("Failed to create PostgreSQL pool", zap.Error(err))
		}
		defer pool.Close()
		if err := repository.RunMigrations(pool, zapLogger); err != nil {
			zap.L().Fatal("Failed to run database migrations", zap.Error(err))
		}
		narrativeRepo = repository.NewPostgresNarrativeRepository(pool, zapLogger)
		zap.L().Info("Connected to PostgreSQL", zap.String("host", cfg.DBHost))
	} else {
		zap.L().Warn("PostgreSQL not configured, generation results are not persisted")
	}

	// --- Сборка пайплайна ---

	aiClient, err := ai.NewClient(cfg)
	if err != nil {
		zap.L().Fatal("Failed to create AI client", zap.Error(err))
	}

	var tier2 agents.Tier2Validator
	if cfg.Tier2Validation {
		tier2 = agents.NewLLMTier2Validator(aiClient)
		zap.L().Info("Tier 2 commonsense validation enabled")
	}

	events := emitter.New()
	driver := workflow.NewDriver(
		agents.NewDeconstructor(aiClient, zapLogger),
		agents.NewMapper(aiClient, zapLogger),
		agents.NewOracle(tier2, zapLogger),
		agents.NewScribe(aiClient, zapLogger),
		agents.NewGuardrail(aiClient, zapLogger),
		agents.NewSummarizer(aiClient, zapLogger),
		events,
		cfg,
		zapLogger,
	)

	publisher, err := messaging.NewTaskPublisher(mqConn, cfg.TaskQueueName, zapLogger)
	if err != nil {
		zap.L().Fatal("Failed to create task publisher", zap.Error(err))
	}

	notifier, err := messaging.NewNotifier(mqConn, cfg.UpdatesQueueName, zapLogger)
	if err != nil {
		zap.L().Fatal("Failed to create notifier", zap.Error(err))
	}

	artifacts := repository.NewArtifactStore()
	taskHandler := worker.NewTaskHandler(driver, taskRepo, narrativeRepo, notifier, artifacts, events, zapLogger)

	consumerCtx, consumerCancel := context.WithCancel(context.Background())
	defer consumerCancel()

	consumer := messaging.NewConsumer(mqConn, cfg.TaskQueueName, taskHandler, zapLogger)
	if err := consumer.Start(consumerCtx); err != nil {
		zap.L().Fatal("Failed to start task consumer", zap.Error(err))
	}

	// --- HTTP сервер (Gin) ---

	gin.SetMode(gin.ReleaseMode)
	if cfg.Env == "development" {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.RedirectTrailingSlash = true
	router.Use(middleware.ZapLoggingMiddleware(zapLogger))
	router.Use(gin.Recovery())

	p := ginprometheus.NewPrometheus("gin")

	corsConfig := cors.DefaultConfig()
	allowedOrigins := cfg.GetAllowedOrigins()
	if len(allowedOrigins) > 0 {
		corsConfig.AllowOrigins = allowedOrigins
	} else {
		corsConfig.AllowOrigins = []string{"http://localhost:3000"}
		zap.L().Info("CORSAllowedOrigins not set, allowing default", zap.String("origin", "http://localhost:3000"))
	}
	if len(corsConfig.AllowOrigins) == 1 && corsConfig.AllowOrigins[0] == "*" {
		corsConfig.AllowOrigins = nil
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.GET("/health", handler.HandleHealth)
	router.HEAD("/health", handler.HandleHealth)

	narrativeHandler := handler.NewNarrativeHandler(publisher, taskRepo, artifacts, events, cfg.HeartbeatInterval, zapLogger)
	if cfg.JWTSecret != "" {
		verifier := auth.NewVerifier(cfg.JWTSecret, zapLogger)
		protected := router.Group("/", verifier.Middleware())
		narrativeHandler.RegisterRoutes(protected)
		zap.L().Info("JWT authorization enabled for API routes")
	} else {
		narrativeHandler.RegisterRoutes(router)
		zap.L().Warn("JWT secret not configured, API routes are unauthenticated")
	}

	// Prometheus middleware применяется после регистрации роутов
	p.Use(router)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // SSE/WS держат соединение открытым
		IdleTimeout:  60 * time.Second,
	}

	zap.L().Info("Starting HTTP server", zap.String("port", cfg.HTTPPort))

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zap.L().Fatal("HTTP Server listen error", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zap.L().Info("Shutting down server...")

	// Сначала закрываем канал доставки: текущая задача дорабатывает,
	// новые сообщения не принимаются. Контекст отменяется только после
	// выхода из цикла потребления, иначе он оборвет идущую генерацию.
	consumer.Stop()
	consumerCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.L().Error("HTTP Server forced to shutdown", zap.Error(err))
	}

	zap.L().Info("Server stopped")
}
