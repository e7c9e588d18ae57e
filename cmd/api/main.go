package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	pkgvalidator "github.com/johnquangdev/warroom/pkg/validator"

	"github.com/johnquangdev/warroom/internal/adapter/handler"
	"github.com/johnquangdev/warroom/internal/adapter/repository"
	"github.com/johnquangdev/warroom/internal/infrastructure/cache"
	"github.com/johnquangdev/warroom/internal/infrastructure/database"
	"github.com/johnquangdev/warroom/internal/infrastructure/external/knowledge"
	"github.com/johnquangdev/warroom/internal/infrastructure/storage"
	meetingUsecase "github.com/johnquangdev/warroom/internal/usecase/meeting"
	pkgai "github.com/johnquangdev/warroom/pkg/ai"
	"github.com/johnquangdev/warroom/pkg/config"
	"github.com/johnquangdev/warroom/pkg/jwt"
)

// @title           WarRoom API
// @version         1.0
// @description     Multi-agent meeting orchestration API with knowledge-grounded participants

// @host      localhost:8080
// @BasePath  /v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize Echo instance
	e := echo.New()

	// Register validator for request validation
	e.Validator = pkgvalidator.New()

	// Configure Echo
	e.HideBanner = true
	e.HidePort = false

	// Custom logger format
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "${time_rfc3339} | ${status} | ${method} ${uri} | ${latency_human}\n",
	}))

	// Recover from panics
	e.Use(middleware.Recover())

	// CORS middleware
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, "Set-Cookie", "Cookie"},
		AllowCredentials: true,
	}))

	// Initialize dependencies
	log.Println("🔧 Initializing dependencies...")

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Initialize Database
	log.Println("📦 Connecting to database...")
	db, err := database.NewPostgresDB(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.CloseDB(db)

	// Run AutoMigrate only when explicitly enabled in config.
	// Production deployments should manage schema via sql-migrate.
	if cfg.Database.AutoMigrate {
		if cfg.Server.Environment == "production" {
			log.Fatalf("AutoMigrate is enabled in production. Disable DB_AUTO_MIGRATE or manage schema with sql-migrate.")
		}
		log.Println("🔄 Running migrations (development only) ...")
		if err := database.AutoMigrate(db); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
	} else {
		log.Println("🔄 Skipping migrations; use sql-migrate for schema migrations in CI/CD/production")
	}

	// Initialize turn locker: Redis in normal deployments, in-memory for
	// single-instance local runs
	var locker meetingUsecase.TurnLocker
	if cfg.Redis.Enabled {
		log.Println("📦 Connecting to Redis...")
		redisClient, err := cache.NewRedisClient(cfg)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
		locker = cache.NewRedisLocker(redisClient, cfg.Meeting.TurnLockTTL)
	} else {
		log.Println("⚠️  Redis disabled; using in-memory turn locks (single instance only)")
		locker = cache.NewMemoryLocker(cfg.Meeting.TurnLockTTL)
	}

	// Initialize repositories
	log.Println("⚙️  Initializing repositories...")
	meetingRepo := repository.NewMeetingRepository(db)
	participantRepo := repository.NewParticipantRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	minutesRepo := repository.NewMinutesRepository(db)
	knowledgeRepo := repository.NewKnowledgeRepository(db)

	// Initialize generation client and knowledge search
	log.Println("🤖 Initializing generation components...")
	geminiClient := pkgai.NewGeminiClient(&cfg.Gemini)
	searcher := knowledge.NewSearcher(db, geminiClient, logger)

	// Initialize object storage for minutes export
	var exporter meetingUsecase.MinutesExporter
	if cfg.Storage.Enabled {
		log.Println("🗄️  Connecting to object storage...")
		minioClient, err := storage.NewMinIOClient(&cfg.Storage)
		if err != nil {
			log.Fatalf("Failed to connect to object storage: %v", err)
		}
		exporter = minioClient
	} else {
		log.Println("⚠️  Object storage disabled; minutes will not be exported")
	}

	// Initialize orchestration components
	log.Println("🏛️  Initializing meeting orchestration...")
	scheduler := meetingUsecase.NewScheduler(rand.New(rand.NewSource(time.Now().UnixNano())))
	isolator := meetingUsecase.NewIsolator(searcher, knowledgeRepo, cfg.Meeting.KnowledgeMatchCount, logger)
	chairperson, err := meetingUsecase.NewChairperson(geminiClient, logger)
	if err != nil {
		log.Fatalf("Failed to initialize chairperson: %v", err)
	}
	minutesGen := meetingUsecase.NewMinutesGenerator(geminiClient, minutesRepo, exporter, logger)
	citations := meetingUsecase.NewCitationValidator(knowledgeRepo, logger)

	meetingService, err := meetingUsecase.NewService(meetingUsecase.Deps{
		MeetingRepo:     meetingRepo,
		ParticipantRepo: participantRepo,
		MessageRepo:     messageRepo,
		MinutesRepo:     minutesRepo,
		KnowledgeRepo:   knowledgeRepo,
		Scheduler:       scheduler,
		Isolator:        isolator,
		Chairperson:     chairperson,
		MinutesGen:      minutesGen,
		Citations:       citations,
		Generator:       geminiClient,
		Locker:          locker,
		Logger:          logger,
	}, meetingUsecase.Config{
		ChairpersonInterval: cfg.Meeting.ChairpersonInterval,
		DefaultDuration:     cfg.Meeting.DefaultDuration,
	})
	if err != nil {
		log.Fatalf("Failed to initialize meeting service: %v", err)
	}
	log.Println("✅ Meeting service initialized successfully")

	// Initialize JWT manager
	log.Println("🔑 Initializing JWT manager...")
	jwtManager := jwt.NewManager(cfg.JWT.AccessSecret)

	// Initialize handlers
	log.Println("🚀 Initializing handlers...")
	meetingHandler := handler.NewMeetingHandler(meetingService, logger)
	cronHandler := handler.NewCronHandler(meetingService, logger)
	log.Println("✅ Handlers initialized successfully")

	// Setup router with handlers
	log.Println("🛣️  Setting up routes...")
	router := handler.NewRouter(cfg, jwtManager, meetingHandler, cronHandler)
	router.Setup(e)

	// Start server
	go func() {
		addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
		log.Printf("🚀 Starting server on %s", addr)
		log.Printf("📝 Environment: %s", cfg.Server.Environment)
		log.Printf("🔗 Health check: http://%s/health", addr)

		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		log.Fatalf("❌ Server forced to shutdown: %v", err)
	}

	log.Println("✅ Server stopped gracefully")
}
