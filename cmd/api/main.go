package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-grading-api/internal/config"
	"github.com/noah-isme/gema-grading-api/internal/database"
	"github.com/noah-isme/gema-grading-api/internal/handler"
	"github.com/noah-isme/gema-grading-api/internal/middleware"
	"github.com/noah-isme/gema-grading-api/internal/repository"
	"github.com/noah-isme/gema-grading-api/internal/router"
	"github.com/noah-isme/gema-grading-api/internal/service"
	"github.com/noah-isme/gema-grading-api/pkg/jobs"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		logger = logger.Level(level)
	}
	logger = logger.With().Str("service", cfg.AppName).Str("env", cfg.AppEnv).Logger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := openDatabase(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}

	if err := database.Migrate(db); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisClient.Close()
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to nats")
		}
		defer natsConn.Close()
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	taskRepo := repository.NewTaskRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	examRepo := repository.NewExamRepository(db)
	userRepo := repository.NewUserRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	reminderRepo := repository.NewReminderRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)

	activityService := service.NewActivityService(activityRepo, logger)
	notificationService := service.NewNotificationService(notificationRepo, redisClient, cfg.RealtimeChannel, natsConn, logger)
	reminderService := service.NewReminderService(reminderRepo, taskRepo, notificationService, service.ReminderConfig{
		LeadTime:      cfg.ReminderLeadTime,
		SweepInterval: cfg.ReminderSweepInterval,
	}, logger)
	dispatcher := service.NewQueuedDispatcher(notificationService, reminderService, jobs.QueueConfig{
		Workers:    cfg.DispatchWorkers,
		BufferSize: cfg.DispatchBuffer,
		MaxRetries: cfg.DispatchMaxRetries,
		RetryDelay: cfg.DispatchRetryDelay,
	}, logger)
	dashboardService := service.NewStudentDashboardService(taskRepo, submissionRepo, redisClient, cfg.DashboardCacheTTL, logger)
	gradingService := service.NewGradingService(taskRepo, submissionRepo, userRepo, activityService, dispatcher, dashboardService, validate, service.GradingConfig{MaxGrade: cfg.MaxGrade}, logger)
	taskService := service.NewTaskService(taskRepo, submissionRepo, projectRepo, userRepo, activityService, dispatcher, validate, logger)
	examService := service.NewExamService(examRepo, userRepo, activityService, dispatcher, validate, logger)

	dispatcher.Start(ctx)
	notificationService.Start(ctx)
	go reminderService.Run(ctx)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{
		Logger:       &logger,
		AllowOrigins: cfg.AllowOrigins,
		AccessLog:    cfg.AppEnv == "development",
	})

	router.Register(app, cfg, router.Dependencies{
		TaskHandler:             handler.NewTaskHandler(taskService, gradingService, logger),
		SubmissionHandler:       handler.NewSubmissionHandler(gradingService, logger),
		ExamHandler:             handler.NewExamHandler(examService, logger),
		NotificationHandler:     handler.NewNotificationHandler(notificationService, logger, cfg.NotificationKeepAlive),
		ReminderHandler:         handler.NewReminderHandler(reminderService, logger),
		StudentDashboardHandler: handler.NewStudentDashboardHandler(dashboardService, logger),
		ActivityHandler:         handler.NewActivityHandler(activityService, logger),
		HealthProbes:            healthProbes(db, redisClient, natsConn),
		JWTMiddleware:           middleware.JWTProtected(cfg.JWTSecret),
		SubmitRateLimiter:       middleware.RateLimit("submissions", cfg.SubmissionRateLimit, cfg.SubmissionRateInterval),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	logger.Info().Str("addr", cfg.HTTPAddress()).Msg("grading api started")

	waitForShutdown(app)
	cancel()
	dispatcher.Stop()
	logger.Info().Msg("grading api stopped")
}

func openDatabase(cfg config.Config) (*gorm.DB, error) {
	if cfg.UsesSQLite() {
		return database.ConnectSQLite(cfg.DatabaseURL)
	}
	return database.ConnectPostgres(cfg.DatabaseURL, database.PoolConfig{
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 30 * time.Minute,
	})
}

func healthProbes(db *gorm.DB, redisClient *redis.Client, natsConn *nats.Conn) []handler.HealthProbe {
	probes := []handler.HealthProbe{{
		Name: "database",
		Check: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}}
	if redisClient != nil {
		probes = append(probes, handler.HealthProbe{Name: "redis", Check: func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}})
	}
	if natsConn != nil {
		probes = append(probes, handler.HealthProbe{Name: "nats", Check: func(context.Context) error {
			if !natsConn.IsConnected() {
				return nats.ErrConnectionClosed
			}
			return nil
		}})
	}
	return probes
}

func waitForShutdown(app *fiber.App) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_ = app.ShutdownWithContext(shutdownCtx)
}
