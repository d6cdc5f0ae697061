package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/corent-backend/internal/config"
	"github.com/ignatzorin/corent-backend/internal/db"
	"github.com/ignatzorin/corent-backend/internal/goroutine"
	httpHandlers "github.com/ignatzorin/corent-backend/internal/http/handlers"
	httpRouter "github.com/ignatzorin/corent-backend/internal/http/router"
	"github.com/ignatzorin/corent-backend/internal/logger"
	"github.com/ignatzorin/corent-backend/internal/mail"
	"github.com/ignatzorin/corent-backend/internal/repository"
	"github.com/ignatzorin/corent-backend/internal/schedule"
	"github.com/ignatzorin/corent-backend/internal/service"
	"github.com/ignatzorin/corent-backend/internal/sms"
	"github.com/ignatzorin/corent-backend/internal/ws"
)

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	// Инициализация логгера
	if cfg.Env == "development" {
		logger.Init("debug")
		logger.SetTextFormatter()
	} else {
		logger.Init("info")
	}

	// Подключение к базе и миграции.
	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("main: ошибка подключения к базе: %v", err)
	}
	defer safeClose(dbConn)

	if err := db.RunMigrations(ctx, dbConn, cfg.MigrationsPath); err != nil {
		log.Fatalf("main: ошибка миграций: %v", err)
	}

	healthChecks := map[string]httpHandlers.Pinger{"database": dbConn}

	// Хранилища кодов и лимитов: в памяти или общие в Redis.
	var (
		store   repository.VerificationStore
		limiter repository.RateLimiter
	)
	switch cfg.SMS.Store {
	case "redis":
		rdb, err := db.NewRedis(ctx, cfg.Redis)
		if err != nil {
			log.Fatalf("main: ошибка подключения к redis: %v", err)
		}
		defer closeRedis(rdb)

		store = repository.NewRedisVerificationStore(rdb)
		limiter = repository.NewRedisRateLimiter(rdb)
		healthChecks["redis"] = httpHandlers.PingFunc(func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})
	default:
		store = repository.NewMemoryVerificationStore(nil)
		limiter = repository.NewMemoryRateLimiter(nil)
	}

	// Вспомогательные сервисы.
	tokenManager := service.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.InviteTokenTTL)
	dispatcher := sms.NewDispatcherFromConfig(cfg.SMS)
	mailer := mail.NewMailer(cfg.SMTP)

	// Вебсокеты.
	hub := ws.NewHub()
	goroutine.SafeGoWithContext(ctx, hub.Run)

	// Репозитории.
	invitationRepo := repository.NewInvitationRepository(dbConn)
	smsMessageRepo := repository.NewSMSMessageRepository(dbConn)

	// Сервисы.
	deliveryLog := service.NewDeliveryLogService(smsMessageRepo, hub)

	verificationService := service.NewVerificationService(
		store,
		limiter,
		dispatcher,
		service.NewBcryptHasher(cfg.SMS.CodeHashCost),
		service.NewVerificationConfig(cfg),
	)
	verificationService.SetInvitations(tokenManager, invitationRepo)
	verificationService.SetDeliveryRecorder(deliveryLog)

	inviteService := service.NewInviteService(
		invitationRepo,
		tokenManager,
		limiter,
		dispatcher,
		mailer,
		service.InviteConfig{
			AppURL:         cfg.PublicAppURL,
			TokenTTL:       cfg.InviteTokenTTL,
			DefaultCountry: cfg.SMS.DefaultCountry,
			RateLimit:      repository.RateLimitRule{Limit: cfg.SMS.InviteRateLimit, Window: cfg.SMS.InviteCooldown},
		},
	)
	inviteService.SetDeliveryRecorder(deliveryLog)
	inviteService.SetNotifier(hub)

	// Фоновая очистка просроченных кодов и окон лимитов.
	var scheduler schedule.Scheduler = schedule.NewCronScheduler()
	sweep := schedule.NewSweepJob(map[string]schedule.Sweeper{
		"verifications": store,
		"rate_limits":   limiter,
	})
	if err := scheduler.AddJob(sweep, cfg.SMS.SweepSpec); err != nil {
		log.Fatalf("main: некорректное расписание очистки %q: %v", cfg.SMS.SweepSpec, err)
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	// HTTP хэндлеры.
	var callbackValidator httpHandlers.CallbackValidator
	if cfg.SMS.ValidateCallback && cfg.SMS.TwilioConfigured() {
		callbackValidator = sms.NewSignatureValidator(cfg.SMS.AuthToken)
	}
	smsHandler := httpHandlers.NewSMSHandler(verificationService, deliveryLog, callbackValidator, cfg.PublicBaseURL)
	inviteHandler := httpHandlers.NewInviteHandler(inviteService)
	wsHandler := httpHandlers.NewWSHandler(hub, cfg.AllowedOrigins)
	healthHandler := httpHandlers.NewHealthHandler(healthChecks)

	// Роутер.
	engine := httpRouter.SetupRouter(cfg, smsHandler, inviteHandler, wsHandler, healthHandler, tokenManager)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Завершаем сервер при получении сигнала.
	goroutine.SafeGo(func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("main: ошибка остановки http сервера: %v", err)
		}
	})

	logger.Log.WithFields(logrus.Fields{
		"port":         cfg.HTTPPort,
		"sms_store":    cfg.SMS.Store,
		"sms_provider": dispatcher.ProviderName(),
		"smtp_enabled": mailer.Enabled(),
	}).Info("HTTP сервер запущен")

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("main: сервер завершился с ошибкой: %v", err)
	}
}

// safeClose закрывает соединение с базой.
func safeClose(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		log.Printf("main: ошибка закрытия базы: %v", err)
	}
}

func closeRedis(rdb *redis.Client) {
	if err := rdb.Close(); err != nil {
		log.Printf("main: ошибка закрытия redis: %v", err)
	}
}
