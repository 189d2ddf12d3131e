package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/dadyutenga/driver-app-backend/internal/core/port"
	"github.com/dadyutenga/driver-app-backend/internal/infra/config"
	"github.com/dadyutenga/driver-app-backend/internal/infra/database"
	kafkainfra "github.com/dadyutenga/driver-app-backend/internal/infra/kafka"
	"github.com/dadyutenga/driver-app-backend/internal/infra/logger"
	"github.com/dadyutenga/driver-app-backend/internal/infra/notify"
	redisinfra "github.com/dadyutenga/driver-app-backend/internal/infra/redis"
	"github.com/dadyutenga/driver-app-backend/internal/infra/security"
	"github.com/dadyutenga/driver-app-backend/internal/infra/telemetry"
	postgresrepo "github.com/dadyutenga/driver-app-backend/internal/repository/postgres"
	redisrepo "github.com/dadyutenga/driver-app-backend/internal/repository/redis"
	"github.com/dadyutenga/driver-app-backend/internal/transport/http/middleware"
	"github.com/dadyutenga/driver-app-backend/internal/transport/http/routes"
	"github.com/dadyutenga/driver-app-backend/internal/usecase"
)

// Application owns the wired service graph and its long-lived resources.
type Application struct {
	cfg        *config.AppConfig
	engine     *gin.Engine
	logger     *zap.Logger
	pool       *pgxpool.Pool
	redis      *redisinfra.Client
	dispatcher *notify.Dispatcher
	producer   *kafkainfra.Producer
	tracing    *telemetry.TracerProvider
}

// New builds the full application from configuration.
func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	var tracing *telemetry.TracerProvider
	if cfg.Telemetry.Enabled {
		tracing, err = telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
		if err != nil {
			return nil, fmt.Errorf("init telemetry: %w", err)
		}
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	redisClient, err := redisinfra.NewClient(cfg.Redis, log)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init redis: %w", err)
	}

	repos := postgresrepo.NewRepositories(pool)

	denylistPrefix := cfg.Redis.DenylistPrefix
	if denylistPrefix == "" {
		denylistPrefix = "driver:denylist"
	}
	denylist := redisrepo.NewTokenDenylistRepository(redisClient.Client(), denylistPrefix)

	rateLimitWindow := cfg.RateLimit.WindowDuration
	if rateLimitWindow <= 0 {
		rateLimitWindow = time.Minute
	}
	rateLimitStore := redisrepo.NewRateLimitRepository(redisClient.Client(), redisrepo.SlidingWindowConfig{
		KeyPrefix: "driver:rate-limit",
		TTL:       rateLimitWindow * 2,
	})
	rateLimiter := middleware.NewRateLimiter(rateLimitStore, log)

	var eventPublisher port.EventPublisher
	var producer *kafkainfra.Producer
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err = kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			eventPublisher = kafkainfra.NewStubPublisher(log)
		} else {
			eventPublisher = kafkainfra.NewEventPublisher(producer, cfg.App, log)
		}
	} else {
		log.Info("kafka brokers not configured, using stub publisher")
		eventPublisher = kafkainfra.NewStubPublisher(log)
	}

	notifier := notify.NewChannelNotifier(
		notify.NewLoggingNotifier("email", log),
		notify.NewLoggingNotifier("sms", log),
	)
	dispatcher := notify.NewDispatcher(notifier, notify.DispatcherConfig{
		Workers:     cfg.OTP.DispatchWorkers,
		MaxAttempts: cfg.OTP.DispatchAttempts,
		Backoff:     cfg.OTP.DispatchBackoff,
	}, log)

	tokens, err := security.NewTokenIssuer(cfg.JWT.Secret, cfg.JWT.AccessTokenTTL, cfg.JWT.RefreshTokenTTL)
	if err != nil {
		dispatcher.Close()
		_ = redisClient.Close()
		pool.Close()
		return nil, fmt.Errorf("init token issuer: %w", err)
	}

	otpService := usecase.NewOTPService(repos.Challenges, dispatcher, log).
		WithPolicy(cfg.OTP.CodeTTL, cfg.OTP.MaxAttempts, cfg.OTP.ResendCooldown)
	registrationService := usecase.NewRegistrationService(repos.Accounts, otpService, eventPublisher, log)
	authService := usecase.NewAuthService(repos.Accounts, repos.Sessions, otpService, tokens, denylist, eventPublisher, log)
	passwordService := usecase.NewPasswordService(repos.Accounts, repos.Sessions, otpService, eventPublisher, log)
	profileService := usecase.NewProfileService(repos.Accounts, otpService, log)
	sessionService := usecase.NewSessionService(repos.Sessions, eventPublisher, log)

	metrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{})
	if err != nil {
		dispatcher.Close()
		_ = redisClient.Close()
		pool.Close()
		return nil, fmt.Errorf("init http metrics: %w", err)
	}

	engine := routes.Register(routes.Dependencies{
		Config:      cfg,
		Logger:      log,
		RateLimiter: rateLimiter,
		Metrics:     metrics,
		Database:    pool,
		Cache:       redisClient,
		Services: routes.ServiceSet{
			Auth:         authService,
			Registration: registrationService,
			Passwords:    passwordService,
			Profiles:     profileService,
			Sessions:     sessionService,
		},
	})

	return &Application{
		cfg:        cfg,
		engine:     engine,
		logger:     log,
		pool:       pool,
		redis:      redisClient,
		dispatcher: dispatcher,
		producer:   producer,
		tracing:    tracing,
	}, nil
}

// Run serves HTTP until the context is cancelled, then shuts down in order:
// stop accepting requests, drain the dispatcher, flush the producer, close
// the stores.
func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer a.pool.Close()
	defer func() {
		_ = a.redis.Close()
	}()
	defer func() {
		if a.producer != nil {
			_ = a.producer.Close()
		}
	}()
	defer a.dispatcher.Close()
	defer func() {
		if a.tracing != nil {
			_ = a.tracing.Shutdown(context.Background())
		}
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting driver API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	}
}
