package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/Simon-Fontaine/bookworm-backend/internal/core/port"
	"github.com/Simon-Fontaine/bookworm-backend/internal/infra/config"
	"github.com/Simon-Fontaine/bookworm-backend/internal/infra/database"
	"github.com/Simon-Fontaine/bookworm-backend/internal/infra/geoip"
	kafkainfra "github.com/Simon-Fontaine/bookworm-backend/internal/infra/kafka"
	"github.com/Simon-Fontaine/bookworm-backend/internal/infra/logger"
	redisinfra "github.com/Simon-Fontaine/bookworm-backend/internal/infra/redis"
	"github.com/Simon-Fontaine/bookworm-backend/internal/infra/security"
	postgresrepo "github.com/Simon-Fontaine/bookworm-backend/internal/repository/postgres"
	redisrepo "github.com/Simon-Fontaine/bookworm-backend/internal/repository/redis"
	"github.com/Simon-Fontaine/bookworm-backend/internal/transport/http/middleware"
	"github.com/Simon-Fontaine/bookworm-backend/internal/transport/http/routes"
	"github.com/Simon-Fontaine/bookworm-backend/internal/usecase"
)

// Application wires the identity service together and owns its lifecycle.
type Application struct {
	cfg      *config.AppConfig
	engine   *gin.Engine
	logger   *zap.Logger
	pool     *pgxpool.Pool
	redis    *redisinfra.Client
	producer *kafkainfra.Producer
}

// New builds the full dependency graph from configuration.
func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	if err := security.ConfigureArgon2(security.Argon2Config{
		Memory:      cfg.Argon2.Memory,
		Iterations:  cfg.Argon2.Iterations,
		Parallelism: cfg.Argon2.Parallelism,
		SaltLength:  cfg.Argon2.SaltLength,
		KeyLength:   cfg.Argon2.KeyLength,
	}); err != nil {
		return nil, fmt.Errorf("configure argon2: %w", err)
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
	uow := postgresrepo.NewUnitOfWork(pool, repos)

	throttleTTL := cfg.Throttle.CounterTTL
	if throttleTTL <= 0 {
		throttleTTL = cfg.Throttle.WindowDuration * 2
	}
	throttleStore := redisrepo.NewThrottleRepository(redisClient.Client(), redisrepo.SlidingWindowConfig{
		KeyPrefix: "bookworm:dispatch",
		TTL:       throttleTTL,
	})
	gate := usecase.NewDispatchGate(throttleStore, cfg.Throttle.WindowDuration, cfg.Throttle.MaxEmailDispatch, log)

	var (
		notifier port.Notifier
		producer *kafkainfra.Producer
	)
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err = kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, falling back to log notifier", zap.Error(err))
			notifier = kafkainfra.NewLoggingNotifier(log)
		} else {
			notifier = kafkainfra.NewNotifier(producer, cfg.App, log)
			log.Info("kafka notifier initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
		}
	} else {
		log.Info("kafka brokers not configured, using log notifier")
		notifier = kafkainfra.NewLoggingNotifier(log)
	}

	geolocator := geoip.NewClient(cfg.GeoIP, log)
	passwordValidator := security.DefaultPasswordValidator()

	accountService := usecase.NewAccountService(
		repos.Users, repos.Tokens, uow, notifier, gate,
		passwordValidator, cfg.Tokens.VerificationTTL, log,
	)
	authService := usecase.NewAuthService(repos.Users, repos.Sessions, geolocator, cfg.Session.TTL, log)
	passwordService := usecase.NewPasswordService(
		repos.Users, repos.Tokens, uow, notifier, gate,
		passwordValidator, cfg.Tokens.ResetTTL, log,
	)
	sessionService := usecase.NewSessionService(repos.Sessions, repos.Users, log)

	metrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{})
	if err != nil {
		return nil, fmt.Errorf("init http metrics: %w", err)
	}

	engine := routes.Register(routes.Dependencies{
		Config:   cfg,
		Logger:   log,
		Metrics:  metrics,
		Database: pool,
		Cache:    redisClient,
		Services: routes.ServiceSet{
			Accounts:  accountService,
			Auth:      authService,
			Passwords: passwordService,
			Sessions:  sessionService,
		},
	})

	return &Application{
		cfg:      cfg,
		engine:   engine,
		logger:   log,
		pool:     pool,
		redis:    redisClient,
		producer: producer,
	}, nil
}

// Run serves HTTP until the context is cancelled, then shuts down gracefully.
func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer func() {
		if a.pool != nil {
			a.pool.Close()
		}
	}()
	defer func() {
		if a.redis != nil {
			_ = a.redis.Close()
		}
	}()
	defer func() {
		if a.producer != nil {
			_ = a.producer.Close()
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

	a.logger.Info("starting identity API",
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
