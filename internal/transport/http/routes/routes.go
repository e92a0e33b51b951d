package routes

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Simon-Fontaine/bookworm-backend/internal/infra/config"
	"github.com/Simon-Fontaine/bookworm-backend/internal/transport/http/handlers"
	"github.com/Simon-Fontaine/bookworm-backend/internal/transport/http/middleware"
	"github.com/Simon-Fontaine/bookworm-backend/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Accounts  *usecase.AccountService
	Auth      *usecase.AuthService
	Passwords *usecase.PasswordService
	Sessions  *usecase.SessionService
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config   *config.AppConfig
	Logger   *zap.Logger
	Services ServiceSet
	Metrics  *middleware.HTTPMetrics
	Database DatabaseChecker
	Cache    CacheChecker
}

// DatabaseChecker exposes readiness behaviour for database connections.
type DatabaseChecker interface {
	Ping(ctx context.Context) error
}

// CacheChecker exposes readiness behaviour for cache backends.
type CacheChecker interface {
	HealthCheck(ctx context.Context) error
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.EnrichContext())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))
	if len(deps.Config.App.AllowedOrigins) > 0 {
		r.Use(middleware.CORS(deps.Config.App.AllowedOrigins))
	}
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Handler())
	}

	healthOptions := make([]handlers.HealthOption, 0, 2)

	if deps.Database != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("database", deps.Database.Ping))
	}

	if deps.Cache != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("redis", deps.Cache.HealthCheck))
	}

	healthHandler := handlers.NewHealthHandler(healthOptions...)

	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Readiness)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	cookieName := deps.Config.Session.CookieName
	requireSession := middleware.RequireSession(deps.Services.Sessions, cookieName)

	api := r.Group("/api/v1")
	{
		isProd := deps.Config.App.Env == "production"

		authGroup := api.Group("/auth")
		authHandler := handlers.NewAuthHandler(
			deps.Services.Accounts,
			deps.Services.Auth,
			handlers.WithSessionCookie(cookieName, isProd),
		)
		authHandler.RegisterRoutes(authGroup, requireSession)

		accountGroup := api.Group("/account")
		accountGroup.Use(requireSession)
		handlers.NewAccountHandler(deps.Services.Accounts).RegisterRoutes(accountGroup)

		passwordGroup := api.Group("/password")
		handlers.NewPasswordHandler(deps.Services.Passwords).RegisterRoutes(passwordGroup, requireSession)

		sessionGroup := api.Group("/sessions")
		sessionGroup.Use(requireSession)
		handlers.NewSessionHandler(deps.Services.Sessions).RegisterRoutes(sessionGroup)
	}

	return r
}
