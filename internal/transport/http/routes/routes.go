package routes

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/dadyutenga/driver-app-backend/internal/infra/config"
	"github.com/dadyutenga/driver-app-backend/internal/transport/http/handlers"
	"github.com/dadyutenga/driver-app-backend/internal/transport/http/middleware"
	"github.com/dadyutenga/driver-app-backend/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Auth         *usecase.AuthService
	Registration *usecase.RegistrationService
	Passwords    *usecase.PasswordService
	Profiles     *usecase.ProfileService
	Sessions     *usecase.SessionService
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config      *config.AppConfig
	Logger      *zap.Logger
	RateLimiter *middleware.RateLimiter
	Metrics     *middleware.HTTPMetrics
	Services    ServiceSet
	Database    DatabaseChecker
	Cache       CacheChecker
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
	if deps.Config != nil && deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.EnrichContext())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Handler())
	}

	authMiddleware := middleware.RequireAuth(deps.Services.Auth)

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

	authHandler := handlers.NewAuthHandler(deps.Services.Auth, deps.Services.Registration)
	passwordHandler := handlers.NewPasswordHandler(deps.Services.Passwords)
	profileHandler := handlers.NewProfileHandler(deps.Services.Profiles)
	sessionHandler := handlers.NewSessionHandler(deps.Services.Sessions)

	r.POST("/register", authHandler.Register)
	r.POST("/login", withRules(buildLoginMiddlewares(deps), authHandler.Login)...)
	r.POST("/verify-otp", authHandler.VerifyOTP)
	r.POST("/request-otp", withRules(buildOTPMiddlewares(deps), authHandler.RequestOTP)...)
	r.POST("/resend-otp", withRules(buildOTPMiddlewares(deps), authHandler.ResendOTP)...)
	r.POST("/token/refresh", authHandler.Refresh)
	r.POST("/logout", authMiddleware, authHandler.Logout)

	resetMiddlewares := buildPasswordResetMiddlewares(deps)
	r.POST("/password-reset", withRules(resetMiddlewares, passwordHandler.RequestReset)...)
	r.POST("/password-reset/confirm", withRules(resetMiddlewares, passwordHandler.ConfirmReset)...)
	r.POST("/change-password", authMiddleware, passwordHandler.ChangePassword)

	r.GET("/profile", authMiddleware, profileHandler.Get)
	r.PUT("/profile", authMiddleware, profileHandler.Update)

	r.GET("/sessions", authMiddleware, sessionHandler.List)
	r.POST("/sessions/:id/terminate", authMiddleware, sessionHandler.Terminate)

	return r
}

func withRules(rules []gin.HandlerFunc, handler gin.HandlerFunc) []gin.HandlerFunc {
	chain := append([]gin.HandlerFunc{}, rules...)
	return append(chain, handler)
}

func buildLoginMiddlewares(deps Dependencies) []gin.HandlerFunc {
	if deps.RateLimiter == nil || deps.Config == nil {
		return nil
	}

	limit := deps.Config.RateLimit.LoginMaxAttempts
	if limit <= 0 {
		return nil
	}

	window := deps.Config.RateLimit.WindowDuration
	if window <= 0 {
		window = time.Minute
	}

	rule := middleware.RateLimitRule{
		Name:       "login_ip",
		Limit:      limit,
		Window:     window,
		Identifier: middleware.ClientIPIdentifier(),
	}

	return []gin.HandlerFunc{deps.RateLimiter.RateLimit(rule)}
}

func buildOTPMiddlewares(deps Dependencies) []gin.HandlerFunc {
	if deps.RateLimiter == nil || deps.Config == nil {
		return nil
	}

	limit := deps.Config.RateLimit.RequestOTPMaxAttempts
	if limit <= 0 {
		return nil
	}

	window := deps.Config.RateLimit.WindowDuration
	if window <= 0 {
		window = time.Minute
	}

	rule := middleware.RateLimitRule{
		Name:       "otp_request_ip",
		Limit:      limit,
		Window:     window,
		Identifier: middleware.ClientIPIdentifier(),
	}

	return []gin.HandlerFunc{deps.RateLimiter.RateLimit(rule)}
}

func buildPasswordResetMiddlewares(deps Dependencies) []gin.HandlerFunc {
	if deps.RateLimiter == nil || deps.Config == nil {
		return nil
	}

	limit := deps.Config.RateLimit.PasswordResetMaxAttempts
	if limit <= 0 {
		return nil
	}

	window := deps.Config.RateLimit.WindowDuration
	if window <= 0 {
		window = time.Hour
	}

	rule := middleware.RateLimitRule{
		Name:       "password_reset_ip",
		Limit:      limit,
		Window:     window,
		Identifier: middleware.ClientIPIdentifier(),
	}

	return []gin.HandlerFunc{deps.RateLimiter.RateLimit(rule)}
}
