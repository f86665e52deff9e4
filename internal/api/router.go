package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	echoswagger "github.com/swaggo/echo-swagger"
	"go.mongodb.org/mongo-driver/mongo"

	_ "github.com/medibook/appointment-api/docs"
	"github.com/medibook/appointment-api/internal/api/handler"
	"github.com/medibook/appointment-api/internal/api/middleware"
	"github.com/medibook/appointment-api/internal/core/ports"
	"github.com/medibook/appointment-api/internal/core/service"
	"github.com/medibook/appointment-api/internal/infrastructure/config"
	mongorepo "github.com/medibook/appointment-api/internal/infrastructure/db/mongo"
	redisrepo "github.com/medibook/appointment-api/internal/infrastructure/db/redis"
	"github.com/medibook/appointment-api/internal/infrastructure/google"
	"github.com/medibook/appointment-api/internal/infrastructure/http/handlers"
	"github.com/medibook/appointment-api/pkg/logger"
)

// NewRouter builds and returns the Echo instance with all routes registered.
// The mailer is injected so main owns the SMTP lifecycle and tests can swap
// in a fake.
func NewRouter(db *mongo.Database, rdb *redis.Client, mailer ports.Mailer, cfg *config.Config) *echo.Echo {
	log := logger.Get()

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	e.Use(echoprometheus.NewMiddleware("appointment_api"))

	// --- Dependencies ---
	userRepo := mongorepo.NewUserRepository(db)
	doctorRepo := mongorepo.NewDoctorRepository(db)
	limiter := redisrepo.NewRateLimiter(rdb)
	verifier := google.NewVerifier(cfg.Google.ClientID)

	authService := service.NewAuthService(userRepo, doctorRepo, mailer, verifier, limiter, service.AuthConfig{
		JWTSecret:       cfg.Token.JWTSecret,
		SessionTTL:      cfg.Token.SessionTTL,
		VerificationTTL: cfg.Token.VerificationTTL,
		ResetTTL:        cfg.Token.ResetTTL,
	}, log)
	doctorService := service.NewDoctorService(doctorRepo, log)

	authHandler := handler.NewAuthHandler(authService)
	doctorHandler := handler.NewDoctorHandler(doctorService)
	authMiddleware := middleware.Auth(cfg.Token.JWTSecret)

	// --- Auth routes ---
	auth := e.Group("/v1/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/google", authHandler.GoogleLogin)
	auth.GET("/verify-email/:token", authHandler.VerifyEmail)
	auth.POST("/forgot-password", authHandler.ForgotPassword)
	auth.POST("/reset-password/:token", authHandler.ResetPassword)
	auth.GET("/me", authHandler.Me, authMiddleware)

	// --- Doctor routes ---
	doctors := e.Group("/v1/doctors", authMiddleware, middleware.RBAC("doctor"))
	doctors.GET("/me", doctorHandler.Me)

	// --- Health probes (no auth required) ---
	healthHandler := handlers.NewHealthHandler()
	healthDepsHandler := handlers.NewHealthDependenciesHandler(db, rdb)

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?

	// --- Observability & docs ---
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoswagger.WrapHandler)

	return e
}
