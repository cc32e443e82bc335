package handler

import (
	"token-sale-gateway/internal/adapter/http/middleware"
	redisStore "token-sale-gateway/internal/adapter/storage/redis"
	"token-sale-gateway/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	AuthSvc        ports.AuthService
	PaymentSvc     ports.PaymentService
	WalletSvc      ports.WalletService
	WithdrawalSvc  ports.WithdrawalService
	IPNVerifier    ports.IPNVerifier
	TokenSvc       ports.TokenService
	RateLimitStore *redisStore.RateLimitStore // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Health check (deep — verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// Swagger documentation
	swagger := r.Group("/swagger")
	{
		swagger.GET("", SwaggerUI)
		swagger.GET("/spec", SwaggerSpec)
	}

	// Rate limit rules
	rules := middleware.DefaultRateLimitRules()

	// Helper: return rate limiter middleware if store is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	// API v1 routes
	v1 := r.Group("/api/v1")

	// --- Public routes (no auth) ---
	authHandler := NewAuthHandler(deps.AuthSvc)
	auth := v1.Group("/auth")
	{
		auth.POST("/register", rl("auth_register"), authHandler.Register)
		auth.POST("/login", rl("auth_login"), authHandler.Login)
	}

	// IPN is authenticated by its HMAC signature, not by a session.
	paymentHandler := NewPaymentHandler(deps.PaymentSvc, deps.IPNVerifier, deps.Logger)
	v1.POST("/payments/ipn", rl("ipn"), paymentHandler.IPN)

	// --- JWT-authenticated routes ---
	jwtAuth := middleware.JWTAuth(deps.TokenSvc)
	walletHandler := NewWalletHandler(deps.WalletSvc)
	withdrawalHandler := NewWithdrawalHandler(deps.WithdrawalSvc)

	payments := v1.Group("/payments", jwtAuth)
	{
		payments.POST("", rl("payments"), paymentHandler.Initiate)
		payments.GET("", rl("payments"), paymentHandler.List)
	}

	wallet := v1.Group("/wallet", jwtAuth)
	{
		wallet.GET("/balance", rl("wallet"), walletHandler.Balance)
		wallet.GET("/history", rl("wallet"), walletHandler.History)
	}

	withdrawals := v1.Group("/withdrawals", jwtAuth)
	{
		withdrawals.POST("", rl("withdrawals"), withdrawalHandler.Request)
		withdrawals.GET("", rl("withdrawals"), withdrawalHandler.List)
	}

	// --- Admin routes ---
	admin := v1.Group("/admin", jwtAuth, middleware.RequireAdmin())
	{
		admin.GET("/withdrawals", rl("withdrawals"), withdrawalHandler.ListPending)
		admin.POST("/withdrawals/:id/approve", rl("withdrawals"), withdrawalHandler.Approve)
		admin.POST("/withdrawals/:id/reject", rl("withdrawals"), withdrawalHandler.Reject)
	}

	return r
}
