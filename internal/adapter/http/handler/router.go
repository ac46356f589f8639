package handler

import (
	"prize-scratch-engine/internal/adapter/http/middleware"
	redisStore "prize-scratch-engine/internal/adapter/storage/redis"
	"prize-scratch-engine/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	AuthSvc        ports.AuthService
	GameSvc        ports.GameService
	WalletSvc      ports.WalletService
	SigSvc         ports.SignatureService
	NonceStore     ports.NonceStore
	TokenSvc       ports.TokenService
	WebhookAuth    middleware.WebhookAuthConfig
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

	gameHandler := NewGameHandler(deps.GameSvc)

	// Product RTP statistics are public read-only data.
	v1.GET("/products/:id/stats", rl("stats"), gameHandler.GetProductStats)

	// --- JWT-authenticated routes (player API) ---
	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)
	walletHandler := NewWalletHandler(deps.WalletSvc)

	games := v1.Group("/games", jwtAuth)
	{
		games.POST("/play", rl("plays"), gameHandler.Play)
		games.POST("/:id/redemption", rl("redemptions"), gameHandler.Redeem)
		games.GET("/:id", rl("plays"), gameHandler.GetGame)
	}

	wallets := v1.Group("/wallets", jwtAuth)
	{
		wallets.GET("/balance", rl("wallet"), walletHandler.GetBalance)
	}

	// --- Signed provider callbacks (HMAC-authenticated) ---
	webhookAuth := middleware.WebhookAuth(deps.WebhookAuth, deps.SigSvc, deps.NonceStore, deps.Logger)
	webhooks := v1.Group("/webhooks", webhookAuth)
	{
		webhooks.POST("/deposits", rl("deposit_webhook"), walletHandler.DepositWebhook)
	}

	return r
}
