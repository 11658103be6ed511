package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"storefront/internal/checkout"
	"storefront/internal/config"
	"storefront/internal/database"
	custommiddleware "storefront/internal/middleware"
	"storefront/internal/repository"
	"storefront/internal/service"
	"storefront/internal/storage"
	"storefront/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// sessionKeyPrefix namespaces cart and checkout state in Redis
const sessionKeyPrefix = "session"

type Server struct {
	*http.Server
	config *config.Config
	logger *zap.Logger
	db     database.Service
	redis  *redis.Client
}

// NewServer wires repositories, services and handlers into one router. A nil
// redisClient keeps sessions in memory and rate limits per process.
func NewServer(cfg *config.Config, logger *zap.Logger, db database.Service, redisClient *redis.Client) *Server {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger, cfg.IsProduction()))
	router.Use(custommiddleware.CORSMiddleware(cfg.Server.FrontendOrigins, !cfg.IsProduction()))
	router.NotFound(custommiddleware.NotFoundHandler)

	s := &Server{
		config: cfg,
		logger: logger,
		db:     db,
		redis:  redisClient,
	}

	router.Get("/health", s.health)

	// Initialize repositories
	sqlDB := db.DB()
	userRepo := repository.NewUserRepository(sqlDB)
	refreshTokenRepo := repository.NewRefreshTokenRepository(sqlDB)
	productRepo := repository.NewProductRepository(sqlDB)
	categoryRepo := repository.NewCategoryRepository(sqlDB)
	orderRepo := repository.NewOrderRepository(sqlDB)

	var sessions storage.KV
	limitConfig := custommiddleware.RateLimitConfig{
		RequestsPerWindow: cfg.RateLimit.Requests,
		Window:            cfg.RateLimit.Window,
		KeyPrefix:         "ratelimit:auth",
	}
	var limiter func(http.Handler) http.Handler
	if redisClient != nil {
		sessions = storage.NewRedisKV(redisClient, sessionKeyPrefix, cfg.Cart.SessionTTL)
		limiter = custommiddleware.RateLimitMiddleware(redisClient, limitConfig, logger)
	} else {
		logger.Warn("Redis not configured, keeping sessions in memory")
		sessions = storage.NewMemoryKV()
		limiter = custommiddleware.LocalRateLimitMiddleware(limitConfig, logger)
	}

	// Initialize services
	policy := checkout.Policy{
		ShippingFee:           cfg.Pricing.ShippingFee,
		FreeShippingThreshold: cfg.Pricing.FreeShippingThreshold,
		TaxRate:               cfg.Pricing.TaxRate,
	}
	userService := service.NewUserService(userRepo, refreshTokenRepo, service.TokenConfig{
		Secret:     cfg.JWT.Secret,
		AccessTTL:  time.Duration(cfg.JWT.AccessExpiry) * time.Minute,
		RefreshTTL: time.Duration(cfg.JWT.RefreshExpiry) * 24 * time.Hour,
	})
	productService := service.NewProductService(productRepo, categoryRepo)
	adminService := service.NewAdminService(productRepo, userRepo, orderRepo, cfg.Inventory.LowStockThreshold)
	cartService := service.NewCartService(sessions, productRepo, policy, logger)
	checkoutService := service.NewCheckoutService(sessions, policy, logger)

	// Create middleware
	authMiddleware := custommiddleware.AuthMiddleware(userService, logger)
	optionalAuth := custommiddleware.OptionalAuth(userService, logger)
	adminMiddleware := custommiddleware.RequireAdmin(logger)
	sessionMiddleware := custommiddleware.SessionMiddleware(logger)

	// Register routes
	transport.NewAuthHandler(userService, logger).RegisterRoutes(router, authMiddleware, limiter)
	transport.NewProductHandler(productService, logger).RegisterRoutes(router, optionalAuth, authMiddleware, adminMiddleware)
	transport.NewAdminHandler(adminService, logger).RegisterRoutes(router, authMiddleware, adminMiddleware)
	transport.NewUploadHandler(cfg.Upload.Dir, cfg.Upload.MaxBytes, logger).RegisterRoutes(router, authMiddleware, adminMiddleware)
	transport.NewCartHandler(cartService, logger).RegisterRoutes(router, sessionMiddleware)
	transport.NewCheckoutHandler(checkoutService, logger).RegisterRoutes(router, sessionMiddleware)

	s.Server = &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      otelhttp.NewHandler(router, "storefront-api"),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return s
}

// health reports database and Redis status. Only a down database fails the check.
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	body := map[string]interface{}{"status": "ok"}

	dbHealth := s.db.Health(r.Context())
	body["database"] = dbHealth
	if dbHealth["status"] != "up" {
		status = http.StatusServiceUnavailable
		body["status"] = "unavailable"
	}

	if s.redis != nil {
		ctx, cancel := context.WithTimeout(r.Context(), time.Second)
		defer cancel()

		if err := s.redis.Ping(ctx).Err(); err != nil {
			body["redis"] = map[string]string{"status": "down", "error": err.Error()}
		} else {
			body["redis"] = map[string]string{"status": "up"}
		}
	}

	custommiddleware.RespondWithJSON(w, status, body)
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("Failed to close redis connection", zap.Error(err))
		}
	}

	// Close database connection
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
		}
	}

	s.logger.Sync()
	return nil
}
