package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"

	"github.com/smartsouq/smartsouq_backend/config"
	"github.com/smartsouq/smartsouq_backend/controllers"
	"github.com/smartsouq/smartsouq_backend/middleware"
	"github.com/smartsouq/smartsouq_backend/repositories"
	"github.com/smartsouq/smartsouq_backend/routes"
	"github.com/smartsouq/smartsouq_backend/services"
	"github.com/smartsouq/smartsouq_backend/websocket"
)

// CustomValidator is a custom validator for Echo
type CustomValidator struct {
	validator *validator.Validate
}

// Validate validates the request body
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

func main() {
	// Load .env file
	err := godotenv.Load()
	if err != nil {
		log.Println("Warning: .env file not found")
	}

	// Connect to Redis (optional; caches degrade without it)
	rdb := config.ConnectRedis()

	// Connect to database
	client := config.ConnectDB()

	// Create WebSocket hub for the market ticker stream
	wsHub := websocket.NewHub()
	go wsHub.Run()

	// Create a new Echo instance
	e := echo.New()

	// Initialize custom validator
	customValidator := &CustomValidator{validator: validator.New()}
	e.Validator = customValidator

	// Initialize rate limiter
	rateLimiter := middleware.NewRateLimiter()

	// Middleware
	e.Use(echoMiddleware.Logger())
	e.Use(echoMiddleware.Recover())
	e.Use(middleware.GlobalCORS())
	e.Use(echoMiddleware.Secure())
	e.Use(rateLimiter.RateLimit())
	e.Use(middleware.SecurityHeadersWithConfig(middleware.DefaultSecurityConfig()))

	e.Match([]string{"GET", "HEAD"}, "/", func(c echo.Context) error {
		return c.JSON(200, map[string]string{
			"status":  "OK",
			"message": "Smart Souq Backend is running",
			"version": "1.0",
		})
	})

	e.Match([]string{"GET", "HEAD"}, "/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{
			"status":   "healthy",
			"database": "connected",
		})
	})

	e.Use(httpsRedirect())

	// Start the token blacklist janitor
	go middleware.CleanupBlacklist()

	// Initialize repositories
	paymentRepo := repositories.NewPaymentRepository(client)
	agentRepo := repositories.NewAgentRepository(client)
	clickRepo := repositories.NewClickRepository(client)
	commissionRepo := repositories.NewCommissionRepository(client)

	// Initialize services
	rateService := services.NewExchangeRateService(rdb)
	blockchainService := services.NewBlockchainService()
	paymentService := services.NewPaymentService(paymentRepo, rateService, blockchainService)
	verifier := services.NewPaymentVerifier(paymentService)
	affiliateService := services.NewAffiliateService(agentRepo, clickRepo, commissionRepo)
	marketService := services.NewMarketDataService(rdb)
	geoService := services.NewGeolocationService()

	// Initialize controllers
	authController := controllers.NewAuthController()
	paymentController := controllers.NewPaymentController(paymentService, verifier)
	webhookController := controllers.NewWebhookController(paymentService, rdb)
	affiliateController := controllers.NewAffiliateController(affiliateService)
	currencyController := controllers.NewCurrencyController(rateService, geoService)
	marketController := controllers.NewMarketController(marketService, wsHub)
	proxyController := controllers.NewProxyController()

	routes.SetupRoutes(e, authController, paymentController, webhookController,
		affiliateController, currencyController, marketController, proxyController)

	// Background refreshers: exchange rates and the ticker broadcast
	refreshCtx, stopRefresh := context.WithCancel(context.Background())
	go func() {
		fetchCtx, cancel := context.WithTimeout(refreshCtx, 20*time.Second)
		if err := rateService.RefreshRates(fetchCtx); err != nil {
			log.Printf("Initial exchange rate refresh failed: %v", err)
		}
		cancel()
	}()
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-refreshCtx.Done():
				return
			case <-ticker.C:
				fetchCtx, cancel := context.WithTimeout(refreshCtx, 20*time.Second)
				if err := rateService.RefreshRates(fetchCtx); err != nil {
					log.Printf("Exchange rate refresh failed: %v", err)
				}
				cancel()
			}
		}
	}()
	go marketService.StartTicker(refreshCtx, wsHub, tickerInterval())

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	go func() {
		if err := e.Start(":" + port); err != nil {
			log.Printf("Server stopped: %v", err)
		}
	}()

	// Graceful shutdown: stop refreshers and verification workers first
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	stopRefresh()
	verifier.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
}

func tickerInterval() time.Duration {
	if str := os.Getenv("MARKET_REFRESH_SECONDS"); str != "" {
		if secs, err := strconv.Atoi(str); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return 60 * time.Second
}

func httpsRedirect() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Header.Get("X-Forwarded-Proto") == "http" {
				return c.Redirect(301, "https://"+c.Request().Host+c.Request().RequestURI)
			}
			return next(c)
		}
	}
}
