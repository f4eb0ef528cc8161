package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/smartsouq/smartsouq_backend/controllers"
	"github.com/smartsouq/smartsouq_backend/middleware"
)

// SetupRoutes configures all API routes by calling individual route registration functions
func SetupRoutes(
	e *echo.Echo,
	authController *controllers.AuthController,
	paymentController *controllers.PaymentController,
	webhookController *controllers.WebhookController,
	affiliateController *controllers.AffiliateController,
	currencyController *controllers.CurrencyController,
	marketController *controllers.MarketController,
	proxyController *controllers.ProxyController,
) {
	// Session
	e.POST("/api/auth/login", authController.Login)
	logout := e.Group("/api/auth")
	logout.Use(middleware.JWTMiddleware())
	logout.POST("/logout", authController.Logout)

	RegisterPaymentRoutes(e, paymentController, webhookController)
	RegisterAffiliateRoutes(e, affiliateController)
	RegisterMarketRoutes(e, currencyController, marketController)

	// Forwarding proxy
	e.Any("/proxy/:apiName/*", proxyController.Forward)
	e.GET("/status", proxyController.Status)
}
