package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/smartsouq/smartsouq_backend/controllers"
	"github.com/smartsouq/smartsouq_backend/middleware"
)

// RegisterAffiliateRoutes sets up agent, link and conversion endpoints
func RegisterAffiliateRoutes(e *echo.Echo, affiliateController *controllers.AffiliateController) {
	// Public: registration, link minting and conversion reporting
	e.POST("/api/agents", affiliateController.RegisterAgent)
	e.GET("/api/agents/:id/dashboard", affiliateController.GetDashboard)
	e.POST("/api/links", affiliateController.CreateLink)
	e.POST("/api/conversions", affiliateController.RecordConversion)

	// Tracked redirect for affiliate links
	e.GET("/r/:clickId", affiliateController.TrackClick)

	// Admin approval workflow
	admin := e.Group("/api/agents")
	admin.Use(middleware.JWTMiddleware())
	admin.Use(middleware.RequireRole(middleware.RoleAdmin))
	admin.POST("/:id/approve", affiliateController.ApproveAgent)
}
