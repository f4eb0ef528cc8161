package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/smartsouq/smartsouq_backend/controllers"
	"github.com/smartsouq/smartsouq_backend/middleware"
)

// RegisterPaymentRoutes sets up the payment lifecycle endpoints
func RegisterPaymentRoutes(e *echo.Echo, paymentController *controllers.PaymentController, webhookController *controllers.WebhookController) {
	p := e.Group("/api/payments")

	p.POST("", paymentController.CreatePayment)

	// Audit trail for the admin dashboard
	p.GET("/logs", paymentController.GetPaymentLogs,
		middleware.JWTMiddleware(), middleware.RequireRole(middleware.RoleAdmin))
	p.GET("/:orderId", paymentController.GetPayment)
	p.GET("/:orderId/qr", paymentController.GetDepositQRCode)
	p.POST("/:orderId/verify", paymentController.VerifyPayment)
	p.POST("/:orderId/manual-verify", paymentController.ManualVerify)
	p.POST("/:orderId/retry", paymentController.RetryPayment)

	// External payment notifications (HMAC-signed)
	e.POST("/webhooks/payment", webhookController.HandlePaymentEvent)
}
