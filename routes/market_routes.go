package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/smartsouq/smartsouq_backend/controllers"
)

// RegisterMarketRoutes sets up currency and market data endpoints
func RegisterMarketRoutes(e *echo.Echo, currencyController *controllers.CurrencyController, marketController *controllers.MarketController) {
	e.GET("/api/currency/detect", currencyController.Detect)
	e.GET("/api/currency/convert", currencyController.Convert)

	e.GET("/api/market/tickers", marketController.GetTickers)
	e.GET("/api/market/equity/:symbol", marketController.GetEquityQuote)

	// Live ticker stream for dashboards
	e.GET("/ws/market", marketController.StreamMarket)
}
