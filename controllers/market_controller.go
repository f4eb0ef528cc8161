package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/smartsouq/smartsouq_backend/models"
	"github.com/smartsouq/smartsouq_backend/services"
	ws "github.com/smartsouq/smartsouq_backend/websocket"
)

type MarketController struct {
	market *services.MarketDataService
	hub    *ws.Hub
}

func NewMarketController(market *services.MarketDataService, hub *ws.Hub) *MarketController {
	return &MarketController{market: market, hub: hub}
}

// GetTickers returns cached crypto quotes. Market data degrades to static
// fallbacks instead of erroring.
func (mc *MarketController) GetTickers(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	tickers := mc.market.GetTickers(ctx)
	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Tickers loaded",
		Data:    tickers,
	})
}

// GetEquityQuote returns an Alpha Vantage stock quote.
func (mc *MarketController) GetEquityQuote(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	symbol := c.Param("symbol")
	quote := mc.market.FetchEquityQuote(ctx, symbol)
	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Quote loaded",
		Data:    quote,
	})
}

// StreamMarket upgrades to a WebSocket carrying periodic ticker frames.
func (mc *MarketController) StreamMarket(c echo.Context) error {
	return ws.HandleWebSocket(c, mc.hub)
}
