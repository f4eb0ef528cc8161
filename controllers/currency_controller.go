package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/smartsouq/smartsouq_backend/models"
	"github.com/smartsouq/smartsouq_backend/services"
	"github.com/smartsouq/smartsouq_backend/utils"
)

type CurrencyController struct {
	rates *services.ExchangeRateService
	geo   *services.GeolocationService
}

func NewCurrencyController(rates *services.ExchangeRateService, geo *services.GeolocationService) *CurrencyController {
	return &CurrencyController{rates: rates, geo: geo}
}

// Detect resolves the caller's display currency from their IP.
func (cc *CurrencyController) Detect(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	detection := cc.geo.DetectCurrency(ctx, c.RealIP())
	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Currency detected",
		Data:    detection,
	})
}

// Convert handles GET /api/currency/convert?amount=&from=&to=
func (cc *CurrencyController) Convert(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	amount, err := utils.ParseFloat(c.QueryParam("amount"))
	if err != nil || amount <= 0 {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "A positive amount is required",
		})
	}

	from := c.QueryParam("from")
	to := c.QueryParam("to")
	if from == "" || to == "" {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Both from and to currencies are required",
		})
	}

	converted, err := cc.rates.ConvertCurrency(ctx, amount, from, to)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: err.Error(),
		})
	}

	rate := 0.0
	if amount != 0 {
		rate = converted / amount
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Conversion complete",
		Data: models.ConversionResult{
			Amount:    amount,
			From:      from,
			To:        to,
			Converted: converted,
			Rate:      rate,
		},
	})
}
