package controllers

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image/png"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/qr"
	"github.com/labstack/echo/v4"

	"github.com/smartsouq/smartsouq_backend/models"
	"github.com/smartsouq/smartsouq_backend/services"
)

type PaymentController struct {
	payments *services.PaymentService
	verifier *services.PaymentVerifier
}

func NewPaymentController(payments *services.PaymentService, verifier *services.PaymentVerifier) *PaymentController {
	return &PaymentController{payments: payments, verifier: verifier}
}

// CreatePayment opens a new payment order. Card payments start their
// simulated settlement sequence in the background.
func (pc *PaymentController) CreatePayment(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var req models.CreatePaymentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
			Data:    err.Error(),
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Validation failed",
			Data:    err.Error(),
		})
	}

	payment, err := pc.payments.CreatePayment(ctx, req)
	if err != nil {
		if errors.Is(err, services.ErrDuplicateOrder) {
			return c.JSON(http.StatusConflict, models.Response{
				Status:  http.StatusConflict,
				Message: "A payment already exists for this order",
			})
		}
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to create payment",
			Data:    err.Error(),
		})
	}

	if payment.Method == models.PaymentMethodCard {
		go func(orderID string) {
			cardCtx, cardCancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cardCancel()
			if _, err := pc.payments.ProcessCardPayment(cardCtx, orderID); err != nil {
				log.Printf("Card settlement for %s failed: %v", orderID, err)
			}
		}(payment.OrderID)
	}

	return c.JSON(http.StatusCreated, models.Response{
		Status:  http.StatusCreated,
		Message: "Payment created",
		Data:    payment,
	})
}

// GetPayment returns the current state of a payment order.
func (pc *PaymentController) GetPayment(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	payment, err := pc.payments.GetPayment(ctx, c.Param("orderId"))
	if err != nil {
		return paymentError(c, err)
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Payment found",
		Data:    payment,
	})
}

// VerifyPayment runs one verification pass and, if the payment is still
// pending, hands it to the background verifier.
func (pc *PaymentController) VerifyPayment(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	orderID := c.Param("orderId")
	payment, err := pc.payments.VerifyPayment(ctx, orderID)
	if err != nil {
		return paymentError(c, err)
	}

	if payment.Status == models.PaymentStatusPending || payment.Status == models.PaymentStatusVerifying {
		pc.verifier.Start(orderID)
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Verification " + string(payment.Status),
		Data:    payment,
	})
}

// ManualVerify completes a payment by exact transaction ID.
func (pc *PaymentController) ManualVerify(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var req models.ManualVerifyRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "txId is required",
		})
	}

	orderID := c.Param("orderId")
	payment, err := pc.payments.ManualVerify(ctx, orderID, req.TxID)
	if err != nil {
		return paymentError(c, err)
	}

	if payment.Status == models.PaymentStatusCompleted {
		pc.verifier.Cancel(orderID)
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Verification " + string(payment.Status),
		Data:    payment,
	})
}

// RetryPayment resets a failed payment and restarts its verifier.
func (pc *PaymentController) RetryPayment(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	orderID := c.Param("orderId")
	payment, err := pc.payments.Retry(ctx, orderID)
	if err != nil {
		if errors.Is(err, services.ErrInvalidTransition) {
			return c.JSON(http.StatusConflict, models.Response{
				Status:  http.StatusConflict,
				Message: "Only failed payments can be retried",
			})
		}
		return paymentError(c, err)
	}

	pc.verifier.Start(orderID)

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Payment reset to pending",
		Data:    payment,
	})
}

// GetPaymentLogs returns the latest audit entries for the admin dashboard.
func (pc *PaymentController) GetPaymentLogs(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	limit := int64(50)
	if str := c.QueryParam("limit"); str != "" {
		if n, err := strconv.ParseInt(str, 10, 64); err == nil {
			limit = n
		}
	}

	entries, err := pc.payments.RecentLogs(ctx, limit)
	if err != nil {
		return paymentError(c, err)
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Payment logs loaded",
		Data:    entries,
	})
}

// GetDepositQRCode returns the deposit address as a base64 PNG QR code.
func (pc *PaymentController) GetDepositQRCode(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	payment, err := pc.payments.GetPayment(ctx, c.Param("orderId"))
	if err != nil {
		return paymentError(c, err)
	}

	qrCode, err := qr.Encode(payment.DepositAddress, qr.M, qr.Auto)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to generate QR code",
		})
	}

	// Scale the QR code to a reasonable size (300x300 pixels)
	qrCode, err = barcode.Scale(qrCode, 300, 300)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to scale QR code",
		})
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, qrCode); err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to encode QR code",
		})
	}

	base64QR := "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "QR code generated",
		Data: map[string]string{
			"orderId":        payment.OrderID,
			"depositAddress": payment.DepositAddress,
			"qrCode":         base64QR,
		},
	})
}

func paymentError(c echo.Context, err error) error {
	if errors.Is(err, services.ErrPaymentNotFound) {
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "Payment not found",
		})
	}
	return c.JSON(http.StatusInternalServerError, models.Response{
		Status:  http.StatusInternalServerError,
		Message: "Payment operation failed",
		Data:    err.Error(),
	})
}
