package controllers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"

	"github.com/smartsouq/smartsouq_backend/models"
	"github.com/smartsouq/smartsouq_backend/security"
	"github.com/smartsouq/smartsouq_backend/services"
)

const webhookReplayTTL = 24 * time.Hour

// WebhookController receives payment notifications from external systems.
// Events are authenticated with an HMAC-SHA256 signature when a secret is
// configured; without one, only loopback callers are accepted.
type WebhookController struct {
	payments *services.PaymentService
	redis    *redis.Client
}

func NewWebhookController(payments *services.PaymentService, rdb *redis.Client) *WebhookController {
	return &WebhookController{payments: payments, redis: rdb}
}

// HandlePaymentEvent processes POST /webhooks/payment.
func (wc *WebhookController) HandlePaymentEvent(c echo.Context) error {
	contentType := c.Request().Header.Get(echo.HeaderContentType)
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = contentType[:i]
	}
	if !security.ValidateContentType(strings.TrimSpace(contentType)) {
		return c.JSON(http.StatusUnsupportedMediaType, models.Response{
			Status:  http.StatusUnsupportedMediaType,
			Message: "Unsupported content type",
		})
	}

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Failed to read request body",
		})
	}

	secret := os.Getenv("WEBHOOK_SECRET")
	if secret != "" {
		signature := c.Request().Header.Get("x-webhook-signature")
		if !verifySignature(secret, body, signature) {
			return c.JSON(http.StatusUnauthorized, models.Response{
				Status:  http.StatusUnauthorized,
				Message: "Invalid webhook signature",
			})
		}
	} else if !isLoopback(c.RealIP()) {
		return c.JSON(http.StatusForbidden, models.Response{
			Status:  http.StatusForbidden,
			Message: "Unsigned webhooks are accepted from loopback only",
		})
	}

	var event models.WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid event payload",
		})
	}
	if err := c.Validate(&event); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Event is missing required fields",
			Data:    err.Error(),
		})
	}

	if event.TxID == "" {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "txId is required for payment events",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Replay guard: each eventId is processed successfully once. The claim is
	// taken up front so concurrent redeliveries cannot race, and released
	// again on failure so a legitimate redelivery can still succeed later.
	eventKey := "smartsouq:webhook:" + event.EventID
	if wc.redis != nil {
		fresh, err := wc.redis.SetNX(ctx, eventKey, 1, webhookReplayTTL).Result()
		if err == nil && !fresh {
			return c.JSON(http.StatusOK, models.Response{
				Status:  http.StatusOK,
				Message: "Event already processed",
			})
		}
	}

	payment, err := wc.payments.ManualVerify(ctx, event.OrderID, event.TxID)
	if err != nil {
		if wc.redis != nil {
			wc.redis.Del(ctx, eventKey)
		}
		return paymentError(c, err)
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Event processed",
		Data:    payment,
	})
}

func verifySignature(secret string, body []byte, signature string) bool {
	if signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

func isLoopback(ip string) bool {
	parsed := net.ParseIP(ip)
	return parsed != nil && parsed.IsLoopback()
}
