package controllers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartsouq/smartsouq_backend/models"
	"github.com/smartsouq/smartsouq_backend/repositories"
	"github.com/smartsouq/smartsouq_backend/services"
)

type testValidator struct {
	validator *validator.Validate
}

func (v *testValidator) Validate(i interface{}) error {
	return v.validator.Struct(i)
}

// fakePaymentStore is a minimal in-memory PaymentStore for handler tests.
type fakePaymentStore struct {
	mu       sync.Mutex
	payments map[string]models.Payment
}

func newFakePaymentStore() *fakePaymentStore {
	return &fakePaymentStore{payments: make(map[string]models.Payment)}
}

func (s *fakePaymentStore) Create(ctx context.Context, payment *models.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payments[payment.OrderID] = *payment
	return nil
}

func (s *fakePaymentStore) GetByOrderID(ctx context.Context, orderID string) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	payment, exists := s.payments[orderID]
	if !exists {
		return nil, repositories.ErrNotFound
	}
	copied := payment
	return &copied, nil
}

func (s *fakePaymentStore) Update(ctx context.Context, payment *models.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payments[payment.OrderID] = *payment
	return nil
}

func (s *fakePaymentStore) FindCompletedByTxID(ctx context.Context, txID string) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, payment := range s.payments {
		if payment.TxID == txID && payment.Status == models.PaymentStatusCompleted {
			copied := payment
			return &copied, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (s *fakePaymentStore) AppendLog(ctx context.Context, orderID, event, detail string) error {
	return nil
}

func (s *fakePaymentStore) RecentLogs(ctx context.Context, limit int64) ([]models.PaymentLog, error) {
	return nil, nil
}

// knownTxVerifier verifies exactly one transaction ID.
type knownTxVerifier struct {
	txID   string
	amount float64
}

func (v *knownTxVerifier) VerifyTransaction(ctx context.Context, expectedAmount float64, createdAt time.Time) (*models.VerificationResult, error) {
	return &models.VerificationResult{Verified: false, Message: "no matching transfer found"}, nil
}

func (v *knownTxVerifier) VerifyByTxID(ctx context.Context, txID string) (*models.VerificationResult, error) {
	if txID == v.txID {
		return &models.VerificationResult{Verified: true, TxID: txID, Amount: v.amount}, nil
	}
	return &models.VerificationResult{Verified: false, Message: "transaction not found"}, nil
}

func (v *knownTxVerifier) WalletAddress() string { return "TTestDepositWallet000000000000000" }

func newWebhookFixture(t *testing.T, rdb *redis.Client) (*WebhookController, *services.PaymentService) {
	t.Helper()
	t.Setenv("USDT_WALLET_ADDRESS", "TTestDepositWallet000000000000000")
	t.Setenv("COMMISSION_RATE", "0.05")

	store := newFakePaymentStore()
	rates := services.NewExchangeRateService(nil)
	chain := &knownTxVerifier{txID: "tx-hook", amount: 10}
	payments := services.NewPaymentService(store, rates, chain)
	return NewWebhookController(payments, rdb), payments
}

func postWebhook(wc *WebhookController, body string, decorate func(*http.Request)) *httptest.ResponseRecorder {
	e := echo.New()
	e.Validator = &testValidator{validator: validator.New()}

	req := httptest.NewRequest(http.MethodPost, "/webhooks/payment", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if decorate != nil {
		decorate(req)
	}
	rec := httptest.NewRecorder()
	wc.HandlePaymentEvent(e.NewContext(req, rec))
	return rec
}

func signBody(secret, body string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(body))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestWebhookCompletesPaymentWithValidSignature(t *testing.T) {
	t.Setenv("WEBHOOK_SECRET", "hook-secret")
	wc, payments := newWebhookFixture(t, nil)

	_, err := payments.CreatePayment(context.Background(), models.CreatePaymentRequest{
		OrderID: "PAY-HOOK", Amount: 10, Currency: "USDT",
	})
	require.NoError(t, err)

	body := `{"eventId":"evt-1","type":"payment.confirmed","orderId":"PAY-HOOK","txId":"tx-hook"}`
	rec := postWebhook(wc, body, func(req *http.Request) {
		req.Header.Set("x-webhook-signature", signBody("hook-secret", body))
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	payment, err := payments.GetPayment(context.Background(), "PAY-HOOK")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, payment.Status)
	assert.Equal(t, "tx-hook", payment.TxID)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	t.Setenv("WEBHOOK_SECRET", "hook-secret")
	wc, _ := newWebhookFixture(t, nil)

	body := `{"eventId":"evt-2","type":"payment.confirmed","orderId":"PAY-HOOK","txId":"tx-hook"}`
	rec := postWebhook(wc, body, func(req *http.Request) {
		req.Header.Set("x-webhook-signature", signBody("wrong-secret", body))
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = postWebhook(wc, body, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWebhookWithoutSecretAcceptsLoopbackOnly(t *testing.T) {
	t.Setenv("WEBHOOK_SECRET", "")
	wc, payments := newWebhookFixture(t, nil)

	_, err := payments.CreatePayment(context.Background(), models.CreatePaymentRequest{
		OrderID: "PAY-LOCAL", Amount: 10, Currency: "USDT",
	})
	require.NoError(t, err)

	body := `{"eventId":"evt-3","type":"payment.confirmed","orderId":"PAY-LOCAL","txId":"tx-hook"}`

	// httptest requests carry a non-loopback RemoteAddr by default.
	rec := postWebhook(wc, body, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = postWebhook(wc, body, func(req *http.Request) {
		req.RemoteAddr = "127.0.0.1:52000"
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWebhookRejectsUnsupportedContentType(t *testing.T) {
	t.Setenv("WEBHOOK_SECRET", "hook-secret")
	wc, _ := newWebhookFixture(t, nil)

	body := `{"eventId":"evt-ct","type":"payment.confirmed","orderId":"PAY-HOOK","txId":"tx-hook"}`
	rec := postWebhook(wc, body, func(req *http.Request) {
		req.Header.Set(echo.HeaderContentType, echo.MIMETextPlain)
		req.Header.Set("x-webhook-signature", signBody("hook-secret", body))
	})
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)

	// A charset parameter on an accepted type is fine: the event reaches the
	// payment lookup, which fails because the order was never created.
	rec = postWebhook(wc, body, func(req *http.Request) {
		req.Header.Set(echo.HeaderContentType, "application/json; charset=utf-8")
		req.Header.Set("x-webhook-signature", signBody("hook-secret", body))
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWebhookReplayGuard(t *testing.T) {
	t.Setenv("WEBHOOK_SECRET", "hook-secret")
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	wc, payments := newWebhookFixture(t, rdb)

	body := `{"eventId":"evt-replay","type":"payment.confirmed","orderId":"PAY-REPLAY","txId":"tx-hook"}`
	sign := func(req *http.Request) {
		req.Header.Set("x-webhook-signature", signBody("hook-secret", body))
	}

	// Delivered before the order exists: processing fails and the eventId
	// must be released so a redelivery can still land.
	rec := postWebhook(wc, body, sign)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	_, err := payments.CreatePayment(context.Background(), models.CreatePaymentRequest{
		OrderID: "PAY-REPLAY", Amount: 10, Currency: "USDT",
	})
	require.NoError(t, err)

	rec = postWebhook(wc, body, sign)
	assert.Equal(t, http.StatusOK, rec.Code)

	payment, err := payments.GetPayment(context.Background(), "PAY-REPLAY")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, payment.Status)

	// A third delivery of the same eventId short-circuits on the guard.
	rec = postWebhook(wc, body, sign)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Event already processed")
}

func TestWebhookRejectsIncompleteEvents(t *testing.T) {
	t.Setenv("WEBHOOK_SECRET", "hook-secret")
	wc, _ := newWebhookFixture(t, nil)

	// Missing orderId fails validation.
	body := `{"eventId":"evt-4","type":"payment.confirmed"}`
	rec := postWebhook(wc, body, func(req *http.Request) {
		req.Header.Set("x-webhook-signature", signBody("hook-secret", body))
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Missing txId is rejected before touching the payment.
	body = `{"eventId":"evt-5","type":"payment.confirmed","orderId":"PAY-HOOK"}`
	rec = postWebhook(wc, body, func(req *http.Request) {
		req.Header.Set("x-webhook-signature", signBody("hook-secret", body))
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
