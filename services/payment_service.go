package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/smartsouq/smartsouq_backend/models"
	"github.com/smartsouq/smartsouq_backend/repositories"
)

var (
	// ErrDuplicateOrder is returned when a payment already exists for an orderId.
	ErrDuplicateOrder = errors.New("payment already exists for this order")
	// ErrPaymentNotFound is returned when no payment matches the orderId.
	ErrPaymentNotFound = errors.New("payment not found")
	// ErrInvalidTransition is returned for retry/verify calls in the wrong state.
	ErrInvalidTransition = errors.New("payment is not in a retryable state")
)

// TransactionVerifier is the part of the blockchain service the payment flow
// depends on.
type TransactionVerifier interface {
	VerifyTransaction(ctx context.Context, expectedAmount float64, createdAt time.Time) (*models.VerificationResult, error)
	VerifyByTxID(ctx context.Context, txID string) (*models.VerificationResult, error)
	WalletAddress() string
}

// PaymentService owns the payment state machine. All transitions are
// persisted through the PaymentStore and mirrored into the audit log.
type PaymentService struct {
	store          repositories.PaymentStore
	rates          *ExchangeRateService
	chain          TransactionVerifier
	commissionRate float64
	wallets        map[string]string

	// Simulated card gateway step delays.
	cardConvertDelay  time.Duration
	cardTransferDelay time.Duration
}

// NewPaymentService wires the payment flow from environment configuration.
func NewPaymentService(store repositories.PaymentStore, rates *ExchangeRateService, chain TransactionVerifier) *PaymentService {
	commissionRate := 0.05
	if rateStr := os.Getenv("COMMISSION_RATE"); rateStr != "" {
		if rate, err := strconv.ParseFloat(rateStr, 64); err == nil && rate >= 0 && rate < 1 {
			commissionRate = rate
		} else {
			log.Printf("Warning: invalid COMMISSION_RATE %q, using default", rateStr)
		}
	}

	wallets := map[string]string{
		"USDT": os.Getenv("USDT_WALLET_ADDRESS"),
		"BTC":  os.Getenv("BTC_WALLET_ADDRESS"),
		"ETH":  os.Getenv("ETH_WALLET_ADDRESS"),
	}

	return &PaymentService{
		store:             store,
		rates:             rates,
		chain:             chain,
		commissionRate:    commissionRate,
		wallets:           wallets,
		cardConvertDelay:  700 * time.Millisecond,
		cardTransferDelay: 900 * time.Millisecond,
	}
}

// CommissionRate returns the configured flat platform commission rate.
func (s *PaymentService) CommissionRate() float64 {
	return s.commissionRate
}

// depositAddressFor resolves the deposit wallet for a currency. Fiat
// currencies settle in USDT, so they map to the USDT wallet.
func (s *PaymentService) depositAddressFor(currency string) (string, error) {
	currency = strings.ToUpper(currency)
	if addr, ok := s.wallets[currency]; ok && addr != "" {
		return addr, nil
	}
	if addr := s.wallets["USDT"]; addr != "" {
		return addr, nil
	}
	return "", fmt.Errorf("no deposit wallet configured for %s", currency)
}

// CreatePayment opens a new payment order in status pending.
func (s *PaymentService) CreatePayment(ctx context.Context, req models.CreatePaymentRequest) (*models.Payment, error) {
	orderID := req.OrderID
	if orderID == "" {
		orderID = "PAY-" + uuid.NewString()
	}

	currency := strings.ToUpper(req.Currency)
	usdtAmount := req.Amount
	if currency != "USDT" {
		converted, err := s.rates.ConvertToUSDT(ctx, req.Amount, currency)
		if err != nil {
			return nil, fmt.Errorf("failed to convert %s to USDT: %w", currency, err)
		}
		usdtAmount = converted
	}

	depositAddress, err := s.depositAddressFor(currency)
	if err != nil {
		return nil, err
	}

	method := models.PaymentMethodCrypto
	if req.Method == string(models.PaymentMethodCard) {
		method = models.PaymentMethodCard
	}

	now := time.Now()
	payment := &models.Payment{
		OrderID:          orderID,
		USDTAmount:       usdtAmount,
		OriginalAmount:   req.Amount,
		OriginalCurrency: currency,
		DepositAddress:   depositAddress,
		Method:           method,
		Status:           models.PaymentStatusPending,
		StatusHistory: []models.StatusChange{
			{Status: models.PaymentStatusInitiated, Message: "payment created", ChangedAt: now},
			{Status: models.PaymentStatusPending, Message: "awaiting deposit", ChangedAt: now},
		},
		CreatedAt: now,
	}

	if err := s.store.Create(ctx, payment); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrDuplicateOrder
		}
		return nil, err
	}

	s.audit(ctx, orderID, "created", fmt.Sprintf("%.2f %s -> %.6f USDT", req.Amount, currency, usdtAmount))
	return payment, nil
}

// GetPayment fetches a payment by its order ID.
func (s *PaymentService) GetPayment(ctx context.Context, orderID string) (*models.Payment, error) {
	payment, err := s.store.GetByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return payment, nil
}

// VerifyPayment runs one verification attempt against the blockchain. A
// completed payment is returned unchanged, making the call idempotent.
func (s *PaymentService) VerifyPayment(ctx context.Context, orderID string) (*models.Payment, error) {
	payment, err := s.GetPayment(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if payment.Status == models.PaymentStatusCompleted {
		return payment, nil
	}

	s.transition(ctx, payment, models.PaymentStatusVerifying, "checking recent transfers")
	if err := s.store.Update(ctx, payment); err != nil {
		return nil, err
	}

	result, err := s.chain.VerifyTransaction(ctx, payment.USDTAmount, payment.CreatedAt)
	if err != nil {
		s.transition(ctx, payment, models.PaymentStatusFailed, err.Error())
		if updateErr := s.store.Update(ctx, payment); updateErr != nil {
			return nil, updateErr
		}
		return payment, nil
	}

	if !result.Verified {
		// Nothing matched yet; fall back to pending so the verifier keeps polling.
		s.transition(ctx, payment, models.PaymentStatusPending, result.Message)
		if err := s.store.Update(ctx, payment); err != nil {
			return nil, err
		}
		return payment, nil
	}

	return s.complete(ctx, payment, result)
}

// ManualVerify completes a payment by exact transaction ID.
func (s *PaymentService) ManualVerify(ctx context.Context, orderID, txID string) (*models.Payment, error) {
	payment, err := s.GetPayment(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if payment.Status == models.PaymentStatusCompleted {
		return payment, nil
	}

	s.transition(ctx, payment, models.PaymentStatusVerifying, "manual verification by txId")
	if err := s.store.Update(ctx, payment); err != nil {
		return nil, err
	}

	result, err := s.chain.VerifyByTxID(ctx, txID)
	if err != nil {
		s.transition(ctx, payment, models.PaymentStatusFailed, err.Error())
		if updateErr := s.store.Update(ctx, payment); updateErr != nil {
			return nil, updateErr
		}
		return payment, nil
	}

	if !result.Verified {
		s.transition(ctx, payment, models.PaymentStatusFailed, result.Message)
		if err := s.store.Update(ctx, payment); err != nil {
			return nil, err
		}
		return payment, nil
	}

	return s.complete(ctx, payment, result)
}

// complete finalizes a verified payment: records the transfer, computes the
// platform commission and net amount.
func (s *PaymentService) complete(ctx context.Context, payment *models.Payment, result *models.VerificationResult) (*models.Payment, error) {
	// A transfer can settle at most one order. Without this check two
	// orders of the same amount could both claim a single deposit.
	if claimed, err := s.store.FindCompletedByTxID(ctx, result.TxID); err == nil && claimed != nil && claimed.OrderID != payment.OrderID {
		s.transition(ctx, payment, models.PaymentStatusPending,
			fmt.Sprintf("transfer %s already claimed by order %s", result.TxID, claimed.OrderID))
		if err := s.store.Update(ctx, payment); err != nil {
			return nil, err
		}
		return payment, nil
	}

	now := time.Now()
	payment.TxID = result.TxID
	payment.Commission = payment.USDTAmount * s.commissionRate
	payment.NetAmount = payment.USDTAmount - payment.Commission
	payment.VerifiedAt = &now
	s.transition(ctx, payment, models.PaymentStatusCompleted,
		fmt.Sprintf("transfer %s for %.6f USDT", result.TxID, result.Amount))

	if err := s.store.Update(ctx, payment); err != nil {
		return nil, err
	}
	return payment, nil
}

// Retry moves a failed payment back to pending so verification can restart.
func (s *PaymentService) Retry(ctx context.Context, orderID string) (*models.Payment, error) {
	payment, err := s.GetPayment(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if payment.Status != models.PaymentStatusFailed {
		return nil, ErrInvalidTransition
	}

	s.transition(ctx, payment, models.PaymentStatusPending, "manual retry")
	if err := s.store.Update(ctx, payment); err != nil {
		return nil, err
	}
	return payment, nil
}

// ProcessCardPayment plays out the simulated card gateway sequence
// card_verified -> converting -> transferring -> completed. The short delays
// mirror the gateway's settlement steps; there is no real card integration.
func (s *PaymentService) ProcessCardPayment(ctx context.Context, orderID string) (*models.Payment, error) {
	payment, err := s.GetPayment(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if payment.Method != models.PaymentMethodCard {
		return nil, fmt.Errorf("order %s is not a card payment", orderID)
	}
	if payment.Status == models.PaymentStatusCompleted {
		return payment, nil
	}

	steps := []struct {
		status models.PaymentStatus
		delay  time.Duration
	}{
		{models.PaymentStatusCardVerified, 0},
		{models.PaymentStatusConverting, s.cardConvertDelay},
		{models.PaymentStatusTransferring, s.cardTransferDelay},
	}

	for _, step := range steps {
		if step.delay > 0 {
			select {
			case <-time.After(step.delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		s.transition(ctx, payment, step.status, "")
		if err := s.store.Update(ctx, payment); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	payment.Commission = payment.USDTAmount * s.commissionRate
	payment.NetAmount = payment.USDTAmount - payment.Commission
	payment.VerifiedAt = &now
	s.transition(ctx, payment, models.PaymentStatusCompleted, "card settlement complete")
	if err := s.store.Update(ctx, payment); err != nil {
		return nil, err
	}
	return payment, nil
}

// RecentLogs returns the latest audit entries, newest first.
func (s *PaymentService) RecentLogs(ctx context.Context, limit int64) ([]models.PaymentLog, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.store.RecentLogs(ctx, limit)
}

// MarkExpired fails a payment whose verification budget ran out.
func (s *PaymentService) MarkExpired(ctx context.Context, orderID string, attempts int) error {
	payment, err := s.GetPayment(ctx, orderID)
	if err != nil {
		return err
	}
	if payment.Status == models.PaymentStatusCompleted || payment.Status == models.PaymentStatusFailed {
		return nil
	}

	s.transition(ctx, payment, models.PaymentStatusFailed,
		fmt.Sprintf("still pending after %d verification attempts", attempts))
	return s.store.Update(ctx, payment)
}

// transition appends a status change to the payment's history and audit log.
// The caller persists the payment afterwards.
func (s *PaymentService) transition(ctx context.Context, payment *models.Payment, status models.PaymentStatus, message string) {
	payment.Status = status
	payment.StatusHistory = append(payment.StatusHistory, models.StatusChange{
		Status:    status,
		Message:   message,
		ChangedAt: time.Now(),
	})
	s.audit(ctx, payment.OrderID, string(status), message)
}

func (s *PaymentService) audit(ctx context.Context, orderID, event, detail string) {
	if err := s.store.AppendLog(ctx, orderID, event, detail); err != nil {
		log.Printf("Failed to write payment log for %s: %v", orderID, err)
	}
}
