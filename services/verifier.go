package services

import (
	"context"
	"log"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/smartsouq/smartsouq_backend/models"
)

// PaymentVerifier polls pending payments against the blockchain. It replaces
// the browser-side setInterval loop with per-order workers that carry a
// cancellation handle and a bounded attempt budget.
type PaymentVerifier struct {
	payments    *PaymentService
	interval    time.Duration
	maxAttempts int

	mu      sync.Mutex
	workers map[string]*verifyWorker
	wg      sync.WaitGroup
}

type verifyWorker struct {
	cancel context.CancelFunc
}

// NewPaymentVerifier builds a verifier with env-tunable interval and budget.
func NewPaymentVerifier(payments *PaymentService) *PaymentVerifier {
	interval := 10 * time.Second
	if str := os.Getenv("VERIFY_POLL_INTERVAL_SECONDS"); str != "" {
		if secs, err := strconv.Atoi(str); err == nil && secs > 0 {
			interval = time.Duration(secs) * time.Second
		}
	}

	maxAttempts := 30
	if str := os.Getenv("VERIFY_MAX_ATTEMPTS"); str != "" {
		if n, err := strconv.Atoi(str); err == nil && n > 0 {
			maxAttempts = n
		}
	}

	return &PaymentVerifier{
		payments:    payments,
		interval:    interval,
		maxAttempts: maxAttempts,
		workers:     make(map[string]*verifyWorker),
	}
}

// Start launches a polling worker for the order. Starting an order that is
// already being watched restarts its budget.
func (v *PaymentVerifier) Start(orderID string) {
	ctx, cancel := context.WithCancel(context.Background())
	worker := &verifyWorker{cancel: cancel}

	v.mu.Lock()
	if old, exists := v.workers[orderID]; exists {
		old.cancel()
	}
	v.workers[orderID] = worker
	v.mu.Unlock()

	v.wg.Add(1)
	go v.run(ctx, orderID, worker)
}

// Cancel stops the worker for an order, if any.
func (v *PaymentVerifier) Cancel(orderID string) {
	v.mu.Lock()
	if worker, exists := v.workers[orderID]; exists {
		worker.cancel()
		delete(v.workers, orderID)
	}
	v.mu.Unlock()
}

// Shutdown cancels every worker and waits for them to exit.
func (v *PaymentVerifier) Shutdown() {
	v.mu.Lock()
	for orderID, worker := range v.workers {
		worker.cancel()
		delete(v.workers, orderID)
	}
	v.mu.Unlock()
	v.wg.Wait()
}

func (v *PaymentVerifier) run(ctx context.Context, orderID string, worker *verifyWorker) {
	defer v.wg.Done()
	defer v.remove(orderID, worker)

	ticker := time.NewTicker(v.interval)
	defer ticker.Stop()

	for attempt := 1; attempt <= v.maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		checkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		payment, err := v.payments.VerifyPayment(checkCtx, orderID)
		cancel()

		if err != nil {
			log.Printf("Verification attempt %d for %s errored: %v", attempt, orderID, err)
			continue
		}

		switch payment.Status {
		case models.PaymentStatusCompleted:
			log.Printf("Payment %s verified after %d attempt(s)", orderID, attempt)
			return
		case models.PaymentStatusFailed:
			log.Printf("Payment %s failed during verification: giving up", orderID)
			return
		}
	}

	// Budget exhausted: surface a terminal state instead of polling forever.
	expireCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := v.payments.MarkExpired(expireCtx, orderID, v.maxAttempts); err != nil {
		log.Printf("Failed to expire payment %s: %v", orderID, err)
	}
}

// remove drops the worker's registration unless it was already replaced by a
// restarted one.
func (v *PaymentVerifier) remove(orderID string, worker *verifyWorker) {
	v.mu.Lock()
	if current, exists := v.workers[orderID]; exists && current == worker {
		delete(v.workers, orderID)
	}
	v.mu.Unlock()
}
