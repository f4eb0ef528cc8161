package services

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/smartsouq/smartsouq_backend/models"
	"github.com/smartsouq/smartsouq_backend/repositories"
)

// duplicateKeyErr mimics the server error Mongo returns when a unique index
// rejects an insert.
func duplicateKeyErr() error {
	return mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000}}}
}

type memPaymentStore struct {
	mu       sync.Mutex
	payments map[string]models.Payment
	logs     []models.PaymentLog
}

func newMemPaymentStore() *memPaymentStore {
	return &memPaymentStore{payments: make(map[string]models.Payment)}
}

func (s *memPaymentStore) Create(ctx context.Context, payment *models.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.payments[payment.OrderID]; exists {
		return duplicateKeyErr()
	}
	s.payments[payment.OrderID] = clonePayment(*payment)
	return nil
}

func (s *memPaymentStore) GetByOrderID(ctx context.Context, orderID string) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	payment, exists := s.payments[orderID]
	if !exists {
		return nil, repositories.ErrNotFound
	}
	copied := clonePayment(payment)
	return &copied, nil
}

func (s *memPaymentStore) Update(ctx context.Context, payment *models.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.payments[payment.OrderID]; !exists {
		return repositories.ErrNotFound
	}
	s.payments[payment.OrderID] = clonePayment(*payment)
	return nil
}

func (s *memPaymentStore) FindCompletedByTxID(ctx context.Context, txID string) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, payment := range s.payments {
		if payment.TxID == txID && payment.Status == models.PaymentStatusCompleted {
			copied := clonePayment(payment)
			return &copied, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (s *memPaymentStore) AppendLog(ctx context.Context, orderID, event, detail string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, models.PaymentLog{
		OrderID:   orderID,
		Event:     event,
		Detail:    detail,
		CreatedAt: time.Now(),
	})
	return nil
}

func (s *memPaymentStore) RecentLogs(ctx context.Context, limit int64) ([]models.PaymentLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var entries []models.PaymentLog
	for i := len(s.logs) - 1; i >= 0 && int64(len(entries)) < limit; i-- {
		entries = append(entries, s.logs[i])
	}
	return entries, nil
}

func clonePayment(p models.Payment) models.Payment {
	history := make([]models.StatusChange, len(p.StatusHistory))
	copy(history, p.StatusHistory)
	p.StatusHistory = history
	return p
}

// stubChain is a TransactionVerifier with canned results.
type stubChain struct {
	mu     sync.Mutex
	result *models.VerificationResult
	err    error
	byTxID map[string]*models.VerificationResult
}

func (s *stubChain) setResult(result *models.VerificationResult, err error) {
	s.mu.Lock()
	s.result = result
	s.err = err
	s.mu.Unlock()
}

func (s *stubChain) VerifyTransaction(ctx context.Context, expectedAmount float64, createdAt time.Time) (*models.VerificationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	if s.result != nil {
		return s.result, nil
	}
	return &models.VerificationResult{Verified: false, Message: "no matching transfer found"}, nil
}

func (s *stubChain) VerifyByTxID(ctx context.Context, txID string) (*models.VerificationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	if result, ok := s.byTxID[txID]; ok {
		return result, nil
	}
	return &models.VerificationResult{Verified: false, Message: "transaction not found"}, nil
}

func (s *stubChain) WalletAddress() string {
	return "TStubWalletAddress"
}

type memAgentStore struct {
	mu     sync.Mutex
	agents map[primitive.ObjectID]models.Agent
}

func newMemAgentStore() *memAgentStore {
	return &memAgentStore{agents: make(map[primitive.ObjectID]models.Agent)}
}

func (s *memAgentStore) Create(ctx context.Context, agent *models.Agent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.agents {
		if existing.Email == agent.Email || existing.ReferralCode == agent.ReferralCode {
			return duplicateKeyErr()
		}
	}
	if agent.ID.IsZero() {
		agent.ID = primitive.NewObjectID()
	}
	agent.CreatedAt = time.Now()
	agent.UpdatedAt = agent.CreatedAt
	s.agents[agent.ID] = *agent
	return nil
}

func (s *memAgentStore) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	agent, exists := s.agents[id]
	if !exists {
		return nil, repositories.ErrNotFound
	}
	copied := agent
	return &copied, nil
}

func (s *memAgentStore) GetByEmail(ctx context.Context, email string) (*models.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, agent := range s.agents {
		if agent.Email == email {
			copied := agent
			return &copied, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (s *memAgentStore) GetByReferralCode(ctx context.Context, code string) (*models.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, agent := range s.agents {
		if agent.ReferralCode == code {
			copied := agent
			return &copied, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (s *memAgentStore) Update(ctx context.Context, agent *models.Agent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.agents[agent.ID]; !exists {
		return repositories.ErrNotFound
	}
	agent.UpdatedAt = time.Now()
	s.agents[agent.ID] = *agent
	return nil
}

type memClickStore struct {
	mu     sync.Mutex
	clicks map[string]models.Click
}

func newMemClickStore() *memClickStore {
	return &memClickStore{clicks: make(map[string]models.Click)}
}

func (s *memClickStore) Create(ctx context.Context, click *models.Click) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.clicks[click.ClickID]; exists {
		return duplicateKeyErr()
	}
	if click.ID.IsZero() {
		click.ID = primitive.NewObjectID()
	}
	click.CreatedAt = time.Now()
	s.clicks[click.ClickID] = *click
	return nil
}

func (s *memClickStore) GetByClickID(ctx context.Context, clickID string) (*models.Click, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	click, exists := s.clicks[clickID]
	if !exists {
		return nil, repositories.ErrNotFound
	}
	copied := click
	return &copied, nil
}

func (s *memClickStore) Update(ctx context.Context, click *models.Click) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.clicks[click.ClickID]; !exists {
		return repositories.ErrNotFound
	}
	s.clicks[click.ClickID] = *click
	return nil
}

func (s *memClickStore) ListByAgent(ctx context.Context, agentID primitive.ObjectID, limit int64) ([]models.Click, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var clicks []models.Click
	for _, click := range s.clicks {
		if click.AgentID == agentID {
			clicks = append(clicks, click)
		}
	}
	return clicks, nil
}

type memCommissionStore struct {
	mu          sync.Mutex
	commissions map[string]models.Commission
}

func newMemCommissionStore() *memCommissionStore {
	return &memCommissionStore{commissions: make(map[string]models.Commission)}
}

func (s *memCommissionStore) Create(ctx context.Context, commission *models.Commission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.commissions[commission.ClickID]; exists {
		return duplicateKeyErr()
	}
	if commission.ID.IsZero() {
		commission.ID = primitive.NewObjectID()
	}
	commission.CreatedAt = time.Now()
	s.commissions[commission.ClickID] = *commission
	return nil
}

func (s *memCommissionStore) GetByClickID(ctx context.Context, clickID string) (*models.Commission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	commission, exists := s.commissions[clickID]
	if !exists {
		return nil, repositories.ErrNotFound
	}
	copied := commission
	return &copied, nil
}

func (s *memCommissionStore) ListByAgent(ctx context.Context, agentID primitive.ObjectID, limit int64) ([]models.Commission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var commissions []models.Commission
	for _, commission := range s.commissions {
		if commission.AgentID == agentID {
			commissions = append(commissions, commission)
		}
	}
	return commissions, nil
}
