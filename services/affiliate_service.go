package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/smartsouq/smartsouq_backend/models"
	"github.com/smartsouq/smartsouq_backend/repositories"
	"github.com/smartsouq/smartsouq_backend/utils"
)

const (
	// AgentStatusPending is the initial status of a registered agent.
	AgentStatusPending = "pending"
	// AgentStatusApproved marks an agent cleared to earn commissions.
	AgentStatusApproved = "approved"
	// AgentStatusSuspended blocks an agent from generating new links.
	AgentStatusSuspended = "suspended"

	// ClickStatusCreated marks a minted but unvisited link.
	ClickStatusCreated = "created"
	// ClickStatusClicked marks a visited link.
	ClickStatusClicked = "clicked"

	// CommissionStatusEarned is the initial status of a recorded commission.
	CommissionStatusEarned = "earned"

	referralCodeRetries = 5
)

var (
	// ErrEmailTaken is returned when an agent email is already registered.
	ErrEmailTaken = errors.New("an agent with this email already exists")
	// ErrAgentNotFound is returned when no agent matches the given ID.
	ErrAgentNotFound = errors.New("agent not found")
	// ErrClickNotFound is returned when no click matches the given ID.
	ErrClickNotFound = errors.New("click not found")
	// ErrAlreadyConverted guards against double-counted conversions.
	ErrAlreadyConverted = errors.New("conversion already recorded for this click")
	// ErrAgentSuspended is returned when a suspended agent mints a link.
	ErrAgentSuspended = errors.New("agent is suspended")
)

// AffiliateService consolidates agent registration, link minting, click
// tracking and conversion attribution behind the store interfaces.
type AffiliateService struct {
	agents      repositories.AgentStore
	clicks      repositories.ClickStore
	commissions repositories.CommissionStore
	defaultRate float64
}

// NewAffiliateService wires the affiliate flow from environment configuration.
func NewAffiliateService(agents repositories.AgentStore, clicks repositories.ClickStore, commissions repositories.CommissionStore) *AffiliateService {
	defaultRate := 0.05
	if rateStr := os.Getenv("AGENT_COMMISSION_RATE"); rateStr != "" {
		if rate, err := strconv.ParseFloat(rateStr, 64); err == nil && rate > 0 && rate < 1 {
			defaultRate = rate
		}
	}
	return &AffiliateService{
		agents:      agents,
		clicks:      clicks,
		commissions: commissions,
		defaultRate: defaultRate,
	}
}

// RegisterAgent creates a pending agent with a collision-checked referral code.
func (s *AffiliateService) RegisterAgent(ctx context.Context, req models.AgentRegistrationRequest) (*models.Agent, error) {
	if existing, err := s.agents.GetByEmail(ctx, req.Email); err == nil && existing != nil {
		return nil, ErrEmailTaken
	}

	rate := req.CommissionRate
	if rate == 0 {
		rate = s.defaultRate
	}

	agent := &models.Agent{
		Name:           req.Name,
		Email:          req.Email,
		Phone:          req.Phone,
		Country:        req.Country,
		CommissionRate: rate,
		Status:         AgentStatusPending,
	}

	// The unique index on referralCode backs the collision check; retry a
	// few times on the off chance two registrations mint the same suffix.
	var lastErr error
	for attempt := 0; attempt < referralCodeRetries; attempt++ {
		code, err := utils.GenerateAgentReferralCode()
		if err != nil {
			return nil, fmt.Errorf("failed to generate referral code: %w", err)
		}
		agent.ReferralCode = code
		agent.ID = primitive.NilObjectID

		err = s.agents.Create(ctx, agent)
		if err == nil {
			go utils.NotifyAgentRegistered(agent.Email, agent.Name, agent.ReferralCode)
			return agent, nil
		}
		if mongo.IsDuplicateKeyError(err) {
			// Could be the email index rather than the code.
			if existing, lookupErr := s.agents.GetByEmail(ctx, req.Email); lookupErr == nil && existing != nil {
				return nil, ErrEmailTaken
			}
			lastErr = err
			continue
		}
		return nil, err
	}

	return nil, fmt.Errorf("failed to allocate a unique referral code: %w", lastErr)
}

// ApproveAgent transitions a pending agent to approved.
func (s *AffiliateService) ApproveAgent(ctx context.Context, agentID primitive.ObjectID) (*models.Agent, error) {
	agent, err := s.agents.GetByID(ctx, agentID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrAgentNotFound
		}
		return nil, err
	}

	if agent.Status == AgentStatusApproved {
		return agent, nil
	}

	agent.Status = AgentStatusApproved
	if err := s.agents.Update(ctx, agent); err != nil {
		return nil, err
	}

	go utils.NotifyAgentApproved(agent.Email, agent.Name)
	return agent, nil
}

// CreateAffiliateLink mints a click record and returns the tracking URL with
// agent and click query parameters embedded.
func (s *AffiliateService) CreateAffiliateLink(ctx context.Context, productID string, agentID primitive.ObjectID, productURL string) (*models.Click, error) {
	agent, err := s.agents.GetByID(ctx, agentID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrAgentNotFound
		}
		return nil, err
	}
	if agent.Status == AgentStatusSuspended {
		return nil, ErrAgentSuspended
	}

	parsed, err := url.Parse(productURL)
	if err != nil {
		return nil, fmt.Errorf("invalid product URL: %w", err)
	}

	clickID := uuid.NewString()
	query := parsed.Query()
	query.Set("agent", agent.ReferralCode)
	query.Set("click", clickID)
	parsed.RawQuery = query.Encode()

	click := &models.Click{
		ClickID:      clickID,
		AgentID:      agent.ID,
		ProductID:    productID,
		AffiliateURL: parsed.String(),
		OriginalURL:  productURL,
		Status:       ClickStatusCreated,
	}
	if err := s.clicks.Create(ctx, click); err != nil {
		return nil, err
	}
	return click, nil
}

// TrackClick marks a minted link as visited and rolls the agent's click
// totals. Repeat visits do not re-count.
func (s *AffiliateService) TrackClick(ctx context.Context, clickID, userAgent, ip string) (*models.Click, error) {
	click, err := s.clicks.GetByClickID(ctx, clickID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrClickNotFound
		}
		return nil, err
	}

	if click.Status == ClickStatusClicked {
		return click, nil
	}

	now := time.Now()
	click.Status = ClickStatusClicked
	click.ClickedAt = &now
	click.UserAgent = userAgent
	click.IP = ip
	if err := s.clicks.Update(ctx, click); err != nil {
		return nil, err
	}

	agent, err := s.agents.GetByID(ctx, click.AgentID)
	if err != nil {
		return click, nil
	}
	agent.TotalClicks++
	agent.ConversionRate = conversionRate(agent.TotalConversions, agent.TotalClicks)
	if err := s.agents.Update(ctx, agent); err != nil {
		return nil, err
	}

	return click, nil
}

// ResolveCommissionRate applies the precedence rules: the agent's custom
// per-product rate wins over the product's own rate, which wins over the
// agent's default rate.
func ResolveCommissionRate(agent *models.Agent, productID string, productRate float64) float64 {
	if agent.CustomCommissionRates != nil {
		if custom, ok := agent.CustomCommissionRates[productID]; ok && custom > 0 {
			return custom
		}
	}
	if productRate > 0 {
		return productRate
	}
	return agent.CommissionRate
}

// RecordConversion attributes a completed sale to a click and credits the
// agent. A click converts at most once.
func (s *AffiliateService) RecordConversion(ctx context.Context, req models.ConversionRequest) (*models.Commission, error) {
	click, err := s.clicks.GetByClickID(ctx, req.ClickID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrClickNotFound
		}
		return nil, err
	}

	if click.Converted {
		return nil, ErrAlreadyConverted
	}
	if existing, err := s.commissions.GetByClickID(ctx, req.ClickID); err == nil && existing != nil {
		return nil, ErrAlreadyConverted
	}

	agent, err := s.agents.GetByID(ctx, click.AgentID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrAgentNotFound
		}
		return nil, err
	}

	rate := ResolveCommissionRate(agent, click.ProductID, req.ProductCommissionRate)
	commission := &models.Commission{
		AgentID:          agent.ID,
		ClickID:          click.ClickID,
		ProductID:        click.ProductID,
		OrderID:          req.OrderID,
		SaleAmount:       req.SaleAmount,
		CommissionRate:   rate,
		CommissionAmount: req.SaleAmount * rate,
		Status:           CommissionStatusEarned,
	}

	// The unique index on commissions.clickId is the last line of defense
	// against concurrent double conversion.
	if err := s.commissions.Create(ctx, commission); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrAlreadyConverted
		}
		return nil, err
	}

	click.Converted = true
	click.ConversionAmount = req.SaleAmount
	click.CommissionAmount = commission.CommissionAmount
	if err := s.clicks.Update(ctx, click); err != nil {
		return nil, err
	}

	agent.TotalConversions++
	agent.TotalEarnings += commission.CommissionAmount
	agent.ConversionRate = conversionRate(agent.TotalConversions, agent.TotalClicks)
	if err := s.agents.Update(ctx, agent); err != nil {
		return nil, err
	}

	return commission, nil
}

// GetDashboard aggregates an agent's record for the dashboard endpoint.
func (s *AffiliateService) GetDashboard(ctx context.Context, agentID primitive.ObjectID) (*models.AgentDashboard, error) {
	agent, err := s.agents.GetByID(ctx, agentID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrAgentNotFound
		}
		return nil, err
	}

	clicks, err := s.clicks.ListByAgent(ctx, agentID, 100)
	if err != nil {
		return nil, err
	}
	commissions, err := s.commissions.ListByAgent(ctx, agentID, 100)
	if err != nil {
		return nil, err
	}

	return &models.AgentDashboard{
		Agent:       *agent,
		Clicks:      clicks,
		Commissions: commissions,
	}, nil
}

func conversionRate(conversions, clicks int64) float64 {
	if clicks == 0 {
		return 0
	}
	return float64(conversions) / float64(clicks) * 100
}
