package services

import (
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/smartsouq/smartsouq_backend/models"
)

func newTestAffiliateService(t *testing.T) (*AffiliateService, *memAgentStore) {
	t.Helper()
	t.Setenv("AGENT_COMMISSION_RATE", "0.05")
	agents := newMemAgentStore()
	return NewAffiliateService(agents, newMemClickStore(), newMemCommissionStore()), agents
}

func registerApprovedAgent(t *testing.T, svc *AffiliateService) *models.Agent {
	t.Helper()
	agent, err := svc.RegisterAgent(context.Background(), models.AgentRegistrationRequest{
		Name:  "Layla Haddad",
		Email: "layla@example.com",
	})
	require.NoError(t, err)
	approved, err := svc.ApproveAgent(context.Background(), agent.ID)
	require.NoError(t, err)
	return approved
}

func TestRegisterAgentMintsReferralCode(t *testing.T) {
	svc, _ := newTestAffiliateService(t)

	agent, err := svc.RegisterAgent(context.Background(), models.AgentRegistrationRequest{
		Name:  "Omar Khalil",
		Email: "omar@example.com",
	})
	require.NoError(t, err)

	assert.Equal(t, AgentStatusPending, agent.Status)
	assert.Regexp(t, `^AGT-[A-Z0-9]{6}$`, agent.ReferralCode)
	assert.Equal(t, 0.05, agent.CommissionRate)
}

func TestRegisterAgentRejectsDuplicateEmail(t *testing.T) {
	svc, _ := newTestAffiliateService(t)

	req := models.AgentRegistrationRequest{Name: "Omar Khalil", Email: "omar@example.com"}
	_, err := svc.RegisterAgent(context.Background(), req)
	require.NoError(t, err)

	_, err = svc.RegisterAgent(context.Background(), req)
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestApproveAgentIsIdempotent(t *testing.T) {
	svc, _ := newTestAffiliateService(t)
	agent := registerApprovedAgent(t, svc)
	assert.Equal(t, AgentStatusApproved, agent.Status)

	again, err := svc.ApproveAgent(context.Background(), agent.ID)
	require.NoError(t, err)
	assert.Equal(t, AgentStatusApproved, again.Status)

	_, err = svc.ApproveAgent(context.Background(), primitive.NewObjectID())
	assert.ErrorIs(t, err, ErrAgentNotFound)
}

func TestCreateAffiliateLinkEmbedsTrackingParams(t *testing.T) {
	svc, _ := newTestAffiliateService(t)
	agent := registerApprovedAgent(t, svc)

	click, err := svc.CreateAffiliateLink(context.Background(), "prod-1", agent.ID,
		"https://shop.example.sy/products/prod-1?ref=home")
	require.NoError(t, err)

	parsed, err := url.Parse(click.AffiliateURL)
	require.NoError(t, err)
	query := parsed.Query()
	assert.Equal(t, agent.ReferralCode, query.Get("agent"))
	assert.Equal(t, click.ClickID, query.Get("click"))
	assert.Equal(t, "home", query.Get("ref"))
	assert.Equal(t, ClickStatusCreated, click.Status)
}

func TestCreateAffiliateLinkRejectsSuspendedAgent(t *testing.T) {
	svc, agents := newTestAffiliateService(t)
	agent := registerApprovedAgent(t, svc)

	agent.Status = AgentStatusSuspended
	require.NoError(t, agents.Update(context.Background(), agent))

	_, err := svc.CreateAffiliateLink(context.Background(), "prod-1", agent.ID, "https://shop.example.sy/p/1")
	assert.ErrorIs(t, err, ErrAgentSuspended)
}

func TestTrackClickCountsOnce(t *testing.T) {
	svc, agents := newTestAffiliateService(t)
	agent := registerApprovedAgent(t, svc)

	click, err := svc.CreateAffiliateLink(context.Background(), "prod-1", agent.ID, "https://shop.example.sy/p/1")
	require.NoError(t, err)

	tracked, err := svc.TrackClick(context.Background(), click.ClickID, "Mozilla/5.0", "203.0.113.9")
	require.NoError(t, err)
	assert.Equal(t, ClickStatusClicked, tracked.Status)
	require.NotNil(t, tracked.ClickedAt)

	// Repeat visits do not re-count.
	_, err = svc.TrackClick(context.Background(), click.ClickID, "Mozilla/5.0", "203.0.113.9")
	require.NoError(t, err)

	updated, err := agents.GetByID(context.Background(), agent.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), updated.TotalClicks)

	_, err = svc.TrackClick(context.Background(), "missing-click", "", "")
	assert.ErrorIs(t, err, ErrClickNotFound)
}

func TestResolveCommissionRatePrecedence(t *testing.T) {
	agent := &models.Agent{
		CommissionRate: 0.05,
		CustomCommissionRates: map[string]float64{
			"prod-custom": 0.12,
		},
	}

	// Custom per-product rate wins over everything.
	assert.Equal(t, 0.12, ResolveCommissionRate(agent, "prod-custom", 0.08))
	// Product rate wins over the agent default.
	assert.Equal(t, 0.08, ResolveCommissionRate(agent, "prod-other", 0.08))
	// Agent default applies when nothing else is set.
	assert.Equal(t, 0.05, ResolveCommissionRate(agent, "prod-other", 0))
}

func TestRecordConversionCreditsAgent(t *testing.T) {
	svc, agents := newTestAffiliateService(t)
	agent := registerApprovedAgent(t, svc)

	click, err := svc.CreateAffiliateLink(context.Background(), "prod-1", agent.ID, "https://shop.example.sy/p/1")
	require.NoError(t, err)
	_, err = svc.TrackClick(context.Background(), click.ClickID, "Mozilla/5.0", "203.0.113.9")
	require.NoError(t, err)

	commission, err := svc.RecordConversion(context.Background(), models.ConversionRequest{
		ClickID:    click.ClickID,
		OrderID:    "PAY-77",
		SaleAmount: 200,
	})
	require.NoError(t, err)

	assert.Equal(t, 0.05, commission.CommissionRate)
	assert.InDelta(t, 10.0, commission.CommissionAmount, 1e-9)
	assert.Equal(t, CommissionStatusEarned, commission.Status)

	updated, err := agents.GetByID(context.Background(), agent.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), updated.TotalConversions)
	assert.InDelta(t, 10.0, updated.TotalEarnings, 1e-9)
	assert.InDelta(t, 100.0, updated.ConversionRate, 1e-9)
}

func TestRecordConversionIsIdempotent(t *testing.T) {
	svc, agents := newTestAffiliateService(t)
	agent := registerApprovedAgent(t, svc)

	click, err := svc.CreateAffiliateLink(context.Background(), "prod-1", agent.ID, "https://shop.example.sy/p/1")
	require.NoError(t, err)

	req := models.ConversionRequest{ClickID: click.ClickID, OrderID: "PAY-88", SaleAmount: 100}
	_, err = svc.RecordConversion(context.Background(), req)
	require.NoError(t, err)

	_, err = svc.RecordConversion(context.Background(), req)
	assert.ErrorIs(t, err, ErrAlreadyConverted)

	// Totals are unchanged by the rejected double conversion.
	updated, err := agents.GetByID(context.Background(), agent.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), updated.TotalConversions)
	assert.InDelta(t, 5.0, updated.TotalEarnings, 1e-9)
}

func TestRecordConversionUsesProductRate(t *testing.T) {
	svc, _ := newTestAffiliateService(t)
	agent := registerApprovedAgent(t, svc)

	click, err := svc.CreateAffiliateLink(context.Background(), "prod-1", agent.ID, "https://shop.example.sy/p/1")
	require.NoError(t, err)

	commission, err := svc.RecordConversion(context.Background(), models.ConversionRequest{
		ClickID:               click.ClickID,
		OrderID:               "PAY-99",
		SaleAmount:            100,
		ProductCommissionRate: 0.1,
	})
	require.NoError(t, err)
	assert.Equal(t, 0.1, commission.CommissionRate)
	assert.InDelta(t, 10.0, commission.CommissionAmount, 1e-9)
}

func TestGetDashboardAggregatesActivity(t *testing.T) {
	svc, _ := newTestAffiliateService(t)
	agent := registerApprovedAgent(t, svc)

	click, err := svc.CreateAffiliateLink(context.Background(), "prod-1", agent.ID, "https://shop.example.sy/p/1")
	require.NoError(t, err)
	_, err = svc.RecordConversion(context.Background(), models.ConversionRequest{
		ClickID: click.ClickID, OrderID: "PAY-11", SaleAmount: 50,
	})
	require.NoError(t, err)

	dashboard, err := svc.GetDashboard(context.Background(), agent.ID)
	require.NoError(t, err)
	assert.Len(t, dashboard.Clicks, 1)
	assert.Len(t, dashboard.Commissions, 1)
	assert.Equal(t, agent.ID, dashboard.Agent.ID)

	_, err = svc.GetDashboard(context.Background(), primitive.NewObjectID())
	assert.ErrorIs(t, err, ErrAgentNotFound)
}
