package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Agent represents a registered affiliate partner.
type Agent struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name             string             `bson:"name" json:"name"`
	Email            string             `bson:"email" json:"email"`
	Phone            string             `bson:"phone,omitempty" json:"phone,omitempty"`
	Country          string             `bson:"country,omitempty" json:"country,omitempty"`
	ReferralCode     string             `bson:"referralCode" json:"referralCode"`
	CommissionRate   float64            `bson:"commissionRate" json:"commissionRate"`
	Status           string             `bson:"status" json:"status"` // "pending", "approved", "suspended"
	TotalEarnings    float64            `bson:"totalEarnings" json:"totalEarnings"`
	TotalClicks      int64              `bson:"totalClicks" json:"totalClicks"`
	TotalConversions int64              `bson:"totalConversions" json:"totalConversions"`
	ConversionRate   float64            `bson:"conversionRate" json:"conversionRate"`
	// Per-product commission overrides, keyed by product ID.
	CustomCommissionRates map[string]float64 `bson:"customCommissionRates,omitempty" json:"customCommissionRates,omitempty"`
	CreatedAt             time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt             time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// AgentRegistrationRequest is the body of POST /api/agents
type AgentRegistrationRequest struct {
	Name           string  `json:"name" validate:"required,min=2"`
	Email          string  `json:"email" validate:"required,email"`
	Phone          string  `json:"phone" validate:"omitempty,min=6"`
	Country        string  `json:"country" validate:"omitempty,len=2"`
	CommissionRate float64 `json:"commissionRate" validate:"omitempty,gt=0,lte=0.5"`
}

// AgentDashboard aggregates an agent's performance for the dashboard endpoint.
type AgentDashboard struct {
	Agent       Agent        `json:"agent"`
	Clicks      []Click      `json:"clicks"`
	Commissions []Commission `json:"commissions"`
}
