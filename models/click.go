package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Click is a tracked visit through an agent's affiliate link.
type Click struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ClickID          string             `bson:"clickId" json:"clickId"`
	AgentID          primitive.ObjectID `bson:"agentId" json:"agentId"`
	ProductID        string             `bson:"productId" json:"productId"`
	AffiliateURL     string             `bson:"affiliateUrl" json:"affiliateUrl"`
	OriginalURL      string             `bson:"originalUrl" json:"originalUrl"`
	Status           string             `bson:"status" json:"status"` // "created", "clicked"
	UserAgent        string             `bson:"userAgent,omitempty" json:"userAgent,omitempty"`
	IP               string             `bson:"ip,omitempty" json:"ip,omitempty"`
	ClickedAt        *time.Time         `bson:"clickedAt,omitempty" json:"clickedAt,omitempty"`
	Converted        bool               `bson:"converted" json:"converted"`
	ConversionAmount float64            `bson:"conversionAmount,omitempty" json:"conversionAmount,omitempty"`
	CommissionAmount float64            `bson:"commissionAmount,omitempty" json:"commissionAmount,omitempty"`
	CreatedAt        time.Time          `bson:"createdAt" json:"createdAt"`
}

// CreateLinkRequest is the body of POST /api/links
type CreateLinkRequest struct {
	ProductID  string `json:"productId" validate:"required"`
	AgentID    string `json:"agentId" validate:"required"`
	ProductURL string `json:"productUrl" validate:"required,url"`
}

// ConversionRequest is the body of POST /api/conversions
type ConversionRequest struct {
	ClickID    string  `json:"clickId" validate:"required"`
	OrderID    string  `json:"orderId" validate:"required"`
	SaleAmount float64 `json:"saleAmount" validate:"required,gt=0"`
	// Optional product-level rate supplied by the catalog at conversion time.
	ProductCommissionRate float64 `json:"productCommissionRate" validate:"omitempty,gt=0,lte=0.5"`
}
