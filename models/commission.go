package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Commission is the amount owed to an agent for a single conversion.
// One commission exists per converted click (enforced by a unique index
// on clickId).
type Commission struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	AgentID          primitive.ObjectID `bson:"agentId" json:"agentId"`
	ClickID          string             `bson:"clickId" json:"clickId"`
	ProductID        string             `bson:"productId" json:"productId"`
	OrderID          string             `bson:"orderId" json:"orderId"`
	SaleAmount       float64            `bson:"saleAmount" json:"saleAmount"`
	CommissionRate   float64            `bson:"commissionRate" json:"commissionRate"`
	CommissionAmount float64            `bson:"commissionAmount" json:"commissionAmount"`
	Status           string             `bson:"status" json:"status"` // "earned", "paid", "cancelled"
	CreatedAt        time.Time          `bson:"createdAt" json:"createdAt"`
	PaidAt           *time.Time         `bson:"paidAt,omitempty" json:"paidAt,omitempty"`
}
