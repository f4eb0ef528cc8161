package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PaymentStatus represents the state of a payment order.
type PaymentStatus string

const (
	PaymentStatusPending      PaymentStatus = "pending"
	PaymentStatusVerifying    PaymentStatus = "verifying"
	PaymentStatusCompleted    PaymentStatus = "completed"
	PaymentStatusFailed       PaymentStatus = "failed"
	PaymentStatusInitiated    PaymentStatus = "initiated"
	PaymentStatusCardVerified PaymentStatus = "card_verified"
	PaymentStatusConverting   PaymentStatus = "converting"
	PaymentStatusTransferring PaymentStatus = "transferring"
)

// PaymentMethod selects which checkout flow a payment goes through.
type PaymentMethod string

const (
	PaymentMethodCrypto PaymentMethod = "crypto"
	PaymentMethodCard   PaymentMethod = "card"
)

// StatusChange is a single entry in a payment's status history.
type StatusChange struct {
	Status    PaymentStatus `bson:"status" json:"status"`
	Message   string        `bson:"message,omitempty" json:"message,omitempty"`
	ChangedAt time.Time     `bson:"changedAt" json:"changedAt"`
}

// Payment is the authoritative record of a checkout order.
type Payment struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OrderID          string             `bson:"orderId" json:"orderId"`
	USDTAmount       float64            `bson:"usdtAmount" json:"usdtAmount"`
	OriginalAmount   float64            `bson:"originalAmount" json:"originalAmount"`
	OriginalCurrency string             `bson:"originalCurrency" json:"originalCurrency"`
	DepositAddress   string             `bson:"depositAddress" json:"depositAddress"`
	Method           PaymentMethod      `bson:"method" json:"method"`
	Status           PaymentStatus      `bson:"status" json:"status"`
	StatusHistory    []StatusChange     `bson:"statusHistory" json:"statusHistory"`
	TxID             string             `bson:"txId,omitempty" json:"txId,omitempty"`
	Commission       float64            `bson:"commission,omitempty" json:"commission,omitempty"`
	NetAmount        float64            `bson:"netAmount,omitempty" json:"netAmount,omitempty"`
	CreatedAt        time.Time          `bson:"createdAt" json:"createdAt"`
	VerifiedAt       *time.Time         `bson:"verifiedAt,omitempty" json:"verifiedAt,omitempty"`
}

// PaymentLog is an audit entry kept in the capped payment_logs collection.
type PaymentLog struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OrderID   string             `bson:"orderId" json:"orderId"`
	Event     string             `bson:"event" json:"event"`
	Detail    string             `bson:"detail,omitempty" json:"detail,omitempty"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

// CreatePaymentRequest is the body of POST /api/payments
type CreatePaymentRequest struct {
	OrderID  string  `json:"orderId"`
	Amount   float64 `json:"amount" validate:"required,gt=0"`
	Currency string  `json:"currency" validate:"required,len=3|len=4"`
	Method   string  `json:"method" validate:"omitempty,oneof=crypto card"`
}

// ManualVerifyRequest is the body of POST /api/payments/:orderId/manual-verify
type ManualVerifyRequest struct {
	TxID string `json:"txId" validate:"required"`
}
