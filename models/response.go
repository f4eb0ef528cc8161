package models

// Response is the standard API response envelope.
type Response struct {
	Status  int         `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// LoginRequest is the body of POST /api/auth/login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries the issued session token.
type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expiresAt"`
}

// WebhookEvent is the body of POST /webhooks/payment.
type WebhookEvent struct {
	EventID string `json:"eventId" validate:"required"`
	Type    string `json:"type" validate:"required"`
	OrderID string `json:"orderId" validate:"required"`
	TxID    string `json:"txId"`
}
