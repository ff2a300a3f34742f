package models

import (
	"encoding/json"
	"time"
)

// Customer represents a loyalty program account.
type Customer struct {
	ID                string    `json:"id"`   // uuid
	Name              string    `json:"name"` // display name shown to the operator
	Points            int64     `json:"points"`
	TotalPointsEarned int64     `json:"total_points_earned"`
	CreatedAt         time.Time `json:"created_at"`
}

// Level returns the loyalty tier derived from lifetime earnings.
func (c Customer) Level() string {
	switch {
	case c.TotalPointsEarned >= 1000:
		return "Gold"
	case c.TotalPointsEarned >= 500:
		return "Silver"
	default:
		return "Bronze"
	}
}

// Reward is a catalog entry a customer can spend points on.
type Reward struct {
	ID          string `json:"id"` // uuid
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	PointsCost  int64  `json:"points_cost"`
	Active      bool   `json:"active"`
}

// Transaction is one append-only ledger entry. PointsChange is signed:
// positive for purchase credits, negative for reward debits.
type Transaction struct {
	ID           string    `json:"id"` // uuid
	CustomerID   string    `json:"customer_id"`
	PointsChange int64     `json:"points_change"`
	Description  string    `json:"description"`
	CreatedAt    time.Time `json:"created_at"`
}

// UsedToken marks a QR token as consumed. A row's existence is the single
// source of truth for "already redeemed"; QRToken is the unique key.
type UsedToken struct {
	QRToken       string    `json:"qr_token"`
	CustomerID    string    `json:"customer_id"`
	AmountSpent   float64   `json:"amount_spent"`
	PointsAwarded int64     `json:"points_awarded"`
	UsedAt        time.Time `json:"used_at"`
}

// CreateCustomerRequest is the request body for registering a customer.
type CreateCustomerRequest struct {
	Name string `json:"name"`
}

// AddPointsRequest is the request body for redeeming a QR token against a
// purchase. QRData is kept raw because operator clients send either the
// payload object or the payload as a JSON-encoded string.
type AddPointsRequest struct {
	QRData json.RawMessage `json:"qr_data"`
	Amount float64         `json:"amount"`
}

// AddPointsResponse is the success payload for a redemption.
type AddPointsResponse struct {
	Success      bool    `json:"success"`
	PointsAdded  int64   `json:"points_added"`
	NewTotal     int64   `json:"new_total"`
	AmountSpent  float64 `json:"amount_spent"`
	CustomerName string  `json:"customer_name"`
}

// RedeemRewardRequest is the request body for spending points on a reward.
type RedeemRewardRequest struct {
	CustomerID string `json:"customer_id"`
	RewardID   string `json:"reward_id"`
}

// RedeemRewardResponse is the success payload for a reward redemption.
type RedeemRewardResponse struct {
	Success     bool   `json:"success"`
	PointsSpent int64  `json:"points_spent"`
	NewTotal    int64  `json:"new_total"`
	RewardName  string `json:"reward_name"`
}

// CustomerResponse is the profile payload returned to clients.
type CustomerResponse struct {
	Customer
	Level string `json:"level"`
}

// TransactionsResponse wraps a customer's ledger history.
type TransactionsResponse struct {
	CustomerID   string        `json:"customer_id"`
	Transactions []Transaction `json:"transactions"`
}

// IssueTokenResponse is returned when a fresh QR token is issued.
type IssueTokenResponse struct {
	Payload   string    `json:"payload"`
	Token     string    `json:"token"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}
