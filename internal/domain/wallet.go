package domain

import "github.com/shopspring/decimal"

// TransactionType distinguishes deposits from withdrawals.
type TransactionType string

const (
	TransactionDeposit  TransactionType = "DEPOSIT"
	TransactionWithdraw TransactionType = "WITHDRAW"
)

// TransactionStatus values reported by the wallet service.
const (
	TransactionPending   = "PENDING"
	TransactionCompleted = "COMPLETED"
	TransactionFailed    = "FAILED"
)

// Wallet is owned by exactly one user. Balance is only ever changed by the
// server in response to deposit/withdraw calls.
type Wallet struct {
	ID         int64           `json:"id"`
	UserID     int64           `json:"userId,omitempty"`
	Balance    decimal.Decimal `json:"balance"`
	Currency   string          `json:"currency"`
	IsVerified bool            `json:"isVerified"`
}

// Transaction is an immutable wallet history record.
type Transaction struct {
	ID            int64           `json:"id"`
	Type          TransactionType `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	Status        string          `json:"status"`
	PaymentMethod string          `json:"paymentMethod,omitempty"`
	CreatedAt     *Timestamp      `json:"createdAt,omitempty"`
	CompletedAt   *Timestamp      `json:"completedAt,omitempty"`
}

// WalletOperation is the body of deposit and withdraw calls.
type WalletOperation struct {
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"paymentMethod"`
}

// UserSubscription is a read-only projection of a membership in a shared plan.
type UserSubscription struct {
	ID              int64           `json:"id"`
	ServiceName     string          `json:"serviceName"`
	PlanName        string          `json:"planName"`
	PricePerMember  decimal.Decimal `json:"pricePerMember"`
	NextPaymentDate *Timestamp      `json:"nextPaymentDate,omitempty"`
	Status          string          `json:"status"`
}
