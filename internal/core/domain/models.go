package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionStatus is the internal lifecycle of a deposit.
// Pending is the only non-terminal state.
type TransactionStatus string

const (
	StatusPending  TransactionStatus = "pending"
	StatusApproved TransactionStatus = "approved"
	StatusRejected TransactionStatus = "rejected"
)

// Terminal reports whether the status allows no further transitions.
func (s TransactionStatus) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// TransactionKind distinguishes deposits from future transaction types.
type TransactionKind string

const KindDeposit TransactionKind = "deposit"

// Transaction is a deposit record. Reference is the gateway's correlation
// id and may be empty until a webhook or the matching engine backfills it.
// GatewayStatus mirrors the last raw status string the gateway reported.
type Transaction struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	Amount        decimal.Decimal
	Kind          TransactionKind
	Status        TransactionStatus
	Gateway       string
	Reference     string
	GatewayStatus string
	CreatedAt     time.Time
}

// HasReference reports whether the gateway correlation id is known.
func (t Transaction) HasReference() bool {
	return t.Reference != ""
}

// Age is the time elapsed since the deposit was created.
func (t Transaction) Age(now time.Time) time.Duration {
	return now.Sub(t.CreatedAt)
}

// Account holds a user's spendable balance. Email and Phone are the
// identities a gateway may report for the payer.
type Account struct {
	ID        uuid.UUID
	Email     string
	Phone     string
	Balance   decimal.Decimal
	CreatedAt time.Time
}
