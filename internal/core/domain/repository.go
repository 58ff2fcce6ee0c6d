package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionStore defines the persistence contract for deposit records.
type TransactionStore interface {
	// GetTransaction fetches a single deposit by id.
	GetTransaction(ctx context.Context, id uuid.UUID) (Transaction, error)

	// GetTransactionByReference fetches a deposit by its gateway reference.
	GetTransactionByReference(ctx context.Context, gateway, reference string) (Transaction, error)

	// ListPendingDeposits returns pending deposits created after since,
	// oldest first, capped at limit.
	ListPendingDeposits(ctx context.Context, since time.Time, limit int) ([]Transaction, error)

	// SetReference backfills the gateway correlation id on a pending deposit.
	SetReference(ctx context.Context, id uuid.UUID, reference string) error

	// MarkTerminal conditionally moves a pending deposit to a terminal
	// status and records the raw gateway status. It returns
	// ErrAlreadyTerminal when no pending row matched, leaving the caller
	// to re-read and decide.
	MarkTerminal(ctx context.Context, id uuid.UUID, to TransactionStatus, gatewayStatus string) error
}

// AccountStore defines the persistence contract for balance holders. The
// ledger assumes plain read and write semantics only; it layers its own
// verification on top.
type AccountStore interface {
	GetAccount(ctx context.Context, id uuid.UUID) (Account, error)
	GetBalance(ctx context.Context, id uuid.UUID) (decimal.Decimal, error)
	SetBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error
}
