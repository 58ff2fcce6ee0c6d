package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/derrickappah/smm-panel-sub006/internal/core/domain"
)

const (
	// maxCycles bounds the read-modify-write-verify loop.
	maxCycles = 3

	verifyBackoff = 100 * time.Millisecond
)

// Ledger is the only path through which account balances change. The
// underlying store offers no atomic increment, so every credit is a
// read-modify-write followed by a verifying re-read; a mismatch restarts
// the whole cycle.
type Ledger struct {
	accounts domain.AccountStore
}

func New(accounts domain.AccountStore) *Ledger {
	return &Ledger{accounts: accounts}
}

// Credit adds amount to the account's balance. When verification still
// fails after the retry bound it returns ErrCreditUnconfirmed: the caller
// must surface this as a partial failure, never as success.
func (l *Ledger) Credit(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return fmt.Errorf("credit amount must not be negative: %s", amount)
	}

	for cycle := 1; cycle <= maxCycles; cycle++ {
		current, err := l.accounts.GetBalance(ctx, accountID)
		if err != nil {
			return fmt.Errorf("reading balance: %w", err)
		}

		expected := current.Add(amount)

		if err := l.accounts.SetBalance(ctx, accountID, expected); err != nil {
			return fmt.Errorf("writing balance: %w", err)
		}

		verified, err := l.accounts.GetBalance(ctx, accountID)
		if err != nil {
			return fmt.Errorf("re-reading balance: %w", err)
		}

		if verified.Equal(expected) {
			return nil
		}

		slog.Warn("balance verify mismatch, restarting credit cycle",
			"account_id", accountID,
			"expected", expected,
			"observed", verified,
			"cycle", cycle,
		)

		select {
		case <-time.After(verifyBackoff):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return fmt.Errorf("credit of %s to %s: %w", amount, accountID, domain.ErrCreditUnconfirmed)
}
