package ledger_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/derrickappah/smm-panel-sub006/internal/core/domain"
	"github.com/derrickappah/smm-panel-sub006/internal/core/ledger"
)

// mockAccounts simulates a store without atomic increments. interfere
// counts how many writes get clobbered by a simulated concurrent writer
// before the store behaves again.
type mockAccounts struct {
	balance   decimal.Decimal
	interfere int
	setCalls  int
}

func (m *mockAccounts) GetAccount(ctx context.Context, id uuid.UUID) (domain.Account, error) {
	return domain.Account{ID: id, Balance: m.balance}, nil
}

func (m *mockAccounts) GetBalance(ctx context.Context, id uuid.UUID) (decimal.Decimal, error) {
	return m.balance, nil
}

func (m *mockAccounts) SetBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error {
	m.setCalls++
	if m.interfere > 0 {
		m.interfere--
		// A racing writer lands right after ours.
		m.balance = balance.Sub(decimal.NewFromInt(1))
		return nil
	}
	m.balance = balance
	return nil
}

func TestCredit_HappyPath(t *testing.T) {
	accounts := &mockAccounts{balance: decimal.NewFromFloat(10.00)}
	l := ledger.New(accounts)

	err := l.Credit(context.Background(), uuid.New(), decimal.NewFromFloat(50.00))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	want := decimal.NewFromFloat(60.00)
	if !accounts.balance.Equal(want) {
		t.Errorf("Expected balance %s, got %s", want, accounts.balance)
	}
}

func TestCredit_RetriesAfterVerifyMismatch(t *testing.T) {
	accounts := &mockAccounts{balance: decimal.NewFromFloat(10.00), interfere: 1}
	l := ledger.New(accounts)

	err := l.Credit(context.Background(), uuid.New(), decimal.NewFromFloat(5.00))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if accounts.setCalls != 2 {
		t.Errorf("Expected 2 write cycles, got %d", accounts.setCalls)
	}
}

func TestCredit_UnconfirmedAfterRetryBound(t *testing.T) {
	accounts := &mockAccounts{balance: decimal.NewFromFloat(10.00), interfere: 100}
	l := ledger.New(accounts)

	err := l.Credit(context.Background(), uuid.New(), decimal.NewFromFloat(5.00))
	if !errors.Is(err, domain.ErrCreditUnconfirmed) {
		t.Fatalf("Expected ErrCreditUnconfirmed, got %v", err)
	}
	if accounts.setCalls != 3 {
		t.Errorf("Expected 3 write cycles, got %d", accounts.setCalls)
	}
}

func TestCredit_RejectsNegativeAmount(t *testing.T) {
	accounts := &mockAccounts{balance: decimal.Zero}
	l := ledger.New(accounts)

	if err := l.Credit(context.Background(), uuid.New(), decimal.NewFromFloat(-1.00)); err == nil {
		t.Fatal("Expected an error for a negative credit")
	}
	if accounts.setCalls != 0 {
		t.Error("Expected no writes for a negative credit")
	}
}
