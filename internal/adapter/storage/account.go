package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/derrickappah/smm-panel-sub006/internal/core/domain"
)

// AccountRepository implements domain.AccountStore on Postgres. Balances
// are read and written as plain values; the ledger layers its own
// verification on top.
type AccountRepository struct {
	db *pgxpool.Pool
}

func NewAccountRepository(db *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) CreateAccount(ctx context.Context, email, phone string) (domain.Account, error) {
	query := `
		INSERT INTO accounts (email, phone, balance)
		VALUES ($1, $2, 0)
		RETURNING id, email, phone, balance, created_at
	`
	return r.scanAccount(r.db.QueryRow(ctx, query, email, phone))
}

func (r *AccountRepository) GetAccount(ctx context.Context, id uuid.UUID) (domain.Account, error) {
	query := `SELECT id, email, phone, balance, created_at FROM accounts WHERE id = $1`
	acc, err := r.scanAccount(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Account{}, fmt.Errorf("account %s: %w", id, domain.ErrNotFound)
	}
	return acc, err
}

func (r *AccountRepository) GetBalance(ctx context.Context, id uuid.UUID) (decimal.Decimal, error) {
	var raw string
	err := r.db.QueryRow(ctx, `SELECT balance FROM accounts WHERE id = $1`, id).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, fmt.Errorf("account %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(raw)
}

func (r *AccountRepository) SetBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error {
	tag, err := r.db.Exec(ctx, `UPDATE accounts SET balance = $1 WHERE id = $2`, balance.String(), id)
	if err != nil {
		return fmt.Errorf("updating balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("account %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (r *AccountRepository) scanAccount(row pgx.Row) (domain.Account, error) {
	var (
		acc domain.Account
		raw string
	)
	if err := row.Scan(&acc.ID, &acc.Email, &acc.Phone, &raw, &acc.CreatedAt); err != nil {
		return domain.Account{}, err
	}
	balance, err := decimal.NewFromString(raw)
	if err != nil {
		return domain.Account{}, fmt.Errorf("parsing balance: %w", err)
	}
	acc.Balance = balance
	return acc, nil
}
