package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/derrickappah/smm-panel-sub006/internal/core/domain"
)

// TransactionRepository implements domain.TransactionStore on Postgres.
// Deposits are never deleted; terminal rows stay as the audit trail.
type TransactionRepository struct {
	db *pgxpool.Pool
}

func NewTransactionRepository(db *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{db: db}
}

const transactionColumns = `
	id, user_id, amount, kind, status, gateway,
	COALESCE(reference, ''), COALESCE(gateway_status, ''), created_at
`

// CreateDeposit inserts a new pending deposit. Reference may be empty when
// the initiation flow never obtained one from the gateway.
func (r *TransactionRepository) CreateDeposit(
	ctx context.Context,
	userID uuid.UUID,
	amount decimal.Decimal,
	gateway, reference string,
) (domain.Transaction, error) {
	query := `
		INSERT INTO transactions (user_id, amount, kind, status, gateway, reference)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''))
		RETURNING ` + transactionColumns

	row := r.db.QueryRow(ctx, query,
		userID, amount.String(), domain.KindDeposit, domain.StatusPending, gateway, reference)
	txn, err := scanTransaction(row)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("creating deposit: %w", err)
	}
	return txn, nil
}

func (r *TransactionRepository) GetTransaction(ctx context.Context, id uuid.UUID) (domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`
	txn, err := scanTransaction(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Transaction{}, fmt.Errorf("transaction %s: %w", id, domain.ErrNotFound)
	}
	return txn, err
}

func (r *TransactionRepository) GetTransactionByReference(ctx context.Context, gateway, reference string) (domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE gateway = $1 AND reference = $2`
	txn, err := scanTransaction(r.db.QueryRow(ctx, query, gateway, reference))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Transaction{}, fmt.Errorf("reference %s/%s: %w", gateway, reference, domain.ErrNotFound)
	}
	return txn, err
}

func (r *TransactionRepository) ListPendingDeposits(ctx context.Context, since time.Time, limit int) ([]domain.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE kind = $1 AND status = $2 AND created_at >= $3
		ORDER BY created_at ASC
		LIMIT $4
	`
	rows, err := r.db.Query(ctx, query, domain.KindDeposit, domain.StatusPending, since, limit)
	if err != nil {
		return nil, fmt.Errorf("listing pending deposits: %w", err)
	}
	defer rows.Close()

	return collectTransactions(rows)
}

// ListDeposits returns recent deposits of any status, newest first.
func (r *TransactionRepository) ListDeposits(ctx context.Context, limit int) ([]domain.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE kind = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, domain.KindDeposit, limit)
	if err != nil {
		return nil, fmt.Errorf("listing deposits: %w", err)
	}
	defer rows.Close()

	return collectTransactions(rows)
}

func (r *TransactionRepository) SetReference(ctx context.Context, id uuid.UUID, reference string) error {
	query := `UPDATE transactions SET reference = $1 WHERE id = $2 AND status = $3`
	tag, err := r.db.Exec(ctx, query, reference, id, domain.StatusPending)
	if err != nil {
		return fmt.Errorf("setting reference: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("transaction %s: %w", id, domain.ErrAlreadyTerminal)
	}
	return nil
}

// MarkTerminal performs the guarded transition write: the WHERE clause on
// status is what keeps racing callers from overwriting each other.
func (r *TransactionRepository) MarkTerminal(
	ctx context.Context,
	id uuid.UUID,
	to domain.TransactionStatus,
	gatewayStatus string,
) error {
	query := `
		UPDATE transactions
		SET status = $1, gateway_status = $2
		WHERE id = $3 AND status = $4
	`
	tag, err := r.db.Exec(ctx, query, to, gatewayStatus, id, domain.StatusPending)
	if err != nil {
		return fmt.Errorf("marking transaction %s %s: %w", id, to, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("transaction %s: %w", id, domain.ErrAlreadyTerminal)
	}
	return nil
}

// Stats powers the admin dashboard counters.
type Stats struct {
	TotalDeposits   int64 `json:"total_deposits"`
	PendingDeposits int64 `json:"pending_deposits"`
	TotalAccounts   int64 `json:"total_accounts"`
}

func (r *TransactionRepository) GetStats(ctx context.Context) (Stats, error) {
	var stats Stats
	query := `
		SELECT
			(SELECT COUNT(*) FROM transactions WHERE kind = $1),
			(SELECT COUNT(*) FROM transactions WHERE kind = $1 AND status = $2),
			(SELECT COUNT(*) FROM accounts)
	`
	err := r.db.QueryRow(ctx, query, domain.KindDeposit, domain.StatusPending).Scan(
		&stats.TotalDeposits, &stats.PendingDeposits, &stats.TotalAccounts,
	)
	if err != nil {
		return Stats{}, fmt.Errorf("fetching stats: %w", err)
	}
	return stats, nil
}

func scanTransaction(row pgx.Row) (domain.Transaction, error) {
	var (
		txn domain.Transaction
		raw string
	)
	err := row.Scan(
		&txn.ID, &txn.UserID, &raw, &txn.Kind, &txn.Status,
		&txn.Gateway, &txn.Reference, &txn.GatewayStatus, &txn.CreatedAt,
	)
	if err != nil {
		return domain.Transaction{}, err
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("parsing amount: %w", err)
	}
	txn.Amount = amount
	return txn, nil
}

func collectTransactions(rows pgx.Rows) ([]domain.Transaction, error) {
	var txns []domain.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txns = append(txns, txn)
	}
	return txns, rows.Err()
}
