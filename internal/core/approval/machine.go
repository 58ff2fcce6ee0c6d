package approval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/derrickappah/smm-panel-sub006/internal/core/domain"
	"github.com/derrickappah/smm-panel-sub006/internal/core/gateway"
)

const (
	// VerifyFailureEscalation is the deposit age past which repeated
	// verification failures escalate to rejection.
	VerifyFailureEscalation = 1 * time.Hour

	// StaleWithoutReference is the age past which a deposit that never
	// acquired a gateway reference is rejected.
	StaleWithoutReference = 24 * time.Hour
)

// CreditLedger is the slice of the balance ledger the machine needs.
type CreditLedger interface {
	Credit(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal) error
}

// Result describes what a transition attempt actually did.
type Result struct {
	Status domain.TransactionStatus

	// Credited is true only when this call performed the balance credit.
	// Idempotent re-entries leave it false.
	Credited bool

	// PartialFailure is true when the status moved to approved but the
	// credit could not be confirmed.
	PartialFailure bool
}

// Machine owns every status transition a deposit may undergo. The webhook
// handler, the manual endpoint and the sweep all go through it, so the
// guarded write plus re-read below is the only concurrency control.
type Machine struct {
	store  domain.TransactionStore
	ledger CreditLedger
}

func New(store domain.TransactionStore, ledger CreditLedger) *Machine {
	return &Machine{store: store, ledger: ledger}
}

// ApplyVerification drives a deposit according to a normalized gateway
// outcome. A pending outcome is a no-op: the deposit stays as it is.
func (m *Machine) ApplyVerification(ctx context.Context, txn domain.Transaction, vr gateway.VerifyResult) (Result, error) {
	switch vr.Outcome {
	case gateway.OutcomeSuccess:
		return m.Approve(ctx, txn, vr.RawStatus)
	case gateway.OutcomeFailed, gateway.OutcomeAbandoned:
		return m.Reject(ctx, txn, vr.RawStatus)
	default:
		return Result{Status: txn.Status}, nil
	}
}

// Approve moves a pending deposit to approved and credits the owner's
// balance exactly once. The conditional status write is the claim: only
// the caller whose write lands performs the credit, so concurrent webhook,
// manual and sweep invocations cannot double-credit.
func (m *Machine) Approve(ctx context.Context, txn domain.Transaction, gatewayStatus string) (Result, error) {
	err := m.store.MarkTerminal(ctx, txn.ID, domain.StatusApproved, gatewayStatus)
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyTerminal) {
			return m.resolveTerminal(ctx, txn.ID, domain.StatusApproved)
		}
		return Result{}, fmt.Errorf("marking %s approved: %w", txn.ID, err)
	}

	if err := m.ledger.Credit(ctx, txn.UserID, txn.Amount); err != nil {
		slog.Error("deposit approved but credit unconfirmed",
			"transaction_id", txn.ID,
			"user_id", txn.UserID,
			"amount", txn.Amount,
			"error", err,
		)
		if !errors.Is(err, domain.ErrCreditUnconfirmed) {
			err = fmt.Errorf("%v: %w", err, domain.ErrCreditUnconfirmed)
		}
		return Result{Status: domain.StatusApproved, PartialFailure: true}, err
	}

	slog.Info("deposit approved",
		"transaction_id", txn.ID,
		"user_id", txn.UserID,
		"amount", txn.Amount,
		"gateway", txn.Gateway,
	)
	return Result{Status: domain.StatusApproved, Credited: true}, nil
}

// Reject moves a pending deposit to rejected. No balance effect.
func (m *Machine) Reject(ctx context.Context, txn domain.Transaction, gatewayStatus string) (Result, error) {
	err := m.store.MarkTerminal(ctx, txn.ID, domain.StatusRejected, gatewayStatus)
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyTerminal) {
			return m.resolveTerminal(ctx, txn.ID, domain.StatusRejected)
		}
		return Result{}, fmt.Errorf("marking %s rejected: %w", txn.ID, err)
	}

	slog.Info("deposit rejected",
		"transaction_id", txn.ID,
		"gateway", txn.Gateway,
		"gateway_status", gatewayStatus,
	)
	return Result{Status: domain.StatusRejected}, nil
}

// resolveTerminal re-reads the persisted status after a guarded write
// found no pending row. Matching the intended target is an idempotent
// success; the other terminal state is a conflict we must not overwrite.
func (m *Machine) resolveTerminal(ctx context.Context, id uuid.UUID, intended domain.TransactionStatus) (Result, error) {
	current, err := m.store.GetTransaction(ctx, id)
	if err != nil {
		return Result{}, fmt.Errorf("re-reading %s after guarded write: %w", id, err)
	}

	if current.Status == intended {
		return Result{Status: current.Status}, nil
	}

	return Result{Status: current.Status}, fmt.Errorf(
		"transaction %s is %s, wanted %s: %w",
		id, current.Status, intended, domain.ErrStatusConflict,
	)
}
