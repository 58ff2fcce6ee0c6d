package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/derrickappah/smm-panel-sub006/internal/core/approval"
	"github.com/derrickappah/smm-panel-sub006/internal/core/domain"
	"github.com/derrickappah/smm-panel-sub006/internal/core/gateway"
)

// ErrNoReference is returned when a single-transaction verification is
// requested for a deposit that never acquired a gateway reference.
var ErrNoReference = errors.New("transaction has no gateway reference")

// VerifyOne runs the verify-and-transition path for a single known
// deposit. Webhook callbacks and the manual endpoint both land here, so
// they share the sweep's exact transition semantics.
func (s *Sweeper) VerifyOne(ctx context.Context, txn domain.Transaction) (approval.Result, error) {
	if txn.Status.Terminal() {
		return approval.Result{Status: txn.Status}, nil
	}
	if !txn.HasReference() {
		return approval.Result{Status: txn.Status}, ErrNoReference
	}

	client, ok := s.gateways[txn.Gateway]
	if !ok {
		return approval.Result{Status: txn.Status}, fmt.Errorf("no client configured for gateway %q", txn.Gateway)
	}

	vr, err := gateway.VerifyWithRetry(ctx, client, txn.Reference)
	if err != nil {
		if txn.Age(s.now()) > approval.VerifyFailureEscalation {
			if res, rerr := s.machine.Reject(ctx, txn, "verification attempts exhausted"); rerr == nil {
				return res, nil
			}
		}
		return approval.Result{Status: txn.Status}, err
	}

	if vr.Outcome == gateway.OutcomeSuccess && !domain.SameAmount(vr.Amount, txn.Amount) {
		slog.Error("gateway reports success with a different amount, leaving pending",
			"transaction_id", txn.ID,
			"expected", txn.Amount,
			"reported", vr.Amount,
		)
		return approval.Result{Status: txn.Status}, fmt.Errorf(
			"gateway amount %s does not match deposit amount %s", vr.Amount, txn.Amount)
	}

	return s.machine.ApplyVerification(ctx, txn, vr)
}
