package reconcile

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/derrickappah/smm-panel-sub006/internal/core/approval"
	"github.com/derrickappah/smm-panel-sub006/internal/core/domain"
	"github.com/derrickappah/smm-panel-sub006/internal/core/gateway"
	"github.com/derrickappah/smm-panel-sub006/internal/core/matching"
)

const (
	// DefaultLookback is the sweep window when the caller does not give one.
	DefaultLookback = 48 * time.Hour

	// maxSweepRecords bounds a single sweep so its runtime stays bounded.
	maxSweepRecords = 200

	// interCallDelay spaces out gateway calls to stay under rate limits.
	interCallDelay = 200 * time.Millisecond
)

// Report aggregates what one sweep did. Partial failures are listed
// separately from plain errors: they need manual reconciliation, not a
// retry.
type Report struct {
	Checked   int                   `json:"checked"`
	Updated   int                   `json:"updated"`
	Matched   int                   `json:"matched"`
	Errors    int                   `json:"errors"`
	Partials  []string              `json:"partial_failures,omitempty"`
	Unmatched []gateway.ProviderTxn `json:"unmatched_gateway_successes,omitempty"`
	StartedAt time.Time             `json:"started_at"`
	Duration  time.Duration         `json:"duration"`
}

// Sweeper drives one bounded reconciliation pass over pending deposits.
// It is stateless: everything it knows lives in the store and the gateway
// answers of the moment.
type Sweeper struct {
	store    domain.TransactionStore
	accounts domain.AccountStore
	gateways map[string]gateway.Client
	matcher  *matching.Matcher
	machine  *approval.Machine

	// delay and now are swapped out in tests.
	delay time.Duration
	now   func() time.Time
}

func NewSweeper(
	store domain.TransactionStore,
	accounts domain.AccountStore,
	gateways map[string]gateway.Client,
	machine *approval.Machine,
) *Sweeper {
	return &Sweeper{
		store:    store,
		accounts: accounts,
		gateways: gateways,
		matcher:  matching.NewMatcher(),
		machine:  machine,
		delay:    interCallDelay,
		now:      time.Now,
	}
}

// Sweep fetches pending deposits inside the lookback window, backfills
// references for the ones missing them, verifies everything referenced,
// and drives each result through the approval machine. Per-item failures
// never abort the sweep.
func (s *Sweeper) Sweep(ctx context.Context, lookback time.Duration) (Report, error) {
	if lookback <= 0 {
		lookback = DefaultLookback
	}

	now := s.now()
	report := Report{StartedAt: now}

	since := now.Add(-lookback)
	pending, err := s.store.ListPendingDeposits(ctx, since, maxSweepRecords)
	if err != nil {
		return report, err
	}
	report.Checked = len(pending)

	// Partition per gateway by reference presence.
	withRef := make(map[string][]domain.Transaction)
	withoutRef := make(map[string][]domain.Transaction)
	for _, txn := range pending {
		if txn.HasReference() {
			withRef[txn.Gateway] = append(withRef[txn.Gateway], txn)
		} else {
			withoutRef[txn.Gateway] = append(withoutRef[txn.Gateway], txn)
		}
	}

	for gw, txns := range withoutRef {
		s.reconcileUnreferenced(ctx, gw, txns, lookback, now, &report)
	}

	for gw, txns := range withRef {
		s.verifyReferenced(ctx, gw, txns, now, &report)
	}

	report.Duration = s.now().Sub(now)
	slog.Info("sweep finished",
		"checked", report.Checked,
		"updated", report.Updated,
		"matched", report.Matched,
		"errors", report.Errors,
		"partial_failures", len(report.Partials),
		"duration", report.Duration,
	)
	return report, nil
}

// reconcileUnreferenced rejects stale unreferenced deposits, then tries to
// backfill references for the rest from the gateway's recent successes.
func (s *Sweeper) reconcileUnreferenced(
	ctx context.Context,
	gw string,
	txns []domain.Transaction,
	lookback time.Duration,
	now time.Time,
	report *Report,
) {
	var candidates []matching.Candidate

	for _, txn := range txns {
		if txn.Age(now) > approval.StaleWithoutReference {
			if _, err := s.machine.Reject(ctx, txn, "stale: no gateway reference"); err != nil {
				report.Errors++
				continue
			}
			report.Updated++
			continue
		}

		account, err := s.accounts.GetAccount(ctx, txn.UserID)
		if err != nil {
			// Match on amount and time alone; identity is only a bonus.
			slog.Warn("account lookup failed, matching without identity",
				"transaction_id", txn.ID, "error", err)
			account = domain.Account{}
		}
		candidates = append(candidates, matching.Candidate{Txn: txn, Account: account})
	}

	if len(candidates) == 0 {
		return
	}

	client, ok := s.gateways[gw]
	if !ok {
		slog.Error("no client configured for gateway", "gateway", gw, "deposits", len(candidates))
		report.Errors += len(candidates)
		return
	}

	listed, err := gateway.ListWithRetry(ctx, client, now.Add(-lookback), now)
	if err != nil {
		slog.Error("listing gateway successes failed", "gateway", gw, "error", err)
		report.Errors += len(candidates)
		return
	}

	result := s.matcher.FindMatches(listed, candidates)
	report.Unmatched = appendBounded(report.Unmatched, result.UnmatchedProvider, matching.UnmatchedSampleCap)

	for _, match := range result.Matches {
		if err := s.store.SetReference(ctx, match.Txn.ID, match.Provider.Reference); err != nil {
			slog.Error("backfilling reference failed",
				"transaction_id", match.Txn.ID, "reference", match.Provider.Reference, "error", err)
			report.Errors++
			continue
		}

		res, err := s.machine.Approve(ctx, match.Txn, "matched to gateway success")
		s.record(res, err, match.Txn, report)
		if err == nil || res.PartialFailure {
			report.Matched++
		}
	}
}

// verifyReferenced checks every referenced pending deposit against its
// gateway sequentially, spacing calls out with a small delay.
func (s *Sweeper) verifyReferenced(
	ctx context.Context,
	gw string,
	txns []domain.Transaction,
	now time.Time,
	report *Report,
) {
	client, ok := s.gateways[gw]
	if !ok {
		slog.Error("no client configured for gateway", "gateway", gw, "deposits", len(txns))
		report.Errors += len(txns)
		return
	}

	for i, txn := range txns {
		if i > 0 && s.delay > 0 {
			select {
			case <-time.After(s.delay):
			case <-ctx.Done():
				report.Errors += len(txns) - i
				return
			}
		}

		vr, err := gateway.VerifyWithRetry(ctx, client, txn.Reference)
		if err != nil {
			report.Errors++
			slog.Warn("verification failed",
				"transaction_id", txn.ID, "gateway", gw, "reference", txn.Reference, "error", err)

			// Deposits old enough stop waiting for the gateway to
			// come around.
			if txn.Age(now) > approval.VerifyFailureEscalation {
				if res, rerr := s.machine.Reject(ctx, txn, "verification attempts exhausted"); rerr == nil && res.Status == domain.StatusRejected {
					report.Updated++
				}
			}
			continue
		}

		if vr.Outcome == gateway.OutcomeSuccess && !domain.SameAmount(vr.Amount, txn.Amount) {
			slog.Error("gateway reports success with a different amount, leaving pending",
				"transaction_id", txn.ID,
				"expected", txn.Amount,
				"reported", vr.Amount,
			)
			report.Errors++
			continue
		}

		res, err := s.machine.ApplyVerification(ctx, txn, vr)
		s.record(res, err, txn, report)
	}
}

// record folds one transition attempt into the report.
func (s *Sweeper) record(res approval.Result, err error, txn domain.Transaction, report *Report) {
	if res.PartialFailure {
		report.Updated++
		report.Partials = append(report.Partials, txn.ID.String())
		return
	}
	if err != nil {
		if !errors.Is(err, domain.ErrStatusConflict) {
			report.Errors++
		}
		return
	}
	if res.Credited || (res.Status.Terminal() && txn.Status == domain.StatusPending) {
		report.Updated++
	}
}

func appendBounded(dst, src []gateway.ProviderTxn, limit int) []gateway.ProviderTxn {
	for _, item := range src {
		if len(dst) >= limit {
			break
		}
		dst = append(dst, item)
	}
	return dst
}
