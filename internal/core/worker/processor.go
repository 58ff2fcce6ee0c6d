package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/derrickappah/smm-panel-sub006/internal/core/reconcile"
)

// StartSweepWorker runs the reconciliation sweep on a fixed interval until
// ctx is cancelled. One sweep runs at a time; a slow sweep simply delays
// the next tick.
func StartSweepWorker(ctx context.Context, sweeper *reconcile.Sweeper, interval time.Duration) {
	go func() {
		slog.Info("👷 Sweep worker started", "interval", interval)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				slog.Info("Sweep worker stopped")
				return
			case <-ticker.C:
				runSweep(ctx, sweeper)
			}
		}
	}()
}

func runSweep(ctx context.Context, sweeper *reconcile.Sweeper) {
	report, err := sweeper.Sweep(ctx, reconcile.DefaultLookback)
	if err != nil {
		slog.Error("Scheduled sweep failed", "error", err)
		return
	}
	if len(report.Partials) > 0 {
		slog.Error("⚠️ Sweep left unconfirmed credits, manual reconciliation needed",
			"transaction_ids", report.Partials)
	}
}
