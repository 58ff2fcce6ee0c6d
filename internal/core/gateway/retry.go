package gateway

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

const (
	// MaxAttempts bounds retries per call, first attempt included.
	MaxAttempts = 3

	// CallTimeout bounds every single HTTP call to a gateway.
	CallTimeout = 15 * time.Second
)

// initialBackoff doubles after each failed attempt. A variable so tests
// can run the retry loop without real sleeps.
var initialBackoff = 1 * time.Second

// VerifyWithRetry calls client.Verify, retrying transient faults with
// exponential backoff (1s, 2s). Permanent errors return immediately.
func VerifyWithRetry(ctx context.Context, client Client, reference string) (VerifyResult, error) {
	var lastErr error
	backoff := initialBackoff

	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, CallTimeout)
		result, err := client.Verify(callCtx, reference)
		cancel()

		if err == nil {
			return result, nil
		}

		var transient *TransientError
		if !errors.As(err, &transient) {
			return VerifyResult{}, err
		}

		lastErr = err
		if attempt < MaxAttempts {
			slog.Warn("gateway verify retry",
				"gateway", client.Name(),
				"reference", reference,
				"attempt", attempt,
				"backoff", backoff,
				"error", err,
			)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return VerifyResult{}, ctx.Err()
			}
			backoff *= 2
		}
	}

	return VerifyResult{}, lastErr
}

// ListWithRetry is the listing counterpart of VerifyWithRetry.
func ListWithRetry(ctx context.Context, client Client, from, to time.Time) ([]ProviderTxn, error) {
	var lastErr error
	backoff := initialBackoff

	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, CallTimeout)
		txns, err := client.ListRecentSuccesses(callCtx, from, to)
		cancel()

		if err == nil {
			return txns, nil
		}

		var transient *TransientError
		if !errors.As(err, &transient) {
			return nil, err
		}

		lastErr = err
		if attempt < MaxAttempts {
			slog.Warn("gateway list retry",
				"gateway", client.Name(),
				"attempt", attempt,
				"backoff", backoff,
				"error", err,
			)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			backoff *= 2
		}
	}

	return nil, lastErr
}
