package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Outcome is the normalized verification result shared by all gateways.
// Each adapter maps its provider's own status vocabulary onto this enum.
type Outcome string

const (
	OutcomeSuccess   Outcome = "success"
	OutcomeFailed    Outcome = "failed"
	OutcomeAbandoned Outcome = "abandoned"
	OutcomePending   Outcome = "pending"
)

// VerifyResult is a gateway's answer for a single reference.
type VerifyResult struct {
	Outcome    Outcome
	Amount     decimal.Decimal
	ExternalID string
	RawStatus  string
}

// ProviderTxn is one successful transaction as reported by a gateway's
// listing endpoint. PayerEmail and PayerPhone may be empty.
type ProviderTxn struct {
	Reference  string
	Amount     decimal.Decimal
	PaidAt     time.Time
	PayerEmail string
	PayerPhone string
}

// Client is the uniform contract implemented once per payment gateway.
type Client interface {
	// Name returns the gateway identifier used on transactions ("paystack").
	Name() string

	// Verify checks the status of a single reference. Transient faults
	// surface as *TransientError, other non-2xx answers as *PermanentError.
	Verify(ctx context.Context, reference string) (VerifyResult, error)

	// ListRecentSuccesses returns successful transactions between from and
	// to. Adapters drive pagination internally up to a page safety cap.
	ListRecentSuccesses(ctx context.Context, from, to time.Time) ([]ProviderTxn, error)
}

// TransientError marks a fault worth retrying: timeout, rate limit,
// network failure, or a gateway 5xx.
type TransientError struct {
	Gateway string
	Op      string
	Err     error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: transient %s error: %v", e.Gateway, e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// PermanentError marks a fault that will not change on retry, typically a
// 4xx from the gateway.
type PermanentError struct {
	Gateway    string
	Op         string
	StatusCode int
	Err        error
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("%s: permanent %s error (status %d): %v", e.Gateway, e.Op, e.StatusCode, e.Err)
}

func (e *PermanentError) Unwrap() error { return e.Err }
