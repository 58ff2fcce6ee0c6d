package domain

import "errors"

var (
	// ErrNotFound is returned when a transaction or account does not exist.
	ErrNotFound = errors.New("not found")

	// ErrStatusConflict is returned when a transition targets one terminal
	// state but a racing caller already committed the other one.
	ErrStatusConflict = errors.New("transaction status conflict")

	// ErrCreditUnconfirmed is the partial-failure case: the transaction was
	// approved but the balance credit could not be verified. It must never
	// be folded into a generic success.
	ErrCreditUnconfirmed = errors.New("balance credit unconfirmed")

	// ErrAlreadyTerminal is returned by the store when a guarded status
	// update matched no pending row.
	ErrAlreadyTerminal = errors.New("transaction already in a terminal state")
)
