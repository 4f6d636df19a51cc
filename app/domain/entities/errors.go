package entities

import "errors"

// Sentinel errors.
var (
	// ErrQuotaExhausted means the shared daily pool has no grantable units
	// left until the provider's reset instant.
	ErrQuotaExhausted = errors.New("quota: daily quota exhausted")

	// ErrNoReservation means a session tried to confirm usage without having
	// reserved first. This is a protocol violation by the caller, not a
	// recoverable condition.
	ErrNoReservation = errors.New("quota: no active reservation for session")

	// ErrDayRecordNotFound is returned by ledger stores when no persisted
	// day record exists yet.
	ErrDayRecordNotFound = errors.New("quota: day record not found")

	// ErrUnknownOperation is returned by cost estimation for an operation
	// kind the provider tariff does not cover.
	ErrUnknownOperation = errors.New("quota: unknown operation kind")
)
