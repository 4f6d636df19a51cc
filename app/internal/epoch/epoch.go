// Package epoch computes the provider's quota-reset boundary. The provider
// resets all quotas at midnight Pacific time, so the ledger's partition key
// is always the Pacific calendar date regardless of the host's zone.
package epoch

import (
	"time"
	// Embed zone data so containers without a zoneinfo database still
	// resolve the provider zone.
	_ "time/tzdata"
)

const providerZone = "America/Los_Angeles"

var location = mustLoadLocation()

func mustLoadLocation() *time.Location {
	loc, err := time.LoadLocation(providerZone)
	if err != nil {
		panic("epoch: load " + providerZone + ": " + err.Error())
	}
	return loc
}

// DayKey returns the provider-local calendar day key for t, e.g. "2025-06-01".
func DayKey(t time.Time) string {
	return t.In(location).Format("2006-01-02")
}

// NextReset returns the instant of the next provider-local midnight after t.
// time.Date normalizes day+1 across month boundaries and DST transitions, so
// a 23- or 25-hour wall-clock day still yields the correct instant.
func NextReset(t time.Time) time.Time {
	local := t.In(location)
	return time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, location)
}

// UntilReset returns the duration from t until the next provider-local
// midnight.
func UntilReset(t time.Time) time.Duration {
	return NextReset(t).Sub(t)
}

// MinuteKey labels the provider-local wall-clock minute containing t. The
// rolling per-minute usage counter resets whenever this label changes.
func MinuteKey(t time.Time) string {
	return t.In(location).Format("2006-01-02T15:04")
}
