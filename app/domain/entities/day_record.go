package entities

import "time"

// DayRecord is the persisted ledger state for one provider-local calendar
// day. Reservations are deliberately excluded from this shape: they do not
// survive a restart.
type DayRecord struct {
	Date      string    `json:"date"`
	TotalUsed int64     `json:"total_used"`
	LastReset time.Time `json:"last_reset"`
}
