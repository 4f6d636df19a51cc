package entities

import "time"

// Reservation is a single session's quota entitlement. Reservations live in
// memory only; they are rebuilt from zero after a restart.
type Reservation struct {
	SessionID    string    `json:"session_id"`
	TotalPlanned int64     `json:"total_planned"`
	Reserved     int64     `json:"reserved"`
	Used         int64     `json:"used"`
	CreatedAt    time.Time `json:"created_at"`
}

// Outstanding returns the units set aside but not yet confirmed.
func (r Reservation) Outstanding() int64 {
	return r.Reserved - r.Used
}

// SessionPresence records a connected session for fair-share math and
// dashboards.
type SessionPresence struct {
	SessionID    string    `json:"session_id"`
	IsDeleting   bool      `json:"is_deleting"`
	LastActivity time.Time `json:"last_activity"`
}

// ReserveResult is the outcome of a reservation attempt. On failure the
// message and snapshot carry enough context for the caller to decide whether
// to wait for the daily reset, reduce scope, or abort.
type ReserveResult struct {
	Success  bool     `json:"success"`
	Granted  int64    `json:"granted"`
	Message  string   `json:"message,omitempty"`
	Snapshot Snapshot `json:"snapshot"`
}

// ConfirmResult reports how many units were actually charged and what the
// session should do next in its batch loop.
type ConfirmResult struct {
	Confirmed int64 `json:"confirmed"`
	NextChunk int64 `json:"next_chunk"`
	Remaining int64 `json:"remaining"`
	Continue  bool  `json:"continue"`
}
