package entities

import "time"

// Snapshot is the aggregate quota state pushed to dashboards and returned by
// the status endpoint. It is recomputed on demand and never stored.
type Snapshot struct {
	Used               int64     `json:"used"`
	Reserved           int64     `json:"reserved"`
	DailyLimit         int64     `json:"daily_limit"`
	MinuteUsed         int64     `json:"minute_used"`
	MinuteLimit        int64     `json:"minute_limit"`
	ConnectedSessions  int       `json:"connected_sessions"`
	ActiveDeletions    int       `json:"active_deletions"`
	MaxParallelDeletes int       `json:"max_parallel_deletes"`
	PercentUsed        float64   `json:"percent_used"`
	Date               string    `json:"date"`
	Timestamp          time.Time `json:"timestamp"`
}

// Available returns the units still grantable from the shared pool.
func (s Snapshot) Available() int64 {
	return s.DailyLimit - s.Used - s.Reserved
}
