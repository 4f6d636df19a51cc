package ledger

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/commentsweep/quota-server/app/domain/entities"
	"github.com/commentsweep/quota-server/app/internal/epoch"
)

// Ledger is the durable counter of quota units irrevocably consumed today.
// The in-memory value is authoritative; the store is written after every
// mutation, and a store failure degrades the process to memory-only
// operation rather than blocking admission decisions.
type Ledger struct {
	store Store
	log   zerolog.Logger

	mu        sync.Mutex
	date      string
	totalUsed int64
	lastReset time.Time
}

// New creates a Ledger on top of store. Call Load before use.
func New(store Store, log zerolog.Logger) *Ledger {
	return &Ledger{
		store: store,
		log:   log.With().Str("component", "ledger").Logger(),
	}
}

// Load reads the persisted record at process start. An absent or unreadable
// store initializes the current day at zero; only reservation-free totals are
// ever read back, reservations always restart from zero.
func (l *Ledger) Load(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	today := epoch.DayKey(now)

	rec, err := l.store.LoadLatest()
	switch {
	case err == nil && rec.Date == today:
		l.date = rec.Date
		l.totalUsed = rec.TotalUsed
		l.lastReset = rec.LastReset
		l.log.Info().Str("date", l.date).Int64("total_used", l.totalUsed).Msg("ledger loaded")
		return
	case err == nil:
		// Persisted record is from a previous day; today starts clean.
		l.log.Info().Str("stored_date", rec.Date).Str("date", today).Msg("stored ledger is stale, starting fresh day")
	case errors.Is(err, entities.ErrDayRecordNotFound):
		l.log.Info().Str("date", today).Msg("no persisted ledger, starting fresh day")
	default:
		l.log.Error().Err(err).Msg("ledger load failed, continuing in-memory only")
	}

	l.date = today
	l.totalUsed = 0
	l.lastReset = now
	l.persistLocked()
}

// CheckDayReset zeroes the counter when the provider-local day has advanced
// past the stored key. Idempotent; reports whether a rollover happened so the
// caller can clear its reservation table.
func (l *Ledger) CheckDayReset(now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	today := epoch.DayKey(now)
	if today == l.date {
		return false
	}

	l.log.Info().Str("old_date", l.date).Str("date", today).Int64("discarded_used", l.totalUsed).Msg("daily quota reset")
	l.date = today
	l.totalUsed = 0
	l.lastReset = now
	l.persistLocked()
	return true
}

// RecordUsed adds delta irrevocably consumed units and persists before
// returning, so the caller's acknowledgment implies durability (best effort:
// a persist failure is logged and the in-memory total remains authoritative).
func (l *Ledger) RecordUsed(delta int64) {
	if delta <= 0 {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.totalUsed += delta
	l.persistLocked()
}

// TotalUsed returns today's irrevocably consumed units.
func (l *Ledger) TotalUsed() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.totalUsed
}

// Date returns the current provider-local day key.
func (l *Ledger) Date() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.date
}

func (l *Ledger) persistLocked() {
	rec := &entities.DayRecord{
		Date:      l.date,
		TotalUsed: l.totalUsed,
		LastReset: l.lastReset,
	}
	if err := l.store.Save(rec); err != nil {
		l.log.Error().Err(err).Str("date", l.date).Msg("ledger persist failed, in-memory value remains authoritative")
	}
}
