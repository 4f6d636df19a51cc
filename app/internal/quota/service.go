// Package quota implements the admission controller that divides the
// provider's metered daily budget across concurrent sessions. Sessions
// follow a reserve→confirm→release protocol: a bounded chunk is set aside,
// actual consumption is confirmed against it, and unconsumed units return to
// the shared pool on release or staleness sweep.
package quota

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/commentsweep/quota-server/app/domain/entities"
	"github.com/commentsweep/quota-server/app/internal/broadcast"
	"github.com/commentsweep/quota-server/app/internal/config"
	"github.com/commentsweep/quota-server/app/internal/epoch"
	"github.com/commentsweep/quota-server/app/internal/ledger"
)

// Service owns the reservation and presence tables. One mutex serializes
// every read-modify-write across both tables and the ledger, so concurrent
// sessions are resolved by ordinary sequential execution.
type Service struct {
	cfg *config.Config
	led *ledger.Ledger
	hub *broadcast.Hub
	log zerolog.Logger
	now func() time.Time

	mu           sync.Mutex
	reservations map[string]*entities.Reservation
	presence     map[string]*entities.SessionPresence
	minuteKey    string
	minuteUsed   int64

	sweepDone chan struct{}
	sweepWG   sync.WaitGroup
	closeOnce sync.Once
}

// Option customizes a Service.
type Option func(*Service)

// WithClock replaces the wall clock, letting tests drive day boundaries and
// staleness windows without sleeping.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService builds the admission controller and starts its background
// sweeper. Call Close to stop it.
func NewService(cfg *config.Config, led *ledger.Ledger, hub *broadcast.Hub, log zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		cfg:          cfg,
		led:          led,
		hub:          hub,
		log:          log.With().Str("component", "quota").Logger(),
		now:          time.Now,
		reservations: make(map[string]*entities.Reservation),
		presence:     make(map[string]*entities.SessionPresence),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.startSweeper()
	return s
}

// Close stops the sweeper and drops all broadcast subscribers.
func (s *Service) Close() {
	s.closeOnce.Do(func() {
		close(s.sweepDone)
		s.sweepWG.Wait()
		s.hub.Close()
	})
}

// Reserve grants sessionID a bounded chunk of quota toward totalPlanned
// units of upcoming work. A session already holding at least a full chunk of
// unconsumed units gets no new grant; its surplus is returned as the usable
// amount. When the shared pool is empty the result carries the reset time so
// the caller can decide whether to wait, reduce scope, or abort.
//
// The per-minute counter is advisory only: it is exposed in every snapshot
// for clients to throttle themselves, but does not gate admission.
func (s *Service) Reserve(sessionID string, totalPlanned int64) entities.ReserveResult {
	now := s.now()

	s.mu.Lock()
	s.checkDayResetLocked(now)
	s.rollMinuteLocked(now)

	available := s.cfg.Quota.DailyLimit - s.led.TotalUsed() - s.otherOutstandingLocked(sessionID)
	if available <= 0 {
		snap := s.snapshotLocked(now)
		s.mu.Unlock()

		msg := fmt.Sprintf("daily quota exhausted; resets in %s (at %s)",
			epoch.UntilReset(now).Round(time.Second),
			epoch.NextReset(now).Format(time.RFC3339))
		s.log.Warn().
			Str("session", sessionID).
			Int64("total_planned", totalPlanned).
			Msg("reservation rejected: quota exhausted")
		return entities.ReserveResult{Success: false, Message: msg, Snapshot: snap}
	}

	res, ok := s.reservations[sessionID]
	if !ok {
		res = &entities.Reservation{SessionID: sessionID}
		s.reservations[sessionID] = res
	}
	res.TotalPlanned = totalPlanned

	outstanding := res.Outstanding()
	freePool := available - outstanding
	if outstanding < s.cfg.Quota.ReserveChunk {
		grant := min(s.cfg.Quota.ReserveChunk, freePool, totalPlanned-res.Reserved)
		if grant > 0 {
			res.Reserved += grant
			outstanding += grant
		}
	}
	res.CreatedAt = now
	s.touchLocked(sessionID, true, now)

	snap := s.snapshotLocked(now)
	s.mu.Unlock()
	s.hub.Publish(snap)

	s.log.Debug().
		Str("session", sessionID).
		Int64("granted", outstanding).
		Int64("total_planned", totalPlanned).
		Msg("reservation granted")
	return entities.ReserveResult{Success: true, Granted: outstanding, Snapshot: snap}
}

// Confirm moves actualUsed units from reserved to irrevocably consumed. The
// confirmed amount is clamped to the session's outstanding reservation: a
// misbehaving client can never charge more than it was granted. Confirming
// without a prior reservation is a protocol violation and has zero effect.
func (s *Service) Confirm(sessionID string, actualUsed int64) (entities.ConfirmResult, error) {
	now := s.now()

	s.mu.Lock()
	s.checkDayResetLocked(now)
	s.rollMinuteLocked(now)

	res, ok := s.reservations[sessionID]
	if !ok {
		s.mu.Unlock()
		s.log.Warn().
			Str("session", sessionID).
			Int64("actual_used", actualUsed).
			Msg("confirm without reservation rejected")
		return entities.ConfirmResult{}, entities.ErrNoReservation
	}

	if actualUsed < 0 {
		actualUsed = 0
	}
	confirmed := actualUsed
	if outstanding := res.Outstanding(); confirmed > outstanding {
		s.log.Warn().
			Str("session", sessionID).
			Int64("actual_used", actualUsed).
			Int64("outstanding", outstanding).
			Msg("confirm exceeds outstanding reservation, clamping")
		confirmed = outstanding
	}

	res.Used += confirmed
	res.CreatedAt = now
	s.minuteUsed += confirmed
	s.led.RecordUsed(confirmed)
	s.touchLocked(sessionID, true, now)

	freePool := s.cfg.Quota.DailyLimit - s.led.TotalUsed() - s.outstandingLocked()
	if freePool < 0 {
		freePool = 0
	}
	next := res.Outstanding()
	if next < s.cfg.Quota.ReserveChunk {
		if grant := min(s.cfg.Quota.ReserveChunk, freePool, res.TotalPlanned-res.Reserved); grant > 0 {
			next += grant
		}
	}

	result := entities.ConfirmResult{
		Confirmed: confirmed,
		NextChunk: next,
		Remaining: freePool,
		Continue:  next > 0 && res.Used < res.TotalPlanned,
	}

	snap := s.snapshotLocked(now)
	s.mu.Unlock()
	s.hub.Publish(snap)

	return result, nil
}

// Release returns a session's unconsumed units to the shared pool and
// deletes its reservation. Releasing a session with no active reservation is
// a no-op.
func (s *Service) Release(sessionID string) {
	now := s.now()

	s.mu.Lock()
	s.checkDayResetLocked(now)

	res, ok := s.reservations[sessionID]
	if !ok {
		s.mu.Unlock()
		return
	}
	returned := res.Outstanding()
	delete(s.reservations, sessionID)
	if p, present := s.presence[sessionID]; present {
		p.IsDeleting = false
		p.LastActivity = now
	}

	snap := s.snapshotLocked(now)
	s.mu.Unlock()
	s.hub.Publish(snap)

	s.log.Debug().
		Str("session", sessionID).
		Int64("returned", returned).
		Msg("reservation released")
}

// RegisterSession records first contact from a session.
func (s *Service) RegisterSession(sessionID string) {
	s.touchAndPublish(sessionID, false)
}

// UnregisterSession removes a session's presence entry and releases any
// reservation it still holds.
func (s *Service) UnregisterSession(sessionID string) {
	now := s.now()

	s.mu.Lock()
	s.checkDayResetLocked(now)

	_, hadPresence := s.presence[sessionID]
	delete(s.presence, sessionID)
	_, hadReservation := s.reservations[sessionID]
	delete(s.reservations, sessionID)
	if !hadPresence && !hadReservation {
		s.mu.Unlock()
		return
	}

	snap := s.snapshotLocked(now)
	s.mu.Unlock()
	s.hub.Publish(snap)
}

// TouchActivity creates or refreshes a session's presence entry.
func (s *Service) TouchActivity(sessionID string, isDeleting bool) {
	s.touchAndPublish(sessionID, isDeleting)
}

// Allowance returns the recommended maximum number of concurrent provider
// calls for sessionID. With no other session deleting the full configured
// cap applies; with N concurrent deleters each gets max(1, cap/N). The
// figure is recomputed fresh on every call, never sticky.
func (s *Service) Allowance(sessionID string) int {
	s.mu.Lock()
	others := 0
	for id, p := range s.presence {
		if p.IsDeleting && id != sessionID {
			others++
		}
	}
	s.mu.Unlock()

	parallel := s.cfg.Quota.MaxParallelDeletes
	if others == 0 {
		return parallel
	}
	share := parallel / (others + 1)
	if share < 1 {
		share = 1
	}
	return share
}

// Status returns a fresh aggregate snapshot.
func (s *Service) Status() entities.Snapshot {
	now := s.now()

	s.mu.Lock()
	s.checkDayResetLocked(now)
	snap := s.snapshotLocked(now)
	s.mu.Unlock()
	return snap
}

// Subscribe registers a snapshot listener. The listener immediately receives
// the current snapshot so it is never left without initial state.
func (s *Service) Subscribe() (string, <-chan entities.Snapshot) {
	now := s.now()

	s.mu.Lock()
	snap := s.snapshotLocked(now)
	s.mu.Unlock()

	id, ch := s.hub.Subscribe()
	s.hub.SendTo(id, snap)
	return id, ch
}

// Unsubscribe removes a snapshot listener.
func (s *Service) Unsubscribe(id string) {
	s.hub.Unsubscribe(id)
}

// EstimateCost returns the quota units an operation over itemCount items
// will consume under the configured tariff.
func (s *Service) EstimateCost(kind entities.OperationKind, itemCount int64) (int64, error) {
	return entities.EstimateCost(kind, itemCount, entities.Tariff{
		DeleteCost: s.cfg.Quota.DeleteCost,
		ListCost:   s.cfg.Quota.ListCost,
		PageSize:   s.cfg.Quota.PageSize,
	})
}

func (s *Service) touchAndPublish(sessionID string, isDeleting bool) {
	now := s.now()

	s.mu.Lock()
	s.checkDayResetLocked(now)
	changed := s.touchLocked(sessionID, isDeleting, now)
	if !changed {
		s.mu.Unlock()
		return
	}
	snap := s.snapshotLocked(now)
	s.mu.Unlock()
	s.hub.Publish(snap)
}

// touchLocked creates or refreshes a presence entry and reports whether the
// aggregate snapshot changed (new session or deleting flag flipped).
func (s *Service) touchLocked(sessionID string, isDeleting bool, now time.Time) bool {
	p, ok := s.presence[sessionID]
	if !ok {
		s.presence[sessionID] = &entities.SessionPresence{
			SessionID:    sessionID,
			IsDeleting:   isDeleting,
			LastActivity: now,
		}
		return true
	}
	changed := p.IsDeleting != isDeleting
	p.IsDeleting = isDeleting
	p.LastActivity = now
	return changed
}

// checkDayResetLocked defensively rolls the ledger day at the start of every
// mutating operation. A rollover discards every reservation unconditionally.
func (s *Service) checkDayResetLocked(now time.Time) {
	if s.led.CheckDayReset(now) {
		cleared := len(s.reservations)
		s.reservations = make(map[string]*entities.Reservation)
		if cleared > 0 {
			s.log.Info().Int("cleared_reservations", cleared).Msg("day reset cleared reservations")
		}
	}
}

func (s *Service) rollMinuteLocked(now time.Time) {
	key := epoch.MinuteKey(now)
	if key != s.minuteKey {
		s.minuteKey = key
		s.minuteUsed = 0
	}
}

// outstandingLocked sums reserved-but-unconfirmed units across all sessions.
func (s *Service) outstandingLocked() int64 {
	var total int64
	for _, r := range s.reservations {
		total += r.Outstanding()
	}
	return total
}

// otherOutstandingLocked sums outstanding units across every session except
// sessionID.
func (s *Service) otherOutstandingLocked(sessionID string) int64 {
	var total int64
	for id, r := range s.reservations {
		if id != sessionID {
			total += r.Outstanding()
		}
	}
	return total
}

func (s *Service) snapshotLocked(now time.Time) entities.Snapshot {
	s.rollMinuteLocked(now)

	activeDeletions := 0
	for _, p := range s.presence {
		if p.IsDeleting {
			activeDeletions++
		}
	}

	used := s.led.TotalUsed()
	limit := s.cfg.Quota.DailyLimit
	var pct float64
	if limit > 0 {
		pct = float64(used) / float64(limit) * 100
	}

	return entities.Snapshot{
		Used:               used,
		Reserved:           s.outstandingLocked(),
		DailyLimit:         limit,
		MinuteUsed:         s.minuteUsed,
		MinuteLimit:        s.cfg.Quota.PerMinuteLimit,
		ConnectedSessions:  len(s.presence),
		ActiveDeletions:    activeDeletions,
		MaxParallelDeletes: s.cfg.Quota.MaxParallelDeletes,
		PercentUsed:        pct,
		Date:               s.led.Date(),
		Timestamp:          now,
	}
}
