package quota

import "time"

// The sweeper is the sole cleanup path for sessions that crashed or lost
// their connection without calling Release. Two independently-timed passes
// run in one goroutine: an inactivity pass over the presence table and a
// staleness pass over the reservation table. The staleness window is
// typically shorter, covering a session that is still connected but has
// abandoned an operation without signalling release.

func (s *Service) startSweeper() {
	s.sweepDone = make(chan struct{})
	s.sweepWG.Add(1)

	presenceInterval := s.cfg.Sweep.PresenceInterval
	if presenceInterval <= 0 {
		presenceInterval = time.Minute
	}
	reservationInterval := s.cfg.Sweep.ReservationInterval
	if reservationInterval <= 0 {
		reservationInterval = 30 * time.Second
	}

	go func() {
		defer s.sweepWG.Done()

		presenceTicker := time.NewTicker(presenceInterval)
		defer presenceTicker.Stop()
		reservationTicker := time.NewTicker(reservationInterval)
		defer reservationTicker.Stop()

		for {
			select {
			case <-s.sweepDone:
				return
			case <-presenceTicker.C:
				s.ReapInactiveSessions()
			case <-reservationTicker.C:
				s.ReapStaleReservations()
			}
		}
	}()
}

// ReapStaleReservations removes reservations untouched for longer than the
// staleness window, returning their unconsumed units to the shared pool
// exactly as an explicit release would. Returns the number reaped.
func (s *Service) ReapStaleReservations() int {
	now := s.now()
	cutoff := now.Add(-s.cfg.Sweep.ReservationTimeout)

	s.mu.Lock()
	s.checkDayResetLocked(now)

	reaped := 0
	for sessionID, res := range s.reservations {
		if res.CreatedAt.Before(cutoff) {
			s.log.Info().
				Str("session", sessionID).
				Int64("returned", res.Outstanding()).
				Time("created_at", res.CreatedAt).
				Msg("reaped stale reservation")
			delete(s.reservations, sessionID)
			reaped++
		}
	}
	if reaped == 0 {
		s.mu.Unlock()
		return 0
	}

	snap := s.snapshotLocked(now)
	s.mu.Unlock()
	s.hub.Publish(snap)
	return reaped
}

// ReapInactiveSessions removes presence entries whose last activity exceeds
// the inactivity timeout and reaps any reservation those sessions still
// hold. Returns the number of sessions removed.
func (s *Service) ReapInactiveSessions() int {
	now := s.now()
	cutoff := now.Add(-s.cfg.Sweep.PresenceTimeout)

	s.mu.Lock()
	s.checkDayResetLocked(now)

	removed := 0
	for sessionID, p := range s.presence {
		if p.LastActivity.Before(cutoff) {
			delete(s.presence, sessionID)
			if res, ok := s.reservations[sessionID]; ok {
				s.log.Info().
					Str("session", sessionID).
					Int64("returned", res.Outstanding()).
					Msg("reaped reservation of inactive session")
				delete(s.reservations, sessionID)
			}
			removed++
		}
	}
	if removed == 0 {
		s.mu.Unlock()
		return 0
	}

	snap := s.snapshotLocked(now)
	s.mu.Unlock()
	s.hub.Publish(snap)

	s.log.Debug().Int("removed", removed).Msg("swept inactive sessions")
	return removed
}
