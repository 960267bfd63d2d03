package stripepool

import "time"

// reaperInterval is the reaper's fixed wake period. Effective
// idle-time-to-destruction may exceed IdleTime by up to one wake period;
// that is intended, not a bug.
const reaperInterval = 1 * time.Second

// runReaper is the background task started by newPool and stopped by
// Close: a ticker-driven goroutine scanning every stripe's idle list
// directly rather than bucketing by expiry time — a stripe's idle list is
// bounded by MaxResources, so there is no million-key-scale reason to
// bucket.
func (p *Pool) runReaper() {
	defer close(p.reaperDone)

	ticker := time.NewTicker(reaperInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopReaper:
			return
		case <-ticker.C:
			p.reapOnce(time.Now())
		}
	}
}

// reapOnce partitions every stripe's idle list into stale/fresh, commits
// fresh back atomically, and destroys the stale resources outside any
// lock.
func (p *Pool) reapOnce(now time.Time) {
	for _, s := range p.stripes {
		stale := s.reapStale(now, p.idleTime)
		if len(stale) == 0 {
			continue
		}
		p.stats.addReaped(len(stale))
		for _, e := range stale {
			p.invokeDestroy(e.resource)
		}
		s.cond.Signal()
	}
}

// reapStale removes entries that are either too old or no longer
// reusable, returning them for destruction outside the lock.
func (s *stripe) reapStale(now time.Time, idleTime time.Duration) []entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.idle) == 0 {
		return nil
	}

	fresh := s.idle[:0:0]
	var stale []entry
	for _, e := range s.idle {
		if now.Sub(e.lastUse) > idleTime || !s.isReusable(e) {
			stale = append(stale, e)
			continue
		}
		fresh = append(fresh, e)
	}
	s.idle = fresh
	s.inUse -= len(stale)
	return stale
}
