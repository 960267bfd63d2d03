package stripepool

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/arcflux/stripepool/internal/histogram"
)

// waitHistogramBounds buckets parked-acquire durations from 1us to ~1s by
// powers of two, grounded on z.HistogramBounds' power-of-two bucket scheme.
var waitHistogramBounds = histogram.Bounds(10, 30) // 2^10ns .. 2^30ns

// stats holds the atomic counters backing Stats: one atomic counter per
// tracked event, cheap to skip entirely when disabled.
type stats struct {
	enabled bool

	factoryCalls    atomic.Int64
	factoryFailures atomic.Int64
	destroyCalls    atomic.Int64
	destroyErrors   atomic.Int64
	reapedTotal     atomic.Int64
	blocked         atomic.Int64

	waitMu   sync.Mutex
	waitHist *histogram.Data
}

func newStats(enabled bool) *stats {
	return &stats{
		enabled:  enabled,
		waitHist: histogram.New(waitHistogramBounds),
	}
}

func (s *stats) enterBlocked() {
	if s.enabled {
		s.blocked.Add(1)
	}
}

func (s *stats) exitBlocked() {
	if s.enabled {
		s.blocked.Add(-1)
	}
}

func (s *stats) addFactoryCall() {
	if s.enabled {
		s.factoryCalls.Add(1)
	}
}

func (s *stats) addFactoryFailure() {
	if s.enabled {
		s.factoryFailures.Add(1)
	}
}

func (s *stats) addDestroyCall() {
	if s.enabled {
		s.destroyCalls.Add(1)
	}
}

func (s *stats) addDestroyError() {
	if s.enabled {
		s.destroyErrors.Add(1)
	}
}

func (s *stats) addReaped(n int) {
	if s.enabled && n > 0 {
		s.reapedTotal.Add(int64(n))
	}
}

func (s *stats) recordWait(d time.Duration) {
	if !s.enabled {
		return
	}
	s.waitMu.Lock()
	s.waitHist.Update(d.Nanoseconds())
	s.waitMu.Unlock()
}

// Stats is a point-in-time snapshot of a Pool's activity, grounded on the
// teacher's Metrics type and on vitess ResourcePool's StatsJSON.
type Stats struct {
	FactoryCalls    int64
	FactoryFailures int64
	DestroyCalls    int64
	DestroyErrors   int64
	ReapedTotal     int64
	Blocked         int64
	WaitHistogram   *histogram.Data
}

func (s *stats) snapshot() Stats {
	if !s.enabled {
		return Stats{}
	}
	s.waitMu.Lock()
	hist := s.waitHist.Copy()
	s.waitMu.Unlock()

	return Stats{
		FactoryCalls:    s.factoryCalls.Load(),
		FactoryFailures: s.factoryFailures.Load(),
		DestroyCalls:    s.destroyCalls.Load(),
		DestroyErrors:   s.destroyErrors.Load(),
		ReapedTotal:     s.reapedTotal.Load(),
		Blocked:         s.blocked.Load(),
		WaitHistogram:   hist,
	}
}

// String renders a one-line human-readable summary, counts formatted with
// go-humanize.
func (s Stats) String() string {
	return fmt.Sprintf(
		"factory=%s (failed=%s) destroy=%s (errored=%s) reaped=%s",
		humanize.Comma(s.FactoryCalls), humanize.Comma(s.FactoryFailures),
		humanize.Comma(s.DestroyCalls), humanize.Comma(s.DestroyErrors),
		humanize.Comma(s.ReapedTotal),
	)
}
