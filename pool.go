// Package stripepool implements a striped, bounded, reusable resource
// pool: a concurrent cache of expensive-to-create resources (canonically
// database connections, but agnostic to the resource type) that multiplexes
// many concurrent borrowers onto at most M resources per stripe, blocking
// new borrowers once the cap is reached and idly reaping resources that
// have outlived a configured idle interval.
package stripepool

import (
	"runtime"
	"sync/atomic"
	"time"
)

// Pool owns N independent stripes, the caller's factory/destructor, and the
// background reaper. Immutable after New returns; reading its
// configuration is lock-free.
type Pool struct {
	factory Factory
	destroy Destructor
	hash    HashFunc

	stripes []*stripe

	idleTime     time.Duration
	maxResources int

	onDestroyError func(error)

	stats *stats

	closed     atomic.Bool
	stopReaper chan struct{}
	reaperDone chan struct{}
}

// New validates cfg and returns a basic pool: identity increment,
// constant-true reusability.
func New(cfg Config) (*Pool, error) {
	return newPool(cfg, identityIncrement, alwaysReusable)
}

// NewBoundedReuse returns a pool where each resource may be borrowed at
// most maxUses times before the pool stops handing it out again.
// maxUses must be >= 1.
func NewBoundedReuse(cfg Config, maxUses uint64) (*Pool, error) {
	if maxUses < 1 {
		return nil, badConfig("MaxUses must be >= 1, got %d", maxUses)
	}
	increment := func(e entry) entry {
		e.uses++
		return e
	}
	isReusable := func(e entry) bool {
		return e.uses < maxUses
	}
	return newPool(cfg, increment, isReusable)
}

func identityIncrement(e entry) entry { return e }
func alwaysReusable(entry) bool       { return true }

func newPool(cfg Config, increment func(entry) entry, isReusable func(entry) bool) (*Pool, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	hash := cfg.HashFunc
	if hash == nil {
		hash = XXHash
	}

	p := &Pool{
		factory:        cfg.Factory,
		destroy:        cfg.Destroy,
		hash:           hash,
		idleTime:       cfg.IdleTime,
		maxResources:   cfg.MaxResources,
		onDestroyError: cfg.OnDestroyError,
		stats:          newStats(cfg.EnableStats),
		stopReaper:     make(chan struct{}),
		reaperDone:     make(chan struct{}),
	}

	p.stripes = make([]*stripe, cfg.NumStripes)
	for i := range p.stripes {
		p.stripes[i] = newStripe(cfg.MaxResources, increment, isReusable)
	}

	go p.runReaper()

	// Terminate the reaper when the pool becomes unreachable, with
	// Close() as the explicit alternative/complement — the mechanism
	// Go's GC offers in place of destructor-triggered finalization.
	runtime.SetFinalizer(p, (*Pool).Close)

	return p, nil
}

// IdleTime returns the configured idle expiry.
func (p *Pool) IdleTime() time.Duration { return p.idleTime }

// MaxResources returns the configured per-stripe cap.
func (p *Pool) MaxResources() int { return p.maxResources }

// NumStripes returns the configured stripe count.
func (p *Pool) NumStripes() int { return len(p.stripes) }

// Stats returns a point-in-time snapshot of pool activity. Always a zero
// value if Config.EnableStats was false.
func (p *Pool) Stats() Stats { return p.stats.snapshot() }

// Close stops the reaper and destroys every idle resource across every
// stripe. Safe to call more than once. After Close, Take, TryTake,
// WithResource and TryWithResource return ErrClosed. Close does not wait for borrowed resources to be
// returned — it only reclaims what is currently idle; there is no
// drain/graceful-shutdown operation.
func (p *Pool) Close() {
	if !p.closed.CompareAndSwap(false, true) {
		return
	}
	runtime.SetFinalizer(p, nil)

	close(p.stopReaper)
	<-p.reaperDone

	for _, s := range p.stripes {
		s.mu.Lock()
		idle := s.idle
		s.idle = nil
		s.inUse -= len(idle)
		s.mu.Unlock()
		s.cond.Broadcast()

		for _, e := range idle {
			p.invokeDestroy(e.resource)
		}
	}
}
