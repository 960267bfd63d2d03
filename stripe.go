package stripepool

import (
	"sync"
	"time"
)

// Stripe is the opaque handle the acquire protocol returns alongside a
// resource, so a later Put/Destroy lands back on the same stripe. uses
// carries the resource's reuse count forward from Take to the matching
// Put, since Put only receives the bare resource back, not its Entry.
type Stripe struct {
	stripe *stripe
	uses   uint64
}

// stripe is one independently-locked shard of a Pool: the atomic per-stripe
// state (idle list, in-use count) plus the two policy callables every
// stripe in a Pool shares. Guarded by mu; cond is signalled after any
// commit that might unblock a waiting take.
//
// idle is ordered newest-first (index 0 = most recently returned), giving
// LIFO reuse preference: the most recently returned reusable entry is
// handed to the next blocking acquire.
type stripe struct {
	mu   sync.Mutex
	cond *sync.Cond

	idle  []entry
	inUse int

	maxResources int
	increment    func(entry) entry
	isReusable   func(entry) bool
}

func newStripe(maxResources int, increment func(entry) entry, isReusable func(entry) bool) *stripe {
	s := &stripe{
		maxResources: maxResources,
		increment:    increment,
		isReusable:   isReusable,
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// splitReusable scans idle for the first reusable entry. Entries before it
// are never destroyed here — that is the reaper's job, keeping destructor
// I/O off the hot acquire path. Returns the popped entry and ok=true if one
// was found, with that entry removed from idle; otherwise idle is left
// unchanged. Skipped non-reusable entries stay counted in inUse until the
// next reaper sweep, so a stripe full of them makes Take block for up to
// one reaper interval even though no resource is borrowed.
func (s *stripe) splitReusable() (entry, bool) {
	for i, e := range s.idle {
		if s.isReusable(e) {
			popped := e
			s.idle = append(s.idle[:i:i], s.idle[i+1:]...)
			return popped, true
		}
	}
	return entry{}, false
}

func (s *stripe) pushIdle(e entry, now time.Time) {
	e.lastUse = now
	s.idle = append([]entry{e}, s.idle...)
}
