package stripepool

import "time"

// Put returns a resource to the stripe it came from. Applies increment
// exactly once per successful borrow — starting from the reuse count s
// carried forward from the matching Take/TryTake, not from zero, so a
// resource's use count accumulates across repeated borrow/return cycles
// instead of resetting on every return — prepends the refreshed entry to
// the idle list (LIFO), and leaves inUse unchanged — the resource remains
// counted the whole time, borrowed or idle. Non-reusable entries are not
// filtered out here; the next Take's split (or the next reaper sweep) is
// where that is noticed.
func (p *Pool) Put(s *Stripe, resource any) {
	st := s.stripe
	now := time.Now()

	st.mu.Lock()
	e := st.increment(entry{resource: resource, uses: s.uses})
	st.pushIdle(e, now)
	st.mu.Unlock()

	st.cond.Signal()
}

// Destroy invokes the destructor on resource (suppressing any failure it
// raises) and decrements the stripe's inUse. This is the release path
// taken whenever the borrower's action failed, or whenever the caller
// explicitly decides not to keep a resource.
func (p *Pool) Destroy(s *Stripe, resource any) {
	p.invokeDestroy(resource)

	st := s.stripe
	st.mu.Lock()
	st.inUse--
	st.mu.Unlock()

	st.cond.Signal()
}

// invokeDestroy calls the user destructor, recovering from and suppressing
// any panic it raises so that a failing destructor never corrupts pool
// state or propagates. A Destructor returns nothing, so a panic is its only
// way to fail; the recovered value is converted to an error and passed to
// Config.OnDestroyError when that hook is set.
func (p *Pool) invokeDestroy(resource any) {
	defer func() {
		if r := recover(); r != nil {
			p.stats.addDestroyError()
			if p.onDestroyError != nil {
				p.onDestroyError(panicToError(r))
			}
		}
	}()
	p.stats.addDestroyCall()
	p.destroy(resource)
}
