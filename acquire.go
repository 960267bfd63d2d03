package stripepool

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// Take acquires a resource, blocking until the stripe has capacity or a
// reusable idle entry appears. Returns the resource and the stripe handle
// a matching Put/Destroy must use.
func (p *Pool) Take(ctx context.Context) (any, *Stripe, error) {
	if p.closed.Load() {
		return nil, nil, ErrClosed
	}

	st := p.stripes[p.stripeIndex(ctx)]
	handle := &Stripe{stripe: st}

	started := time.Now()
	waited := false

	st.mu.Lock()
	for {
		if e, ok := st.splitReusable(); ok {
			handle.uses = e.uses
			st.mu.Unlock()
			if waited {
				p.stats.recordWait(time.Since(started))
			}
			return e.resource, handle, nil
		}

		if st.inUse < st.maxResources {
			st.inUse++
			st.mu.Unlock()
			if waited {
				p.stats.recordWait(time.Since(started))
			}

			resource, err := p.constructResource(ctx)
			if err != nil {
				st.mu.Lock()
				st.inUse--
				st.mu.Unlock()
				st.cond.Signal()
				return nil, nil, err
			}
			return resource, handle, nil
		}

		// Stripe saturated and nothing reusable idle: block until some
		// other borrower on this stripe commits a Put/Destroy. ctx
		// cancellation must also wake us, so waitOrCancel starts a watcher
		// goroutine that broadcasts on the stripe's cond when ctx is done.
		if !waited {
			waited = true
			p.stats.enterBlocked()
			defer p.stats.exitBlocked()
		}
		if done := p.waitOrCancel(ctx, st); done != nil {
			st.mu.Unlock()
			return nil, nil, done
		}
	}
}

// TryTake is Take's non-blocking sibling: if the stripe is saturated with
// nothing reusable idle, it returns ok=false immediately instead of
// blocking, and performs no retry.
func (p *Pool) TryTake(ctx context.Context) (any, *Stripe, bool, error) {
	if p.closed.Load() {
		return nil, nil, false, ErrClosed
	}

	st := p.stripes[p.stripeIndex(ctx)]
	handle := &Stripe{stripe: st}

	st.mu.Lock()
	if e, ok := st.splitReusable(); ok {
		handle.uses = e.uses
		st.mu.Unlock()
		return e.resource, handle, true, nil
	}
	if st.inUse >= st.maxResources {
		st.mu.Unlock()
		return nil, nil, false, nil
	}
	st.inUse++
	st.mu.Unlock()

	resource, err := p.constructResource(ctx)
	if err != nil {
		st.mu.Lock()
		st.inUse--
		st.mu.Unlock()
		st.cond.Signal()
		return nil, nil, false, err
	}
	return resource, handle, true, nil
}

// constructResource calls the factory outside any stripe lock and wraps a
// failure with call-site context, using github.com/pkg/errors rather than
// returning it bare.
func (p *Pool) constructResource(ctx context.Context) (any, error) {
	p.stats.addFactoryCall()
	resource, err := p.factory(ctx)
	if err != nil {
		p.stats.addFactoryFailure()
		return nil, errors.Wrap(err, "stripepool: factory")
	}
	return resource, nil
}

// waitOrCancel parks the caller on st.cond until either another
// transaction on st commits or ctx is cancelled, returning ctx.Err() in the
// latter case. st.mu must be held on entry and is held again on every
// return, including when an error is returned, so the caller is
// responsible for unlocking it either way.
//
// A flow blocked in Take is itself cancellable: cancelling here never
// reserves capacity, since the increment only happens after the wait loop
// exits cleanly, so the stripe state is unchanged on cancellation.
func (p *Pool) waitOrCancel(ctx context.Context, st *stripe) error {
	if ctx.Done() == nil {
		st.cond.Wait()
		return nil
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	// A watcher goroutine wakes st.cond when ctx is cancelled. It is not
	// joined synchronously: st.mu may still be held by this goroutine
	// (cond.Wait reacquires it before returning) when the watcher's own
	// ctx.Done branch wants the lock, so waiting for it here could
	// deadlock. The watcher always terminates promptly on its own once
	// either stop is closed or it manages to acquire the lock.
	stop := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			st.mu.Lock()
			st.cond.Broadcast()
			st.mu.Unlock()
		case <-stop:
		}
	}()

	st.cond.Wait()
	close(stop)

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
