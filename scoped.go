package stripepool

import "context"

// Action is user code run against a borrowed resource.
type Action func(context.Context, any) error

// WithResource acquires a resource (blocking), runs action, and guarantees
// exactly one of Put/Destroy afterwards: Put if action succeeds, Destroy
// if it returns an error or panics. The panic, if any, is re-raised after
// the resource is destroyed — Go's defer/recover stands in for a
// finally-guaranteed release here.
func (p *Pool) WithResource(ctx context.Context, action Action) (err error) {
	resource, handle, err := p.Take(ctx)
	if err != nil {
		return err
	}
	return p.runScoped(ctx, handle, resource, action)
}

// TryWithResource is WithResource's non-blocking sibling: if no resource
// is available it returns ok=false without running action at all.
func (p *Pool) TryWithResource(ctx context.Context, action Action) (ok bool, err error) {
	resource, handle, ok, err := p.TryTake(ctx)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	return true, p.runScoped(ctx, handle, resource, action)
}

// runScoped guarantees exactly one release for a resource already
// successfully acquired, converting a panicking action into a propagated
// panic after Destroy has run.
func (p *Pool) runScoped(ctx context.Context, handle *Stripe, resource any, action Action) (err error) {
	actionDone := false
	defer func() {
		if r := recover(); r != nil {
			if !actionDone {
				p.Destroy(handle, resource)
			}
			panic(r)
		}
	}()

	err = action(ctx, resource)
	actionDone = true
	if err != nil {
		p.Destroy(handle, resource)
		return err
	}
	p.Put(handle, resource)
	return nil
}
