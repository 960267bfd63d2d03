package stripepool

import "github.com/pkg/errors"

// ErrClosed is returned by Take, TryTake, WithResource and TryWithResource
// once Close has run on the pool.
var ErrClosed = errors.New("stripepool: pool is closed")

// ErrBadConfig is the sentinel every Validate() failure wraps, so callers
// can distinguish a rejected Config from any other error New/NewBoundedReuse
// returns (errors.Is(err, ErrBadConfig)) without parsing the message.
var ErrBadConfig = errors.New("stripepool: invalid config")

func badConfig(format string, args ...any) error {
	return errors.Wrapf(ErrBadConfig, format, args...)
}

// panicToError normalizes a recover() value into an error, for passing a
// panicking destructor's failure to Config.OnDestroyError.
func panicToError(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return errors.Errorf("stripepool: panic: %v", r)
}
