package stripepool

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/arcflux/stripepool/internal/flagset"
)

// minIdleTime is the minimum allowed idle expiry, half a second.
const minIdleTime = 500 * time.Millisecond

// Factory constructs a new resource. The pool treats failures as opaque
// and propagates them.
type Factory func(context.Context) (any, error)

// Destructor consumes and releases a resource. Any error/panic it raises
// is suppressed everywhere it is called from.
type Destructor func(any)

// Config configures a Pool, validated synchronously by New/NewBoundedReuse.
type Config struct {
	// Factory and Destroy are the caller-supplied effects this pool
	// orchestrates but never inspects.
	Factory Factory
	Destroy Destructor

	// NumStripes is the number of independent stripes (>= 1).
	NumStripes int
	// IdleTime is how long an idle resource may sit before the reaper
	// retires it (>= 500ms).
	IdleTime time.Duration
	// MaxResources is the per-stripe live-resource cap (>= 1).
	MaxResources int

	// HashFunc picks the stripe for a caller identity. Defaults to XXHash.
	HashFunc HashFunc

	// EnableStats turns on the atomic counters and wait-time histogram in
	// Stats — when false, the hot path skips the atomic adds entirely.
	EnableStats bool

	// OnDestroyError, if set, observes a destructor failure that would
	// otherwise be silently dropped — an optional window onto it, never
	// a propagation path.
	OnDestroyError func(error)
}

// Validate checks Config's constraints, returning a configuration error
// naming the first bad field it finds.
func (c Config) Validate() error {
	switch {
	case c.Factory == nil:
		return badConfig("Factory must not be nil")
	case c.Destroy == nil:
		return badConfig("Destroy must not be nil")
	case c.NumStripes < 1:
		return badConfig("NumStripes must be >= 1, got %d", c.NumStripes)
	case c.IdleTime < minIdleTime:
		return badConfig("IdleTime must be >= %s, got %s", minIdleTime, c.IdleTime)
	case c.MaxResources < 1:
		return badConfig("MaxResources must be >= 1, got %d", c.MaxResources)
	}
	return nil
}

// String renders the tunable fields back into the "key=val; ..." DSL
// ParseFlag accepts.
func (c Config) String() string {
	return fmt.Sprintf("stripes=%d; idle=%s; max=%d; enable-stats=%t",
		c.NumStripes, c.IdleTime, c.MaxResources, c.EnableStats)
}

// ParseFlag parses the subset of Config the
// "stripes=4; idle=2s; max=10; enable-stats=true" DSL can express. Factory,
// Destroy, HashFunc, and OnDestroyError are not expressible as strings and
// must be set on the returned Config by the caller before use.
func ParseFlag(s string) (Config, error) {
	set, err := flagset.Parse(s)
	if err != nil {
		return Config{}, errors.Wrap(err, "stripepool: ParseFlag")
	}

	var cfg Config
	if cfg.NumStripes, err = set.GetInt("stripes"); err != nil {
		return Config{}, err
	}
	if cfg.IdleTime, err = set.GetDuration("idle"); err != nil {
		return Config{}, err
	}
	if cfg.MaxResources, err = set.GetInt("max"); err != nil {
		return Config{}, err
	}
	if cfg.EnableStats, err = set.GetBool("enable-stats"); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
