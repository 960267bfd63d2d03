package stripepool

import (
	"context"

	"github.com/cespare/xxhash/v2"
	"github.com/dgryski/go-farm"
)

// XXHash is the default HashFunc, over github.com/cespare/xxhash/v2:
// turning a caller-supplied identity into a hash for stripe selection.
func XXHash(b []byte) uint64 {
	return xxhash.Sum64(b)
}

// FarmHash is an alternate HashFunc over github.com/dgryski/go-farm, a
// fingerprint hash commonly benchmarked against xxhash for exactly this
// kind of shard/bucket selection. Set Config.HashFunc to FarmHash to make
// that choice for a pool.
func FarmHash(b []byte) uint64 {
	return farm.Fingerprint64(b)
}

// stripeIndex selects the stripe for ctx's caller identity: an explicit
// WithIdentity override if present, otherwise the calling goroutine's id,
// hashed and reduced modulo the stripe count.
func (p *Pool) stripeIndex(ctx context.Context) int {
	id := identityFromContext(ctx)
	h := p.hash(identityBytes(id))
	return int(h % uint64(len(p.stripes)))
}
