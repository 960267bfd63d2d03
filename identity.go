package stripepool

import (
	"bytes"
	"context"
	"fmt"
	"runtime"
	"strconv"
)

// goroutineID extracts the calling goroutine's runtime id the way the
// wider Go ecosystem's goroutine-local-storage shims do: capture a small
// stack trace and parse the "goroutine N [...]" header line. Go exposes no
// public, stable per-goroutine identifier by design; this is the standard
// workaround, stable for the life of the goroutine, which is exactly what
// the stripe selector needs: a deterministic value per caller for the
// lifetime of that flow.
//
// This is on the acquire path, so the capture buffer is kept small — the
// header line is always within the first ~40 bytes of runtime.Stack output.
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	b := buf[:n]

	const prefix = "goroutine "
	if !bytes.HasPrefix(b, []byte(prefix)) {
		return 0
	}
	b = b[len(prefix):]
	end := bytes.IndexByte(b, ' ')
	if end < 0 {
		return 0
	}
	id, err := strconv.ParseUint(string(b[:end]), 10, 64)
	if err != nil {
		return 0
	}
	return id
}

type identityKey struct{}

// WithIdentity attaches an explicit, stable caller-identity handle to ctx,
// overriding the default goroutine-id-based stripe selection. Intended for
// logical flows that hop goroutines (worker pools, errgroup) but still want
// warm-stripe affinity across the hop.
func WithIdentity(ctx context.Context, id any) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

func identityFromContext(ctx context.Context) any {
	return ctx.Value(identityKey{})
}

// HashFunc hashes an arbitrary identity handle (a goroutine id, or a
// caller-supplied override from WithIdentity) down to a uint64 used to pick
// a stripe.
type HashFunc func(b []byte) uint64

func identityBytes(id any) []byte {
	switch v := id.(type) {
	case uint64:
		var b [8]byte
		for i := 0; i < 8; i++ {
			b[i] = byte(v >> (8 * i))
		}
		return b[:]
	case string:
		return []byte(v)
	case []byte:
		return v
	case nil:
		return []byte(strconv.FormatUint(goroutineID(), 10))
	default:
		return []byte(fmt.Sprintf("%v", v))
	}
}
