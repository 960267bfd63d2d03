package stripepool

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// counterFactory hands out increasing ints and counts outstanding live
// resources, closing over plain counters instead of building a mock
// framework.
func counterFactory() (Factory, Destructor, *int64) {
	var next int64
	var live int64
	factory := func(context.Context) (any, error) {
		atomic.AddInt64(&live, 1)
		return int(atomic.AddInt64(&next, 1)), nil
	}
	destroy := func(any) {
		atomic.AddInt64(&live, -1)
	}
	return factory, destroy, &live
}

func testConfig(factory Factory, destroy Destructor, stripes, maxResources int) Config {
	return Config{
		Factory:      factory,
		Destroy:      destroy,
		NumStripes:   stripes,
		IdleTime:     minIdleTime,
		MaxResources: maxResources,
		EnableStats:  true,
	}
}

func TestTakePutReusesWarmResource(t *testing.T) {
	factory, destroy, live := counterFactory()
	p, err := New(testConfig(factory, destroy, 1, 1))
	require.NoError(t, err)
	defer p.Close()

	ctx := WithIdentity(context.Background(), "caller-a")

	r1, s1, err := p.Take(ctx)
	require.NoError(t, err)
	p.Put(s1, r1)

	r2, s2, err := p.Take(ctx)
	require.NoError(t, err)
	require.Equal(t, r1, r2, "second Take on the same stripe should reuse the returned resource")
	p.Put(s2, r2)

	require.EqualValues(t, 1, atomic.LoadInt64(live), "only one resource should ever have been constructed")
}

func TestSaturationBlocksUntilRelease(t *testing.T) {
	factory, destroy, _ := counterFactory()
	p, err := New(testConfig(factory, destroy, 1, 1))
	require.NoError(t, err)
	defer p.Close()

	ctx := WithIdentity(context.Background(), "shared")

	r1, s1, err := p.Take(ctx)
	require.NoError(t, err)

	done := make(chan struct{})
	var r2 any
	var s2 *Stripe
	go func() {
		defer close(done)
		r2, s2, err = p.Take(ctx)
	}()

	select {
	case <-done:
		t.Fatal("Take should have blocked while the stripe was saturated")
	case <-time.After(100 * time.Millisecond):
	}

	p.Put(s1, r1)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Take should have unblocked after Put")
	}
	require.NoError(t, err)
	p.Put(s2, r2)
}

func TestDestroyFreesCapacityForNewConstruction(t *testing.T) {
	factory, destroy, live := counterFactory()
	p, err := New(testConfig(factory, destroy, 1, 1))
	require.NoError(t, err)
	defer p.Close()

	ctx := WithIdentity(context.Background(), "caller")

	r1, s1, err := p.Take(ctx)
	require.NoError(t, err)
	p.Destroy(s1, r1)
	require.EqualValues(t, 0, atomic.LoadInt64(live))

	r2, s2, err := p.Take(ctx)
	require.NoError(t, err)
	require.NotEqual(t, r1, r2, "a fresh resource should have been constructed after Destroy")
	p.Put(s2, r2)
	require.EqualValues(t, 1, atomic.LoadInt64(live))
}

func TestIdleResourceIsReapedAfterIdleTime(t *testing.T) {
	factory, destroy, live := counterFactory()
	cfg := testConfig(factory, destroy, 1, 1)
	cfg.IdleTime = minIdleTime
	p, err := New(cfg)
	require.NoError(t, err)
	defer p.Close()

	ctx := WithIdentity(context.Background(), "caller")

	r, s, err := p.Take(ctx)
	require.NoError(t, err)
	p.Put(s, r)
	require.EqualValues(t, 1, atomic.LoadInt64(live))

	require.Eventually(t, func() bool {
		return atomic.LoadInt64(live) == 0
	}, 4*time.Second, 50*time.Millisecond, "idle resource should have been reaped")

	stats := p.Stats()
	require.EqualValues(t, 1, stats.ReapedTotal)
}

func TestBoundedReuseRetiresResourceAfterMaxUses(t *testing.T) {
	factory, destroy, live := counterFactory()
	// maxResources=2 so the third Take can construct a fresh resource the
	// instant the second one is found non-reusable, rather than blocking
	// on the reaper to reclaim the only capacity slot (that timing is
	// covered separately by the idle-reap test).
	cfg := testConfig(factory, destroy, 1, 2)
	p, err := NewBoundedReuse(cfg, 2)
	require.NoError(t, err)
	defer p.Close()

	ctx := WithIdentity(context.Background(), "caller")

	r1, s1, err := p.Take(ctx)
	require.NoError(t, err)
	p.Put(s1, r1)

	r2, s2, err := p.Take(ctx)
	require.NoError(t, err)
	require.Equal(t, r1, r2, "first reuse should hand back the same resource")
	p.Put(s2, r2)

	r3, s3, err := p.Take(ctx)
	require.NoError(t, err)
	require.NotEqual(t, r1, r3, "resource should be retired after its second use")
	p.Put(s3, r3)

	require.EqualValues(t, 2, atomic.LoadInt64(live))
}

func TestNewBoundedReuseRejectsZeroMaxUses(t *testing.T) {
	factory, destroy, _ := counterFactory()
	_, err := NewBoundedReuse(testConfig(factory, destroy, 1, 1), 0)
	require.ErrorIs(t, err, ErrBadConfig)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	factory, destroy, _ := counterFactory()
	cfg := testConfig(factory, destroy, 0, 1)
	_, err := New(cfg)
	require.ErrorIs(t, err, ErrBadConfig)
}

func TestTryTakeFailsWithoutBlockingWhenSaturated(t *testing.T) {
	factory, destroy, _ := counterFactory()
	p, err := New(testConfig(factory, destroy, 1, 1))
	require.NoError(t, err)
	defer p.Close()

	ctx := WithIdentity(context.Background(), "caller")

	r1, s1, ok, err := p.TryTake(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	_, _, ok, err = p.TryTake(ctx)
	require.NoError(t, err)
	require.False(t, ok, "TryTake must not block on a saturated stripe")

	p.Put(s1, r1)
}

func TestFactoryFailureReleasesReservedCapacity(t *testing.T) {
	var calls int64
	factory := func(context.Context) (any, error) {
		n := atomic.AddInt64(&calls, 1)
		if n == 1 {
			return nil, errBoom
		}
		return "ok", nil
	}
	destroy := func(any) {}

	p, err := New(testConfig(factory, destroy, 1, 1))
	require.NoError(t, err)
	defer p.Close()

	ctx := WithIdentity(context.Background(), "caller")

	_, _, err = p.Take(ctx)
	require.Error(t, err)

	r, s, err := p.Take(ctx)
	require.NoError(t, err, "capacity reserved by the failed attempt must have been released")
	p.Put(s, r)
}

func TestWithResourceDestroysOnActionError(t *testing.T) {
	factory, destroy, live := counterFactory()
	p, err := New(testConfig(factory, destroy, 1, 1))
	require.NoError(t, err)
	defer p.Close()

	ctx := WithIdentity(context.Background(), "caller")

	err = p.WithResource(ctx, func(context.Context, any) error {
		return errBoom
	})
	require.ErrorIs(t, err, errBoom)
	require.EqualValues(t, 0, atomic.LoadInt64(live))
}

func TestWithResourcePutsOnSuccess(t *testing.T) {
	factory, destroy, live := counterFactory()
	p, err := New(testConfig(factory, destroy, 1, 1))
	require.NoError(t, err)
	defer p.Close()

	ctx := WithIdentity(context.Background(), "caller")

	var seen any
	err = p.WithResource(ctx, func(_ context.Context, resource any) error {
		seen = resource
		return nil
	})
	require.NoError(t, err)
	require.NotNil(t, seen)
	require.EqualValues(t, 1, atomic.LoadInt64(live))
}

func TestWithResourceDestroysOnPanicAndRepanics(t *testing.T) {
	factory, destroy, live := counterFactory()
	p, err := New(testConfig(factory, destroy, 1, 1))
	require.NoError(t, err)
	defer p.Close()

	ctx := WithIdentity(context.Background(), "caller")

	require.Panics(t, func() {
		_ = p.WithResource(ctx, func(context.Context, any) error {
			panic("boom")
		})
	})
	require.EqualValues(t, 0, atomic.LoadInt64(live))
}

func TestTryWithResourceSkipsActionWhenSaturated(t *testing.T) {
	factory, destroy, _ := counterFactory()
	p, err := New(testConfig(factory, destroy, 1, 1))
	require.NoError(t, err)
	defer p.Close()

	ctx := WithIdentity(context.Background(), "caller")

	_, s, err := p.Take(ctx)
	require.NoError(t, err)

	ran := false
	ok, err := p.TryWithResource(ctx, func(context.Context, any) error {
		ran = true
		return nil
	})
	require.NoError(t, err)
	require.False(t, ok)
	require.False(t, ran, "action must not run when TryWithResource can't acquire")

	p.Put(s, "unused")
}

func TestTakeRespectsContextCancellation(t *testing.T) {
	factory, destroy, _ := counterFactory()
	p, err := New(testConfig(factory, destroy, 1, 1))
	require.NoError(t, err)
	defer p.Close()

	ctx := WithIdentity(context.Background(), "caller")
	_, _, err = p.Take(ctx)
	require.NoError(t, err)

	cctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()

	_, _, err = p.Take(cctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCloseDestroysIdleResourcesAndRejectsFurtherUse(t *testing.T) {
	factory, destroy, live := counterFactory()
	p, err := New(testConfig(factory, destroy, 2, 2))
	require.NoError(t, err)

	ctx := WithIdentity(context.Background(), "caller")
	r, s, err := p.Take(ctx)
	require.NoError(t, err)
	p.Put(s, r)
	require.EqualValues(t, 1, atomic.LoadInt64(live))

	p.Close()
	require.EqualValues(t, 0, atomic.LoadInt64(live))

	_, _, err = p.Take(ctx)
	require.ErrorIs(t, err, ErrClosed)

	require.NotPanics(t, func() { p.Close() }, "Close must be idempotent")
}

func TestDifferentIdentitiesCanLandOnDifferentStripes(t *testing.T) {
	factory, destroy, _ := counterFactory()
	p, err := New(testConfig(factory, destroy, 8, 1))
	require.NoError(t, err)
	defer p.Close()

	seen := map[int]bool{}
	for i := 0; i < 64; i++ {
		ctx := WithIdentity(context.Background(), i)
		seen[p.stripeIndex(ctx)] = true
	}
	require.Greater(t, len(seen), 1, "64 distinct identities over 8 stripes should not all collide")
}

func TestConcurrentBorrowersNeverExceedMaxResourcesPerStripe(t *testing.T) {
	factory, destroy, live := counterFactory()
	const maxResources = 3
	p, err := New(testConfig(factory, destroy, 2, maxResources))
	require.NoError(t, err)
	defer p.Close()

	var wg sync.WaitGroup
	ctx := WithIdentity(context.Background(), "shared")
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				r, s, err := p.Take(ctx)
				if err != nil {
					return
				}
				require.LessOrEqual(t, atomic.LoadInt64(live), int64(maxResources))
				time.Sleep(time.Millisecond)
				p.Put(s, r)
			}
		}()
	}
	wg.Wait()
}

var errBoom = errBoomError{}

type errBoomError struct{}

func (errBoomError) Error() string { return "boom" }
