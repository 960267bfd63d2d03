// Command pooldemo exercises a stripepool.Pool of toy "connections" under
// concurrent load and prints periodic Stats from a small standalone main
// package instead of a test.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/arcflux/stripepool"
)

// conn is the toy resource: connecting and closing are both simulated with
// a small sleep so the demo has something worth pooling.
type conn struct {
	id int
}

func main() {
	stripes := flag.Int("stripes", 4, "number of stripes")
	maxPerStripe := flag.Int("max", 4, "max live resources per stripe")
	idle := flag.Duration("idle", 2*time.Second, "idle expiry")
	borrowers := flag.Int("borrowers", 64, "concurrent borrower goroutines")
	duration := flag.Duration("duration", 10*time.Second, "how long to run")
	flag.Parse()

	var nextID int64
	factory := func(context.Context) (any, error) {
		time.Sleep(5 * time.Millisecond)
		return &conn{id: int(atomic.AddInt64(&nextID, 1))}, nil
	}
	destroy := func(any) {
		time.Sleep(time.Millisecond)
	}

	pool, err := stripepool.New(stripepool.Config{
		Factory:      factory,
		Destroy:      destroy,
		NumStripes:   *stripes,
		IdleTime:     *idle,
		MaxResources: *maxPerStripe,
		EnableStats:  true,
	})
	if err != nil {
		log.Fatalf("pooldemo: %v", err)
	}
	defer pool.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < *borrowers; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				default:
				}
				bctx := stripepool.WithIdentity(ctx, worker)
				err := pool.WithResource(bctx, func(_ context.Context, resource any) error {
					c := resource.(*conn)
					_ = c.id
					time.Sleep(time.Duration(rand.Intn(5)) * time.Millisecond)
					return nil
				})
				if err != nil {
					return
				}
			}
		}(i)
	}

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()

	for {
		select {
		case <-ticker.C:
			fmt.Println(pool.Stats())
		case <-done:
			fmt.Printf("final: %s\n", pool.Stats())
			fmt.Printf("max resources ever reachable: %s\n", humanize.Comma(int64(*stripes*(*maxPerStripe))))
			return
		}
	}
}
