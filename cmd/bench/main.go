// Command bench runs a mixed read/write workload against the engine and
// prints throughput and hit-rate numbers.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/IvanBrykalov/hybridcache/cache"
	"github.com/IvanBrykalov/hybridcache/size"
)

func main() {
	var (
		workers  = flag.Int("workers", 8, "concurrent workers")
		keyspace = flag.Int("keyspace", 100_000, "distinct keys")
		readsPct = flag.Int("reads", 90, "percentage of reads in the mix")
		dur      = flag.Duration("duration", 5*time.Second, "run time")
		maxItems = flag.Int("max-items", 80_000, "engine MaxItems")
	)
	flag.Parse()

	c, err := cache.New(cache.Options{
		MaxItems:       *maxItems,
		SizeCalculator: size.NewEstimator().Estimate,
	})
	if err != nil {
		panic(err)
	}
	defer c.Close()

	ctx := context.Background()
	deadline := time.Now().Add(*dur)
	var ops atomic.Int64

	var wg sync.WaitGroup
	wg.Add(*workers)
	for w := 0; w < *workers; w++ {
		go func(id int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(int64(id)*7919 + 1))
			for time.Now().Before(deadline) {
				k := "k:" + strconv.Itoa(r.Intn(*keyspace))
				if r.Intn(100) < *readsPct {
					c.Get(ctx, k)
				} else {
					c.Set(ctx, k, id, cache.TTL(time.Minute))
				}
				ops.Add(1)
			}
		}(w)
	}
	wg.Wait()

	stats := c.Stats()
	total := ops.Load()
	elapsed := (*dur).Seconds()
	fmt.Printf("ops=%d (%.0f/s) hits=%d misses=%d writes=%d entries=%d evicted=%d\n",
		total, float64(total)/elapsed, stats.Hits, stats.Misses, stats.Writes,
		stats.Entries, stats.Evicted)
}
