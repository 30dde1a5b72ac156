package batch

import (
	"sync"
	"sync/atomic"
	"time"

	"skel-runtime/internal/logging"
)

// ProgressInterval is how often Each logs throughput.
var ProgressInterval = 2 * time.Second

// Each calls fn for every index in [0, total) on a pool of workers and
// returns when all calls have finished. Progress is logged under label.
func Each(workers, total int, label string, fn func(i int)) {
	if total == 0 {
		return
	}
	workers = max(min(workers, total), 1)
	var processed atomic.Int64

	start := time.Now()

	// Progress reporter
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(ProgressInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				p := processed.Load()
				if p > 0 {
					rate := float64(p) / time.Since(start).Seconds()
					logging.Infof("%s [%d/%d] %.1f items/sec", label, p, total, rate)
				}
			}
		}
	}()

	// Worker pool
	work := make(chan int, workers*2)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range work {
				fn(idx)
				processed.Add(1)
			}
		}()
	}

	// Send work
	for i := 0; i < total; i++ {
		work <- i
	}
	close(work)

	wg.Wait()
	close(done)
	logging.Debug("batch finished", "label", label, "items", total, "elapsed", time.Since(start))
}
