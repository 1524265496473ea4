package main

import (
	"fmt"
	"math/rand"
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

// runPhase hands out ops call indexes to concurrency workers. Each worker
// keeps its own latency slice; they are merged once all workers finish.
func runPhase(ops, concurrency int, seedSalt int64, op func(r *rand.Rand, i int) error) phaseStats {
	concurrency = max(concurrency, 1)
	perWorker := make([][]time.Duration, concurrency)
	var (
		wg       sync.WaitGroup
		next     atomic.Int64
		failures atomic.Int64
	)

	begin := time.Now()
	for w := range concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r := rand.New(rand.NewSource(begin.UnixNano() + int64(w+1)*seedSalt))
			for i := int(next.Add(1)) - 1; i < ops; i = int(next.Add(1)) - 1 {
				callStart := time.Now()
				if err := op(r, i); err != nil {
					failures.Add(1)
				}
				perWorker[w] = append(perWorker[w], time.Since(callStart))
			}
		}()
	}
	wg.Wait()

	return computeStats(time.Since(begin), slices.Concat(perWorker...), failures.Load())
}

type phaseStats struct {
	elapsed  time.Duration
	calls    int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
}

func (s phaseStats) throughput() float64 {
	if s.elapsed <= 0 {
		return 0
	}
	return float64(s.calls) / s.elapsed.Seconds()
}

func computeStats(elapsed time.Duration, samples []time.Duration, failures int64) phaseStats {
	slices.Sort(samples)
	return phaseStats{
		elapsed:  elapsed,
		calls:    len(samples),
		failures: failures,
		p50:      nearestRank(samples, 0.50),
		p95:      nearestRank(samples, 0.95),
		p99:      nearestRank(samples, 0.99),
	}
}

// nearestRank reads quantile q from ascending samples.
func nearestRank(sorted []time.Duration, q float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(q*float64(len(sorted))+0.5) - 1
	return sorted[min(max(idx, 0), len(sorted)-1)]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%-8s calls=%d failures=%d elapsed=%s rate=%.0f/s p50=%s p95=%s p99=%s\n",
		name+":", s.calls, s.failures,
		s.elapsed.Round(time.Millisecond), s.throughput(),
		s.p50.Round(time.Microsecond), s.p95.Round(time.Microsecond), s.p99.Round(time.Microsecond))
}
