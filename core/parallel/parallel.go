// Package parallel provides the chunked goroutine fan-out used by the
// ensemble and inspection packages.
package parallel

import (
	"runtime"
	"sync"

	"github.com/pricingwizard/pricingwizard/pkg/errors"
)

// Parallelize divides the specified total number (items) according to the number of CPU cores,
// and executes the specified function (fn) in parallel for each range (start, end)
func Parallelize(items int, fn func(start, end int)) {
	ParallelizeN(items, runtime.NumCPU(), fn)
}

// ParallelizeN is Parallelize with an explicit worker count.
// workers <= 0 means one worker per CPU core.
func ParallelizeN(items, workers int, fn func(start, end int)) {
	if items == 0 {
		return
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > items {
		workers = items
	}
	if workers == 1 {
		fn(0, items)
		return
	}

	// Calculate the number of items each worker handles (ceiling division)
	chunkSize := (items + workers - 1) / workers

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		start := i * chunkSize
		end := start + chunkSize
		if end > items {
			end = items
		}
		if start >= end {
			continue
		}

		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(start, end)
	}
	wg.Wait()
}

// ParallelizeWithThreshold performs parallelization only when the number of items exceeds the threshold
// If below threshold, normal sequential processing is performed
func ParallelizeWithThreshold(items int, threshold int, fn func(start, end int)) {
	if items <= threshold {
		fn(0, items)
		return
	}
	Parallelize(items, fn)
}

// ForEach runs fn for every index in [0, items) on up to workers goroutines.
// Panics inside fn are recovered as *errors.PanicError. The error of the
// lowest failing index is returned, so the result does not depend on
// scheduling.
func ForEach(items, workers int, operation string, fn func(i int) error) error {
	if items == 0 {
		return nil
	}
	errs := make([]error, items)
	ParallelizeN(items, workers, func(start, end int) {
		for i := start; i < end; i++ {
			idx := i
			errs[idx] = errors.SafeExecute(operation, func() error { return fn(idx) })
		}
	})
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
