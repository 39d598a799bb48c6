// Package parallel splits pixel loops into bands of rows that can be
// processed concurrently.
package parallel

import (
	"runtime"
	"sync"
)

// MinRows is the smallest band handed to a goroutine. Anything smaller is
// run on the calling goroutine as the scheduling overhead dominates.
const MinRows = 16

// Workers normalises a worker count: zero or less means GOMAXPROCS.
func Workers(n int) int {
	if n <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return n
}

// Rows calls fn for consecutive, non-overlapping bands [y0, y1) covering
// [lo, hi), using up to workers goroutines, and returns once every band
// is done. fn must only write to the rows it is given.
func Rows(lo, hi, workers int, fn func(y0, y1 int)) {
	n := hi - lo
	if n <= 0 {
		return
	}

	workers = Workers(workers)
	if limit := n / MinRows; workers > limit {
		workers = limit
	}
	if workers <= 1 {
		fn(lo, hi)
		return
	}

	band := (n + workers - 1) / workers

	var wg sync.WaitGroup
	for y0 := lo; y0 < hi; y0 += band {
		y1 := y0 + band
		if y1 > hi {
			y1 = hi
		}
		wg.Add(1)
		go func(y0, y1 int) {
			defer wg.Done()
			fn(y0, y1)
		}(y0, y1)
	}
	wg.Wait()
}
