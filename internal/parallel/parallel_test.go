package parallel

import (
	"runtime"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWorkers(t *testing.T) {
	assert.Equal(t, runtime.GOMAXPROCS(0), Workers(0))
	assert.Equal(t, runtime.GOMAXPROCS(0), Workers(-3))
	assert.Equal(t, 4, Workers(4))
}

func TestRowsCoverage(t *testing.T) {
	tables := []struct {
		lo, hi, workers int
	}{
		{0, 0, 4},
		{0, 1, 4},
		{0, 15, 8},
		{0, 360, 1},
		{0, 360, 4},
		{5, 301, 7},
		{0, 1000, 0},
	}

	for _, table := range tables {
		var mu sync.Mutex
		seen := make(map[int]int)

		Rows(table.lo, table.hi, table.workers, func(y0, y1 int) {
			mu.Lock()
			defer mu.Unlock()
			for y := y0; y < y1; y++ {
				seen[y]++
			}
		})

		assert.Len(t, seen, table.hi-table.lo)
		for y := table.lo; y < table.hi; y++ {
			assert.Equal(t, 1, seen[y], "row %d", y)
		}
	}
}

func TestRowsSmallRunsInline(t *testing.T) {
	calls := 0
	Rows(0, MinRows, 8, func(y0, y1 int) {
		calls++
		assert.Equal(t, 0, y0)
		assert.Equal(t, MinRows, y1)
	})
	assert.Equal(t, 1, calls)
}
