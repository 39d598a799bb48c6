// Package metrics records frame times and derives frame rates from them.
package metrics

import (
	"math"
	"slices"
	"time"
)

// Defaults.
const (
	DefaultRecords = 100
	DefaultFPS     = 60
)

// Recorder keeps the most recent frame durations in a ring.
type Recorder struct {
	records []time.Duration
	next    int
	full    bool
	last    time.Duration
	target  float64
}

// New returns a Recorder holding up to n durations aiming for fps frames
// per second. Non-positive values select the defaults.
func New(n int, fps float64) *Recorder {
	if n <= 0 {
		n = DefaultRecords
	}
	if fps <= 0 {
		fps = DefaultFPS
	}
	return &Recorder{
		records: make([]time.Duration, n),
		target:  fps,
	}
}

// Record adds the duration of a frame. Non-positive durations are ignored.
func (r *Recorder) Record(dt time.Duration) {
	if dt <= 0 {
		return
	}
	r.last = dt
	r.records[r.next] = dt
	r.next++
	if r.next == len(r.records) {
		r.next, r.full = 0, true
	}
}

// Len returns the number of durations held.
func (r *Recorder) Len() int {
	if r.full {
		return len(r.records)
	}
	return r.next
}

// Last returns the most recently recorded duration.
func (r *Recorder) Last() time.Duration {
	return r.last
}

// LastFPS returns the frame rate implied by the last duration, or 0.
func (r *Recorder) LastFPS() float64 {
	return fps(r.last)
}

// Target returns the duration of one frame at the target rate.
func (r *Recorder) Target() time.Duration {
	return time.Duration(float64(time.Second) / r.target)
}

// Percentile99 returns the frame rate corresponding to the 99th percentile
// frame duration, i.e. the rate the slowest 1% of frames fall below.
func (r *Recorder) Percentile99() float64 {
	n := r.Len()
	if n == 0 {
		return 0
	}

	sorted := slices.Clone(r.records[:n])
	slices.Sort(sorted)

	// Linear interpolation between closest ranks
	rank := 0.99 * float64(n-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	d := float64(sorted[lo]) + (rank-float64(lo))*float64(sorted[hi]-sorted[lo])

	return fps(time.Duration(d))
}

func fps(dt time.Duration) float64 {
	if dt <= 0 {
		return 0
	}
	return float64(time.Second) / float64(dt)
}
