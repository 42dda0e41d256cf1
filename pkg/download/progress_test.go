package download

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateTracker_Smoothing(t *testing.T) {
	start := time.Now()
	r := newRateTracker(start)

	// 1 MiB over one second: 1 MiB/s.
	r.observe(1<<20, start.Add(time.Second))
	assert.InDelta(t, float64(1<<20), r.speed(), 1)

	// A much slower chunk pulls the average down, but not all the way.
	r.observe(1<<10, start.Add(2*time.Second))
	assert.Less(t, r.speed(), float64(1<<20))
	assert.Greater(t, r.speed(), float64(1<<10))
}

func TestRateTracker_ZeroElapsedIgnored(t *testing.T) {
	now := time.Now()
	r := newRateTracker(now)
	r.observe(4096, now)
	assert.Zero(t, r.speed())
}

func TestRateTracker_ETA(t *testing.T) {
	start := time.Now()
	r := newRateTracker(start)

	assert.Equal(t, float64(-1), r.eta(100), "no rate yet means no ETA")

	r.observe(1000, start.Add(time.Second)) // 1000 B/s
	assert.InDelta(t, 5.0, r.eta(5000), 0.01)
	assert.Equal(t, float64(-1), r.eta(-1), "unknown remaining means no ETA")
}
