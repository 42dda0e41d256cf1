package download

import "time"

// emaAlpha is the smoothing factor for the transfer rate moving average.
const emaAlpha = 0.3

// rateTracker smooths the observed transfer rate with an exponential moving
// average over chunk timings. Not safe for concurrent use; each task owns one.
type rateTracker struct {
	rate     float64 // bytes per second
	lastTime time.Time
}

func newRateTracker(now time.Time) *rateTracker {
	return &rateTracker{lastTime: now}
}

// observe folds a chunk of n bytes finishing at now into the average.
func (r *rateTracker) observe(n int64, now time.Time) {
	elapsed := now.Sub(r.lastTime).Seconds()
	r.lastTime = now
	if elapsed <= 0 {
		return
	}
	instant := float64(n) / elapsed
	if r.rate == 0 {
		r.rate = instant
		return
	}
	r.rate = emaAlpha*instant + (1-emaAlpha)*r.rate
}

// speed returns the smoothed rate in bytes per second.
func (r *rateTracker) speed() float64 { return r.rate }

// eta returns the estimated seconds until remaining bytes finish, or -1 when
// the rate is zero or the remaining count is unknown (negative).
func (r *rateTracker) eta(remaining int64) float64 {
	if remaining < 0 || r.rate <= 0 {
		return -1
	}
	return float64(remaining) / r.rate
}
