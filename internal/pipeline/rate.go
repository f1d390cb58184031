package pipeline

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DefaultRateInterval is the window over which the insert rate is computed.
const DefaultRateInterval = 10 * time.Second

// RateTracker accumulates an event count and periodically converts it into a
// per-second gauge. Add may be called from any goroutine; Tick must only be
// called from one goroutine at a time (Run does this on a ticker).
type RateTracker struct {
	count    atomic.Int64
	gauge    prometheus.Gauge
	now      func() time.Time
	last     time.Time
	interval time.Duration
}

// NewRateTracker creates a tracker that sets gauge every interval.
// A non-positive interval falls back to DefaultRateInterval.
func NewRateTracker(gauge prometheus.Gauge, interval time.Duration) *RateTracker {
	if interval <= 0 {
		interval = DefaultRateInterval
	}
	return newRateTracker(gauge, interval, time.Now)
}

func newRateTracker(gauge prometheus.Gauge, interval time.Duration, now func() time.Time) *RateTracker {
	return &RateTracker{
		gauge:    gauge,
		interval: interval,
		now:      now,
		last:     now(),
	}
}

// Add records n events.
func (r *RateTracker) Add(n int64) {
	r.count.Add(n)
}

// Tick atomically takes and resets the accumulated count, sets the gauge to
// count divided by the time since the previous tick, and returns that rate.
func (r *RateTracker) Tick() float64 {
	now := r.now()
	n := r.count.Swap(0)
	elapsed := now.Sub(r.last).Seconds()
	r.last = now

	var rate float64
	if elapsed > 0 {
		rate = float64(n) / elapsed
	}
	r.gauge.Set(rate)
	return rate
}

// Run ticks every interval until ctx is done.
func (r *RateTracker) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Tick()
		}
	}
}
