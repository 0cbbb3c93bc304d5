package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PickingMetrics records scan and completion throughput for the pick queue.
type PickingMetrics struct {
	scans        *prometheus.CounterVec
	scanDuration *prometheus.HistogramVec
	lockWait     *prometheus.HistogramVec
	lockTimeouts *prometheus.CounterVec
	completions  *prometheus.CounterVec
	backorders   prometheus.Counter
}

// NewPickingMetrics registers the picking metrics on the provided registerer.
func NewPickingMetrics(reg prometheus.Registerer) *PickingMetrics {
	if reg == nil {
		return &PickingMetrics{}
	}
	scans := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pick_scans_total",
		Help: "Scan attempts by outcome.",
	}, []string{"outcome"})
	scanDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pick_scan_duration_seconds",
		Help:    "End-to-end scan handling duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	lockWait := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pick_lock_wait_seconds",
		Help:    "Time spent waiting for a keyed lock in seconds.",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"scope"})
	lockTimeouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pick_lock_timeouts_total",
		Help: "Keyed lock acquisitions abandoned at the timeout.",
	}, []string{"scope"})
	completions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pick_completions_total",
		Help: "Order completion attempts by outcome.",
	}, []string{"outcome"})
	backorders := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pick_backorders_created_total",
		Help: "Backorder lines recorded at completion.",
	})
	reg.MustRegister(scans, scanDuration, lockWait, lockTimeouts, completions, backorders)
	return &PickingMetrics{
		scans:        scans,
		scanDuration: scanDuration,
		lockWait:     lockWait,
		lockTimeouts: lockTimeouts,
		completions:  completions,
		backorders:   backorders,
	}
}

// ObserveScan records one scan attempt with its outcome and handling time.
func (p *PickingMetrics) ObserveScan(outcome string, duration time.Duration) {
	if p == nil || p.scans == nil {
		return
	}
	label := normalizeLabel(outcome)
	p.scans.WithLabelValues(label).Inc()
	p.scanDuration.WithLabelValues(label).Observe(duration.Seconds())
}

// ObserveLockWait records how long a caller waited for the keyed lock.
func (p *PickingMetrics) ObserveLockWait(scope string, wait time.Duration) {
	if p == nil || p.lockWait == nil {
		return
	}
	p.lockWait.WithLabelValues(normalizeLabel(scope)).Observe(wait.Seconds())
}

// IncLockTimeout counts a lock acquisition that hit its deadline.
func (p *PickingMetrics) IncLockTimeout(scope string) {
	if p == nil || p.lockTimeouts == nil {
		return
	}
	p.lockTimeouts.WithLabelValues(normalizeLabel(scope)).Inc()
}

// IncCompletion counts one completion attempt by outcome.
func (p *PickingMetrics) IncCompletion(outcome string) {
	if p == nil || p.completions == nil {
		return
	}
	p.completions.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// AddBackorders counts backorder lines written during a completion.
func (p *PickingMetrics) AddBackorders(n int) {
	if p == nil || p.backorders == nil || n <= 0 {
		return
	}
	p.backorders.Add(float64(n))
}
