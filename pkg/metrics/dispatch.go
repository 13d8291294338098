package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DispatchMetrics records rider offer outcomes and assignment latency.
type DispatchMetrics struct {
	offers         *prometheus.CounterVec
	manualDispatch prometheus.Counter
	assignLatency  prometheus.Histogram
}

// NewDispatchMetrics registers the dispatch metrics on the provided registerer.
func NewDispatchMetrics(reg prometheus.Registerer) *DispatchMetrics {
	if reg == nil {
		return &DispatchMetrics{}
	}
	offers := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_offers_total",
		Help: "Rider offers by outcome.",
	}, []string{"outcome"})
	manualDispatch := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dispatch_manual_total",
		Help: "Orders escalated to manual dispatch.",
	})
	assignLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "dispatch_assign_latency_seconds",
		Help:    "Time from ready-for-dispatch to rider acceptance.",
		Buckets: []float64{5, 15, 30, 60, 120, 300, 600},
	})
	reg.MustRegister(offers, manualDispatch, assignLatency)
	return &DispatchMetrics{
		offers:         offers,
		manualDispatch: manualDispatch,
		assignLatency:  assignLatency,
	}
}

// IncOffer increments the offers counter for the given outcome label.
func (d *DispatchMetrics) IncOffer(outcome string) {
	if d == nil || d.offers == nil {
		return
	}
	d.offers.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncManualDispatch counts an order falling through to manual assignment.
func (d *DispatchMetrics) IncManualDispatch() {
	if d == nil || d.manualDispatch == nil {
		return
	}
	d.manualDispatch.Inc()
}

// ObserveAssignLatency records how long an order waited for a rider.
func (d *DispatchMetrics) ObserveAssignLatency(elapsed time.Duration) {
	if d == nil || d.assignLatency == nil {
		return
	}
	d.assignLatency.Observe(elapsed.Seconds())
}
