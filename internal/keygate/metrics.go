package keygate

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exports the gate's operational counters. Outcome labels
// never distinguish real from decoy: a metrics endpoint that said
// "decoy_success" would undo the deniability the decoy exists for.
type Metrics struct {
	unlockTotal     *prometheus.CounterVec
	unlockDuration  prometheus.Histogram
	lockoutsTotal   prometheus.Counter
	wipesTotal      prometheus.Counter
	recoveriesTotal *prometheus.CounterVec
	registrations   prometheus.Counter
}

// NewMetrics registers the gate's collectors with reg. A nil reg
// yields unregistered collectors, which tests use freely.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		unlockTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "voidgate_unlock_attempts_total",
			Help: "Unlock attempts by outcome.",
		}, []string{"outcome"}),
		unlockDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "voidgate_unlock_duration_seconds",
			Help:    "Wall-clock duration of unlock evaluations.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 10),
		}),
		lockoutsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "voidgate_lockouts_total",
			Help: "Lockouts entered after repeated failures.",
		}),
		wipesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "voidgate_wipes_total",
			Help: "Panic wipes, explicit and automatic.",
		}),
		recoveriesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "voidgate_recoveries_total",
			Help: "Recovery attempts by outcome.",
		}, []string{"outcome"}),
		registrations: factory.NewCounter(prometheus.CounterOpts{
			Name: "voidgate_registrations_total",
			Help: "Template registrations across both slots.",
		}),
	}
}

func (m *Metrics) ObserveUnlock(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.unlockTotal.WithLabelValues(outcome).Inc()
	m.unlockDuration.Observe(seconds)
}

func (m *Metrics) LockoutEntered() {
	if m == nil {
		return
	}
	m.lockoutsTotal.Inc()
}

func (m *Metrics) WipeExecuted() {
	if m == nil {
		return
	}
	m.wipesTotal.Inc()
}

func (m *Metrics) RecoveryObserved(outcome string) {
	if m == nil {
		return
	}
	m.recoveriesTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RegistrationObserved() {
	if m == nil {
		return
	}
	m.registrations.Inc()
}
