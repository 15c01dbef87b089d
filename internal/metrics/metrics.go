package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for the login flow.
// All methods are safe to call on a nil *Metrics.
type Metrics struct {
	loginOutcomes  *prometheus.CounterVec
	lockouts       prometheus.Counter
	twoFactor      *prometheus.CounterVec
	resets         *prometheus.CounterVec
	activeSessions prometheus.Gauge
}

// New creates the collectors and registers them with reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		loginOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "portal",
			Subsystem: "auth",
			Name:      "login_outcomes_total",
			Help:      "Credential submissions by outcome.",
		}, []string{"outcome"}),
		lockouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "portal",
			Subsystem: "auth",
			Name:      "lockouts_total",
			Help:      "Client lockouts started after repeated bad credentials.",
		}),
		twoFactor: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "portal",
			Subsystem: "auth",
			Name:      "two_factor_checks_total",
			Help:      "One-time code checks by step and result.",
		}, []string{"step", "result"}),
		resets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "portal",
			Subsystem: "auth",
			Name:      "two_factor_resets_total",
			Help:      "Two-factor reset flow events by stage.",
		}, []string{"stage"}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "portal",
			Subsystem: "auth",
			Name:      "client_sessions",
			Help:      "Client sessions currently held in memory.",
		}),
	}

	reg.MustRegister(m.loginOutcomes, m.lockouts, m.twoFactor, m.resets, m.activeSessions)
	return m
}

// ObserveLogin counts a credential submission outcome
func (m *Metrics) ObserveLogin(outcome string) {
	if m == nil {
		return
	}
	m.loginOutcomes.WithLabelValues(outcome).Inc()
}

// Lockout counts a lockout start
func (m *Metrics) Lockout() {
	if m == nil {
		return
	}
	m.lockouts.Inc()
}

// ObserveCode counts a one-time code check
func (m *Metrics) ObserveCode(step string, ok bool) {
	if m == nil {
		return
	}
	result := "invalid"
	if ok {
		result = "valid"
	}
	m.twoFactor.WithLabelValues(step, result).Inc()
}

// ObserveReset counts a reset flow stage ("issued", "consumed", "rejected", "disabled")
func (m *Metrics) ObserveReset(stage string) {
	if m == nil {
		return
	}
	m.resets.WithLabelValues(stage).Inc()
}

// SetActiveSessions records the client session count
func (m *Metrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.activeSessions.Set(float64(n))
}
