package middleware

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RLRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limiter_requests_total",
			Help: "Total requests seen by the rate limiter",
		},
		[]string{"endpoint"},
	)
	RLBlocked = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limiter_blocked_total",
			Help: "Total requests blocked by the rate limiter",
		},
		[]string{"endpoint"},
	)
	AuthRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_rejected_total",
			Help: "initData authentications rejected, by reason",
		},
		[]string{"reason"},
	)
	OpRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "progression_rejected_total",
			Help: "Progression operations rejected by policy, by reason",
		},
		[]string{"reason"},
	)
	OpConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "progression_conflicts_total",
			Help: "Operations that exhausted compare-and-swap retries",
		},
	)
	InvariantViolations = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "user_state_invariant_violations",
			Help: "Rows breaking user-state invariants at last audit sweep",
		},
	)
)

func init() {
	prometheus.MustRegister(RLRequests, RLBlocked, AuthRejected, OpRejected, OpConflicts, InvariantViolations)
}
