// Package metrics owns the prometheus registry for everything that
// talks to the robot or drives the map display.
package metrics

import (
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/prometheus/client_golang/prometheus"
)

// New returns an initialized instance of the metrics system.
func New(opts ...Option) *Metrics {
	x := &Metrics{
		l: hclog.NewNullLogger(),
		r: prometheus.NewRegistry(),

		displayState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "mapnav",
			Subsystem: "display",
			Name:      "state",
			Help:      "Set to 1 for the state the map display is currently in.",
		}, []string{"state"}),

		displayTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mapnav",
			Subsystem: "display",
			Name:      "transitions_total",
			Help:      "Count of state transitions applied by the map display.",
		}, []string{"from", "to"}),

		staleResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mapnav",
			Subsystem: "display",
			Name:      "stale_results_total",
			Help:      "Background results dropped because the display was reset.",
		}, []string{"kind"}),

		remoteCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mapnav",
			Subsystem: "remote",
			Name:      "calls_total",
			Help:      "Remote service calls by service and result.",
		}, []string{"service", "result"}),

		remoteCallDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "mapnav",
			Subsystem: "remote",
			Name:      "call_duration_seconds",
			Help:      "Time from request to response for remote service calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"service"}),

		pollAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mapnav",
			Subsystem: "poller",
			Name:      "attempts_total",
			Help:      "Service registration checks by service and result.",
		}, []string{"service", "result"}),

		posePlaced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mapnav",
			Subsystem: "pose",
			Name:      "placed_total",
			Help:      "Poses and goals sent to the robot.",
		}, []string{"mode"}),
	}

	x.r.MustRegister(x.displayState)
	x.r.MustRegister(x.displayTransitions)
	x.r.MustRegister(x.staleResults)
	x.r.MustRegister(x.remoteCalls)
	x.r.MustRegister(x.remoteCallDuration)
	x.r.MustRegister(x.pollAttempts)
	x.r.MustRegister(x.posePlaced)

	for _, o := range opts {
		o(x)
	}

	return x
}

// Registry provides access to the registry that this instance
// manages.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.r
}

// DisplayTransition records a move between two display states and
// flips the state gauge over to the new one.  All of the methods on
// Metrics are safe to call on a nil receiver so that components can
// run without a registry.
func (m *Metrics) DisplayTransition(from, to string) {
	if m == nil {
		return
	}
	m.displayTransitions.With(prometheus.Labels{"from": from, "to": to}).Inc()
	m.displayState.With(prometheus.Labels{"state": from}).Set(0)
	m.displayState.With(prometheus.Labels{"state": to}).Set(1)
	m.l.Trace("Display transition", "from", from, "to", to)
}

// StaleResult counts a background result that arrived after a reset.
func (m *Metrics) StaleResult(kind string) {
	if m == nil {
		return
	}
	m.staleResults.With(prometheus.Labels{"kind": kind}).Inc()
}

// RemoteCall records the outcome and latency of a single remote
// service call.
func (m *Metrics) RemoteCall(service string, err error, d time.Duration) {
	if m == nil {
		return
	}
	m.remoteCalls.With(prometheus.Labels{"service": service, "result": result(err)}).Inc()
	m.remoteCallDuration.With(prometheus.Labels{"service": service}).Observe(d.Seconds())
}

// PollAttempt records a single registration check.
func (m *Metrics) PollAttempt(service string, err error) {
	if m == nil {
		return
	}
	m.pollAttempts.With(prometheus.Labels{"service": service, "result": result(err)}).Inc()
}

// PosePlaced counts a pose or goal that was published.
func (m *Metrics) PosePlaced(mode string) {
	if m == nil {
		return
	}
	m.posePlaced.With(prometheus.Labels{"mode": mode}).Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
