package metrics

import (
	"github.com/hashicorp/go-hclog"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics binds the registry as well as the metrics collection.
type Metrics struct {
	l hclog.Logger

	r *prometheus.Registry

	displayState       *prometheus.GaugeVec
	displayTransitions *prometheus.CounterVec
	staleResults       *prometheus.CounterVec

	remoteCalls        *prometheus.CounterVec
	remoteCallDuration *prometheus.HistogramVec

	pollAttempts *prometheus.CounterVec
	posePlaced   *prometheus.CounterVec
}

// Option configures the metrics instance.
type Option func(*Metrics)
