package poller

import (
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/gizmo-platform/mapnav/pkg/metrics"
)

// Option configures the poller.
type Option func(*Poller)

// WithLogger sets the logger for the poller.
func WithLogger(l hclog.Logger) Option {
	return func(p *Poller) { p.l = l.Named("poller") }
}

// WithAttemptTimeout bounds each individual registration check.
func WithAttemptTimeout(d time.Duration) Option {
	return func(p *Poller) { p.attemptTimeout = d }
}

// WithMetrics counts attempts into the given metrics instance.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Poller) { p.m = m }
}
