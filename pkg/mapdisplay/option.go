package mapdisplay

import (
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/gizmo-platform/mapnav/pkg/metrics"
)

// WithLogger sets the logging instance for the machine.
func WithLogger(l hclog.Logger) Option {
	return func(m *Machine) { m.l = l.Named("mapdisplay") }
}

// WithMetrics records transitions and dropped results.
func WithMetrics(x *metrics.Metrics) Option {
	return func(m *Machine) { m.m = x }
}

// WithObserver sets who is told about state changes and asked to pick
// maps.
func WithObserver(o Observer) Option {
	return func(m *Machine) { m.obs = o }
}

// WithAvailability sets the poller used to wait for the map storage
// service.
func WithAvailability(a Availability) Option {
	return func(m *Machine) { m.avail = a }
}

// WithCatalog sets the map list source.
func WithCatalog(c Catalog) Option {
	return func(m *Machine) { m.catalog = c }
}

// WithLoader sets what publishes the selected map.
func WithLoader(l Loader) Option {
	return func(m *Machine) { m.loader = l }
}

// WithPoseEnabler hooks up pose placement.
func WithPoseEnabler(p PoseEnabler) Option {
	return func(m *Machine) { m.pose = p }
}

// WithRenderer hooks up the map renderer.
func WithRenderer(r Renderer) Option {
	return func(m *Machine) { m.renderer = r }
}

// WithServiceWait configures which service must be registered before
// the map list is requested, and how hard to try.
func WithServiceWait(name string, attempts int, interval time.Duration) Option {
	return func(m *Machine) {
		m.serviceName = name
		m.pollAttempts = attempts
		m.pollInterval = interval
	}
}

// WithWorkers bounds how many remote calls and prompts may be running
// at once.
func WithWorkers(n int64) Option {
	return func(m *Machine) {
		if n > 0 {
			m.workers = n
		}
	}
}

// WithExecutor replaces the worker pool.  Tasks must not be run on the
// calling goroutine.
func WithExecutor(e Executor) Option {
	return func(m *Machine) { m.exec = e }
}

// WithTerminator is called once when the display can't go on: the
// map storage service never showed up, or the loop stalled.
func WithTerminator(f func(error)) Option {
	return func(m *Machine) { m.terminate = f }
}

// WithWatchdog bites the terminator if the loop goes d without
// making progress.  Zero disables it.
func WithWatchdog(d time.Duration) Option {
	return func(m *Machine) { m.dogDuration = d }
}
