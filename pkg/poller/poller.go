// Package poller waits for a remote service to show up, giving up
// after a fixed number of tries.
package poller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hashicorp/go-hclog"

	"github.com/gizmo-platform/mapnav/pkg/metrics"
)

var (
	// ErrUnavailable marks a single failed registration check.  It
	// never leaves the poller on its own; it is only seen wrapped in
	// the final failure report.
	ErrUnavailable = errors.New("service not registered")

	// ErrExhausted is reported when every attempt has failed.
	ErrExhausted = errors.New("service never became available")
)

// Registry answers whether a service is currently registered.
type Registry interface {
	IsRegistered(context.Context, string) (bool, error)
}

// ReportFunc receives the outcome of a probe: nil on success, an
// error wrapping ErrExhausted otherwise.
type ReportFunc func(error)

// Poller runs at most one Probe at a time against a Registry.
type Poller struct {
	l hclog.Logger
	m *metrics.Metrics

	reg            Registry
	attemptTimeout time.Duration

	mutex   sync.Mutex
	current *Probe
}

// Probe is a single run of the poller for one service.  It exists
// from Start until it succeeds, runs out of attempts, or is
// cancelled.
type Probe struct {
	ServiceName string
	MaxAttempts int
	Interval    time.Duration

	remaining atomic.Int64
	cancel    context.CancelFunc
	done      chan struct{}

	// reportMutex orders the final report against Cancel so that
	// nothing is reported once Cancel has returned.
	reportMutex sync.Mutex
	stopped     bool
}

// New returns a poller that checks the given registry.
func New(reg Registry, opts ...Option) *Poller {
	p := &Poller{
		l:              hclog.NewNullLogger(),
		reg:            reg,
		attemptTimeout: time.Second * 5,
	}

	for _, o := range opts {
		o(p)
	}
	return p
}

// Start begins polling for serviceName in the background, replacing
// any probe that was already running.  The report function is called
// at most once, from the polling goroutine.
func (p *Poller) Start(serviceName string, maxAttempts int, interval time.Duration, report ReportFunc) *Probe {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	pr := &Probe{
		ServiceName: serviceName,
		MaxAttempts: maxAttempts,
		Interval:    interval,
		cancel:      cancel,
		done:        make(chan struct{}),
	}
	pr.remaining.Store(int64(maxAttempts))

	p.mutex.Lock()
	prev := p.current
	p.current = pr
	p.mutex.Unlock()
	if prev != nil {
		prev.Cancel()
	}

	p.l.Info("Waiting for service", "service", serviceName, "attempts", maxAttempts, "interval", interval)
	go p.run(ctx, pr, report)
	return pr
}

// Cancel stops the running probe, if there is one.
func (p *Poller) Cancel() {
	p.mutex.Lock()
	pr := p.current
	p.current = nil
	p.mutex.Unlock()

	if pr != nil {
		pr.Cancel()
	}
}

func (p *Poller) run(ctx context.Context, pr *Probe, report ReportFunc) {
	defer close(pr.done)

	attempt := func() error {
		pr.remaining.Add(-1)
		err := p.check(ctx, pr.ServiceName)
		p.m.PollAttempt(pr.ServiceName, err)
		if err != nil && ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		return err
	}

	notify := func(err error, next time.Duration) {
		p.l.Debug("Service not ready, waiting", "service", pr.ServiceName,
			"remaining", pr.AttemptsRemaining(), "next", next, "error", err)
	}

	bo := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(pr.Interval), uint64(pr.MaxAttempts-1)),
		ctx,
	)
	err := backoff.RetryNotify(attempt, bo, notify)

	if err == nil {
		p.l.Info("Service available", "service", pr.ServiceName)
	} else {
		err = fmt.Errorf("%w: %s after %d attempts: %v", ErrExhausted, pr.ServiceName, pr.MaxAttempts, err)
	}
	pr.finish(report, err)
}

func (p *Poller) check(ctx context.Context, service string) error {
	actx, cancel := context.WithTimeout(ctx, p.attemptTimeout)
	defer cancel()

	ok, err := p.reg.IsRegistered(actx, service)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if !ok {
		return ErrUnavailable
	}
	return nil
}

// finish delivers the one and only report for this probe unless it
// was cancelled first.
func (pr *Probe) finish(report ReportFunc, err error) {
	pr.reportMutex.Lock()
	defer pr.reportMutex.Unlock()
	if pr.stopped {
		return
	}
	pr.stopped = true
	pr.cancel()
	if report != nil {
		report(err)
	}
}

// Cancel stops the probe.  No report is delivered after Cancel
// returns.  Calling it more than once is harmless.
func (pr *Probe) Cancel() {
	pr.reportMutex.Lock()
	defer pr.reportMutex.Unlock()
	pr.stopped = true
	pr.cancel()
}

// Done is closed when the polling goroutine has exited.
func (pr *Probe) Done() <-chan struct{} { return pr.done }

// AttemptsRemaining is how many registration checks the probe may
// still make.
func (pr *Probe) AttemptsRemaining() int {
	n := pr.remaining.Load()
	if n < 0 {
		return 0
	}
	return int(n)
}
