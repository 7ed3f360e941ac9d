// Package mapdisplay drives the map display through its lifecycle:
// waiting for a map from the robot, helping the operator pick a
// saved map when there isn't one, and loading it.  All transitions
// happen on a single goroutine; remote work happens on background
// workers whose results are queued back to that goroutine.
package mapdisplay

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/semaphore"

	"github.com/gizmo-platform/mapnav/pkg/mapstore"
	"github.com/gizmo-platform/mapnav/pkg/metrics"
	"github.com/gizmo-platform/mapnav/pkg/poller"
)

var (
	// ErrFatalUnavailable is returned from Run when the map storage
	// service never showed up.  The process is expected to exit.
	ErrFatalUnavailable = errors.New("fatal: service unavailable")

	// ErrLoopStalled is handed to the terminator when the event loop
	// stops making progress.
	ErrLoopStalled = errors.New("map display loop stalled")

	// ErrUnknownMap is reported when the operator picks a map that
	// was not in the list they were shown.
	ErrUnknownMap = errors.New("no such map")

	// ErrNoPresenter is returned by the default observer, which has
	// nobody to ask.
	ErrNoPresenter = errors.New("no way to present map choices")
)

// Observer is told about everything the operator needs to see.  The
// On methods are called from the display loop and must not block for
// long.  PresentMapChoices is called from a worker and blocks until
// the operator picks a map or ctx is cancelled.
type Observer interface {
	OnStateChanged(state State, detail string)
	OnError(err error)
	OnFatal(err error)
	PresentMapChoices(ctx context.Context, entries []mapstore.Entry) (string, error)
}

// Availability waits for a service to be registered.
type Availability interface {
	Start(service string, maxAttempts int, interval time.Duration, report poller.ReportFunc) *poller.Probe
	Cancel()
}

// Catalog lists saved maps.
type Catalog interface {
	Fetch(ctx context.Context) ([]mapstore.Entry, error)
}

// Loader makes a saved map active.
type Loader interface {
	Load(ctx context.Context, mapID string) error
}

// PoseEnabler is switched on once a map is on screen so the operator
// can place the robot on it, and off again when the map goes away.
type PoseEnabler interface {
	EnablePoseSetting()
	DisablePoseSetting()
}

// Renderer draws the map.  Its progress is reset after a map load so
// it starts waiting for the newly published map.
type Renderer interface {
	ResetMapDisplayState()
}

// Executor runs a task off the display loop.
type Executor func(task func())

// Snapshot is a copy of the machine's state that is safe to read from
// any goroutine.
type Snapshot struct {
	State        State
	Selected     string
	Resident     bool
	ServiceReady bool
	Fetching     bool
	Loading      bool
	Choosing     bool
}

// Machine is the map display state machine.
type Machine struct {
	l hclog.Logger
	m *metrics.Metrics

	obs       Observer
	avail     Availability
	catalog   Catalog
	loader    Loader
	pose      PoseEnabler
	renderer  Renderer
	exec      Executor
	workers   int64
	sem       *semaphore.Weighted
	terminate func(error)

	serviceName  string
	pollAttempts int
	pollInterval time.Duration
	dogDuration  time.Duration

	q *queue

	// Everything below is owned by the loop goroutine.
	state         State
	fatal         bool
	gen           uint64
	genCtx        context.Context
	genCancel     context.CancelFunc
	serviceReady  bool
	fetchPending  bool
	loadPending   bool
	choicePending bool
	choiceSeq     uint64
	choiceCancel  context.CancelFunc
	selected      string
	resident      bool
	entries       []mapstore.Entry

	snapMutex sync.RWMutex
	snap      Snapshot
}

// Option configures the machine.
type Option func(*Machine)
