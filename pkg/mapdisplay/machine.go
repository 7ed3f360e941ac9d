package mapdisplay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/semaphore"

	"github.com/gizmo-platform/mapnav/pkg/mapstore"
	"github.com/gizmo-platform/mapnav/pkg/watchdog"
)

// New returns a machine that has not yet seen the display come up.
// The availability, catalog and loader collaborators are required.
func New(opts ...Option) *Machine {
	m := &Machine{
		l:         hclog.NewNullLogger(),
		obs:       nullObserver{},
		pose:      nopPose{},
		renderer:  nopRenderer{},
		workers:   4,
		terminate: func(error) {},

		serviceName:  mapstore.DefaultListService,
		pollAttempts: 20,
		pollInterval: time.Second,

		q: newQueue(),
	}

	for _, o := range opts {
		o(m)
	}

	m.sem = semaphore.NewWeighted(m.workers)
	if m.exec == nil {
		m.exec = m.pooled
	}
	m.genCtx, m.genCancel = context.WithCancel(context.Background())
	m.updateSnapshot()
	return m
}

// DisplayInitialized is called once the map display exists.
func (m *Machine) DisplayInitialized() { m.q.push(event{kind: evDisplayInitialized}) }

// MapReceived is called when the robot sends a map.
func (m *Machine) MapReceived() { m.q.push(event{kind: evMapReceived}) }

// MapMissing is called when the robot has been found to have no map.
func (m *Machine) MapMissing() { m.q.push(event{kind: evMapMissing}) }

// SelectMap picks one of the saved maps to load.
func (m *Machine) SelectMap(mapID string) { m.q.push(event{kind: evSelectMap, mapID: mapID}) }

// RefreshCatalog asks for the map list again, typically after a
// failed fetch.
func (m *Machine) RefreshCatalog() { m.q.push(event{kind: evRefresh}) }

// Reset returns the display to STARTING and abandons anything in
// flight.
func (m *Machine) Reset() { m.q.push(event{kind: evReset}) }

// State returns a copy of the machine's current state.
func (m *Machine) State() Snapshot {
	m.snapMutex.RLock()
	defer m.snapMutex.RUnlock()
	return m.snap
}

// Run applies events until ctx is cancelled or the display hits a
// fatal error.  It must only be called once.
func (m *Machine) Run(ctx context.Context) error {
	var heartbeat <-chan time.Time
	var dog *watchdog.Dog
	if m.dogDuration > 0 {
		dog = watchdog.New(
			watchdog.WithName("mapdisplay"),
			watchdog.WithLogger(m.l),
			watchdog.WithFoodDuration(m.dogDuration),
			watchdog.WithHandFunction(func(hungry time.Duration) {
				m.terminate(fmt.Errorf("%w: no progress for %s", ErrLoopStalled, hungry))
			}),
		)
		defer dog.Stop()

		t := time.NewTicker(m.dogDuration / 2)
		defer t.Stop()
		heartbeat = t.C
	}

	m.l.Info("Map display running")
	for {
		select {
		case <-ctx.Done():
			m.shutdown()
			return nil
		case <-heartbeat:
			dog.Feed()
		case <-m.q.ready():
			if err := m.step(); err != nil {
				m.shutdown()
				return err
			}
			if dog != nil {
				dog.Feed()
			}
		}
	}
}

// step applies everything that is queued right now, in order.
func (m *Machine) step() error {
	for _, ev := range m.q.drain() {
		if err := m.apply(ev); err != nil {
			return err
		}
	}
	return nil
}

func (m *Machine) shutdown() {
	m.genCancel()
	m.avail.Cancel()
	m.endChoice()
}

func (m *Machine) apply(ev event) error {
	defer m.updateSnapshot()

	if m.fatal {
		return nil
	}
	if ev.stamped && ev.gen != m.gen {
		m.l.Debug("Dropping stale result", "kind", ev.kind, "gen", ev.gen, "current", m.gen)
		m.m.StaleResult(ev.kind.String())
		return nil
	}

	switch ev.kind {
	case evDisplayInitialized:
		if m.state != StateUnknown {
			m.ignore(ev)
			return nil
		}
		m.enter(StateStarting, "")
	case evMapReceived:
		if m.state != StateStarting {
			m.ignore(ev)
			return nil
		}
		m.resident = true
		m.enter(StateWorking, "")
		m.pose.EnablePoseSetting()
	case evMapMissing:
		if m.state != StateStarting {
			m.ignore(ev)
			return nil
		}
		m.enter(StateNeedMap, "")
		m.waitForService()
	case evPollDone:
		return m.pollDone(ev)
	case evFetchDone:
		m.fetchDone(ev)
	case evChoiceDone:
		m.choiceDone(ev)
	case evSelectMap:
		m.selectMap(ev.mapID)
	case evLoadDone:
		m.loadDone(ev)
	case evRefresh:
		m.refresh()
	case evReset:
		m.reset()
	}
	return nil
}

func (m *Machine) ignore(ev event) {
	m.l.Debug("Ignoring event", "event", ev.kind, "state", m.state)
}

// enter performs a transition and tells the observer about it.
func (m *Machine) enter(s State, detail string) {
	from := m.state
	m.state = s
	if from == StateWorking {
		m.pose.DisablePoseSetting()
	}
	if s != StateNeedMap {
		m.endChoice()
	}

	m.m.DisplayTransition(from.String(), s.String())
	m.l.Info("Map display state changed", "from", from, "to", s, "detail", detail)
	m.obs.OnStateChanged(s, detail)
}

func (m *Machine) waitForService() {
	gen := m.gen
	m.avail.Start(m.serviceName, m.pollAttempts, m.pollInterval, func(err error) {
		m.q.push(event{kind: evPollDone, stamped: true, gen: gen, err: err})
	})
}

// pollDone handles the report of the current generation's probe.  A
// map may already have been picked by id before the report arrives, so
// the report counts in any state.
func (m *Machine) pollDone(ev event) error {
	if ev.err != nil {
		m.fatal = true
		err := fmt.Errorf("%w: %w", ErrFatalUnavailable, ev.err)
		m.l.Error("Map storage never became available", "service", m.serviceName, "error", ev.err)
		m.obs.OnFatal(err)
		m.terminate(err)
		return err
	}
	m.serviceReady = true
	if m.state != StateNeedMap {
		m.l.Debug("Map storage available, catalog deferred", "state", m.state)
		return nil
	}
	m.fetch()
	return nil
}

func (m *Machine) fetch() {
	if m.fetchPending {
		return
	}
	m.fetchPending = true
	gen, ctx := m.gen, m.genCtx
	m.exec(func() {
		entries, err := m.catalog.Fetch(ctx)
		m.q.push(event{kind: evFetchDone, stamped: true, gen: gen, entries: entries, err: err})
	})
}

func (m *Machine) fetchDone(ev event) {
	m.fetchPending = false
	if ev.err != nil {
		m.l.Warn("Could not list maps", "error", ev.err)
		m.obs.OnError(ev.err)
		return
	}
	m.entries = ev.entries
	if m.state != StateNeedMap {
		m.ignore(ev)
		return
	}
	m.present()
}

// present hands the catalog to the observer on a worker.  Only the
// most recent presentation may answer.
func (m *Machine) present() {
	m.endChoice()

	ctx, cancel := context.WithCancel(m.genCtx)
	m.choiceSeq++
	m.choicePending = true
	m.choiceCancel = cancel

	gen, seq, entries := m.gen, m.choiceSeq, m.entries
	m.exec(func() {
		id, err := m.obs.PresentMapChoices(ctx, entries)
		m.q.push(event{kind: evChoiceDone, stamped: true, gen: gen, seq: seq, mapID: id, err: err})
	})
}

// endChoice withdraws any outstanding presentation.
func (m *Machine) endChoice() {
	if m.choiceCancel != nil {
		m.choiceCancel()
		m.choiceCancel = nil
	}
	if m.choicePending {
		m.choicePending = false
		m.choiceSeq++
	}
}

func (m *Machine) choiceDone(ev event) {
	if ev.seq != m.choiceSeq {
		m.l.Debug("Dropping superseded map choice", "map", ev.mapID)
		return
	}
	m.endChoice()

	switch {
	case errors.Is(ev.err, context.Canceled):
		m.l.Debug("Map choice withdrawn")
	case ev.err != nil:
		m.obs.OnError(ev.err)
	default:
		m.selectMap(ev.mapID)
	}
}

func (m *Machine) selectMap(id string) {
	if m.state != StateNeedMap {
		m.l.Warn("Map selected outside of map selection", "map", id, "state", m.state)
		return
	}
	if id == "" {
		m.obs.OnError(mapstore.ErrNoMapID)
		return
	}
	if m.entries != nil {
		if _, ok := mapstore.Find(m.entries, id); !ok {
			m.obs.OnError(fmt.Errorf("%w: %s", ErrUnknownMap, id))
			return
		}
	}

	m.selected = id
	m.enter(StateLoading, id)

	m.loadPending = true
	gen, ctx := m.gen, m.genCtx
	m.exec(func() {
		err := m.loader.Load(ctx, id)
		m.q.push(event{kind: evLoadDone, stamped: true, gen: gen, mapID: id, err: err})
	})
}

func (m *Machine) loadDone(ev event) {
	m.loadPending = false
	if m.state != StateLoading {
		m.ignore(ev)
		return
	}
	if ev.err != nil {
		m.l.Warn("Map load failed", "map", ev.mapID, "error", ev.err)
		m.enter(StateNeedMap, "")
		m.obs.OnError(ev.err)
		switch {
		case m.entries != nil:
			m.present()
		case m.serviceReady:
			m.fetch()
		}
		return
	}

	m.resident = true
	m.enter(StateWorking, ev.mapID)
	m.pose.EnablePoseSetting()
	m.renderer.ResetMapDisplayState()
}

func (m *Machine) refresh() {
	if m.state != StateNeedMap || !m.serviceReady || m.fetchPending {
		m.l.Debug("Refresh not possible now", "state", m.state,
			"service_ready", m.serviceReady, "fetching", m.fetchPending)
		return
	}
	m.endChoice()
	m.fetch()
}

// reset abandons all background work by moving to a new generation.
func (m *Machine) reset() {
	m.gen++
	m.genCancel()
	m.genCtx, m.genCancel = context.WithCancel(context.Background())

	m.avail.Cancel()
	m.endChoice()
	m.fetchPending = false
	m.loadPending = false
	m.serviceReady = false
	m.entries = nil
	m.selected = ""
	m.resident = false

	if m.state == StateStarting {
		m.l.Debug("Reset while already starting")
		return
	}
	m.enter(StateStarting, "")
}

func (m *Machine) updateSnapshot() {
	m.snapMutex.Lock()
	defer m.snapMutex.Unlock()
	m.snap = Snapshot{
		State:        m.state,
		Selected:     m.selected,
		Resident:     m.resident,
		ServiceReady: m.serviceReady,
		Fetching:     m.fetchPending,
		Loading:      m.loadPending,
		Choosing:     m.choicePending,
	}
}

// pooled runs task on its own goroutine once a worker slot is free.
func (m *Machine) pooled(task func()) {
	go func() {
		if err := m.sem.Acquire(context.Background(), 1); err != nil {
			return
		}
		defer m.sem.Release(1)
		task()
	}()
}

type nullObserver struct{}

func (nullObserver) OnStateChanged(State, string) {}
func (nullObserver) OnError(error)                {}
func (nullObserver) OnFatal(error)                {}
func (nullObserver) PresentMapChoices(context.Context, []mapstore.Entry) (string, error) {
	return "", ErrNoPresenter
}

type nopPose struct{}

func (nopPose) EnablePoseSetting()  {}
func (nopPose) DisablePoseSetting() {}

type nopRenderer struct{}

func (nopRenderer) ResetMapDisplayState() {}
