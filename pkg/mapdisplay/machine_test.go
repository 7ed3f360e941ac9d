package mapdisplay

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gizmo-platform/mapnav/pkg/mapstore"
	"github.com/gizmo-platform/mapnav/pkg/poller"
)

type fakeAvail struct {
	mu       sync.Mutex
	name     string
	attempts int
	interval time.Duration
	report   poller.ReportFunc
	starts   int
	cancels  int
}

func (f *fakeAvail) Start(name string, attempts int, interval time.Duration, report poller.ReportFunc) *poller.Probe {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.name, f.attempts, f.interval, f.report = name, attempts, interval, report
	f.starts++
	return nil
}

func (f *fakeAvail) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancels++
}

func (f *fakeAvail) fire(err error) {
	f.mu.Lock()
	r := f.report
	f.mu.Unlock()
	r(err)
}

type fakeCatalog struct {
	entries []mapstore.Entry
	err     error
	calls   int
}

func (f *fakeCatalog) Fetch(context.Context) ([]mapstore.Entry, error) {
	f.calls++
	return f.entries, f.err
}

type fakeLoader struct {
	errs  map[string]error
	loads []string
}

func (f *fakeLoader) Load(_ context.Context, id string) error {
	f.loads = append(f.loads, id)
	return f.errs[id]
}

type fakePose struct{ enabled, disabled int }

func (f *fakePose) EnablePoseSetting()  { f.enabled++ }
func (f *fakePose) DisablePoseSetting() { f.disabled++ }

type fakeRenderer struct{ resets int }

func (f *fakeRenderer) ResetMapDisplayState() { f.resets++ }

type recObserver struct {
	states    []State
	details   []string
	errs      []error
	fatals    []error
	presented [][]mapstore.Entry
	answer    string
	answerErr error
}

func (o *recObserver) OnStateChanged(s State, detail string) {
	o.states = append(o.states, s)
	o.details = append(o.details, detail)
}
func (o *recObserver) OnError(err error) { o.errs = append(o.errs, err) }
func (o *recObserver) OnFatal(err error) { o.fatals = append(o.fatals, err) }
func (o *recObserver) PresentMapChoices(_ context.Context, e []mapstore.Entry) (string, error) {
	o.presented = append(o.presented, e)
	return o.answer, o.answerErr
}

// manualExec holds tasks until the test runs them.
type manualExec struct{ tasks []func() }

func (e *manualExec) submit(task func()) { e.tasks = append(e.tasks, task) }

func (e *manualExec) runAll() int {
	n := 0
	for len(e.tasks) > 0 {
		t := e.tasks[0]
		e.tasks = e.tasks[1:]
		t()
		n++
	}
	return n
}

type harness struct {
	t        *testing.T
	m        *Machine
	avail    *fakeAvail
	catalog  *fakeCatalog
	loader   *fakeLoader
	pose     *fakePose
	renderer *fakeRenderer
	obs      *recObserver
	exec     *manualExec
	killed   []error
}

var (
	t1 = time.Date(2026, time.January, 2, 15, 4, 0, 0, time.UTC)
	t2 = time.Date(2025, time.December, 31, 8, 0, 0, 0, time.UTC)

	catalogEntries = []mapstore.Entry{
		{MapID: "m1", Name: "kitchen", CreatedAt: t1},
		{MapID: "m2", Name: "", CreatedAt: t2},
	}
)

func newHarness(t *testing.T, opts ...Option) *harness {
	h := &harness{
		t:        t,
		avail:    &fakeAvail{},
		catalog:  &fakeCatalog{entries: catalogEntries},
		loader:   &fakeLoader{errs: map[string]error{}},
		pose:     &fakePose{},
		renderer: &fakeRenderer{},
		obs:      &recObserver{},
		exec:     &manualExec{},
	}
	base := []Option{
		WithAvailability(h.avail),
		WithCatalog(h.catalog),
		WithLoader(h.loader),
		WithPoseEnabler(h.pose),
		WithRenderer(h.renderer),
		WithObserver(h.obs),
		WithExecutor(h.exec.submit),
		WithTerminator(func(err error) { h.killed = append(h.killed, err) }),
	}
	h.m = New(append(base, opts...)...)
	return h
}

// settle applies queued events and runs background work until nothing
// is left to do.
func (h *harness) settle() error {
	for {
		if err := h.m.step(); err != nil {
			return err
		}
		if h.exec.runAll() == 0 && h.m.q.len() == 0 {
			return nil
		}
	}
}

// step applies queued events without running background work.
func (h *harness) step() {
	h.t.Helper()
	require.NoError(h.t, h.m.step())
}

// toNeedMap brings the machine to NEED_MAP with the service confirmed.
func (h *harness) toNeedMap() {
	h.t.Helper()
	h.m.DisplayInitialized()
	h.m.MapMissing()
	h.step()
	h.avail.fire(nil)
	h.step()
}

func TestScenarioServiceNeverAppears(t *testing.T) {
	h := newHarness(t, WithServiceWait("list_last_maps", 3, time.Millisecond))

	h.m.DisplayInitialized()
	h.m.MapMissing()
	h.step()
	assert.Equal(t, []State{StateStarting, StateNeedMap}, h.obs.states)
	assert.Equal(t, "list_last_maps", h.avail.name)
	assert.Equal(t, 3, h.avail.attempts)
	assert.Equal(t, 1, h.avail.starts)

	h.avail.fire(fmt.Errorf("%w: list_last_maps after 3 attempts", poller.ErrExhausted))
	err := h.m.step()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFatalUnavailable)
	assert.ErrorIs(t, err, poller.ErrExhausted)

	require.Len(t, h.obs.fatals, 1)
	assert.ErrorIs(t, h.obs.fatals[0], ErrFatalUnavailable)
	require.Len(t, h.killed, 1)
	assert.Zero(t, h.catalog.calls)

	// Nothing moves once the display is dead.
	h.m.Reset()
	h.step()
	assert.Equal(t, StateNeedMap, h.m.State().State)
}

func TestScenarioCatalogPresented(t *testing.T) {
	h := newHarness(t)
	h.toNeedMap()
	assert.True(t, h.m.State().ServiceReady)
	assert.True(t, h.m.State().Fetching)

	require.NoError(t, h.settle())
	assert.Equal(t, 1, h.catalog.calls)
	require.Len(t, h.obs.presented, 1)

	labels := []string{}
	for _, e := range h.obs.presented[0] {
		labels = append(labels, e.Label(time.UTC))
	}
	assert.Equal(t, []string{"kitchen Jan 2, 2026 3:04 PM", "Dec 31, 2025 8:00 AM"}, labels)

	// The observer's empty answer is reported rather than loaded.
	assert.ErrorIs(t, h.obs.errs[0], mapstore.ErrNoMapID)
	assert.Equal(t, StateNeedMap, h.m.State().State)
}

func TestScenarioLoadSucceeds(t *testing.T) {
	h := newHarness(t)
	h.obs.answer = "m1"
	h.toNeedMap()
	require.NoError(t, h.settle())

	assert.Equal(t, []string{"m1"}, h.loader.loads)
	assert.Equal(t, []State{StateStarting, StateNeedMap, StateLoading, StateWorking}, h.obs.states)
	assert.Equal(t, "m1", h.obs.details[2])
	assert.Equal(t, 1, h.pose.enabled)
	assert.Equal(t, 1, h.renderer.resets)

	snap := h.m.State()
	assert.Equal(t, StateWorking, snap.State)
	assert.True(t, snap.Resident)
	assert.Equal(t, "m1", snap.Selected)
	assert.Empty(t, h.obs.errs)
}

func TestScenarioLoadFails(t *testing.T) {
	h := newHarness(t)
	h.loader.errs["m2"] = errors.New("timeout")
	h.toNeedMap()
	h.exec.runAll()
	h.step()
	h.exec.tasks = nil

	h.m.SelectMap("m2")
	h.step()
	assert.Equal(t, StateLoading, h.m.State().State)
	assert.True(t, h.m.State().Loading)

	h.exec.runAll()
	h.step()
	assert.Equal(t, []State{StateStarting, StateNeedMap, StateLoading, StateNeedMap}, h.obs.states)
	require.Len(t, h.obs.errs, 1)
	assert.Equal(t, "timeout", h.obs.errs[0].Error())
	assert.Zero(t, h.pose.enabled)

	// The same catalog is offered again for another try.
	require.Len(t, h.exec.tasks, 1)
	h.exec.runAll()
	require.Len(t, h.obs.presented, 1)
	assert.Equal(t, catalogEntries, h.obs.presented[0])
}

func TestScenarioResetDuringLoad(t *testing.T) {
	h := newHarness(t)
	h.toNeedMap()
	h.exec.runAll()
	h.step()
	h.exec.tasks = nil

	h.m.SelectMap("m1")
	h.step()
	require.Equal(t, StateLoading, h.m.State().State)

	h.m.Reset()
	h.step()
	assert.Equal(t, StateStarting, h.m.State().State)
	assert.Equal(t, 1, h.avail.cancels)

	// The load finishes after the reset and is ignored.
	h.exec.runAll()
	h.step()
	assert.Equal(t, StateStarting, h.m.State().State)
	assert.Zero(t, h.pose.enabled)
	assert.Zero(t, h.renderer.resets)
	assert.Equal(t, StateStarting, h.obs.states[len(h.obs.states)-1])
	assert.False(t, h.m.State().Resident)
}

func TestStalePollAfterReset(t *testing.T) {
	h := newHarness(t)
	h.m.DisplayInitialized()
	h.m.MapMissing()
	h.step()

	h.m.Reset()
	h.step()

	// A report from the cancelled probe arrives late.
	h.avail.fire(poller.ErrExhausted)
	h.step()
	assert.Empty(t, h.obs.fatals)
	assert.Empty(t, h.killed)
	assert.Equal(t, StateStarting, h.m.State().State)
}

func TestStaleFetchAfterReset(t *testing.T) {
	h := newHarness(t)
	h.toNeedMap()
	h.m.Reset()
	h.step()

	h.exec.runAll()
	h.step()
	assert.Empty(t, h.obs.presented)
	assert.False(t, h.m.State().Fetching)
}

func TestIgnoredTriggers(t *testing.T) {
	h := newHarness(t)

	h.m.MapReceived()
	h.m.MapMissing()
	h.m.SelectMap("m1")
	h.step()
	assert.Empty(t, h.obs.states)
	assert.Equal(t, StateUnknown, h.m.State().State)

	h.m.DisplayInitialized()
	h.m.DisplayInitialized()
	h.m.SelectMap("m1")
	h.step()
	assert.Equal(t, []State{StateStarting}, h.obs.states)
	assert.Empty(t, h.loader.loads)
	assert.Empty(t, h.exec.tasks)
}

func TestMapReceivedGoesStraightToWorking(t *testing.T) {
	h := newHarness(t)
	h.m.DisplayInitialized()
	h.m.MapReceived()
	h.m.MapMissing()
	h.step()

	assert.Equal(t, []State{StateStarting, StateWorking}, h.obs.states)
	assert.Zero(t, h.avail.starts)
	assert.Equal(t, 1, h.pose.enabled)
	assert.True(t, h.m.State().Resident)

	h.m.Reset()
	h.step()
	assert.Equal(t, 1, h.pose.disabled)
}

func TestResetWhileStartingIsQuiet(t *testing.T) {
	h := newHarness(t)
	h.m.DisplayInitialized()
	h.m.Reset()
	h.step()
	assert.Equal(t, []State{StateStarting}, h.obs.states)

	h.m.MapMissing()
	h.step()
	assert.Equal(t, StateNeedMap, h.m.State().State)
}

func TestResetFromUnknownStarts(t *testing.T) {
	h := newHarness(t)
	h.m.Reset()
	h.step()
	assert.Equal(t, []State{StateStarting}, h.obs.states)
}

func TestFetchFailureThenRefresh(t *testing.T) {
	h := newHarness(t)
	h.catalog.err = errors.New("map_store is down")
	h.toNeedMap()
	h.exec.runAll()
	h.step()

	require.Len(t, h.obs.errs, 1)
	assert.Equal(t, "map_store is down", h.obs.errs[0].Error())
	assert.Equal(t, StateNeedMap, h.m.State().State)
	assert.Empty(t, h.obs.presented)

	h.catalog.err = nil
	h.m.RefreshCatalog()
	h.step()
	h.exec.runAll()
	h.step()
	h.exec.runAll()
	assert.Equal(t, 2, h.catalog.calls)
	assert.Len(t, h.obs.presented, 1)
}

func TestOneFetchInFlight(t *testing.T) {
	h := newHarness(t)
	h.toNeedMap()
	require.Len(t, h.exec.tasks, 1)

	h.m.RefreshCatalog()
	h.m.RefreshCatalog()
	h.step()
	assert.Len(t, h.exec.tasks, 1)

	h.exec.runAll()
	assert.Equal(t, 1, h.catalog.calls)
}

func TestRefreshNeedsService(t *testing.T) {
	h := newHarness(t)
	h.m.DisplayInitialized()
	h.m.MapMissing()
	h.m.RefreshCatalog()
	h.step()
	assert.Empty(t, h.exec.tasks)
}

func TestSelectBeforeServiceReport(t *testing.T) {
	h := newHarness(t)
	h.obs.answerErr = context.Canceled
	h.loader.errs["m1"] = errors.New("timeout")
	h.m.DisplayInitialized()
	h.m.MapMissing()
	h.m.SelectMap("m1")
	h.step()
	require.Equal(t, StateLoading, h.m.State().State)
	require.Len(t, h.exec.tasks, 1)

	// The report lands while loading; the catalog waits.
	h.avail.fire(nil)
	h.step()
	assert.True(t, h.m.State().ServiceReady)
	assert.Len(t, h.exec.tasks, 1)

	h.exec.runAll()
	h.step()
	assert.Equal(t, StateNeedMap, h.m.State().State)
	require.Len(t, h.obs.errs, 1)
	assert.Equal(t, "timeout", h.obs.errs[0].Error())

	require.NoError(t, h.settle())
	assert.Equal(t, 1, h.catalog.calls)
	assert.Len(t, h.obs.presented, 1)

	h.m.RefreshCatalog()
	require.NoError(t, h.settle())
	assert.Equal(t, 2, h.catalog.calls)
	assert.Len(t, h.obs.presented, 2)
}

func TestExhaustionWhileLoading(t *testing.T) {
	h := newHarness(t)
	h.m.DisplayInitialized()
	h.m.MapMissing()
	h.m.SelectMap("m1")
	h.step()
	require.Equal(t, StateLoading, h.m.State().State)

	h.avail.fire(fmt.Errorf("%w: list_last_maps after 20 attempts", poller.ErrExhausted))
	err := h.m.step()
	assert.ErrorIs(t, err, ErrFatalUnavailable)
	assert.Len(t, h.obs.fatals, 1)
	assert.Len(t, h.killed, 1)
}

func TestUnknownMapRejected(t *testing.T) {
	h := newHarness(t)
	h.toNeedMap()
	h.exec.runAll()
	h.step()
	h.exec.tasks = nil

	h.m.SelectMap("m9")
	h.step()
	require.Len(t, h.obs.errs, 1)
	assert.ErrorIs(t, h.obs.errs[0], ErrUnknownMap)
	assert.Equal(t, StateNeedMap, h.m.State().State)
	assert.Empty(t, h.loader.loads)
}

func TestSelectWithdrawsPresentation(t *testing.T) {
	h := newHarness(t)
	h.obs.answer = "m2"
	h.toNeedMap()
	h.exec.runAll()
	h.step()
	require.Len(t, h.exec.tasks, 1)

	// The operator picks directly before the prompt answers.
	h.m.SelectMap("m1")
	h.step()
	h.exec.runAll()
	h.step()

	assert.Equal(t, []string{"m1"}, h.loader.loads)
	assert.Equal(t, StateWorking, h.m.State().State)
}

func TestCancelledChoiceIsNotAnError(t *testing.T) {
	h := newHarness(t)
	h.obs.answerErr = context.Canceled
	h.toNeedMap()
	require.NoError(t, h.settle())
	assert.Empty(t, h.obs.errs)
	assert.False(t, h.m.State().Choosing)
}

// TestRandomTriggers throws random trigger sequences at the machine
// and checks that notifications always name a new state and that
// LOADING and WORKING always have a map behind them.
func TestRandomTriggers(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for run := 0; run < 200; run++ {
		h := newHarness(t)
		h.obs.answer = "m1"
		if r.Intn(2) == 0 {
			h.loader.errs["m1"] = errors.New("timeout")
		}

		last := StateUnknown
		seen := 0
		for i := 0; i < 30; i++ {
			switch r.Intn(9) {
			case 0:
				h.m.DisplayInitialized()
			case 1:
				h.m.MapReceived()
			case 2:
				h.m.MapMissing()
			case 3:
				h.m.SelectMap([]string{"m1", "m2", "zz"}[r.Intn(3)])
			case 4:
				h.m.RefreshCatalog()
			case 5:
				h.m.Reset()
			case 6:
				if h.avail.report != nil {
					h.avail.fire(nil)
				}
			case 7:
				if len(h.exec.tasks) > 0 {
					h.exec.tasks[0]()
					h.exec.tasks = h.exec.tasks[1:]
				}
			case 8:
				h.exec.runAll()
			}
			require.NoError(t, h.m.step())

			for ; seen < len(h.obs.states); seen++ {
				assert.NotEqual(t, last, h.obs.states[seen], "run %d re-entered %s", run, last)
				last = h.obs.states[seen]
			}

			snap := h.m.State()
			assert.Equal(t, last, snap.State)
			switch snap.State {
			case StateLoading:
				assert.NotEmpty(t, snap.Selected)
			case StateWorking:
				assert.True(t, snap.Resident)
			}
		}
	}
}

func TestRunEndsOnExhaustion(t *testing.T) {
	reg := registryFunc(func(context.Context, string) (bool, error) { return false, errors.New("refused") })
	obs := &recObserver{}
	killed := make(chan error, 1)

	m := New(
		WithAvailability(poller.New(reg)),
		WithCatalog(&fakeCatalog{}),
		WithLoader(&fakeLoader{}),
		WithObserver(obs),
		WithServiceWait("list_last_maps", 3, time.Millisecond),
		WithTerminator(func(err error) { killed <- err }),
		WithWatchdog(time.Second),
	)
	m.DisplayInitialized()
	m.MapMissing()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := m.Run(ctx)
	assert.ErrorIs(t, err, ErrFatalUnavailable)
	assert.ErrorIs(t, <-killed, ErrFatalUnavailable)
	assert.Len(t, obs.fatals, 1)
}

func TestRunStopsWithContext(t *testing.T) {
	m := New(WithAvailability(&fakeAvail{}), WithCatalog(&fakeCatalog{}), WithLoader(&fakeLoader{}))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()
	m.DisplayInitialized()
	require.Eventually(t, func() bool { return m.State().State == StateStarting }, time.Second, time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
	}
}

func TestStalledLoopBites(t *testing.T) {
	release := make(chan struct{})
	killed := make(chan error, 1)
	obs := &blockingObserver{release: release}

	m := New(
		WithAvailability(&fakeAvail{}),
		WithCatalog(&fakeCatalog{}),
		WithLoader(&fakeLoader{}),
		WithObserver(obs),
		WithWatchdog(20*time.Millisecond),
		WithTerminator(func(err error) { killed <- err }),
	)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)
	m.DisplayInitialized()

	select {
	case err := <-killed:
		assert.ErrorIs(t, err, ErrLoopStalled)
	case <-time.After(5 * time.Second):
		t.Fatal("watchdog never bit")
	}
	close(release)
}

func TestStateNames(t *testing.T) {
	assert.Equal(t, "starting", StateStarting.String())
	assert.Equal(t, "loading", StateLoading.String())
	assert.Equal(t, "need_map", StateNeedMap.String())
	assert.Equal(t, "working", StateWorking.String())
	assert.Equal(t, "unknown", StateUnknown.String())
}

type registryFunc func(context.Context, string) (bool, error)

func (f registryFunc) IsRegistered(ctx context.Context, s string) (bool, error) { return f(ctx, s) }

type blockingObserver struct {
	nullObserver
	release chan struct{}
}

func (o *blockingObserver) OnStateChanged(State, string) { <-o.release }
