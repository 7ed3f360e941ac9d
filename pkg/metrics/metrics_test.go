package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestDisplayTransitionMovesGauge(t *testing.T) {
	m := New()
	m.DisplayTransition("starting", "need_map")
	m.DisplayTransition("need_map", "loading")

	assert.Equal(t, 0.0, testutil.ToFloat64(m.displayState.WithLabelValues("need_map")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.displayState.WithLabelValues("loading")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.displayTransitions.WithLabelValues("starting", "need_map")))
}

func TestRemoteCallResults(t *testing.T) {
	m := New()
	m.RemoteCall("publish_map", nil, 10*time.Millisecond)
	m.RemoteCall("publish_map", errors.New("timeout"), time.Second)
	m.PollAttempt("list_last_maps", errors.New("not yet"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.remoteCalls.WithLabelValues("publish_map", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.remoteCalls.WithLabelValues("publish_map", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.pollAttempts.WithLabelValues("list_last_maps", "error")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.remoteCallDuration))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.DisplayTransition("a", "b")
	m.StaleResult("load")
	m.RemoteCall("x", nil, 0)
	m.PollAttempt("x", nil)
	m.PosePlaced("goal")
}

func TestRegistryGathers(t *testing.T) {
	m := New()
	m.StaleResult("load")
	m.PosePlaced("pose")

	n, err := testutil.GatherAndCount(m.Registry(), "mapnav_display_stale_results_total", "mapnav_pose_placed_total")
	assert.NoError(t, err)
	assert.Equal(t, 2, n)
}
