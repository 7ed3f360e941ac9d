package rosbridge

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBridge answers call_service requests from a table of handlers
// and records everything else it sees.
type fakeBridge struct {
	t *testing.T

	mu       sync.Mutex
	handlers map[string]func(args json.RawMessage) (any, bool)
	seen     []map[string]any
}

func newFakeBridge(t *testing.T) (*fakeBridge, *httptest.Server) {
	fb := &fakeBridge{t: t, handlers: make(map[string]func(json.RawMessage) (any, bool))}
	srv := httptest.NewServer(http.HandlerFunc(fb.serve))
	t.Cleanup(srv.Close)
	return fb, srv
}

func (fb *fakeBridge) handle(service string, f func(json.RawMessage) (any, bool)) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.handlers[service] = f
}

func (fb *fakeBridge) messages() []map[string]any {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return append([]map[string]any(nil), fb.seen...)
}

func (fb *fakeBridge) serve(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}
	defer c.CloseNow()

	ctx := r.Context()
	for {
		var raw json.RawMessage
		if err := wsjson.Read(ctx, c, &raw); err != nil {
			return
		}
		msg := map[string]any{}
		json.Unmarshal(raw, &msg)

		fb.mu.Lock()
		fb.seen = append(fb.seen, msg)
		fb.mu.Unlock()

		if msg["op"] != "call_service" {
			continue
		}

		req := struct {
			ID      string          `json:"id"`
			Service string          `json:"service"`
			Args    json.RawMessage `json:"args"`
		}{}
		json.Unmarshal(raw, &req)

		fb.mu.Lock()
		h, ok := fb.handlers[req.Service]
		fb.mu.Unlock()

		var values any = "service does not exist"
		result := false
		if ok {
			values, result = h(req.Args)
		}
		wsjson.Write(ctx, c, map[string]any{
			"op":      "service_response",
			"id":      req.ID,
			"service": req.Service,
			"values":  values,
			"result":  result,
		})
	}
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestCallDecodesValues(t *testing.T) {
	fb, srv := newFakeBridge(t)
	fb.handle("/add", func(args json.RawMessage) (any, bool) {
		in := struct{ A, B int }{}
		json.Unmarshal(args, &in)
		return map[string]int{"sum": in.A + in.B}, true
	})

	c := New(WithURL(wsURL(srv)))
	defer c.Close()

	out := struct {
		Sum int `json:"sum"`
	}{}
	err := c.Call(context.Background(), "/add", map[string]int{"A": 2, "B": 3}, &out)
	require.NoError(t, err)
	assert.Equal(t, 5, out.Sum)
}

func TestCallSurfacesRemoteFailure(t *testing.T) {
	fb, srv := newFakeBridge(t)
	fb.handle("publish_map", func(json.RawMessage) (any, bool) {
		return "timeout", false
	})

	c := New(WithURL(wsURL(srv)))
	defer c.Close()

	err := c.Call(context.Background(), "publish_map", nil, nil)
	require.Error(t, err)

	var rce *RemoteCallError
	require.True(t, errors.As(err, &rce))
	assert.Equal(t, "timeout", rce.Error())
	assert.Equal(t, "publish_map", rce.Service)
}

func TestCallSendsEmptyArgsObject(t *testing.T) {
	fb, srv := newFakeBridge(t)
	fb.handle("list_last_maps", func(args json.RawMessage) (any, bool) {
		return map[string]any{"map_list": []any{}}, string(args) == "{}"
	})

	c := New(WithURL(wsURL(srv)))
	defer c.Close()

	require.NoError(t, c.Call(context.Background(), "list_last_maps", nil, nil))
}

func TestUnreachableBridgeIsUnavailable(t *testing.T) {
	c := New(WithURL("ws://127.0.0.1:9"), WithDialTimeout(200*time.Millisecond))

	ok, err := c.IsRegistered(context.Background(), "list_last_maps")
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrServiceUnavailable)
}

func TestIsRegistered(t *testing.T) {
	fb, srv := newFakeBridge(t)
	fb.handle(defaultServicesService, func(json.RawMessage) (any, bool) {
		return map[string]any{"services": []string{"/rosapi/services", "/list_last_maps"}}, true
	})

	c := New(WithURL(wsURL(srv)))
	defer c.Close()

	ok, err := c.IsRegistered(context.Background(), "list_last_maps")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.IsRegistered(context.Background(), "publish_map")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAdvertiseOncePerTopic(t *testing.T) {
	fb, srv := newFakeBridge(t)

	c := New(WithURL(wsURL(srv)))
	defer c.Close()

	ctx := context.Background()
	require.NoError(t, c.Advertise(ctx, "/initialpose", "geometry_msgs/PoseWithCovarianceStamped"))
	require.NoError(t, c.Advertise(ctx, "/initialpose", "geometry_msgs/PoseWithCovarianceStamped"))
	require.NoError(t, c.Publish(ctx, "/initialpose", map[string]any{"x": 1}))

	require.Eventually(t, func() bool { return len(fb.messages()) == 2 }, time.Second, 10*time.Millisecond)
	msgs := fb.messages()
	assert.Equal(t, "advertise", msgs[0]["op"])
	assert.Equal(t, "publish", msgs[1]["op"])
	assert.Equal(t, "/initialpose", msgs[1]["topic"])
}

func TestCloseFailsPendingCalls(t *testing.T) {
	fb, srv := newFakeBridge(t)
	block := make(chan struct{})
	fb.handle("slow", func(json.RawMessage) (any, bool) {
		<-block
		return nil, true
	})
	defer close(block)

	c := New(WithURL(wsURL(srv)))
	require.NoError(t, c.Connect(context.Background()))

	errs := make(chan error, 1)
	go func() { errs <- c.Call(context.Background(), "slow", nil, nil) }()

	// Give the call a moment to land in the pending table.
	time.Sleep(50 * time.Millisecond)
	go c.Close()

	select {
	case err := <-errs:
		assert.ErrorIs(t, err, ErrServiceUnavailable)
	case <-time.After(5 * time.Second):
		t.Fatal("pending call was not released by Close")
	}
}

func TestFailureMessage(t *testing.T) {
	assert.Equal(t, "service call failed", failureMessage(nil))
	assert.Equal(t, "service call failed", failureMessage(json.RawMessage(`""`)))
	assert.Equal(t, "boom", failureMessage(json.RawMessage(`"boom"`)))
	assert.Equal(t, `{"why":"x"}`, failureMessage(json.RawMessage(`{"why":"x"}`)))
}
