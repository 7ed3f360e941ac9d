// Package rosbridge talks to a robot through the rosbridge websocket
// protocol.  It provides the service call and registration lookups
// that the map display depends on, plus enough topic publishing to
// send poses to the navigation stack.
package rosbridge

import (
	"errors"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/hashicorp/go-hclog"

	"github.com/gizmo-platform/mapnav/pkg/metrics"
)

var (
	// ErrServiceUnavailable is returned when the bridge cannot be
	// reached, or the connection drops while a call is pending.
	// Callers that poll for readiness treat this as transient.
	ErrServiceUnavailable = errors.New("rosbridge unavailable")
)

// RemoteCallError is returned when the bridge reached the service
// but the service itself reported a failure.
type RemoteCallError struct {
	Service string
	Message string
}

// Error returns the message from the remote side untouched so it can
// be shown to an operator as-is.
func (e *RemoteCallError) Error() string { return e.Message }

// Client is a connection to a single rosbridge server.  The
// connection is established lazily and re-established on the next
// call after it drops.
type Client struct {
	l hclog.Logger
	m *metrics.Metrics

	url             string
	dialTimeout     time.Duration
	servicesService string

	connMutex  sync.Mutex
	conn       *websocket.Conn
	advertised map[string]struct{}

	pendingMutex sync.Mutex
	pending      map[string]chan response
}

// Option configures the client.
type Option func(*Client)

type response struct {
	result bool
	values []byte
	err    error
}
