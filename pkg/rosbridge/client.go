package rosbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/gizmo-platform/mapnav/pkg/buildinfo"
)

const (
	// Map lists come back as one message, so the default 32KiB
	// read limit is far too small.
	readLimit = 16 << 20

	defaultServicesService = "/rosapi/services"
)

// New returns a client that will connect on first use.
func New(opts ...Option) *Client {
	c := &Client{
		l:               hclog.NewNullLogger(),
		url:             "ws://127.0.0.1:9090",
		dialTimeout:     time.Second * 5,
		servicesService: defaultServicesService,
		advertised:      make(map[string]struct{}),
		pending:         make(map[string]chan response),
	}

	for _, o := range opts {
		o(c)
	}
	return c
}

// Connect dials the bridge if there is no live connection.  It is
// called implicitly by everything that needs a connection.
func (c *Client) Connect(ctx context.Context) error {
	_, err := c.connection(ctx)
	return err
}

// Close drops the connection.  Pending calls fail with
// ErrServiceUnavailable.
func (c *Client) Close() error {
	c.connMutex.Lock()
	conn := c.conn
	c.connMutex.Unlock()

	if conn == nil {
		return nil
	}
	c.l.Info("Closing bridge connection")
	c.forget(conn, context.Canceled)
	return conn.Close(websocket.StatusNormalClosure, "client closing")
}

// Call invokes a service on the robot and decodes the response values
// into reply, which may be nil if the caller does not care.
func (c *Client) Call(ctx context.Context, service string, args, reply any) error {
	start := time.Now()
	err := c.call(ctx, service, args, reply)
	c.m.RemoteCall(service, err, time.Since(start))
	return err
}

// IsRegistered asks the bridge whether a service is currently
// advertised.  Any failure to get an answer is reported as an error
// so that pollers can count it as a failed attempt.
func (c *Client) IsRegistered(ctx context.Context, service string) (bool, error) {
	reply := servicesReply{}
	if err := c.Call(ctx, c.servicesService, nil, &reply); err != nil {
		return false, err
	}
	for _, s := range reply.Services {
		if sameName(s, service) {
			return true, nil
		}
	}
	c.l.Trace("Service not registered yet", "service", service, "known", len(reply.Services))
	return false, nil
}

// Advertise announces a topic to the bridge.  Repeat calls for the
// same topic on the same connection are no-ops.
func (c *Client) Advertise(ctx context.Context, topic, msgType string) error {
	conn, err := c.connection(ctx)
	if err != nil {
		return err
	}

	c.connMutex.Lock()
	_, done := c.advertised[topic]
	c.connMutex.Unlock()
	if done {
		return nil
	}

	bytes, err := encodeAdvertise(topic, msgType)
	if err != nil {
		return err
	}
	if err := conn.Write(ctx, websocket.MessageText, bytes); err != nil {
		c.drop(conn, err)
		return fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}

	c.connMutex.Lock()
	c.advertised[topic] = struct{}{}
	c.connMutex.Unlock()
	c.l.Debug("Advertised topic", "topic", topic, "type", msgType)
	return nil
}

// Publish sends a single message on a topic.  The topic should have
// been advertised first.
func (c *Client) Publish(ctx context.Context, topic string, msg any) error {
	conn, err := c.connection(ctx)
	if err != nil {
		return err
	}

	bytes, err := encodePublish(topic, msg)
	if err != nil {
		return err
	}
	if err := conn.Write(ctx, websocket.MessageText, bytes); err != nil {
		c.drop(conn, err)
		return fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	return nil
}

func (c *Client) call(ctx context.Context, service string, args, reply any) error {
	conn, err := c.connection(ctx)
	if err != nil {
		return err
	}

	id := uuid.New().String()
	bytes, err := encodeCallService(id, service, args)
	if err != nil {
		return err
	}

	ch := make(chan response, 1)
	c.pendingMutex.Lock()
	c.pending[id] = ch
	c.pendingMutex.Unlock()
	defer func() {
		c.pendingMutex.Lock()
		delete(c.pending, id)
		c.pendingMutex.Unlock()
	}()

	c.l.Trace("Calling service", "service", service, "id", id)
	if err := conn.Write(ctx, websocket.MessageText, bytes); err != nil {
		c.drop(conn, err)
		return fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}

	var resp response
	select {
	case resp = <-ch:
	case <-ctx.Done():
		return ctx.Err()
	}

	if resp.err != nil {
		return resp.err
	}
	if !resp.result {
		return &RemoteCallError{Service: service, Message: failureMessage(resp.values)}
	}
	if reply == nil || len(resp.values) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.values, reply); err != nil {
		return fmt.Errorf("decoding %s response: %w", service, err)
	}
	return nil
}

func (c *Client) connection(ctx context.Context) (*websocket.Conn, error) {
	c.connMutex.Lock()
	defer c.connMutex.Unlock()

	if c.conn != nil {
		return c.conn, nil
	}

	dctx, cancel := context.WithTimeout(ctx, c.dialTimeout)
	defer cancel()

	hdr := http.Header{}
	hdr.Set("User-Agent", buildinfo.UserAgent())
	conn, _, err := websocket.Dial(dctx, c.url, &websocket.DialOptions{HTTPHeader: hdr})
	if err != nil {
		c.l.Debug("Could not reach bridge", "url", c.url, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	conn.SetReadLimit(readLimit)

	c.conn = conn
	c.advertised = make(map[string]struct{})
	c.l.Info("Connected to bridge", "url", c.url)
	go c.readLoop(conn)
	return conn, nil
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.Read(context.Background())
		if err != nil {
			c.drop(conn, err)
			return
		}

		env := envelope{}
		if err := json.Unmarshal(data, &env); err != nil {
			c.l.Warn("Garbage from bridge", "error", err)
			continue
		}

		switch env.Op {
		case opServiceResponse:
			c.deliver(env)
		case opStatus:
			c.l.Debug("Bridge status", "level", env.Level, "msg", env.Msg)
		default:
			c.l.Trace("Ignoring bridge message", "op", env.Op)
		}
	}
}

func (c *Client) deliver(env envelope) {
	c.pendingMutex.Lock()
	ch, ok := c.pending[env.ID]
	c.pendingMutex.Unlock()
	if !ok {
		c.l.Debug("Response for unknown call", "id", env.ID, "service", env.Service)
		return
	}

	// A bridge that omits result predates the field and only sent
	// responses for successful calls.
	result := env.Result == nil || *env.Result
	select {
	case ch <- response{result: result, values: env.Values}:
	default:
		c.l.Debug("Duplicate response dropped", "id", env.ID)
	}
}

// drop discards a dead connection.
func (c *Client) drop(conn *websocket.Conn, cause error) {
	if !c.forget(conn, cause) {
		return
	}
	if websocket.CloseStatus(cause) == websocket.StatusNormalClosure {
		c.l.Debug("Bridge connection closed")
	} else {
		c.l.Warn("Lost bridge connection", "error", cause)
	}
	conn.CloseNow()
}

// forget detaches conn from the client and fails every call that was
// waiting on it.  It reports false if conn was already forgotten.
func (c *Client) forget(conn *websocket.Conn, cause error) bool {
	c.connMutex.Lock()
	if c.conn != conn {
		c.connMutex.Unlock()
		return false
	}
	c.conn = nil
	c.connMutex.Unlock()

	c.pendingMutex.Lock()
	defer c.pendingMutex.Unlock()
	for id, ch := range c.pending {
		select {
		case ch <- response{err: fmt.Errorf("%w: %v", ErrServiceUnavailable, cause)}:
		default:
		}
		delete(c.pending, id)
	}
	return true
}
