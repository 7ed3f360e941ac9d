// Package eventstream fans display events out to every connected
// operator page over websockets.
package eventstream

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/coder/websocket"
)

const (
	writeWait    = 5 * time.Second
	pingInterval = 20 * time.Second
)

// EventStream keeps the set of connected pages and the events a new
// page needs to catch up.
type EventStream struct {
	l hclog.Logger

	// backlog is how far a page may fall behind before it is
	// dropped.
	backlog int

	mutex sync.Mutex
	pages map[*page]struct{}

	// sticky holds the latest event of each type that a newly
	// connected page needs in order to draw itself.
	sticky map[EventType][]byte
}

// page is one connected operator page.
type page struct {
	out  chan []byte
	kick func()
}

var stickyTypes = []EventType{EventTypeState, EventTypeChoices, EventTypeFatal}

// New returns an event stream with no subscribers.
func New(l hclog.Logger) *EventStream {
	return &EventStream{
		l:       l.Named("eventstream"),
		backlog: 16,
		pages:   make(map[*page]struct{}),
		sticky:  make(map[EventType][]byte),
	}
}

// Subscribers returns how many pages are currently connected.
func (es *EventStream) Subscribers() int {
	es.mutex.Lock()
	defer es.mutex.Unlock()
	return len(es.pages)
}

// Handler upgrades the request and streams events to it until the
// page goes away.
func (es *EventStream) Handler(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, nil)
	if err != nil {
		es.l.Warn("Could not accept subscriber", "error", err)
		return
	}
	defer c.CloseNow()

	err = es.stream(c)
	switch {
	case err == nil, errors.Is(err, context.Canceled):
	case websocket.CloseStatus(err) == websocket.StatusNormalClosure,
		websocket.CloseStatus(err) == websocket.StatusGoingAway:
	default:
		es.l.Debug("Subscriber dropped", "error", err)
	}
}

func (es *EventStream) stream(c *websocket.Conn) error {
	p := &page{
		out: make(chan []byte, es.backlog+len(stickyTypes)),
		kick: func() {
			c.Close(websocket.StatusPolicyViolation, "too slow to keep up with events")
		},
	}
	es.join(p)
	defer es.leave(p)

	// Reads only happen to service control frames; ctx ends when
	// the page disconnects.
	ctx := c.CloseRead(context.Background())

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case msg := <-p.out:
			wctx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.Write(wctx, websocket.MessageText, msg)
			cancel()
			if err != nil {
				return err
			}
		case <-ping.C:
			pctx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.Ping(pctx)
			cancel()
			if err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// publish hands msg to every page without blocking.  A page whose
// backlog is full is kicked.
func (es *EventStream) publish(t EventType, msg []byte) {
	es.mutex.Lock()
	defer es.mutex.Unlock()

	for _, st := range stickyTypes {
		if st == t {
			es.sticky[t] = msg
		}
	}

	for p := range es.pages {
		select {
		case p.out <- msg:
		default:
			es.l.Warn("Dropping slow subscriber")
			delete(es.pages, p)
			go p.kick()
		}
	}
}

func (es *EventStream) join(p *page) {
	es.mutex.Lock()
	defer es.mutex.Unlock()
	es.pages[p] = struct{}{}
	for _, t := range stickyTypes {
		if msg, ok := es.sticky[t]; ok {
			p.out <- msg
		}
	}
}

func (es *EventStream) leave(p *page) {
	es.mutex.Lock()
	defer es.mutex.Unlock()
	delete(es.pages, p)
}
