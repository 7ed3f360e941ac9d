package observer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/gizmo-platform/mapnav/pkg/eventstream"
	"github.com/gizmo-platform/mapnav/pkg/mapdisplay"
	"github.com/gizmo-platform/mapnav/pkg/mapstore"
)

// Web keeps what the operator page needs to draw itself and pushes
// every change through the event stream.  Map choices are answered by
// Choose, normally from an HTTP handler.
type Web struct {
	l   hclog.Logger
	es  eventstream.Publisher
	loc *time.Location

	mutex   sync.Mutex
	state   mapdisplay.State
	detail  string
	lastErr string
	fatal   string
	offered []mapstore.Entry
	answer  chan string
}

// WebSnapshot is the current view of the display as the operator
// page sees it.
type WebSnapshot struct {
	State   string
	Detail  string
	Error   string
	Fatal   string
	Choices []eventstream.Choice
}

// WebOption configures the Web observer.
type WebOption func(*Web)

// WithWebLogger sets the logger.
func WithWebLogger(l hclog.Logger) WebOption {
	return func(w *Web) { w.l = l.Named("web-observer") }
}

// WithEventStream sets where notifications are published.
func WithEventStream(es eventstream.Publisher) WebOption {
	return func(w *Web) { w.es = es }
}

// WithWebLocation sets the timezone map labels are rendered in.
func WithWebLocation(loc *time.Location) WebOption {
	return func(w *Web) { w.loc = loc }
}

// NewWeb returns a Web observer.
func NewWeb(opts ...WebOption) *Web {
	w := &Web{
		l:   hclog.NewNullLogger(),
		es:  eventstream.NewNullStreamer(),
		loc: time.Local,
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

// OnStateChanged records and publishes the new state.
func (w *Web) OnStateChanged(state mapdisplay.State, detail string) {
	w.mutex.Lock()
	w.state = state
	w.detail = detail
	w.lastErr = ""
	w.mutex.Unlock()

	w.es.PublishState(state.String(), detail)
}

// OnError records and publishes a recoverable error.
func (w *Web) OnError(err error) {
	w.mutex.Lock()
	w.lastErr = err.Error()
	w.mutex.Unlock()

	w.es.PublishError(err)
}

// OnFatal records and publishes the error that ended the display.
func (w *Web) OnFatal(err error) {
	w.mutex.Lock()
	w.fatal = err.Error()
	w.mutex.Unlock()

	w.es.PublishFatal(err)
}

// ResetMapDisplayState tells the page's renderer to wait for the
// newly published map.
func (w *Web) ResetMapDisplayState() {
	w.es.PublishRenderReset()
}

// PresentMapChoices offers entries on the operator page and waits for
// Choose to be called with one of them.
func (w *Web) PresentMapChoices(ctx context.Context, entries []mapstore.Entry) (string, error) {
	ch := make(chan string, 1)

	w.mutex.Lock()
	w.offered = entries
	w.answer = ch
	choices := w.choicesLocked()
	w.mutex.Unlock()

	w.l.Debug("Offering maps", "count", len(entries))
	w.es.PublishChoices(choices)

	select {
	case id := <-ch:
		return id, nil
	case <-ctx.Done():
		w.mutex.Lock()
		withdrawn := w.answer == ch
		if withdrawn {
			w.offered = nil
			w.answer = nil
		}
		w.mutex.Unlock()

		if withdrawn {
			w.es.PublishChoices(nil)
		}
		return "", ctx.Err()
	}
}

// Choose answers the pending map choice.
func (w *Web) Choose(mapID string) error {
	w.mutex.Lock()
	if w.answer == nil {
		w.mutex.Unlock()
		return ErrNoChoicePending
	}
	if _, ok := mapstore.Find(w.offered, mapID); !ok {
		w.mutex.Unlock()
		return fmt.Errorf("%w: %s", ErrNotOffered, mapID)
	}
	ch := w.answer
	w.answer = nil
	w.offered = nil
	w.mutex.Unlock()

	ch <- mapID
	w.es.PublishChoices(nil)
	return nil
}

// Snapshot returns the current view.
func (w *Web) Snapshot() WebSnapshot {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return WebSnapshot{
		State:   w.state.String(),
		Detail:  w.detail,
		Error:   w.lastErr,
		Fatal:   w.fatal,
		Choices: w.choicesLocked(),
	}
}

func (w *Web) choicesLocked() []eventstream.Choice {
	out := make([]eventstream.Choice, 0, len(w.offered))
	for _, e := range w.offered {
		out = append(out, eventstream.Choice{MapID: e.MapID, Label: e.Label(w.loc)})
	}
	return out
}
