package observer

import (
	"context"

	"github.com/gizmo-platform/mapnav/pkg/mapdisplay"
	"github.com/gizmo-platform/mapnav/pkg/mapstore"
)

// Fanout sends every notification to all of its watchers and lets
// one presenter answer map choices.
type Fanout struct {
	presenter mapdisplay.Observer
	watchers  []Watcher
}

// NewFanout returns a Fanout.  The presenter is notified first, then
// the watchers in order.
func NewFanout(presenter mapdisplay.Observer, watchers ...Watcher) *Fanout {
	return &Fanout{presenter: presenter, watchers: watchers}
}

// OnStateChanged notifies everyone.
func (f *Fanout) OnStateChanged(state mapdisplay.State, detail string) {
	f.presenter.OnStateChanged(state, detail)
	for _, w := range f.watchers {
		w.OnStateChanged(state, detail)
	}
}

// OnError notifies everyone.
func (f *Fanout) OnError(err error) {
	f.presenter.OnError(err)
	for _, w := range f.watchers {
		w.OnError(err)
	}
}

// OnFatal notifies everyone.
func (f *Fanout) OnFatal(err error) {
	f.presenter.OnFatal(err)
	for _, w := range f.watchers {
		w.OnFatal(err)
	}
}

// PresentMapChoices is answered by the presenter alone.
func (f *Fanout) PresentMapChoices(ctx context.Context, entries []mapstore.Entry) (string, error) {
	return f.presenter.PresentMapChoices(ctx, entries)
}
