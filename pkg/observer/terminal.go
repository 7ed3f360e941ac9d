package observer

import (
	"context"
	"sync"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/hashicorp/go-hclog"

	"github.com/gizmo-platform/mapnav/pkg/mapdisplay"
	"github.com/gizmo-platform/mapnav/pkg/mapstore"
)

// AskFunc asks the operator to pick one of labels and returns its
// index.
type AskFunc func(labels []string) (int, error)

// Terminal logs display notifications and prompts for a map on the
// controlling terminal.
type Terminal struct {
	l   hclog.Logger
	loc *time.Location
	ask AskFunc

	// Only one prompt owns the terminal at a time.
	mutex   sync.Mutex
	onShown *prompt
}

// prompt is a question on the terminal.  id and err are set before
// done is closed.
type prompt struct {
	done chan struct{}
	id   string
	err  error
}

// TerminalOption configures the Terminal observer.
type TerminalOption func(*Terminal)

// WithTerminalLogger sets the logger notifications are written to.
func WithTerminalLogger(l hclog.Logger) TerminalOption {
	return func(t *Terminal) { t.l = l.Named("display") }
}

// WithTerminalLocation sets the timezone map labels are rendered in.
func WithTerminalLocation(loc *time.Location) TerminalOption {
	return func(t *Terminal) { t.loc = loc }
}

// WithAskFunc replaces the interactive prompt.
func WithAskFunc(f AskFunc) TerminalOption {
	return func(t *Terminal) { t.ask = f }
}

// NewTerminal returns a Terminal observer.
func NewTerminal(opts ...TerminalOption) *Terminal {
	t := &Terminal{
		l:   hclog.NewNullLogger(),
		loc: time.Local,
		ask: SurveyAsk,
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// SurveyAsk prompts with a survey select list.
func SurveyAsk(labels []string) (int, error) {
	prompt := &survey.Select{
		Message: "Select the map to load",
		Options: labels,
	}
	idx := 0
	if err := survey.AskOne(prompt, &idx); err != nil {
		return -1, err
	}
	return idx, nil
}

// OnStateChanged logs the new state.
func (t *Terminal) OnStateChanged(state mapdisplay.State, detail string) {
	t.l.Info("Map display", "state", state.String(), "detail", detail)
}

// OnError logs a recoverable error.
func (t *Terminal) OnError(err error) {
	t.l.Warn("Map display error", "error", err)
}

// OnFatal logs the error that ended the display.
func (t *Terminal) OnFatal(err error) {
	t.l.Error("Map display cannot continue", "error", err)
}

// PresentMapChoices prompts for a map.  A prompt can't be interrupted,
// so one left on screen by a withdrawn presentation answers the next
// presentation instead of a second prompt being started.  An answer
// that is not among entries is refused with ErrNotOffered.
func (t *Terminal) PresentMapChoices(ctx context.Context, entries []mapstore.Entry) (string, error) {
	p := t.show(entries)

	select {
	case <-p.done:
		if p.err != nil {
			return "", p.err
		}
		if _, ok := mapstore.Find(entries, p.id); !ok {
			return "", ErrNotOffered
		}
		return p.id, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// show returns the prompt already on screen, or starts one for
// entries.
func (t *Terminal) show(entries []mapstore.Entry) *prompt {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	if t.onShown != nil {
		t.l.Debug("Map prompt already on screen")
		return t.onShown
	}

	labels := make([]string, len(entries))
	for i, e := range entries {
		labels[i] = e.Label(t.loc)
	}

	p := &prompt{done: make(chan struct{})}
	t.onShown = p
	go func() {
		idx, err := t.ask(labels)
		switch {
		case err != nil:
			p.err = err
		case idx < 0 || idx >= len(entries):
			p.err = ErrNotOffered
		default:
			p.id = entries[idx].MapID
		}

		t.mutex.Lock()
		t.onShown = nil
		t.mutex.Unlock()
		close(p.done)
	}()
	return p
}
