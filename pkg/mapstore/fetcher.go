package mapstore

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-hclog"
)

// Fetcher lists the maps saved on the robot.
type Fetcher struct {
	l hclog.Logger
	c Caller

	service string
	loc     *time.Location
	timeout time.Duration

	inFlight atomic.Bool
}

// NewFetcher returns a fetcher that calls through c.
func NewFetcher(c Caller, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		l:       hclog.NewNullLogger(),
		c:       c,
		service: DefaultListService,
		loc:     time.Local,
	}

	for _, o := range opts {
		o(f)
	}
	return f
}

// Service is the name of the list service this fetcher calls.
func (f *Fetcher) Service() string { return f.service }

// Fetch issues one list call and returns the maps in the order the
// robot sent them.  A second Fetch while one is outstanding fails
// with ErrFetchInProgress without touching the robot.
func (f *Fetcher) Fetch(ctx context.Context) ([]Entry, error) {
	if !f.inFlight.CompareAndSwap(false, true) {
		f.l.Debug("Fetch already in flight")
		return nil, ErrFetchInProgress
	}
	defer f.inFlight.Store(false)

	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	resp := ListLastMapsResponse{}
	if err := f.c.Call(ctx, f.service, struct{}{}, &resp); err != nil {
		f.l.Warn("Reading map list failed", "error", err)
		return nil, err
	}

	out := make([]Entry, len(resp.MapList))
	for i, w := range resp.MapList {
		out[i] = entryFromWire(w)
	}
	f.l.Info("Read map list", "count", len(out))
	return out, nil
}

// Labels renders the operator facing text for each entry, in order.
func (f *Fetcher) Labels(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Label(f.loc)
	}
	return out
}
