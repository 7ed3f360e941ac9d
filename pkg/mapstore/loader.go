package mapstore

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-hclog"
)

// Loader asks the robot to make a saved map the active one.
type Loader struct {
	l hclog.Logger
	c Caller

	service string
	timeout time.Duration

	inFlight atomic.Bool
}

// NewLoader returns a loader that calls through c.
func NewLoader(c Caller, opts ...LoaderOption) *Loader {
	ld := &Loader{
		l:       hclog.NewNullLogger(),
		c:       c,
		service: DefaultPublishService,
	}

	for _, o := range opts {
		o(ld)
	}
	return ld
}

// Load issues one publish call for mapID.  Errors from the robot are
// returned untouched so their message can be shown to the operator.
func (ld *Loader) Load(ctx context.Context, mapID string) error {
	if mapID == "" {
		return ErrNoMapID
	}
	if !ld.inFlight.CompareAndSwap(false, true) {
		ld.l.Debug("Load already in flight", "map", mapID)
		return ErrLoadInProgress
	}
	defer ld.inFlight.Store(false)

	if ld.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ld.timeout)
		defer cancel()
	}

	ld.l.Info("Loading map", "map", mapID)
	if err := ld.c.Call(ctx, ld.service, PublishMapRequest{MapID: mapID}, nil); err != nil {
		ld.l.Warn("Loading map failed", "map", mapID, "error", err)
		return err
	}
	ld.l.Info("Map published", "map", mapID)
	return nil
}
