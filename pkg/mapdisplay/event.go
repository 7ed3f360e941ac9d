package mapdisplay

import (
	"sync"

	"github.com/gizmo-platform/mapnav/pkg/mapstore"
)

type eventKind uint8

const (
	evDisplayInitialized eventKind = iota
	evMapReceived
	evMapMissing
	evSelectMap
	evRefresh
	evReset

	evPollDone
	evFetchDone
	evChoiceDone
	evLoadDone
)

func (k eventKind) String() string {
	switch k {
	case evDisplayInitialized:
		return "display_initialized"
	case evMapReceived:
		return "map_received"
	case evMapMissing:
		return "map_missing"
	case evSelectMap:
		return "select_map"
	case evRefresh:
		return "refresh"
	case evReset:
		return "reset"
	case evPollDone:
		return "poll"
	case evFetchDone:
		return "fetch"
	case evChoiceDone:
		return "choice"
	case evLoadDone:
		return "load"
	default:
		return "unknown"
	}
}

// event is a trigger for the machine.  Results of background work are
// stamped with the generation they were started in so that results
// from before a reset can be recognized and dropped.
type event struct {
	kind    eventKind
	stamped bool
	gen     uint64
	seq     uint64

	mapID   string
	entries []mapstore.Entry
	err     error
}

// queue is an unbounded FIFO with a single consumer.  Producers never
// block: a poller report that blocked on a full queue while the loop
// was cancelling that same poller would wedge both.
type queue struct {
	mutex  sync.Mutex
	events []event
	signal chan struct{}
}

func newQueue() *queue {
	return &queue{signal: make(chan struct{}, 1)}
}

func (q *queue) push(ev event) {
	q.mutex.Lock()
	q.events = append(q.events, ev)
	q.mutex.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// ready fires at least once after any push.
func (q *queue) ready() <-chan struct{} { return q.signal }

func (q *queue) drain() []event {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	out := q.events
	q.events = nil
	return out
}

func (q *queue) len() int {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	return len(q.events)
}
