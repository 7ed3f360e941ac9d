// Package mapstore speaks to the robot's map storage service: listing
// the maps that have been saved and asking for one of them to be
// published as the active map.
package mapstore

import (
	"context"
	"errors"
	"time"
)

const (
	// DefaultListService is the map_store service that lists saved
	// maps, newest first.
	DefaultListService = "list_last_maps"

	// DefaultPublishService is the map_store service that makes a
	// saved map the active one.
	DefaultPublishService = "publish_map"

	// TimestampLayout renders a medium date with a short time,
	// "Mar 4, 2026 9:15 AM".
	TimestampLayout = "Jan 2, 2006 3:04 PM"
)

var (
	// ErrFetchInProgress is returned if a fetch is requested while
	// one is still waiting on the robot.
	ErrFetchInProgress = errors.New("map list already being fetched")

	// ErrLoadInProgress is returned if a load is requested while one
	// is still waiting on the robot.
	ErrLoadInProgress = errors.New("a map is already being loaded")

	// ErrNoMapID is returned when asked to load a map without saying
	// which one.
	ErrNoMapID = errors.New("no map id given")
)

// Caller performs a remote service call.  It is satisfied by the
// rosbridge client.
type Caller interface {
	Call(ctx context.Context, service string, args, reply any) error
}

// Entry is one saved map as presented to the operator.
type Entry struct {
	MapID     string
	Name      string
	CreatedAt time.Time
}

// MapListEntry is the wire form of a saved map.
type MapListEntry struct {
	Name      string `json:"name"`
	Date      int64  `json:"date"`
	SessionID string `json:"session_id"`
	MapID     string `json:"map_id"`
}

// ListLastMapsResponse is the reply from the list service.
type ListLastMapsResponse struct {
	MapList []MapListEntry `json:"map_list"`
}

// PublishMapRequest asks the publish service to make a map active.
type PublishMapRequest struct {
	MapID string `json:"map_id"`
}
