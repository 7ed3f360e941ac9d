// Package observer contains the ways the map display reaches the
// operator: the phone's web page, an interactive terminal, and a
// fanout that feeds several of them at once.
package observer

import (
	"errors"

	"github.com/gizmo-platform/mapnav/pkg/mapdisplay"
)

var (
	// ErrNoChoicePending is returned by Choose when nobody is
	// waiting for the operator to pick a map.
	ErrNoChoicePending = errors.New("no map choice is pending")

	// ErrNotOffered is returned for an answer naming a map that is
	// not in the list being offered.
	ErrNotOffered = errors.New("map was not offered")
)

// Watcher receives display notifications but is never asked to make
// choices.
type Watcher interface {
	OnStateChanged(state mapdisplay.State, detail string)
	OnError(err error)
	OnFatal(err error)
}
