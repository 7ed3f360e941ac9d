// Package posesetter places the robot on the map, either telling
// localization where the robot is or sending it a navigation goal.
package posesetter

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/gizmo-platform/mapnav/pkg/metrics"
)

// Mode selects what a placed pose means.
type Mode string

const (
	// ModePose sets the robot's initial pose for localization.
	ModePose Mode = "pose"

	// ModeGoal sends the robot somewhere.
	ModeGoal Mode = "goal"
)

var (
	// ErrDisabled is returned when a pose is placed before there is a
	// map to place it on.
	ErrDisabled = errors.New("pose setting is disabled")

	// ErrBadMode is returned for a mode that isn't ModePose or
	// ModeGoal.
	ErrBadMode = errors.New("unknown pose mode")
)

// Publisher sends messages on topics.  It is satisfied by the
// rosbridge client.
type Publisher interface {
	Advertise(ctx context.Context, topic, msgType string) error
	Publish(ctx context.Context, topic string, msg any) error
}

// Pose is a position and heading in the map frame.  Theta is in
// radians.
type Pose struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Theta float64 `json:"theta"`
}

// Setter publishes poses and goals while enabled.
type Setter struct {
	l   hclog.Logger
	m   *metrics.Metrics
	pub Publisher

	poseTopic string
	goalTopic string
	frame     string
	now       func() time.Time

	mutex   sync.Mutex
	mode    Mode
	enabled bool
	seq     uint32
}

// Option configures the Setter.
type Option func(*Setter)
