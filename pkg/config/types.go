// Package config contains a convenient structure to pass around
// configuration data.
package config

import (
	"time"

	"github.com/hashicorp/go-hclog"
)

// Config holds everything needed to reach the robot and serve the
// operator page.
type Config struct {
	l hclog.Logger

	// path is where the config was loaded from.
	path string

	Robot    Robot
	MapStore MapStore
	Pose     Pose
	Web      Web
	Display  Display
}

// Robot describes how to reach the robot's rosbridge server.
type Robot struct {
	// URL is the websocket address of rosbridge,
	// ws://robot.local:9090 for example.
	URL string

	DialTimeout time.Duration

	// ServicesService is the rosapi service that lists registered
	// services.
	ServicesService string
}

// MapStore names the map storage services and how patiently to wait
// for them.
type MapStore struct {
	ListService    string
	PublishService string

	// WaitAttempts is how many times to check for the list service
	// before giving up for good.
	WaitAttempts int
	WaitInterval time.Duration

	CallTimeout time.Duration

	// Timezone map timestamps are shown in.  "Local" uses the
	// system zone.
	Timezone string
}

// Pose configures where poses and goals are published.
type Pose struct {
	PoseTopic string
	GoalTopic string
	Frame     string
}

// Web configures the operator page.
type Web struct {
	Bind string

	// PublicURL is printed as a QR code for the phone.  If empty it
	// is worked out from Bind.
	PublicURL string

	// AccessPhrase must be presented to change anything through
	// the operator page.
	AccessPhrase string
}

// Display tunes the map display loop.
type Display struct {
	Workers         int
	WatchdogTimeout time.Duration

	// MapWait is how long to wait after start for a renderer to
	// report a map before treating the map as missing.  Zero leaves
	// that decision to the renderer.
	MapWait time.Duration
}
