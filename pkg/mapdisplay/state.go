package mapdisplay

// State is the lifecycle state of the map display.
type State uint8

const (
	// StateUnknown is the zero value, before the display has been
	// initialized.
	StateUnknown State = iota

	// StateStarting waits for the robot to send a map.
	StateStarting

	// StateLoading waits for the robot to publish the map the
	// operator picked.
	StateLoading

	// StateNeedMap means the robot has no map and the operator has
	// to pick one of the saved maps.
	StateNeedMap

	// StateWorking has a map on screen and accepts poses.
	StateWorking
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateLoading:
		return "loading"
	case StateNeedMap:
		return "need_map"
	case StateWorking:
		return "working"
	default:
		return "unknown"
	}
}

// MarshalText lets states appear by name in JSON.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }
