package eventstream

// EventType is used to identify what type of event is crossing the
// wire.
type EventType uint8

const (
	// EventTypeUnknown is used as a zero value to ensure that this
	// always has to be set to something.
	EventTypeUnknown EventType = iota

	// EventTypeState is sent every time the map display changes
	// state.
	EventTypeState

	// EventTypeError carries a failure the operator can recover
	// from, such as a map that would not load.
	EventTypeError

	// EventTypeFatal is sent when the display has given up and the
	// process is about to exit.
	EventTypeFatal

	// EventTypeChoices asks the operator to pick a saved map.  An
	// empty list withdraws an earlier request.
	EventTypeChoices

	// EventTypePose is sent when a pose or goal is placed on the
	// map.
	EventTypePose

	// EventTypeRenderReset tells the map renderer to forget what it
	// has drawn and wait for the newly published map.
	EventTypeRenderReset
)

// Publisher is anything that can push display events to the
// operator.  Both EventStream and NullStream satisfy it.
type Publisher interface {
	PublishState(state, detail string)
	PublishError(err error)
	PublishFatal(err error)
	PublishChoices(choices []Choice)
	PublishPose(mode string, x, y, theta float64)
	PublishRenderReset()
}

// EventState contains the display state that was entered.
type EventState struct {
	Type   EventType
	State  string
	Detail string `json:",omitempty"`
}

// EventBare is an event that carries nothing but its type.
type EventBare struct {
	Type EventType
}

// EventError contains the underlying error that occured.
type EventError struct {
	Type  EventType
	Error string
}

// Choice is one map the operator may pick.
type Choice struct {
	MapID string
	Label string
}

// EventChoices contains the maps on offer, in display order.
type EventChoices struct {
	Type    EventType
	Choices []Choice
}

// EventPose contains a placed pose or goal.
type EventPose struct {
	Type  EventType
	Mode  string
	X     float64
	Y     float64
	Theta float64
}
