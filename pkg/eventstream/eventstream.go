package eventstream

import (
	"encoding/json"
)

// PublishState pushes a display state change into the event stream.
func (es *EventStream) PublishState(state, detail string) {
	es.marshalAndPublish(EventTypeState, EventState{
		Type:   EventTypeState,
		State:  state,
		Detail: detail,
	})
}

// PublishError pushes an error out into the event stream.
func (es *EventStream) PublishError(err error) {
	es.marshalAndPublish(EventTypeError, EventError{
		Type:  EventTypeError,
		Error: err.Error(),
	})
}

// PublishFatal tells every subscriber that the display is going
// away.
func (es *EventStream) PublishFatal(err error) {
	es.marshalAndPublish(EventTypeFatal, EventError{
		Type:  EventTypeFatal,
		Error: err.Error(),
	})
}

// PublishChoices offers maps to the operator.
func (es *EventStream) PublishChoices(choices []Choice) {
	if choices == nil {
		choices = []Choice{}
	}
	es.marshalAndPublish(EventTypeChoices, EventChoices{
		Type:    EventTypeChoices,
		Choices: choices,
	})
}

// PublishPose pushes a placed pose into the event stream.
func (es *EventStream) PublishPose(mode string, x, y, theta float64) {
	es.marshalAndPublish(EventTypePose, EventPose{
		Type:  EventTypePose,
		Mode:  mode,
		X:     x,
		Y:     y,
		Theta: theta,
	})
}

// PublishRenderReset asks renderers to start over.
func (es *EventStream) PublishRenderReset() {
	es.marshalAndPublish(EventTypeRenderReset, EventBare{Type: EventTypeRenderReset})
}

func (es *EventStream) marshalAndPublish(t EventType, e any) {
	bytes, err := json.Marshal(e)
	if err != nil {
		es.l.Warn("Error marshaling event", "error", err)
		return
	}
	es.publish(t, bytes)
}
