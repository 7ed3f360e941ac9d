package eventstream

// NullStream doesn't publish events anywhere and is mostly for
// testing or non-server CLI cmdlets.
type NullStream struct{}

// NewNullStreamer hands back a null stream instance that discards
// everything.
func NewNullStreamer() *NullStream {
	return new(NullStream)
}

// PublishState discards all state changes.
func (ns *NullStream) PublishState(_, _ string) {}

// PublishError discards all errors.
func (ns *NullStream) PublishError(_ error) {}

// PublishFatal discards fatal errors too.
func (ns *NullStream) PublishFatal(_ error) {}

// PublishChoices discards all choices.
func (ns *NullStream) PublishChoices(_ []Choice) {}

// PublishPose discards all poses.
func (ns *NullStream) PublishPose(_ string, _, _, _ float64) {}

// PublishRenderReset discards render resets.
func (ns *NullStream) PublishRenderReset() {}
