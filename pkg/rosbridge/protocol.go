package rosbridge

import (
	"encoding/json"
	"strings"
)

// Operation names from the rosbridge v2 protocol.
const (
	opCallService     = "call_service"
	opServiceResponse = "service_response"
	opAdvertise       = "advertise"
	opPublish         = "publish"
	opStatus          = "status"
)

type callServiceMsg struct {
	Op      string `json:"op"`
	ID      string `json:"id"`
	Service string `json:"service"`
	Args    any    `json:"args"`
}

type advertiseMsg struct {
	Op    string `json:"op"`
	Topic string `json:"topic"`
	Type  string `json:"type"`
}

type publishMsg struct {
	Op    string `json:"op"`
	Topic string `json:"topic"`
	Msg   any    `json:"msg"`
}

// envelope is the union of everything the client reads back from the
// bridge.  Only service responses are acted upon.
type envelope struct {
	Op      string          `json:"op"`
	ID      string          `json:"id"`
	Service string          `json:"service"`
	Values  json.RawMessage `json:"values"`
	Result  *bool           `json:"result"`
	Level   string          `json:"level"`
	Msg     string          `json:"msg"`
}

type servicesReply struct {
	Services []string `json:"services"`
}

func encodeCallService(id, service string, args any) ([]byte, error) {
	if args == nil {
		args = struct{}{}
	}
	return json.Marshal(callServiceMsg{
		Op:      opCallService,
		ID:      id,
		Service: service,
		Args:    args,
	})
}

func encodeAdvertise(topic, msgType string) ([]byte, error) {
	return json.Marshal(advertiseMsg{Op: opAdvertise, Topic: topic, Type: msgType})
}

func encodePublish(topic string, msg any) ([]byte, error) {
	return json.Marshal(publishMsg{Op: opPublish, Topic: topic, Msg: msg})
}

// failureMessage digs the human readable reason out of a failed
// service response.  The bridge sends a bare JSON string in values
// when a call fails, but older bridges sent nothing at all.
func failureMessage(values json.RawMessage) string {
	if len(values) == 0 {
		return "service call failed"
	}
	var s string
	if err := json.Unmarshal(values, &s); err == nil {
		if s == "" {
			return "service call failed"
		}
		return s
	}
	return string(values)
}

// sameName compares ROS graph names while ignoring the leading slash
// that some bridges add to global names.
func sameName(a, b string) bool {
	return strings.TrimPrefix(a, "/") == strings.TrimPrefix(b, "/")
}
