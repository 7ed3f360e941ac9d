package posesetter

import (
	"github.com/hashicorp/go-hclog"

	"github.com/gizmo-platform/mapnav/pkg/metrics"
)

// WithLogger sets the logger.
func WithLogger(l hclog.Logger) Option {
	return func(s *Setter) { s.l = l.Named("pose") }
}

// WithMetrics counts placed poses.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Setter) { s.m = m }
}

// WithPoseTopic overrides where initial poses are published.
func WithPoseTopic(t string) Option {
	return func(s *Setter) { s.poseTopic = t }
}

// WithGoalTopic overrides where goals are published.
func WithGoalTopic(t string) Option {
	return func(s *Setter) { s.goalTopic = t }
}

// WithFrame sets the frame poses are expressed in.
func WithFrame(f string) Option {
	return func(s *Setter) { s.frame = f }
}
