package posesetter

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/hashicorp/go-hclog"
)

const (
	poseType = "geometry_msgs/PoseWithCovarianceStamped"
	goalType = "geometry_msgs/PoseStamped"
)

// New returns a disabled Setter in ModePose.
func New(pub Publisher, opts ...Option) *Setter {
	s := &Setter{
		l:         hclog.NewNullLogger(),
		pub:       pub,
		poseTopic: "/initialpose",
		goalTopic: "/move_base_simple/goal",
		frame:     "map",
		now:       time.Now,
		mode:      ModePose,
	}

	for _, o := range opts {
		o(s)
	}
	return s
}

// EnablePoseSetting allows poses to be placed.
func (s *Setter) EnablePoseSetting() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.enabled = true
	s.l.Debug("Pose setting enabled", "mode", s.mode)
}

// DisablePoseSetting stops poses from being placed.
func (s *Setter) DisablePoseSetting() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.enabled = false
	s.l.Debug("Pose setting disabled")
}

// SetMode switches between setting the pose and sending goals.
func (s *Setter) SetMode(m Mode) error {
	if m != ModePose && m != ModeGoal {
		return fmt.Errorf("%w: %q", ErrBadMode, m)
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.mode = m
	return nil
}

// Mode returns the current mode and whether placing is enabled.
func (s *Setter) Mode() (Mode, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.mode, s.enabled
}

// Place publishes p according to the current mode.
func (s *Setter) Place(ctx context.Context, p Pose) error {
	s.mutex.Lock()
	if !s.enabled {
		s.mutex.Unlock()
		return ErrDisabled
	}
	mode := s.mode
	s.seq++
	h := header{Seq: s.seq, Stamp: stampOf(s.now()), FrameID: s.frame}
	s.mutex.Unlock()

	topic, msgType := s.poseTopic, poseType
	var msg any = poseWithCovarianceStamped{
		Header: h,
		Pose:   poseWithCovariance{Pose: p.wire(), Covariance: defaultCovariance},
	}
	if mode == ModeGoal {
		topic, msgType = s.goalTopic, goalType
		msg = poseStamped{Header: h, Pose: p.wire()}
	}

	if err := s.pub.Advertise(ctx, topic, msgType); err != nil {
		return err
	}
	if err := s.pub.Publish(ctx, topic, msg); err != nil {
		return err
	}
	s.m.PosePlaced(string(mode))
	s.l.Info("Placed pose", "mode", mode, "x", p.X, "y", p.Y, "theta", p.Theta)
	return nil
}

func (p Pose) wire() pose {
	return pose{
		Position: point{X: p.X, Y: p.Y},
		Orientation: quaternion{
			Z: math.Sin(p.Theta / 2),
			W: math.Cos(p.Theta / 2),
		},
	}
}

func stampOf(t time.Time) stamp {
	return stamp{Secs: uint32(t.Unix()), Nsecs: uint32(t.Nanosecond())}
}
