package http

import (
	"errors"
	"net/http"
	"sync"

	"github.com/hashicorp/go-hclog"
	"github.com/prometheus/client_golang/prometheus"
)

var errNoDisplay = errors.New("http server requires a display")

// Option enables variadic option passing to the server on startup.
type Option func(*Server) error

// WithPrometheusRegistry sets the Prometheus registry for the server
func WithPrometheusRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) error {
		if reg == nil {
			return errors.New("nil prometheus registry")
		}
		s.reg = reg
		return nil
	}
}

// WithLogger sets the logger for the server.
func WithLogger(l hclog.Logger) Option {
	return func(s *Server) error {
		s.l = l.Named("web")
		return nil
	}
}

// WithStartupWG lets the caller wait for the server to begin
// serving.
func WithStartupWG(wg *sync.WaitGroup) Option {
	return func(s *Server) error {
		wg.Add(1)
		s.swg = wg
		return nil
	}
}

// WithDisplay sets the map display the API drives.
func WithDisplay(d Display) Option {
	return func(s *Server) error {
		s.display = d
		return nil
	}
}

// WithChooser sets who answers pending map choices.
func WithChooser(c Chooser) Option {
	return func(s *Server) error {
		s.chooser = c
		return nil
	}
}

// WithPoser enables the pose endpoints.  Placed poses are announced
// on ps if it is not nil.
func WithPoser(p Poser, ps PoseStreamer) Option {
	return func(s *Server) error {
		s.poser = p
		s.poseES = ps
		return nil
	}
}

// WithEventStream mounts the handler that streams display events.
func WithEventStream(h http.HandlerFunc) Option {
	return func(s *Server) error {
		s.stream = h
		return nil
	}
}

// WithAccessPhrase requires the phrase on every request that changes
// something.  An empty phrase leaves the API open.
func WithAccessPhrase(p string) Option {
	return func(s *Server) error {
		s.accessPhrase = p
		return nil
	}
}
