// Package http serves the operator page and the small API behind it.
package http

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"sync"

	"github.com/flosch/pongo2/v6"
	"github.com/go-chi/chi/v5"
	"github.com/hashicorp/go-hclog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gizmo-platform/mapnav/pkg/mapdisplay"
	"github.com/gizmo-platform/mapnav/pkg/observer"
	"github.com/gizmo-platform/mapnav/pkg/posesetter"
)

//go:embed ui/*
var uifs embed.FS

// Display is the map display as the API drives it.
type Display interface {
	DisplayInitialized()
	MapReceived()
	MapMissing()
	SelectMap(string)
	RefreshCatalog()
	Reset()
	State() mapdisplay.Snapshot
}

// Chooser answers map choices that are waiting on the operator.
type Chooser interface {
	Choose(string) error
	Snapshot() observer.WebSnapshot
}

// Poser places poses and goals on the map.
type Poser interface {
	Place(context.Context, posesetter.Pose) error
	SetMode(posesetter.Mode) error
	Mode() (posesetter.Mode, bool)
}

// PoseStreamer is told about every pose that gets placed.
type PoseStreamer interface {
	PublishPose(mode string, x, y, theta float64)
}

// Server manages the HTTP serving components
type Server struct {
	r   chi.Router
	n   *http.Server
	l   hclog.Logger
	tpl *pongo2.TemplateSet
	reg *prometheus.Registry
	swg *sync.WaitGroup

	display Display
	chooser Chooser
	poser   Poser
	poseES  PoseStreamer
	stream  http.HandlerFunc

	accessPhrase string
}

// NewServer returns a server ready to Serve.
func NewServer(opts ...Option) (*Server, error) {
	sub, _ := fs.Sub(uifs, "ui/p2")

	x := new(Server)
	x.r = chi.NewRouter()
	x.n = &http.Server{}
	x.l = hclog.NewNullLogger()
	x.tpl = pongo2.NewSet("html", pongo2.NewFSLoader(sub))
	x.reg = prometheus.NewRegistry()
	x.swg = new(sync.WaitGroup)
	x.swg.Add(1)
	x.stream = func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	for _, o := range opts {
		if err := o(x); err != nil {
			return nil, err
		}
	}
	if x.display == nil {
		return nil, errNoDisplay
	}

	x.r.Get("/", x.uiViewOperator)
	x.r.Handle("/metrics", promhttp.HandlerFor(x.reg, promhttp.HandlerOpts{Registry: x.reg}))

	x.r.Route("/api", func(r chi.Router) {
		r.Get("/state", x.apiGetState)
		r.Get("/eventstream", x.stream)

		r.Group(func(r chi.Router) {
			r.Use(x.requireAccess)

			r.Route("/display", func(r chi.Router) {
				r.Post("/init", x.apiTrigger(x.display.DisplayInitialized))
				r.Post("/map-received", x.apiTrigger(x.display.MapReceived))
				r.Post("/map-missing", x.apiTrigger(x.display.MapMissing))
				r.Post("/reset", x.apiTrigger(x.display.Reset))
			})
			r.Route("/maps", func(r chi.Router) {
				r.Post("/refresh", x.apiTrigger(x.display.RefreshCatalog))
				r.Post("/select", x.apiSelectMap)
			})
			r.Route("/pose", func(r chi.Router) {
				r.Post("/", x.apiPlacePose)
				r.Post("/mode", x.apiSetPoseMode)
			})
		})
	})

	return x, nil
}

// Handler exposes the router, mostly for tests.
func (s *Server) Handler() http.Handler { return s.r }

// Serve binds and serves http on the bound socket.  An error will be
// returned if the server cannot initialize.
func (s *Server) Serve(bind string) error {
	s.l.Info("HTTP is starting", "bind", bind)
	s.n.Addr = bind
	s.n.Handler = s.r
	s.swg.Done()
	return s.n.ListenAndServe()
}

// Ready returns once Serve has been called.
func (s *Server) Ready() { s.swg.Wait() }

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.l.Info("Stopping...")
	return s.n.Shutdown(ctx)
}

func (s *Server) templateErrorHandler(w http.ResponseWriter, err error) {
	w.WriteHeader(http.StatusInternalServerError)
	fmt.Fprintf(w, "Error while rendering template: %s\n", err)
}

func (s *Server) doTemplate(w http.ResponseWriter, r *http.Request, tmpl string, ctx pongo2.Context) {
	if ctx == nil {
		ctx = pongo2.Context{}
	}
	t, err := s.tpl.FromCache(tmpl)
	if err != nil {
		s.templateErrorHandler(w, err)
		return
	}
	if err := t.ExecuteWriter(ctx, w); err != nil {
		s.templateErrorHandler(w, err)
	}
}
