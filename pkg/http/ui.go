package http

import (
	"net/http"

	"github.com/flosch/pongo2/v6"

	"github.com/gizmo-platform/mapnav/pkg/buildinfo"
)

func (s *Server) uiViewOperator(w http.ResponseWriter, r *http.Request) {
	ctx := pongo2.Context{
		"version":   buildinfo.Version,
		"snapshot":  s.display.State(),
		"keyHeader": KeyHeader,
		"poseOn":    s.poser != nil,
	}
	s.doTemplate(w, r, "operator.p2", ctx)
}
