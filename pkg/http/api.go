package http

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gizmo-platform/mapnav/pkg/mapdisplay"
	"github.com/gizmo-platform/mapnav/pkg/observer"
	"github.com/gizmo-platform/mapnav/pkg/posesetter"
)

// KeyHeader carries the access phrase.
const KeyHeader = "X-Mapnav-Key"

type poseState struct {
	Mode    posesetter.Mode
	Enabled bool
}

type stateResponse struct {
	Display mapdisplay.Snapshot
	View    *observer.WebSnapshot `json:",omitempty"`
	Pose    *poseState            `json:",omitempty"`
}

func (s *Server) requireAccess(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.accessPhrase != "" {
			got := r.Header.Get(KeyHeader)
			if subtle.ConstantTimeCompare([]byte(got), []byte(s.accessPhrase)) != 1 {
				s.l.Warn("Rejected request without access phrase", "path", r.URL.Path, "remote", r.RemoteAddr)
				w.WriteHeader(http.StatusUnauthorized)
				fmt.Fprintln(w, "access phrase required")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) apiGetState(w http.ResponseWriter, r *http.Request) {
	resp := stateResponse{Display: s.display.State()}
	if s.chooser != nil {
		v := s.chooser.Snapshot()
		resp.View = &v
	}
	if s.poser != nil {
		m, en := s.poser.Mode()
		resp.Pose = &poseState{Mode: m, Enabled: en}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.l.Warn("Error encoding state", "error", err)
	}
}

// apiTrigger queues a display trigger.  The outcome arrives on the
// event stream.
func (s *Server) apiTrigger(f func()) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.l.Debug("Display trigger", "path", r.URL.Path)
		f()
		w.WriteHeader(http.StatusAccepted)
	}
}

func (s *Server) apiSelectMap(w http.ResponseWriter, r *http.Request) {
	vals := struct{ MapID string }{}
	if err := json.NewDecoder(r.Body).Decode(&vals); err != nil || vals.MapID == "" {
		s.l.Warn("Bad map selection", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintln(w, "requests must name a MapID")
		return
	}

	if s.chooser != nil {
		err := s.chooser.Choose(vals.MapID)
		switch {
		case err == nil:
			w.WriteHeader(http.StatusAccepted)
			return
		case errors.Is(err, observer.ErrNotOffered):
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprintln(w, err)
			return
		case !errors.Is(err, observer.ErrNoChoicePending):
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprintln(w, err)
			return
		}
	}

	s.display.SelectMap(vals.MapID)
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) apiPlacePose(w http.ResponseWriter, r *http.Request) {
	if s.poser == nil {
		w.WriteHeader(http.StatusNotImplemented)
		return
	}

	p := posesetter.Pose{}
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintln(w, "could not parse pose")
		return
	}

	err := s.poser.Place(r.Context(), p)
	switch {
	case errors.Is(err, posesetter.ErrDisabled):
		w.WriteHeader(http.StatusConflict)
		fmt.Fprintln(w, err)
		return
	case err != nil:
		s.l.Warn("Could not place pose", "error", err)
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprintln(w, err)
		return
	}

	if s.poseES != nil {
		m, _ := s.poser.Mode()
		s.poseES.PublishPose(string(m), p.X, p.Y, p.Theta)
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) apiSetPoseMode(w http.ResponseWriter, r *http.Request) {
	if s.poser == nil {
		w.WriteHeader(http.StatusNotImplemented)
		return
	}

	vals := struct{ Mode posesetter.Mode }{}
	if err := json.NewDecoder(r.Body).Decode(&vals); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintln(w, "could not parse mode")
		return
	}
	if err := s.poser.SetMode(vals.Mode); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintln(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}
