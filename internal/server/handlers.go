package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/roach88/connectlab/internal/catalog"
	"github.com/roach88/connectlab/internal/engine"
	"github.com/roach88/connectlab/internal/geom"
	"github.com/roach88/connectlab/internal/ir"
)

type nodeKind int

const (
	kindGate nodeKind = iota
	kindInput
	kindOutput
)

type createRequest struct {
	Tag string  `json:"tag"`
	X   float64 `json:"x"`
	Y   float64 `json:"y"`
}

type annotationRequest struct {
	Text  string  `json:"text"`
	Style string  `json:"style"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

type pointRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type keyRequest struct {
	Key string `json:"key"`
}

type idResponse struct {
	ID ir.ID `json:"id"`
}

type stateResponse struct {
	State     string `json:"state"`
	Origin    ir.ID  `json:"origin,omitempty"`
	Conn      ir.ID  `json:"conn,omitempty"`
	Target    ir.ID  `json:"target,omitempty"`
	Selected  ir.ID  `json:"selected,omitempty"`
	Created   ir.ID  `json:"created,omitempty"`
	Connected bool   `json:"connected,omitempty"`
}

type valueResponse struct {
	ID    ir.ID `json:"id"`
	Value bool  `json:"value"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) createNode(kind nodeKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createRequest
		if !s.decode(w, r, &req) {
			return
		}
		pos := geom.Pt(req.X, req.Y)
		tag := catalog.Tag(req.Tag)

		var id ir.ID
		err := s.loop.Call(r.Context(), func(sess *engine.Session) error {
			var err error
			switch kind {
			case kindInput:
				id, err = sess.CreateInput(tag, pos)
			case kindOutput:
				id, err = sess.CreateOutput(tag, pos)
			default:
				id, err = sess.CreateGate(tag, pos)
			}
			return err
		})
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, idResponse{ID: id})
	}
}

func (s *Server) createAnnotation(w http.ResponseWriter, r *http.Request) {
	var req annotationRequest
	if !s.decode(w, r, &req) {
		return
	}
	var id ir.ID
	err := s.loop.Call(r.Context(), func(sess *engine.Session) error {
		var err error
		id, err = sess.CreateAnnotation(req.Text, geom.Pt(req.X, req.Y), req.Style)
		return err
	})
	if err != nil {
		s.fail(w, badRequest(err))
		return
	}
	writeJSON(w, http.StatusCreated, idResponse{ID: id})
}

func (s *Server) remove(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	err := s.loop.Call(r.Context(), func(sess *engine.Session) error {
		return sess.Remove(id)
	})
	if err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// pointer submits a device event, then reads the protocol state back
// through a call queued behind it.
func (s *Server) pointer(w http.ResponseWriter, r *http.Request) {
	var typ engine.EventType
	switch chi.URLParam(r, "phase") {
	case "down":
		typ = engine.EventPointerDown
	case "move":
		typ = engine.EventPointerMove
	case "up":
		typ = engine.EventPointerUp
	default:
		http.Error(w, fmt.Sprintf("unknown pointer phase %q", chi.URLParam(r, "phase")), http.StatusNotFound)
		return
	}
	var req pointRequest
	if !s.decode(w, r, &req) {
		return
	}

	var before ir.ID
	err := s.loop.Call(r.Context(), func(sess *engine.Session) error {
		before = drawingConn(sess.State())
		return nil
	})
	if err != nil {
		s.fail(w, err)
		return
	}
	if !s.loop.Submit(engine.Event{Type: typ, Pos: geom.Pt(req.X, req.Y)}) {
		s.fail(w, engine.ErrLoopStopped)
		return
	}
	s.respondState(w, r, func(sess *engine.Session, resp *stateResponse) {
		if typ != engine.EventPointerUp || before == ir.NoID {
			return
		}
		if c, err := sess.Connection(before); err == nil && c.Bound() {
			resp.Connected = true
		}
	})
}

func (s *Server) key(w http.ResponseWriter, r *http.Request) {
	var req keyRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Key == "" {
		http.Error(w, "key is required", http.StatusBadRequest)
		return
	}

	var created ir.ID
	err := s.loop.Call(r.Context(), func(sess *engine.Session) error {
		before := sess.Len()
		id, err := sess.KeyPress(req.Key)
		if err == nil && sess.Len() > before {
			created = id
		}
		return err
	})
	if err != nil {
		s.fail(w, err)
		return
	}
	s.respondState(w, r, func(_ *engine.Session, resp *stateResponse) {
		resp.Created = created
	})
}

func (s *Server) respondState(w http.ResponseWriter, r *http.Request, extra func(*engine.Session, *stateResponse)) {
	var resp stateResponse
	err := s.loop.Call(r.Context(), func(sess *engine.Session) error {
		resp = describeState(sess.State())
		resp.Selected = sess.Selected()
		if extra != nil {
			extra(sess, &resp)
		}
		return nil
	})
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) toggle(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	var on bool
	err := s.loop.Call(r.Context(), func(sess *engine.Session) error {
		var err error
		on, err = sess.ToggleInput(id)
		return err
	})
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, valueResponse{ID: id, Value: on})
}

func (s *Server) value(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	var v bool
	err := s.loop.Call(r.Context(), func(sess *engine.Session) error {
		kind, err := sess.Kind(id)
		if err != nil {
			return err
		}
		if kind != ir.KindOutput {
			return ir.NewNotFound(id, "output")
		}
		v, err = sess.QueryValue(id)
		return err
	})
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, valueResponse{ID: id, Value: v})
}

func (s *Server) hit(w http.ResponseWriter, r *http.Request) {
	x, errX := strconv.ParseFloat(r.URL.Query().Get("x"), 64)
	y, errY := strconv.ParseFloat(r.URL.Query().Get("y"), 64)
	if err := errors.Join(errX, errY); err != nil {
		http.Error(w, "x and y must be numbers", http.StatusBadRequest)
		return
	}

	var ids []ir.ID
	err := s.loop.Call(r.Context(), func(sess *engine.Session) error {
		ids = sess.HitTest(geom.Pt(x, y))
		return nil
	})
	if err != nil {
		s.fail(w, err)
		return
	}
	if ids == nil {
		ids = []ir.ID{}
	}
	writeJSON(w, http.StatusOK, map[string][]ir.ID{"ids": ids})
}

func (s *Server) readScene(r *http.Request) (engine.Scene, error) {
	var sc engine.Scene
	err := s.loop.Call(r.Context(), func(sess *engine.Session) error {
		sc = sess.Scene()
		return nil
	})
	return sc, err
}

func (s *Server) scene(w http.ResponseWriter, r *http.Request) {
	sc, err := s.readScene(r)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSceneJSON(sc))
}

// render draws outside the loop; the scene is a copy.
func (s *Server) render(w http.ResponseWriter, r *http.Request) {
	sc, err := s.readScene(r)
	if err != nil {
		s.fail(w, err)
		return
	}
	var buf bytes.Buffer
	if err := s.renderer.Render(&buf, sc); err != nil {
		s.logger.Error("render failed", "error", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// =============================================================================
// Helpers
// =============================================================================

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		s.logger.Warn("invalid request body", "path", r.URL.Path, "error", err)
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return false
	}
	return true
}

func (s *Server) pathID(w http.ResponseWriter, r *http.Request) (ir.ID, bool) {
	id, err := ir.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return ir.NoID, false
	}
	return id, true
}

type requestError struct{ err error }

func (e requestError) Error() string { return e.err.Error() }
func (e requestError) Unwrap() error { return e.err }

func badRequest(err error) error {
	if err == nil {
		return nil
	}
	return requestError{err: err}
}

// fail maps an editor error to a status code.
func (s *Server) fail(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	var reqErr requestError
	switch {
	case ir.IsNotFound(err):
		status = http.StatusNotFound
	case ir.IsUnknownGateType(err), ir.IsInvalidBinding(err), errors.As(err, &reqErr):
		status = http.StatusBadRequest
	case errors.Is(err, engine.ErrLoopStopped):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func drawingConn(st engine.ConnState) ir.ID {
	switch st := st.(type) {
	case engine.Drawing:
		return st.Conn
	case engine.Candidate:
		return st.Conn
	}
	return ir.NoID
}

func describeState(st engine.ConnState) stateResponse {
	switch st := st.(type) {
	case engine.Drawing:
		return stateResponse{State: "drawing", Origin: st.Origin, Conn: st.Conn}
	case engine.Candidate:
		return stateResponse{State: "candidate", Origin: st.Origin, Conn: st.Conn, Target: st.Target}
	}
	return stateResponse{State: "idle"}
}
