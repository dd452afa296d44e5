package engine

import (
	"io"

	"github.com/roach88/connectlab/internal/catalog"
	"github.com/roach88/connectlab/internal/geom"
	"github.com/roach88/connectlab/internal/ir"
)

// Renderer draws a scene. Implemented by render.PNG.
type Renderer interface {
	Render(w io.Writer, sc Scene) error
}

// GateView is a gate as the renderer sees it.
type GateView struct {
	ID     ir.ID
	Tag    catalog.Tag
	Bounds geom.Box
	Value  bool
}

// TerminalView is an input or output. On is the switch state of an input or
// the lit state of an output.
type TerminalView struct {
	ID     ir.ID
	Kind   ir.Kind
	Tag    catalog.Tag
	Bounds geom.Box
	On     bool
}

// SlotView is a slot and the value it carries.
type SlotView struct {
	ID     ir.ID
	Owner  ir.ID
	Name   string
	Dir    ir.Direction
	Pos    geom.Point
	Radius float64
	Value  bool
}

// ConnectionView is a connection. Bound is false only for the one being
// drawn.
type ConnectionView struct {
	ID    ir.ID
	Start ir.ID
	End   ir.ID
	From  geom.Point
	To    geom.Point
	Bound bool
	Value bool
}

// AnnotationView is free text.
type AnnotationView struct {
	ID     ir.ID
	Text   string
	Style  string
	Bounds geom.Box
}

// Scene is a read-only view of the whole document, every list in ascending
// identity order.
type Scene struct {
	Gates       []GateView
	Terminals   []TerminalView
	Slots       []SlotView
	Connections []ConnectionView
	Annotations []AnnotationView
	Selected    ir.ID
	Drawing     ir.ID // connection being drawn, or NoID
	Candidate   ir.ID // slot the drawn connection would bind to, or NoID
	Canvas      geom.Box
}

// Scene builds the read model of the current document.
func (s *Session) Scene() Scene {
	sc := Scene{Selected: s.selected, Canvas: s.store.Canvas()}
	switch st := s.state.(type) {
	case Drawing:
		sc.Drawing = st.Conn
	case Candidate:
		sc.Drawing = st.Conn
		sc.Candidate = st.Target
	}

	for _, id := range s.store.IDs(ir.KindGate) {
		g, _ := s.store.Gate(id)
		v, _ := s.graph.Value(id)
		sc.Gates = append(sc.Gates, GateView{ID: id, Tag: g.Tag, Bounds: g.Bounds, Value: v})
	}
	for _, id := range s.store.IDs(ir.KindInput) {
		in, _ := s.store.Input(id)
		sc.Terminals = append(sc.Terminals, TerminalView{ID: id, Kind: ir.KindInput, Tag: in.Tag, Bounds: in.Bounds, On: in.On})
	}
	for _, id := range s.store.IDs(ir.KindOutput) {
		out, _ := s.store.Output(id)
		v, _ := s.graph.Value(id)
		sc.Terminals = append(sc.Terminals, TerminalView{ID: id, Kind: ir.KindOutput, Tag: out.Tag, Bounds: out.Bounds, On: v})
	}
	for _, id := range s.store.IDs(ir.KindSlot) {
		sl, _ := s.store.Slot(id)
		v, _ := s.graph.SlotValue(id)
		sc.Slots = append(sc.Slots, SlotView{
			ID: id, Owner: sl.Owner, Name: sl.Name, Dir: sl.Dir,
			Pos: sl.Pos, Radius: s.store.SlotRadius(), Value: v,
		})
	}
	for _, id := range s.store.IDs(ir.KindConnection) {
		c, _ := s.store.Connection(id)
		v, _ := s.graph.SlotValue(c.Start.Slot)
		sc.Connections = append(sc.Connections, ConnectionView{
			ID: id, Start: c.Start.Slot, End: c.End.Slot,
			From: c.Start.Pos, To: c.End.Pos,
			Bound: c.Bound(), Value: c.Bound() && v,
		})
	}
	for _, id := range s.store.IDs(ir.KindAnnotation) {
		a, _ := s.store.Annotation(id)
		sc.Annotations = append(sc.Annotations, AnnotationView{ID: id, Text: a.Text, Style: a.Style, Bounds: a.Bounds})
	}
	return sc
}

// Snapshot returns the document as a canonical object: every entity with
// its binding and computed values, but no interaction state. Two sessions
// holding the same document produce equal snapshots.
func (s *Session) Snapshot() map[string]any {
	sc := s.Scene()

	gates := make([]any, 0, len(sc.Gates))
	for _, g := range sc.Gates {
		gates = append(gates, map[string]any{
			"id": g.ID, "tag": string(g.Tag),
			"x": g.Bounds.Pos.X, "y": g.Bounds.Pos.Y, "value": g.Value,
		})
	}
	terminals := make([]any, 0, len(sc.Terminals))
	for _, t := range sc.Terminals {
		terminals = append(terminals, map[string]any{
			"id": t.ID, "kind": t.Kind.String(), "tag": string(t.Tag),
			"x": t.Bounds.Pos.X, "y": t.Bounds.Pos.Y, "on": t.On,
		})
	}
	conns := make([]any, 0, len(sc.Connections))
	for _, c := range sc.Connections {
		if !c.Bound {
			continue
		}
		conns = append(conns, map[string]any{
			"id": c.ID, "start": c.Start, "end": c.End, "value": c.Value,
		})
	}
	notes := make([]any, 0, len(sc.Annotations))
	for _, a := range sc.Annotations {
		notes = append(notes, map[string]any{
			"id": a.ID, "text": a.Text, "style": a.Style,
			"x": a.Bounds.Pos.X, "y": a.Bounds.Pos.Y,
		})
	}
	return map[string]any{
		"gates":       gates,
		"terminals":   terminals,
		"connections": conns,
		"annotations": notes,
		"last_id":     s.store.LastID(),
	}
}

// SnapshotHash returns the content hash of Snapshot.
func (s *Session) SnapshotHash() (string, error) {
	return ir.SnapshotHash(s.Snapshot())
}
