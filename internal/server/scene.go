package server

import (
	"github.com/roach88/connectlab/internal/engine"
	"github.com/roach88/connectlab/internal/geom"
	"github.com/roach88/connectlab/internal/ir"
)

type boxJSON struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

type nodeJSON struct {
	ID     ir.ID   `json:"id"`
	Kind   string  `json:"kind"`
	Tag    string  `json:"tag"`
	Bounds boxJSON `json:"bounds"`
	Value  bool    `json:"value"`
}

type slotJSON struct {
	ID    ir.ID   `json:"id"`
	Owner ir.ID   `json:"owner"`
	Name  string  `json:"name"`
	Dir   string  `json:"dir"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Value bool    `json:"value"`
}

type connectionJSON struct {
	ID    ir.ID      `json:"id"`
	Start ir.ID      `json:"start"`
	End   ir.ID      `json:"end,omitempty"`
	From  [2]float64 `json:"from"`
	To    [2]float64 `json:"to"`
	Bound bool       `json:"bound"`
	Value bool       `json:"value"`
}

type annotationJSON struct {
	ID     ir.ID   `json:"id"`
	Text   string  `json:"text"`
	Style  string  `json:"style,omitempty"`
	Bounds boxJSON `json:"bounds"`
}

type sceneJSON struct {
	Nodes       []nodeJSON       `json:"nodes"`
	Slots       []slotJSON       `json:"slots"`
	Connections []connectionJSON `json:"connections"`
	Annotations []annotationJSON `json:"annotations"`
	Selected    ir.ID            `json:"selected,omitempty"`
	Drawing     ir.ID            `json:"drawing,omitempty"`
	Candidate   ir.ID            `json:"candidate,omitempty"`
}

func box(b geom.Box) boxJSON {
	return boxJSON{X: b.Pos.X, Y: b.Pos.Y, W: b.W, H: b.H}
}

// toSceneJSON flattens gates and terminals into one node list. Lists are
// never null.
func toSceneJSON(sc engine.Scene) sceneJSON {
	out := sceneJSON{
		Nodes:       make([]nodeJSON, 0, len(sc.Gates)+len(sc.Terminals)),
		Slots:       make([]slotJSON, 0, len(sc.Slots)),
		Connections: make([]connectionJSON, 0, len(sc.Connections)),
		Annotations: make([]annotationJSON, 0, len(sc.Annotations)),
		Selected:    sc.Selected,
		Drawing:     sc.Drawing,
		Candidate:   sc.Candidate,
	}
	for _, g := range sc.Gates {
		out.Nodes = append(out.Nodes, nodeJSON{
			ID: g.ID, Kind: ir.KindGate.String(), Tag: string(g.Tag), Bounds: box(g.Bounds), Value: g.Value,
		})
	}
	for _, t := range sc.Terminals {
		out.Nodes = append(out.Nodes, nodeJSON{
			ID: t.ID, Kind: t.Kind.String(), Tag: string(t.Tag), Bounds: box(t.Bounds), Value: t.On,
		})
	}
	for _, s := range sc.Slots {
		out.Slots = append(out.Slots, slotJSON{
			ID: s.ID, Owner: s.Owner, Name: s.Name, Dir: s.Dir.String(),
			X: s.Pos.X, Y: s.Pos.Y, Value: s.Value,
		})
	}
	for _, c := range sc.Connections {
		out.Connections = append(out.Connections, connectionJSON{
			ID: c.ID, Start: c.Start, End: c.End,
			From:  [2]float64{c.From.X, c.From.Y},
			To:    [2]float64{c.To.X, c.To.Y},
			Bound: c.Bound, Value: c.Value,
		})
	}
	for _, a := range sc.Annotations {
		out.Annotations = append(out.Annotations, annotationJSON{
			ID: a.ID, Text: a.Text, Style: a.Style, Bounds: box(a.Bounds),
		})
	}
	return out
}
