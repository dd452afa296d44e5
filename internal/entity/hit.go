package entity

import (
	"slices"

	"github.com/roach88/connectlab/internal/geom"
	"github.com/roach88/connectlab/internal/ir"
)

// SlotShape returns the hit box around a slot position.
func (s *Store) SlotShape(pos geom.Point) geom.Box {
	return geom.Centered(pos, 2*s.slotRadius, 2*s.slotRadius)
}

func (s *Store) slotShapes() map[ir.ID]geom.Shapes {
	out := make(map[ir.ID]geom.Shapes, len(s.slots))
	for id, sl := range s.slots {
		out[id] = geom.Shapes{s.SlotShape(sl.Pos)}
	}
	return out
}

func (s *Store) movableShapes() map[ir.ID]geom.Shapes {
	out := make(map[ir.ID]geom.Shapes, len(s.nodes)+len(s.notes))
	for id, n := range s.nodes {
		out[id] = geom.Shapes{n.bounds}
	}
	for id, a := range s.notes {
		out[id] = geom.Shapes{a.Bounds}
	}
	return out
}

func (s *Store) connectionShapes() map[ir.ID]geom.Shapes {
	out := make(map[ir.ID]geom.Shapes, len(s.conns))
	for id, c := range s.conns {
		out[id] = c.Shapes
	}
	return out
}

// SlotsAt returns the slots whose hit box contains p, first created first.
func (s *Store) SlotsAt(p geom.Point) []ir.ID {
	return geom.Hits(p, s.slotShapes())
}

// MovablesAt returns the nodes and annotations containing p, first created
// first.
func (s *Store) MovablesAt(p geom.Point) []ir.ID {
	return geom.Hits(p, s.movableShapes())
}

// ConnectionsAt returns the connections whose geometry contains p.
func (s *Store) ConnectionsAt(p geom.Point) []ir.ID {
	return geom.Hits(p, s.connectionShapes())
}

// HitTest returns every entity of any kind whose shape contains p, in
// ascending identity order.
func (s *Store) HitTest(p geom.Point) []ir.ID {
	out := s.SlotsAt(p)
	out = append(out, s.MovablesAt(p)...)
	out = append(out, s.ConnectionsAt(p)...)
	slices.Sort(out)
	return out
}

// Within returns every node and annotation overlapping region.
func (s *Store) Within(region geom.Box) []ir.ID {
	return geom.Within(region, s.movableShapes())
}
