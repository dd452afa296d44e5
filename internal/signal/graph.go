// Package signal maintains the boolean network of a circuit and propagates
// values through it.
//
// Vertices are nodes (gates, inputs, outputs) and their slots. An edge runs
// from an out slot to the in slot it drives; each in slot has at most one
// driver. The graph knows nothing about geometry or the entity store: it is
// told which slots belong to which node and which edges exist, and owns the
// computed value of every node and slot.
package signal

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/roach88/connectlab/internal/catalog"
	"github.com/roach88/connectlab/internal/ir"
)

type node struct {
	id     ir.ID
	kind   ir.Kind
	op     catalog.Op
	ins    []ir.ID
	outs   []ir.ID
	source bool
	value  bool
}

// Graph is the signal network of one document.
//
// Every mutation re-propagates before returning, so values read after a
// mutation are already settled (or held at their last stable value when a
// cycle does not settle). Graph is not safe for concurrent use.
type Graph struct {
	nodes map[ir.ID]*node
	owner map[ir.ID]ir.ID        // slot -> node
	dir   map[ir.ID]ir.Direction // slot -> direction
	pred  map[ir.ID]ir.ID        // in slot -> driving out slot
	succ  map[ir.ID][]ir.ID      // out slot -> driven in slots, ascending
	state map[ir.ID]bool         // slot -> current value

	maxPasses int
	logger    *slog.Logger
	last      Report
}

// Option configures a Graph.
type Option func(*Graph)

// WithLogger sets the logger used for unsettled propagation warnings.
func WithLogger(l *slog.Logger) Option {
	return func(g *Graph) {
		g.logger = l
	}
}

// WithMaxPasses caps propagation passes over a cyclic graph. Zero (the
// default) means one more than the number of nodes.
func WithMaxPasses(n int) Option {
	return func(g *Graph) {
		g.maxPasses = n
	}
}

// New creates an empty graph.
func New(opts ...Option) *Graph {
	g := &Graph{
		nodes:  make(map[ir.ID]*node),
		owner:  make(map[ir.ID]ir.ID),
		dir:    make(map[ir.ID]ir.Direction),
		pred:   make(map[ir.ID]ir.ID),
		succ:   make(map[ir.ID][]ir.ID),
		state:  make(map[ir.ID]bool),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// AddNode registers a node with its ordered in and out slots. Gates need an
// op; inputs start switched off.
func (g *Graph) AddNode(id ir.ID, kind ir.Kind, op catalog.Op, ins, outs []ir.ID) error {
	if !kind.IsNode() {
		return fmt.Errorf("add node %d: kind %s has no signal semantics", id, kind)
	}
	if kind == ir.KindGate && op == nil {
		return fmt.Errorf("add node %d: gate has no op", id)
	}
	if _, ok := g.nodes[id]; ok {
		return fmt.Errorf("add node %d: already present", id)
	}
	for _, s := range slices.Concat(ins, outs) {
		if _, ok := g.owner[s]; ok {
			return fmt.Errorf("add node %d: slot %d already registered", id, s)
		}
	}

	g.nodes[id] = &node{id: id, kind: kind, op: op, ins: slices.Clone(ins), outs: slices.Clone(outs)}
	for _, s := range ins {
		g.owner[s] = id
		g.dir[s] = ir.DirIn
		g.state[s] = false
	}
	for _, s := range outs {
		g.owner[s] = id
		g.dir[s] = ir.DirOut
		g.state[s] = false
	}
	g.settle()
	return nil
}

// RemoveNode drops a node, its slots and every edge touching them, then
// re-propagates so former downstream nodes see false.
func (g *Graph) RemoveNode(id ir.ID) error {
	n, ok := g.nodes[id]
	if !ok {
		return ir.NewNotFound(id, "node")
	}
	for _, in := range n.ins {
		if out, ok := g.pred[in]; ok {
			g.unlinkEdge(out, in)
		}
	}
	for _, out := range n.outs {
		for _, in := range slices.Clone(g.succ[out]) {
			g.unlinkEdge(out, in)
		}
	}
	for _, s := range slices.Concat(n.ins, n.outs) {
		delete(g.owner, s)
		delete(g.dir, s)
		delete(g.state, s)
		delete(g.succ, s)
	}
	delete(g.nodes, id)
	g.settle()
	return nil
}

// AddEdge connects out slot out to in slot in. The in slot must be free;
// callers detach a previous driver first.
func (g *Graph) AddEdge(out, in ir.ID) error {
	if _, ok := g.owner[out]; !ok {
		return ir.NewNotFound(out, "slot")
	}
	if _, ok := g.owner[in]; !ok {
		return ir.NewNotFound(in, "slot")
	}
	if g.dir[out] != ir.DirOut || g.dir[in] != ir.DirIn {
		return ir.NewInvalidBinding(fmt.Sprintf("edge must run out->in, got %s->%s", g.dir[out], g.dir[in]), out, in)
	}
	if driver, ok := g.pred[in]; ok {
		return ir.NewInvalidBinding(fmt.Sprintf("in slot already driven by slot %d", driver), out, in)
	}

	g.pred[in] = out
	succ := append(g.succ[out], in)
	slices.Sort(succ)
	g.succ[out] = succ
	g.settle()
	return nil
}

// RemoveEdge disconnects out from in and re-propagates both sides.
func (g *Graph) RemoveEdge(out, in ir.ID) error {
	if driver, ok := g.pred[in]; !ok || driver != out {
		return ir.NewNotFound(in, fmt.Sprintf("edge from slot %d", out))
	}
	g.unlinkEdge(out, in)
	g.settle()
	return nil
}

func (g *Graph) unlinkEdge(out, in ir.ID) {
	delete(g.pred, in)
	g.succ[out] = slices.DeleteFunc(g.succ[out], func(id ir.ID) bool { return id == in })
	if len(g.succ[out]) == 0 {
		delete(g.succ, out)
	}
}

// SetSource sets the toggle state of an input node.
func (g *Graph) SetSource(id ir.ID, v bool) error {
	n, ok := g.nodes[id]
	if !ok || n.kind != ir.KindInput {
		return ir.NewNotFound(id, "input")
	}
	n.source = v
	g.settle()
	return nil
}

// settle propagates after a mutation. An unsettled cycle is already logged
// and kept in Last, so the mutation itself still succeeds.
func (g *Graph) settle() {
	_, _ = g.Propagate()
}

// =============================================================================
// Queries
// =============================================================================

// Value returns the computed value of a node: the switch state of an input,
// the driven value of an output, the function result of a gate.
func (g *Graph) Value(id ir.ID) (bool, error) {
	n, ok := g.nodes[id]
	if !ok {
		return false, ir.NewNotFound(id, "node")
	}
	return n.value, nil
}

// SlotValue returns the value currently carried by a slot. Unconnected in
// slots read false.
func (g *Graph) SlotValue(slot ir.ID) (bool, error) {
	v, ok := g.state[slot]
	if !ok {
		return false, ir.NewNotFound(slot, "slot")
	}
	return v, nil
}

// Driver returns the out slot driving in, if any.
func (g *Graph) Driver(in ir.ID) (ir.ID, bool) {
	out, ok := g.pred[in]
	return out, ok
}

// Driven returns the in slots driven by out, ascending.
func (g *Graph) Driven(out ir.ID) []ir.ID {
	return slices.Clone(g.succ[out])
}

// HasSlot reports whether slot belongs to a node of the graph.
func (g *Graph) HasSlot(slot ir.ID) bool {
	_, ok := g.owner[slot]
	return ok
}

// HasEdge reports whether out drives in.
func (g *Graph) HasEdge(out, in ir.ID) bool {
	driver, ok := g.pred[in]
	return ok && driver == out
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Edges returns the number of edges.
func (g *Graph) Edges() int {
	return len(g.pred)
}

// Last returns the report of the most recent propagation.
func (g *Graph) Last() Report {
	return g.last
}
