package signal

import (
	"maps"
	"slices"

	"github.com/roach88/connectlab/internal/ir"
)

// Report describes one propagation.
type Report struct {
	// Passes is the number of evaluation passes run.
	Passes int

	// Budget is the pass cap that applied.
	Budget int

	// Cyclic is true when some node could not be topologically ordered.
	Cyclic bool

	// Settled is false when the budget ran out before a fixed point.
	Settled bool

	// Changed lists nodes whose value differs from before propagation.
	Changed []ir.ID

	// Unsettled lists nodes held at their last stable value.
	Unsettled []ir.ID
}

// passBudget caps evaluation passes over a cyclic graph.
//
// An acyclic graph is fully resolved by one pass in topological order, so
// the budget only matters for cycles. There a pass that changes nothing
// proves a fixed point; a cycle still changing after the budget is
// oscillating.
type passBudget struct {
	max     int
	current int
}

func (b *passBudget) next() bool {
	if b.current >= b.max {
		return false
	}
	b.current++
	return true
}

func (g *Graph) budget() int {
	if g.maxPasses > 0 {
		return g.maxPasses
	}
	return len(g.nodes) + 1
}

// Propagate recomputes every node value.
//
// Acyclic graphs resolve in a single topological pass. Cyclic graphs are
// re-evaluated until a pass changes nothing or the pass budget runs out. In
// the latter case every node that was still changing is put back to the
// value it held before this propagation, the slot values are re-derived,
// and a CycleBudgetExceeded error is returned alongside the report. The
// report is kept and available from Last.
func (g *Graph) Propagate() (Report, error) {
	order, cyclic := g.order()
	before := make(map[ir.ID]bool, len(g.nodes))
	for id, n := range g.nodes {
		before[id] = n.value
	}

	r := Report{Budget: g.budget(), Cyclic: cyclic, Settled: true}
	if !cyclic {
		g.pass(order)
		r.Passes = 1
	} else {
		b := &passBudget{max: r.Budget}
		var changed []ir.ID
		for {
			if !b.next() {
				r.Settled = false
				break
			}
			changed = g.pass(order)
			if len(changed) == 0 {
				break
			}
		}
		r.Passes = b.current
		if !r.Settled {
			r.Unsettled = changed
			for _, id := range changed {
				g.apply(g.nodes[id], before[id])
			}
			g.syncInputs()
		}
	}

	for _, id := range slices.Sorted(maps.Keys(g.nodes)) {
		if g.nodes[id].value != before[id] {
			r.Changed = append(r.Changed, id)
		}
	}
	g.last = r

	if !r.Settled {
		err := ir.NewCycleBudgetExceeded(r.Passes, r.Budget, r.Unsettled)
		g.logger.Warn("signal propagation did not settle",
			"passes", r.Passes,
			"budget", r.Budget,
			"unsettled", r.Unsettled,
			"error", err)
		return r, err
	}
	return r, nil
}

// pass evaluates nodes in order and returns the ones whose value changed.
func (g *Graph) pass(order []*node) []ir.ID {
	var changed []ir.ID
	for _, n := range order {
		if g.apply(n, g.eval(n)) {
			changed = append(changed, n.id)
		}
	}
	slices.Sort(changed)
	return changed
}

// eval reads n's in slots from their drivers and computes its output.
func (g *Graph) eval(n *node) bool {
	ins := g.readInputs(n)
	switch n.kind {
	case ir.KindInput:
		return n.source
	case ir.KindOutput:
		return len(ins) > 0 && ins[0]
	default:
		return n.op(ins)
	}
}

func (g *Graph) readInputs(n *node) []bool {
	ins := make([]bool, len(n.ins))
	for i, s := range n.ins {
		v := false
		if out, ok := g.pred[s]; ok {
			v = g.state[out]
		}
		g.state[s] = v
		ins[i] = v
	}
	return ins
}

// apply stores v as n's value and on its out slots.
func (g *Graph) apply(n *node, v bool) bool {
	changed := n.value != v
	n.value = v
	for _, s := range n.outs {
		g.state[s] = v
	}
	return changed
}

// syncInputs re-reads every in slot without re-evaluating nodes.
func (g *Graph) syncInputs() {
	for _, n := range g.nodes {
		g.readInputs(n)
	}
}

// order returns every node with the topologically sortable ones first
// (Kahn's algorithm, ties broken by ascending identity), followed by the
// rest in ascending identity. cyclic reports whether any node fell in the
// second group.
func (g *Graph) order() (order []*node, cyclic bool) {
	indeg := make(map[ir.ID]int, len(g.nodes))
	children := make(map[ir.ID][]ir.ID, len(g.nodes))
	for id, n := range g.nodes {
		parents := make(map[ir.ID]bool)
		for _, in := range n.ins {
			if out, ok := g.pred[in]; ok {
				parents[g.owner[out]] = true
			}
		}
		indeg[id] = len(parents)
		for p := range parents {
			children[p] = append(children[p], id)
		}
	}

	var ready []ir.ID
	for id, d := range indeg {
		if d == 0 {
			ready = append(ready, id)
		}
	}
	slices.Sort(ready)

	emitted := make(map[ir.ID]bool, len(g.nodes))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		emitted[id] = true
		order = append(order, g.nodes[id])
		for _, c := range children[id] {
			indeg[c]--
			if indeg[c] == 0 {
				i, _ := slices.BinarySearch(ready, c)
				ready = slices.Insert(ready, i, c)
			}
		}
	}

	if len(order) == len(g.nodes) {
		return order, false
	}
	for _, id := range slices.Sorted(maps.Keys(g.nodes)) {
		if !emitted[id] {
			order = append(order, g.nodes[id])
		}
	}
	return order, true
}
