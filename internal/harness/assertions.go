package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/connectlab/internal/ir"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}

// Evaluate checks every assertion against the current session and returns
// the failure messages.
func (h *Harness) Evaluate(assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		if err := h.evaluate(a); err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d: %v", i, err))
		}
	}
	return errs
}

func (h *Harness) evaluate(a Assertion) error {
	switch a.Type {
	case AssertValue:
		return h.assertValue(a)
	case AssertEntityCount:
		return h.assertEntityCount(a)
	case AssertConnectionCount:
		return h.assertConnectionCount(a)
	case AssertBound:
		return h.assertBound(a)
	case AssertStable:
		return h.assertStable(a)
	case AssertExists:
		return h.assertExists(a)
	default:
		return fmt.Errorf("unknown assertion type: %s", a.Type)
	}
}

// assertValue checks the computed value of a node.
func (h *Harness) assertValue(a Assertion) error {
	id, err := h.resolve(a.Target)
	if err != nil {
		return err
	}
	got, err := h.session.QueryValue(id)
	if err != nil {
		return err
	}
	if want := a.want(true); got != want {
		return &AssertionError{
			Type:     AssertValue,
			Expected: fmt.Sprintf("%s = %t", a.Target, want),
			Actual:   fmt.Sprintf("%s = %t", a.Target, got),
		}
	}
	return nil
}

// assertEntityCount checks the number of live entities of one kind, or of
// every kind when Kind is empty.
func (h *Harness) assertEntityCount(a Assertion) error {
	got := h.session.Len()
	label := "entities"
	if a.Kind != "" {
		kind, err := ir.ParseKind(a.Kind)
		if err != nil {
			return err
		}
		got = h.session.Count(kind)
		label = kind.String() + " entities"
	}
	if got != *a.Count {
		return &AssertionError{
			Type:     AssertEntityCount,
			Expected: fmt.Sprintf("%d %s", *a.Count, label),
			Actual:   fmt.Sprintf("%d %s", got, label),
		}
	}
	return nil
}

// assertConnectionCount checks the number of connections, in the whole
// document or attached to slot Target.
func (h *Harness) assertConnectionCount(a Assertion) error {
	got := h.session.Count(ir.KindConnection)
	where := "in document"
	if a.Target != "" {
		id, err := h.resolve(a.Target)
		if err != nil {
			return err
		}
		sl, err := h.session.Slot(id)
		if err != nil {
			return err
		}
		got = len(sl.Conns)
		where = "on " + a.Target
	}
	if got != *a.Count {
		return &AssertionError{
			Type:     AssertConnectionCount,
			Expected: fmt.Sprintf("%d connections %s", *a.Count, where),
			Actual:   fmt.Sprintf("%d connections %s", got, where),
		}
	}
	return nil
}

// assertBound checks whether a committed connection joins two slots, in
// either order.
func (h *Harness) assertBound(a Assertion) error {
	from, err := h.resolve(a.From)
	if err != nil {
		return err
	}
	to, err := h.resolve(a.To)
	if err != nil {
		return err
	}

	got := false
	for _, c := range h.session.Scene().Connections {
		if c.Bound && ((c.Start == from && c.End == to) || (c.Start == to && c.End == from)) {
			got = true
			break
		}
	}
	if want := a.want(true); got != want {
		return &AssertionError{
			Type:     AssertBound,
			Expected: fmt.Sprintf("%s -> %s bound = %t", a.From, a.To, want),
			Actual:   fmt.Sprintf("bound = %t", got),
		}
	}
	return nil
}

// assertStable checks whether the last propagation reached a fixed point.
func (h *Harness) assertStable(a Assertion) error {
	r := h.session.LastPropagation()
	if want := a.want(true); r.Settled != want {
		return &AssertionError{
			Type:     AssertStable,
			Expected: fmt.Sprintf("settled = %t", want),
			Actual:   fmt.Sprintf("settled = %t after %d/%d passes, unsettled %v", r.Settled, r.Passes, r.Budget, r.Unsettled),
		}
	}
	return nil
}

// assertExists checks whether an alias still names a live entity.
func (h *Harness) assertExists(a Assertion) error {
	got := false
	if id, err := h.resolve(a.Target); err == nil {
		_, err := h.session.Kind(id)
		got = err == nil
	}
	if want := a.want(true); got != want {
		return &AssertionError{
			Type:     AssertExists,
			Expected: fmt.Sprintf("%s exists = %t", a.Target, want),
			Actual:   fmt.Sprintf("exists = %t", got),
		}
	}
	return nil
}
