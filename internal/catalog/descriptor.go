// Package catalog holds the immutable type descriptors for every placeable
// node: logic gates, input switches and output indicators.
//
// A descriptor fixes the node's size, its ordered slot template and, for
// gates, the boolean function computed from its ordered in values. The
// catalog has no fallback: looking up an unregistered tag is an error.
package catalog

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/connectlab/internal/geom"
	"github.com/roach88/connectlab/internal/ir"
)

// Tag names a node type, e.g. "AND" or "SWITCH". Tags are upper-case.
type Tag string

// ParseTag normalizes user input to a tag.
func ParseTag(s string) Tag {
	return Tag(strings.ToUpper(strings.TrimSpace(s)))
}

// Op computes a gate output from its in values, ordered as the slot template.
type Op func(in []bool) bool

// SlotTemplate describes one slot of a node type. Offset is relative to the
// top-left corner of the node's box.
type SlotTemplate struct {
	Name   string
	Offset geom.Point
	Dir    ir.Direction
}

// Descriptor is the immutable definition of a node type.
type Descriptor struct {
	Tag    Tag
	Kind   ir.Kind
	Width  float64
	Height float64

	slots []SlotTemplate
	op    Op
}

// NewDescriptor validates and builds a descriptor.
//
// Gates need at least one in slot, exactly one out slot and an op. Inputs
// have exactly one out slot, outputs exactly one in slot. Slot names are
// unique within a type.
func NewDescriptor(tag Tag, kind ir.Kind, width, height float64, slots []SlotTemplate, op Op) (Descriptor, error) {
	if tag == "" {
		return Descriptor{}, fmt.Errorf("descriptor: empty tag")
	}
	if tag != ParseTag(string(tag)) {
		return Descriptor{}, fmt.Errorf("descriptor %s: tag must be upper-case", tag)
	}
	if width <= 0 || height <= 0 {
		return Descriptor{}, fmt.Errorf("descriptor %s: size must be positive, got %gx%g", tag, width, height)
	}

	var ins, outs int
	seen := make(map[string]bool, len(slots))
	for i, s := range slots {
		if s.Name == "" {
			return Descriptor{}, fmt.Errorf("descriptor %s: slot %d has no name", tag, i)
		}
		if seen[s.Name] {
			return Descriptor{}, fmt.Errorf("descriptor %s: duplicate slot name %q", tag, s.Name)
		}
		seen[s.Name] = true
		switch s.Dir {
		case ir.DirIn:
			ins++
		case ir.DirOut:
			outs++
		default:
			return Descriptor{}, fmt.Errorf("descriptor %s: slot %q has no direction", tag, s.Name)
		}
	}

	switch kind {
	case ir.KindGate:
		if ins < 1 || outs != 1 {
			return Descriptor{}, fmt.Errorf("descriptor %s: gate needs at least one in slot and exactly one out slot, got %d in / %d out", tag, ins, outs)
		}
		if op == nil {
			return Descriptor{}, fmt.Errorf("descriptor %s: gate has no boolean function", tag)
		}
	case ir.KindInput:
		if ins != 0 || outs != 1 {
			return Descriptor{}, fmt.Errorf("descriptor %s: input needs exactly one out slot, got %d in / %d out", tag, ins, outs)
		}
	case ir.KindOutput:
		if ins != 1 || outs != 0 {
			return Descriptor{}, fmt.Errorf("descriptor %s: output needs exactly one in slot, got %d in / %d out", tag, ins, outs)
		}
	default:
		return Descriptor{}, fmt.Errorf("descriptor %s: kind %s cannot be placed from the catalog", tag, kind)
	}

	return Descriptor{
		Tag:    tag,
		Kind:   kind,
		Width:  width,
		Height: height,
		slots:  slices.Clone(slots),
		op:     op,
	}, nil
}

// Slots returns a copy of the ordered slot template.
func (d Descriptor) Slots() []SlotTemplate {
	return slices.Clone(d.slots)
}

// NumIn returns the number of in slots.
func (d Descriptor) NumIn() int {
	n := 0
	for _, s := range d.slots {
		if s.Dir == ir.DirIn {
			n++
		}
	}
	return n
}

// Op returns the boolean function. It is nil for inputs and outputs.
func (d Descriptor) Op() Op {
	return d.op
}

// Eval applies the gate function to in. Missing values read false and
// extra values are ignored. Non-gates pass their first value through.
func (d Descriptor) Eval(in []bool) bool {
	vals := make([]bool, d.NumIn())
	copy(vals, in)
	if d.op == nil {
		return len(vals) > 0 && vals[0]
	}
	return d.op(vals)
}

// Slot returns the template of the named slot.
func (d Descriptor) Slot(name string) (SlotTemplate, bool) {
	for _, s := range d.slots {
		if s.Name == name {
			return s, true
		}
	}
	return SlotTemplate{}, false
}

// TruthTable returns an op reading outputs[i], where bit k of i (counting
// from the most significant of n bits) is in value k.
func TruthTable(outputs []bool) Op {
	table := slices.Clone(outputs)
	return func(in []bool) bool {
		idx := 0
		for _, v := range in {
			idx <<= 1
			if v {
				idx |= 1
			}
		}
		if idx >= len(table) {
			return false
		}
		return table[idx]
	}
}
