// Package compiler turns CUE gate definitions into catalog descriptors.
//
// A definition file declares node types under the top-level "gate" field:
//
//	gate: MAJ3: {
//		kind:   "gate"
//		width:  88
//		height: 60
//		slots: [
//			{name: "A", dir: "in", x: 0, y: 15},
//			{name: "B", dir: "in", x: 0, y: 30},
//			{name: "C", dir: "in", x: 0, y: 45},
//			{name: "Q", dir: "out", x: 88, y: 30},
//		]
//		truth: [false, false, false, true, false, true, true, true]
//	}
//
// Truth tables are indexed with the first in slot as the most significant
// bit, matching catalog.TruthTable.
package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// GateDef is a parsed, not yet validated, gate definition.
type GateDef struct {
	Tag    string
	Kind   string
	Width  float64
	Height float64
	Slots  []SlotDef
	Truth  []bool

	Pos token.Pos
}

// SlotDef is one entry of a definition's slot list.
type SlotDef struct {
	Name string
	Dir  string
	X, Y float64
}

// CompileGate parses a CUE value into a GateDef.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value should be the gate struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`gate: MAJ3: { ... }`)
//	def, err := CompileGate(v.LookupPath(cue.ParsePath("gate.MAJ3")))
func CompileGate(v cue.Value) (*GateDef, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	def := &GateDef{Pos: v.Pos()}

	labels := v.Path().Selectors()
	if len(labels) > 0 {
		def.Tag = labels[len(labels)-1].String()
	}

	kind, err := requiredString(v, "kind")
	if err != nil {
		return nil, err
	}
	def.Kind = kind

	if def.Width, err = requiredNumber(v, "width"); err != nil {
		return nil, err
	}
	if def.Height, err = requiredNumber(v, "height"); err != nil {
		return nil, err
	}

	def.Slots, err = parseSlots(v)
	if err != nil {
		return nil, err
	}

	// Truth is optional here; Validate decides whether the kind needs one.
	truthVal := v.LookupPath(cue.ParsePath("truth"))
	if truthVal.Exists() {
		def.Truth, err = parseTruth(truthVal)
		if err != nil {
			return nil, err
		}
	}

	return def, nil
}

// parseSlots extracts the ordered slot list.
func parseSlots(v cue.Value) ([]SlotDef, error) {
	slotsVal := v.LookupPath(cue.ParsePath("slots"))
	if !slotsVal.Exists() {
		return nil, &CompileError{
			Field:   "slots",
			Message: "slots are required",
			Pos:     v.Pos(),
		}
	}

	iter, err := slotsVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var slots []SlotDef
	for iter.Next() {
		sv := iter.Value()
		var slot SlotDef
		if slot.Name, err = requiredString(sv, "name"); err != nil {
			return nil, err
		}
		if slot.Dir, err = requiredString(sv, "dir"); err != nil {
			return nil, err
		}
		if slot.X, err = requiredNumber(sv, "x"); err != nil {
			return nil, err
		}
		if slot.Y, err = requiredNumber(sv, "y"); err != nil {
			return nil, err
		}
		slots = append(slots, slot)
	}
	return slots, nil
}

// parseTruth reads a list of booleans. 0 and 1 are accepted as well.
func parseTruth(v cue.Value) ([]bool, error) {
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var out []bool
	for iter.Next() {
		ev := iter.Value()
		switch ev.IncompleteKind() {
		case cue.BoolKind:
			b, err := ev.Bool()
			if err != nil {
				return nil, formatCUEError(err)
			}
			out = append(out, b)
		case cue.IntKind:
			n, err := ev.Int64()
			if err != nil {
				return nil, formatCUEError(err)
			}
			if n != 0 && n != 1 {
				return nil, &CompileError{
					Field:   "truth",
					Message: fmt.Sprintf("truth entries must be bool, 0 or 1, got %d", n),
					Pos:     ev.Pos(),
				}
			}
			out = append(out, n == 1)
		default:
			return nil, &CompileError{
				Field:   "truth",
				Message: fmt.Sprintf("unsupported truth entry kind: %v", ev.IncompleteKind()),
				Pos:     ev.Pos(),
			}
		}
	}
	return out, nil
}

func requiredString(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", &CompileError{
			Field:   field,
			Message: field + " is required",
			Pos:     v.Pos(),
		}
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func requiredNumber(v cue.Value, field string) (float64, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return 0, &CompileError{
			Field:   field,
			Message: field + " is required",
			Pos:     v.Pos(),
		}
	}
	f, err := fv.Float64()
	if err != nil {
		return 0, formatCUEError(err)
	}
	return f, nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
