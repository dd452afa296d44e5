package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/connectlab/internal/catalog"
	"github.com/roach88/connectlab/internal/geom"
	"github.com/roach88/connectlab/internal/ir"
)

// Validation error codes (E100-E199)
const (
	ErrTagInvalid      = "E101" // empty or not upper-case
	ErrKindInvalid     = "E102" // kind is not gate, input or output
	ErrSizeInvalid     = "E103" // width or height not positive
	ErrSlotInvalid     = "E104" // empty slot name or bad direction
	ErrDuplicateName   = "E105" // duplicate slot name
	ErrSlotOutside     = "E106" // slot offset outside the box
	ErrSlotCount       = "E110" // wrong in/out count for the kind
	ErrTruthLength     = "E111" // truth table is not 2^ins long
	ErrTruthNotAllowed = "E112" // truth table on an input or output
	ErrTagConflict     = "E120" // tag already registered
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// maxIns caps truth tables at 2^12 entries.
const maxIns = 12

// Validate checks a definition against the node rules.
// Returns all errors found (does not fail-fast).
func Validate(def *GateDef) []ValidationError {
	var errs []ValidationError
	line := 0
	if def.Pos.IsValid() {
		line = def.Pos.Line()
	}
	add := func(field, code, format string, args ...any) {
		errs = append(errs, ValidationError{
			Field:   field,
			Message: fmt.Sprintf(format, args...),
			Code:    code,
			Line:    line,
		})
	}

	if strings.TrimSpace(def.Tag) == "" {
		add("tag", ErrTagInvalid, "tag is required")
	} else if catalog.ParseTag(def.Tag) != catalog.Tag(def.Tag) {
		add("tag", ErrTagInvalid, "tag %q must be upper-case without surrounding space", def.Tag)
	}

	kind, err := ir.ParseKind(def.Kind)
	if err != nil || !kind.IsNode() {
		add("kind", ErrKindInvalid, "invalid kind %q, must be \"gate\", \"input\" or \"output\"", def.Kind)
	}

	if def.Width <= 0 || def.Height <= 0 {
		add("size", ErrSizeInvalid, "width and height must be positive, got %gx%g", def.Width, def.Height)
	}

	var ins, outs int
	seen := make(map[string]bool, len(def.Slots))
	for i, s := range def.Slots {
		field := fmt.Sprintf("slots[%d]", i)
		if strings.TrimSpace(s.Name) == "" {
			add(field+".name", ErrSlotInvalid, "slot name is required")
		} else if seen[s.Name] {
			add(field+".name", ErrDuplicateName, "duplicate slot name: %q", s.Name)
		}
		seen[s.Name] = true

		switch dir, err := ir.ParseDirection(s.Dir); {
		case err != nil:
			add(field+".dir", ErrSlotInvalid, "invalid direction %q, must be \"in\" or \"out\"", s.Dir)
		case dir == ir.DirIn:
			ins++
		default:
			outs++
		}

		if def.Width > 0 && def.Height > 0 &&
			!geom.NewBox(geom.Pt(0, 0), def.Width, def.Height).Contains(geom.Pt(s.X, s.Y)) {
			add(field, ErrSlotOutside, "slot %q at (%g,%g) lies outside the %gx%g box", s.Name, s.X, s.Y, def.Width, def.Height)
		}
	}

	switch kind {
	case ir.KindGate:
		if ins < 1 || outs != 1 {
			add("slots", ErrSlotCount, "gate needs at least one in slot and exactly one out slot, got %d in / %d out", ins, outs)
		}
		if ins > maxIns {
			add("slots", ErrSlotCount, "gate has %d in slots, at most %d are supported", ins, maxIns)
		} else if ins >= 1 && len(def.Truth) != 1<<ins {
			add("truth", ErrTruthLength, "truth table needs %d entries for %d inputs, got %d", 1<<ins, ins, len(def.Truth))
		}
	case ir.KindInput:
		if ins != 0 || outs != 1 {
			add("slots", ErrSlotCount, "input needs exactly one out slot, got %d in / %d out", ins, outs)
		}
	case ir.KindOutput:
		if ins != 1 || outs != 0 {
			add("slots", ErrSlotCount, "output needs exactly one in slot, got %d in / %d out", ins, outs)
		}
	}
	if (kind == ir.KindInput || kind == ir.KindOutput) && len(def.Truth) > 0 {
		add("truth", ErrTruthNotAllowed, "%s types have no truth table", kind)
	}

	return errs
}
