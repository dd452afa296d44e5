package ir

import (
	"errors"
	"fmt"
	"strconv"
)

// EditorError represents an error detected by the editor core.
//
// Editor errors include:
//   - Unknown gate type: a creation named a tag absent from the catalog
//   - Not found: an identity does not name a live entity of the expected kind
//   - Invalid binding: a connection would join two slots of the same direction
//   - Cycle budget exceeded: propagation did not settle within its pass budget
//
// EditorError includes structured fields for diagnostics.
type EditorError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// ID identifies the affected entity, if any.
	ID ID

	// Tag identifies the affected gate type, if any.
	Tag string

	// Details contains additional context.
	Details map[string]string
}

// ErrorCode categorizes editor errors.
type ErrorCode string

const (
	// ErrCodeUnknownGateType indicates a tag missing from the catalog.
	ErrCodeUnknownGateType ErrorCode = "UNKNOWN_GATE_TYPE"

	// ErrCodeNotFound indicates a stale or foreign identity.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodeInvalidBinding indicates a same-direction or otherwise
	// malformed connection.
	ErrCodeInvalidBinding ErrorCode = "INVALID_BINDING"

	// ErrCodeCycleBudgetExceeded indicates a cyclic graph that did not reach
	// a fixed point.
	ErrCodeCycleBudgetExceeded ErrorCode = "CYCLE_BUDGET_EXCEEDED"
)

// Error implements the error interface.
func (e *EditorError) Error() string {
	switch {
	case e.ID != NoID && e.Tag != "":
		return fmt.Sprintf("%s: %s (id=%d, tag=%s)", e.Code, e.Message, e.ID, e.Tag)
	case e.ID != NoID:
		return fmt.Sprintf("%s: %s (id=%d)", e.Code, e.Message, e.ID)
	case e.Tag != "":
		return fmt.Sprintf("%s: %s (tag=%s)", e.Code, e.Message, e.Tag)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func hasCode(err error, code ErrorCode) bool {
	var ee *EditorError
	if errors.As(err, &ee) {
		return ee.Code == code
	}
	return false
}

// IsUnknownGateType returns true if the error is an unknown gate type error.
// Uses errors.As to handle wrapped errors.
func IsUnknownGateType(err error) bool {
	return hasCode(err, ErrCodeUnknownGateType)
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return hasCode(err, ErrCodeNotFound)
}

// IsInvalidBinding returns true if the error is an invalid binding error.
func IsInvalidBinding(err error) bool {
	return hasCode(err, ErrCodeInvalidBinding)
}

// IsCycleBudgetExceeded returns true if the error reports an unsettled
// cyclic propagation.
func IsCycleBudgetExceeded(err error) bool {
	return hasCode(err, ErrCodeCycleBudgetExceeded)
}

// NewUnknownGateType creates an EditorError for a tag missing from the catalog.
func NewUnknownGateType(tag string) *EditorError {
	return &EditorError{
		Code:    ErrCodeUnknownGateType,
		Message: "gate type not in catalog",
		Tag:     tag,
	}
}

// NewNotFound creates an EditorError for an identity that does not name a
// live entity. want describes the expected kind, or is empty for any kind.
func NewNotFound(id ID, want string) *EditorError {
	msg := "no such entity"
	if want != "" {
		msg = "no such " + want
	}
	return &EditorError{
		Code:    ErrCodeNotFound,
		Message: msg,
		ID:      id,
	}
}

// NewInvalidBinding creates an EditorError for a connection between slots a
// and b that cannot be bound.
func NewInvalidBinding(reason string, a, b ID) *EditorError {
	return &EditorError{
		Code:    ErrCodeInvalidBinding,
		Message: reason,
		Details: map[string]string{
			"slot_a": a.String(),
			"slot_b": b.String(),
		},
	}
}

// NewCycleBudgetExceeded creates an EditorError for a propagation that did
// not settle after passes passes.
func NewCycleBudgetExceeded(passes, budget int, unsettled []ID) *EditorError {
	return &EditorError{
		Code:    ErrCodeCycleBudgetExceeded,
		Message: fmt.Sprintf("propagation did not settle (%d >= %d passes)", passes, budget),
		Details: map[string]string{
			"passes":    strconv.Itoa(passes),
			"budget":    strconv.Itoa(budget),
			"unsettled": strconv.Itoa(len(unsettled)),
		},
	}
}
