package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// ID identifies a placed entity. IDs come from a single monotonic counter
// shared by every kind, so ordering IDs orders entities by creation.
type ID int64

// NoID is the zero identity. It never names a live entity.
const NoID ID = 0

func (id ID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// ParseID parses the decimal form produced by String.
func ParseID(s string) (ID, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return NoID, fmt.Errorf("invalid id %q: %w", s, err)
	}
	if n <= 0 {
		return NoID, fmt.Errorf("invalid id %q: must be positive", s)
	}
	return ID(n), nil
}

// Kind is the variant tag of a placed entity.
type Kind uint8

const (
	KindGate Kind = iota + 1
	KindInput
	KindOutput
	KindSlot
	KindConnection
	KindAnnotation
)

var kindNames = map[Kind]string{
	KindGate:       "gate",
	KindInput:      "input",
	KindOutput:     "output",
	KindSlot:       "slot",
	KindConnection: "connection",
	KindAnnotation: "annotation",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ParseKind parses the lower-case name produced by String.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown entity kind %q", s)
}

// IsNode reports whether entities of this kind own slots and take part in
// signal propagation.
func (k Kind) IsNode() bool {
	return k == KindGate || k == KindInput || k == KindOutput
}

// Direction is the fixed role of a slot: an in slot consumes a signal, an
// out slot produces one.
type Direction uint8

const (
	DirIn Direction = iota + 1
	DirOut
)

func (d Direction) String() string {
	switch d {
	case DirIn:
		return "in"
	case DirOut:
		return "out"
	default:
		return fmt.Sprintf("direction(%d)", uint8(d))
	}
}

// Opposite returns the other direction.
func (d Direction) Opposite() Direction {
	if d == DirIn {
		return DirOut
	}
	return DirIn
}

// ParseDirection parses "in" or "out".
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "in":
		return DirIn, nil
	case "out":
		return DirOut, nil
	default:
		return 0, fmt.Errorf("invalid slot direction %q: must be \"in\" or \"out\"", s)
	}
}
