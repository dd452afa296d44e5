package ir

import (
	"encoding/json"
	"fmt"
)

// OpKind names a recorded editing operation.
type OpKind string

const (
	OpCreateGate   OpKind = "create_gate"
	OpCreateInput  OpKind = "create_input"
	OpCreateOutput OpKind = "create_output"
	OpAnnotate     OpKind = "annotate"
	OpRemove       OpKind = "remove"
	OpToggle       OpKind = "toggle"
	OpPointerDown  OpKind = "pointer_down"
	OpPointerMove  OpKind = "pointer_move"
	OpPointerUp    OpKind = "pointer_up"
	OpAbandon      OpKind = "abandon"
)

var validOps = map[OpKind]bool{
	OpCreateGate:   true,
	OpCreateInput:  true,
	OpCreateOutput: true,
	OpAnnotate:     true,
	OpRemove:       true,
	OpToggle:       true,
	OpPointerDown:  true,
	OpPointerMove:  true,
	OpPointerUp:    true,
	OpAbandon:      true,
}

// Valid reports whether k is a known op kind.
func (k OpKind) Valid() bool {
	return validOps[k]
}

// HasPosition reports whether ops of this kind carry a surface position.
func (k OpKind) HasPosition() bool {
	switch k {
	case OpCreateGate, OpCreateInput, OpCreateOutput, OpAnnotate,
		OpPointerDown, OpPointerMove, OpPointerUp:
		return true
	}
	return false
}

// Op is one successfully applied editing operation. A session emits ops in
// application order; replaying the same ops against an empty session with
// the same catalog rebuilds the same document.
//
// Target is the entity the op acted on. For creation ops it is the identity
// the session allocated, which lets replay detect divergence.
type Op struct {
	Seq    int64   `json:"seq"`
	Kind   OpKind  `json:"kind"`
	Tag    string  `json:"tag,omitempty"`
	X      float64 `json:"x,omitempty"`
	Y      float64 `json:"y,omitempty"`
	Text   string  `json:"text,omitempty"`
	Style  string  `json:"style,omitempty"`
	Target ID      `json:"target,omitempty"`
}

// Payload returns the op fields other than Seq and Kind as a canonical
// object. Positions are always present for kinds that carry one.
func (o Op) Payload() map[string]any {
	p := map[string]any{}
	if o.Tag != "" {
		p["tag"] = o.Tag
	}
	if o.Kind.HasPosition() {
		p["x"] = o.X
		p["y"] = o.Y
	}
	if o.Text != "" {
		p["text"] = o.Text
	}
	if o.Style != "" {
		p["style"] = o.Style
	}
	if o.Target != NoID {
		p["target"] = int64(o.Target)
	}
	return p
}

// MarshalPayload returns the canonical JSON of Payload.
func (o Op) MarshalPayload() ([]byte, error) {
	return MarshalCanonical(o.Payload())
}

// DecodeOp rebuilds an op from its sequence number, kind and the JSON
// produced by MarshalPayload.
func DecodeOp(seq int64, kind string, payload []byte) (Op, error) {
	k := OpKind(kind)
	if !k.Valid() {
		return Op{}, fmt.Errorf("unknown op kind %q", kind)
	}
	var op Op
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &op); err != nil {
			return Op{}, fmt.Errorf("decode %s payload: %w", kind, err)
		}
	}
	op.Seq = seq
	op.Kind = k
	return op, nil
}
