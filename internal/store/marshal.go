package store

import (
	"fmt"

	"github.com/roach88/connectlab/internal/ir"
)

// opRow is the stored form of one op.
type opRow struct {
	seq     int64
	kind    string
	payload string
	hash    string
}

// encodeOp converts an op to its stored form. The payload is canonical JSON
// so identical ops always store identical bytes.
func encodeOp(op ir.Op) (opRow, error) {
	if !op.Kind.Valid() {
		return opRow{}, fmt.Errorf("encode op %d: unknown kind %q", op.Seq, op.Kind)
	}
	if op.Seq <= 0 {
		return opRow{}, fmt.Errorf("encode op: seq must be positive, got %d", op.Seq)
	}
	payload, err := op.MarshalPayload()
	if err != nil {
		return opRow{}, fmt.Errorf("encode op %d: %w", op.Seq, err)
	}
	hash, err := ir.OpHash(op)
	if err != nil {
		return opRow{}, fmt.Errorf("encode op %d: %w", op.Seq, err)
	}
	return opRow{seq: op.Seq, kind: string(op.Kind), payload: string(payload), hash: hash}, nil
}

// decodeOp rebuilds an op from its stored form.
func decodeOp(r opRow) (ir.Op, error) {
	op, err := ir.DecodeOp(r.seq, r.kind, []byte(r.payload))
	if err != nil {
		return ir.Op{}, fmt.Errorf("decode op %d: %w", r.seq, err)
	}
	return op, nil
}
