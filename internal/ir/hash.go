package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content hashes. The version suffix allows the
// snapshot shape to change without colliding with older hashes.
const (
	DomainSnapshot = "connectlab/snapshot/v1"
	DomainOp       = "connectlab/op/v1"
)

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// SnapshotHash hashes the canonical JSON of a document snapshot. Two
// sessions holding the same entities, bindings and signal values produce
// the same hash.
func SnapshotHash(snapshot map[string]any) (string, error) {
	canonical, err := MarshalCanonical(snapshot)
	if err != nil {
		return "", fmt.Errorf("SnapshotHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainSnapshot, canonical), nil
}

// OpHash hashes a recorded op including its sequence number.
func OpHash(op Op) (string, error) {
	p := op.Payload()
	p["seq"] = op.Seq
	p["kind"] = string(op.Kind)
	canonical, err := MarshalCanonical(p)
	if err != nil {
		return "", fmt.Errorf("OpHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainOp, canonical), nil
}
