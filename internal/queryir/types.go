package queryir

import "github.com/roach88/connectlab/internal/ir"

// Query represents an abstract journal query.
//
// This is a sealed interface - only types in this package implement it.
type Query interface {
	queryNode() // Marker method - seals interface to this package
}

// Predicate represents a filter condition over ops.
//
// This is a sealed interface - only types in this package implement it.
type Predicate interface {
	predicateNode() // Marker method - seals interface to this package
}

// Field names an op field a predicate can test.
type Field string

const (
	FieldSeq    Field = "seq"
	FieldKind   Field = "kind"
	FieldTag    Field = "tag"
	FieldTarget Field = "target"
	FieldText   Field = "text"
	FieldStyle  Field = "style"
)

// fieldTypes maps every known field to the description of its value type.
var fieldTypes = map[Field]string{
	FieldSeq:    "int64",
	FieldKind:   "ir.OpKind",
	FieldTag:    "string",
	FieldTarget: "ir.ID",
	FieldText:   "string",
	FieldStyle:  "string",
}

// Select reads the ops of one document in seq order.
//
// Semantics:
//
//	SELECT op FROM journal(Document) WHERE Filter ORDER BY seq LIMIT Limit
//
// Example:
//
//	Select{
//	  Document: "6f1c...",
//	  Filter: And{Predicates: []Predicate{
//	    Equals{Field: FieldKind, Value: ir.OpToggle},
//	    Equals{Field: FieldTarget, Value: ir.ID(4)},
//	  }},
//	}
//
// returns every toggle of entity 4.
type Select struct {
	Document string
	Filter   Predicate // nil matches every op
	Limit    int       // 0 means no limit
}

func (Select) queryNode() {}

// Equals represents a field-equals-literal predicate.
//
// Value must match the field: int64 for seq, ir.OpKind for kind, ir.ID for
// target and string for tag, text and style.
type Equals struct {
	Field Field
	Value any
}

func (Equals) predicateNode() {}

// After matches ops with seq greater than Seq.
type After struct {
	Seq int64
}

func (After) predicateNode() {}

// And represents a conjunction of predicates (all must be true).
// An empty And matches every op.
type And struct {
	Predicates []Predicate // All must be true (empty = always true)
}

func (And) predicateNode() {}

// Where combines preds into one predicate, dropping nils. It returns nil
// when nothing is left and the single predicate when only one is.
func Where(preds ...Predicate) Predicate {
	var kept []Predicate
	for _, p := range preds {
		if p != nil {
			kept = append(kept, p)
		}
	}
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	}
	return And{Predicates: kept}
}

// KindIs matches ops of kind k.
func KindIs(k ir.OpKind) Predicate {
	return Equals{Field: FieldKind, Value: k}
}

// TargetIs matches ops acting on id.
func TargetIs(id ir.ID) Predicate {
	return Equals{Field: FieldTarget, Value: id}
}
