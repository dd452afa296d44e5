package queryir

import (
	"fmt"

	"github.com/roach88/connectlab/internal/ir"
)

// ValidationResult lists the problems found in a query.
type ValidationResult struct {
	// Valid is true when Problems is empty.
	Valid bool

	// Problems describes every rule the query breaks.
	Problems []string
}

// Validate checks that a query names a document and that every predicate
// tests a known field with a value of the field's type.
//
// Validate is a pure function with no side effects.
func Validate(query Query) ValidationResult {
	v := &validator{problems: []string{}}
	v.validateQuery(query)

	return ValidationResult{
		Valid:    len(v.problems) == 0,
		Problems: v.problems,
	}
}

// validator accumulates problems during traversal.
type validator struct {
	problems []string
}

func (v *validator) addProblem(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) validateQuery(q Query) {
	switch query := q.(type) {
	case Select:
		v.validateSelect(query)
	case *Select:
		if query == nil {
			v.addProblem("nil query")
			return
		}
		v.validateSelect(*query)
	case nil:
		v.addProblem("nil query")
	default:
		v.addProblem("unknown query type: %T", q)
	}
}

func (v *validator) validateSelect(sel Select) {
	if sel.Document == "" {
		v.addProblem("select needs a document")
	}
	if sel.Limit < 0 {
		v.addProblem("negative limit %d", sel.Limit)
	}
	if sel.Filter != nil {
		v.validatePredicate(sel.Filter)
	}
}

func (v *validator) validatePredicate(p Predicate) {
	switch pred := p.(type) {
	case Equals:
		v.validateEquals(pred)
	case *Equals:
		v.validateEquals(*pred)
	case After:
		v.validateAfter(pred)
	case *After:
		v.validateAfter(*pred)
	case And:
		v.validateAnd(pred)
	case *And:
		v.validateAnd(*pred)
	case nil:
		v.addProblem("nil predicate")
	default:
		v.addProblem("unknown predicate type: %T", p)
	}
}

func (v *validator) validateEquals(eq Equals) {
	want, ok := fieldTypes[eq.Field]
	if !ok {
		v.addProblem("unknown field %q", eq.Field)
		return
	}

	valid := false
	switch val := eq.Value.(type) {
	case int64:
		valid = eq.Field == FieldSeq
	case ir.OpKind:
		valid = eq.Field == FieldKind
		if valid && !val.Valid() {
			v.addProblem("unknown op kind %q", val)
			return
		}
	case ir.ID:
		valid = eq.Field == FieldTarget
	case string:
		valid = eq.Field == FieldTag || eq.Field == FieldText || eq.Field == FieldStyle
	}
	if !valid {
		v.addProblem("field %q needs a %s value, got %T", eq.Field, want, eq.Value)
	}
}

func (v *validator) validateAfter(a After) {
	if a.Seq < 0 {
		v.addProblem("negative seq %d", a.Seq)
	}
}

func (v *validator) validateAnd(and And) {
	for _, sub := range and.Predicates {
		v.validatePredicate(sub)
	}
}
