// Package queryir is an abstract query representation for reading the op
// journal.
//
// A query names one document and filters its ops with predicates over op
// fields. Backends compile queries to their own language; querysql
// compiles them to parameterized SQLite.
//
//	[trace flags] → [Query IR] → [SQL backend]
//
// SUPPORTED FRAGMENT:
//   - Select(document, filter, limit) - ops of one document in seq order
//   - Predicates: Equals, After, And
//
// Excluded:
//   - OR predicates (run separate queries)
//   - Cross-document queries
//   - Aggregations (use store.GetDocumentState)
//
// SEALED INTERFACES:
//
// Query and Predicate are sealed interfaces using the marker method pattern.
// Only types in this package can implement them, so a backend's type switch
// over them is exhaustive:
//
//	switch p := pred.(type) {
//	case Equals:
//	    // field = ?
//	case After:
//	    // seq > ?
//	case And:
//	    // p1 AND p2 ...
//	}
package queryir
