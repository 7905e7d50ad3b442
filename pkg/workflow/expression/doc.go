// Package expression provides condition evaluation for conditional steps.
//
// It uses the expr-lang/expr library to evaluate boolean expressions
// against the run's accumulated state. The evaluation context exposes the
// state map both under "state" and flattened at the top level, so both
// spellings work:
//
//	state["steps.check"].status == "success"
//	document_type == "nda"
//	amount > 1000 && currency == "USD"
//	has(parties, "Acme Corp")
//
// Supported:
//
//   - Comparisons: ==, !=, <, >, <=, >=
//   - Boolean logic: &&, ||, !
//   - Membership: "value" in array (built-in operator)
//   - Custom functions: has(array, element), includes(array, element),
//     length(collection)
//
// The evaluator caches compiled expressions for performance.
//
// Note: the expr library uses "contains" as a string operator (substring
// matching), so use "in" or "has()" for array membership checks.
package expression
