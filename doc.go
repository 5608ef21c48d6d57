// Package state implements a hierarchical, path-addressable container for
// opaque leaf values, plus the structural algebra used to select, reorganize,
// and recombine those leaves without ever inspecting them.
//
// The core pieces:
//   - State: a recursive key -> (sub-state | leaf) mapping. Indexing into a
//     nested mapping yields a live view sharing storage with the parent.
//   - Flatten/Unflatten: an inverse pair converting between the nested form
//     and a FlatState keyed by paths, in deterministic key-sorted order.
//   - Split/Filter: ordered, first-match partitioning of leaves by
//     caller-supplied predicates, with a Wildcard sentinel matching
//     everything.
//   - Merge/Union/Difference: multi-operand combination via flatten-overlay
//     semantics where later operands win on path collisions.
//
// Filters are plain predicates over (Path, leaf). Expression-backed filter
// compilers are provided for expr-lang (NewExprFilterCompiler), CEL
// (NewCELFilterCompiler) and, behind the js_eval build tag, goja
// (NewJSFilterCompiler), so call sites can ship filter rules as strings.
//
// All operations except Set and Delete are non-destructive: they read their
// operands and return new containers. There is no internal locking; callers
// sharing a State (or any view of it) across goroutines must serialize
// mutating access externally.
package state
