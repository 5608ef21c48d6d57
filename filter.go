package state

// Filter decides whether a flattened (path, leaf) pair belongs to a bucket.
// Implementations must not mutate the leaf; the partition engine calls
// Match once per pair per partitioning pass.
type Filter interface {
	Match(path Path, leaf any) bool
}

// FilterCompiler turns expression strings into Filters. Implementations
// are provided for expr-lang, CEL and (behind the js_eval build tag) goja.
type FilterCompiler interface {
	Compile(expression string) (Filter, error)
}

// FilterFunc adapts a plain predicate to Filter.
type FilterFunc func(path Path, leaf any) bool

// Match implements Filter.
func (fn FilterFunc) Match(path Path, leaf any) bool {
	if fn == nil {
		return false
	}
	return fn(path, leaf)
}

type wildcardFilter struct{}

func (wildcardFilter) Match(Path, any) bool { return true }

// Wildcard matches every (path, leaf) pair unconditionally. It may only
// appear in the trailing positions of a filter list.
var Wildcard Filter = wildcardFilter{}

// IsWildcard reports whether f is the Wildcard sentinel.
func IsWildcard(f Filter) bool {
	_, ok := f.(wildcardFilter)
	return ok
}

// PathPrefix matches leaves whose path starts with the given keys.
func PathPrefix(keys ...Key) Filter {
	prefix := append(Path(nil), keys...)
	return FilterFunc(func(path Path, _ any) bool {
		return path.HasPrefix(prefix)
	})
}

// KeyAt matches leaves whose path holds key at the given zero-based index.
func KeyAt(index int, key Key) Filter {
	return FilterFunc(func(path Path, _ any) bool {
		return index >= 0 && index < len(path) && path[index] == key
	})
}

// PathContains matches leaves whose path includes key at any position.
func PathContains(key Key) Filter {
	return FilterFunc(func(path Path, _ any) bool {
		for _, k := range path {
			if k == key {
				return true
			}
		}
		return false
	})
}

// Not inverts f. Not(Wildcard) matches nothing and is an ordinary filter,
// not a sentinel.
func Not(f Filter) Filter {
	return FilterFunc(func(path Path, leaf any) bool {
		return f != nil && !f.Match(path, leaf)
	})
}

// Any matches when at least one of the filters matches.
func Any(filters ...Filter) Filter {
	return FilterFunc(func(path Path, leaf any) bool {
		for _, f := range filters {
			if f != nil && f.Match(path, leaf) {
				return true
			}
		}
		return false
	})
}

// All matches when every filter matches. All() with no arguments matches
// everything but, unlike Wildcard, carries no ordering restriction.
func All(filters ...Filter) Filter {
	return FilterFunc(func(path Path, leaf any) bool {
		for _, f := range filters {
			if f == nil || !f.Match(path, leaf) {
				return false
			}
		}
		return true
	})
}
