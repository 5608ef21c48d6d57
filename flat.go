package state

import (
	"iter"
	"sort"
)

// FlatState is an ordered mapping from Path to leaf. Iteration follows
// insertion order; Flatten inserts in depth-first, key-sorted order, which
// makes every operation built on a flattened view deterministic.
type FlatState struct {
	order  []string
	paths  map[string]Path
	values map[string]any
}

// NewFlatState returns an empty FlatState.
func NewFlatState() *FlatState {
	return &FlatState{
		paths:  map[string]Path{},
		values: map[string]any{},
	}
}

// Len returns the number of path entries.
func (f *FlatState) Len() int {
	if f == nil {
		return 0
	}
	return len(f.order)
}

// Has reports whether path is present.
func (f *FlatState) Has(path Path) bool {
	if f == nil {
		return false
	}
	_, ok := f.values[path.String()]
	return ok
}

// Get returns the leaf stored at path.
func (f *FlatState) Get(path Path) (any, bool) {
	if f == nil {
		return nil, false
	}
	value, ok := f.values[path.String()]
	return value, ok
}

// Set stores leaf at path. Existing entries keep their position; new
// entries append.
func (f *FlatState) Set(path Path, leaf any) {
	key := path.String()
	if _, ok := f.values[key]; !ok {
		f.order = append(f.order, key)
		f.paths[key] = append(Path(nil), path...)
	}
	f.values[key] = leaf
}

// Delete removes path, reporting whether it was present.
func (f *FlatState) Delete(path Path) bool {
	key := path.String()
	if _, ok := f.values[key]; !ok {
		return false
	}
	delete(f.values, key)
	delete(f.paths, key)
	for i, existing := range f.order {
		if existing == key {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
	return true
}

// Paths returns every path in iteration order.
func (f *FlatState) Paths() []Path {
	if f == nil {
		return nil
	}
	out := make([]Path, len(f.order))
	for i, key := range f.order {
		out[i] = f.paths[key]
	}
	return out
}

// All iterates entries in insertion order.
func (f *FlatState) All() iter.Seq2[Path, any] {
	return func(yield func(Path, any) bool) {
		if f == nil {
			return
		}
		for _, key := range f.order {
			if !yield(f.paths[key], f.values[key]) {
				return
			}
		}
	}
}

// Flatten converts the state into a FlatState with one entry per leaf,
// traversing depth-first with keys in sorted order. Intermediate nodes
// produce no entries; empty sub-mappings therefore vanish from the
// flattened form.
func (s *State) Flatten() *FlatState {
	flat := NewFlatState()
	flattenInto(flat, nil, s.mapping)
	return flat
}

func flattenInto(flat *FlatState, prefix Path, node map[Key]any) {
	keys := make([]Key, 0, len(node))
	for key := range node {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		value := node[key]
		if child, ok := value.(map[Key]any); ok {
			flattenInto(flat, prefix.Child(key), child)
			continue
		}
		flat.Set(prefix.Child(key), value)
	}
}

// Unflatten is the inverse of Flatten: it groups paths by shared prefixes
// and rebuilds the nested container. A path that is a strict prefix of
// another path in the same FlatState (a leaf acting as an ancestor) is a
// construction error; nothing is silently resolved.
func Unflatten(flat *FlatState) (*State, error) {
	root := map[Key]any{}
	for path, leaf := range flat.All() {
		if len(path) == 0 {
			return nil, constructionErrorf("cannot unflatten an empty path")
		}
		node := root
		for _, key := range path[:len(path)-1] {
			existing, ok := node[key]
			if !ok {
				child := map[Key]any{}
				node[key] = child
				node = child
				continue
			}
			child, ok := existing.(map[Key]any)
			if !ok {
				return nil, constructionErrorf("path %s descends through a leaf", path.String())
			}
			node = child
		}
		last := path[len(path)-1]
		if _, ok := node[last]; ok {
			return nil, constructionErrorf("path %s is a strict prefix of another path", path.String())
		}
		node[last] = leaf
	}
	return &State{mapping: root}, nil
}
