package state

// Merge combines states via flattened overlay: every operand is flattened
// in argument order and later operands win on path collisions, then the
// combined flat view is rebuilt into a single state. A lone operand comes
// back as a fresh wrapper around the same underlying mapping.
//
// Merging states where one operand holds a leaf at a path another operand
// treats as a subtree is a construction error.
func Merge(states ...*State) (*State, error) {
	if len(states) == 0 {
		return nil, constructionErrorf("merge requires at least one state")
	}
	if len(states) == 1 {
		if states[0] == nil {
			return Empty(), nil
		}
		return &State{mapping: states[0].mapping, emitter: states[0].emitter}, nil
	}

	combined := NewFlatState()
	for _, s := range states {
		if s == nil {
			continue
		}
		for path, leaf := range s.Flatten().All() {
			combined.Set(path, leaf)
		}
	}
	return Unflatten(combined)
}

// Union returns a when b is empty, otherwise Merge(a, b): entries of b
// override entries of a at colliding paths.
func Union(a, b *State) (*State, error) {
	if b.IsEmpty() {
		return a, nil
	}
	return Merge(a, b)
}

// Difference returns the entries of a whose paths are absent from b. Only
// path membership matters; the leaf values stored in b are irrelevant.
// When b is empty, a is returned unchanged.
func Difference(a, b *State) *State {
	if b.IsEmpty() {
		return a
	}
	bFlat := b.Flatten()
	diff := NewFlatState()
	for path, leaf := range a.Flatten().All() {
		if bFlat.Has(path) {
			continue
		}
		diff.Set(path, leaf)
	}
	// A subset of a well-formed flatten cannot conflict.
	out, err := Unflatten(diff)
	if err != nil {
		panic(err)
	}
	return out
}
