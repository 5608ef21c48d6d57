package state

// FlattenWithKeys exposes a State to generic structural-traversal engines:
// it returns the top-level (key, value) pairs sorted by key, alongside the
// same key sequence as reconstruction metadata. Values that are nested
// mappings come back as *State views so a traversal engine can recurse
// through them with the same handlers.
func FlattenWithKeys(s *State) ([]Pair, []Key) {
	keys := s.Keys()
	pairs := make([]Pair, len(keys))
	for i, key := range keys {
		value := s.mapping[key]
		if node, ok := value.(map[Key]any); ok {
			value = &State{mapping: node, emitter: s.emitter}
		}
		pairs[i] = Pair{Key: key, Value: value}
	}
	return pairs, keys
}

// Reconstruct builds a new State from the key sequence produced by
// FlattenWithKeys and a matching sequence of child values. Children must be
// supplied in the same order as the keys; a length mismatch is a
// construction error.
func Reconstruct(keys []Key, children []any) (*State, error) {
	if len(keys) != len(children) {
		return nil, constructionErrorf("reconstruct expects %d children, got %d", len(keys), len(children))
	}
	mapping := make(map[Key]any, len(keys))
	for i, key := range keys {
		if err := insertValue(mapping, key, children[i]); err != nil {
			return nil, err
		}
	}
	return &State{mapping: mapping}, nil
}

// TreeRegistry is implemented by external traversal engines that want to
// treat *State as a composite node they can map over structurally.
type TreeRegistry interface {
	RegisterNode(
		flattenWithKeys func(node any) (children []Pair, keys []Key, err error),
		reconstruct func(keys []Key, children []any) (any, error),
	)
}

// RegisterTreeNode registers the State flatten/reconstruct pair with r.
// The surrounding system calls this exactly once during initialization;
// nothing is registered as a load-time side effect.
func RegisterTreeNode(r TreeRegistry) {
	r.RegisterNode(
		func(node any) ([]Pair, []Key, error) {
			s, ok := node.(*State)
			if !ok {
				return nil, nil, constructionErrorf("tree node must be *State, got %T", node)
			}
			pairs, keys := FlattenWithKeys(s)
			return pairs, keys, nil
		},
		func(keys []Key, children []any) (any, error) {
			return Reconstruct(keys, children)
		},
	)
}
