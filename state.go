package state

import (
	"context"
	"iter"
	"reflect"
	"sort"

	"github.com/goliatone/go-state/internal/nestmap"
	"github.com/goliatone/go-state/pkg/observe"
)

// Leaf is the capability marker for stored values that must always be
// treated as leaves, even when their underlying type is map-like. The core
// never inspects leaf content beyond this check.
type Leaf interface {
	StateLeaf()
}

// IsLeaf classifies v as a leaf or a nested mapping node. Values
// implementing Leaf are always leaves; *State and raw map[Key]any values
// are nodes; everything else is a leaf.
func IsLeaf(v any) bool {
	if _, ok := v.(Leaf); ok {
		return true
	}
	switch v.(type) {
	case *State, map[Key]any:
		return false
	}
	return true
}

// Pair is one key/value entry of a State.
type Pair struct {
	Key   Key
	Value any
}

// State is a recursive mapping from keys to sub-states or opaque leaves.
// Indexing into a nested mapping via Get yields a view sharing storage with
// the parent: mutations through either are visible to both.
type State struct {
	mapping map[Key]any
	emitter *observe.Emitter
}

// ContainerOption configures State construction.
type ContainerOption func(*containerConfig)

type containerConfig struct {
	noCopy  bool
	emitter *observe.Emitter
}

// WithoutCopy attaches the input mapping by reference instead of taking a
// shallow copy. The input must already be a raw map[Key]any; anything else
// is a construction error.
func WithoutCopy() ContainerOption {
	return func(cfg *containerConfig) {
		cfg.noCopy = true
	}
}

// WithObserver wires a mutation-event emitter into the container. Views
// created through Get inherit the emitter. Hook errors are discarded.
func WithObserver(emitter *observe.Emitter) ContainerOption {
	return func(cfg *containerConfig) {
		cfg.emitter = emitter
	}
}

// New constructs a State from mapping, which may be a raw map[Key]any,
// another *State, a []Pair, or an iter.Seq2[Key, any]. By default the outer
// map is shallow-copied; nested sub-mappings and leaves are shared with the
// input. Maps keyed by integers (at any depth) are rebuilt with their keys
// normalized to decimal strings.
func New(mapping any, opts ...ContainerOption) (*State, error) {
	cfg := containerConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	if cfg.noCopy {
		raw, ok := mapping.(map[Key]any)
		if !ok {
			return nil, constructionErrorf("no-copy construction requires a raw map[string]any, got %T", mapping)
		}
		return &State{mapping: raw, emitter: cfg.emitter}, nil
	}

	raw, err := buildMapping(mapping)
	if err != nil {
		return nil, err
	}
	return &State{mapping: raw, emitter: cfg.emitter}, nil
}

// MustNew is New for literals in tests and examples; it panics on error.
func MustNew(mapping any, opts ...ContainerOption) *State {
	s, err := New(mapping, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

// Empty returns a State with no entries.
func Empty() *State {
	return &State{mapping: map[Key]any{}}
}

func buildMapping(mapping any) (map[Key]any, error) {
	switch src := mapping.(type) {
	case nil:
		return map[Key]any{}, nil
	case *State:
		if src == nil {
			return map[Key]any{}, nil
		}
		return copyOuter(src.mapping), nil
	case map[Key]any:
		normalized, _, err := nestmap.Node(src)
		if err != nil {
			return nil, &ConstructionError{Reason: err.Error()}
		}
		return copyOuter(normalized), nil
	case []Pair:
		out := make(map[Key]any, len(src))
		for _, pair := range src {
			if err := insertValue(out, pair.Key, pair.Value); err != nil {
				return nil, err
			}
		}
		return out, nil
	case iter.Seq2[Key, any]:
		out := map[Key]any{}
		for key, value := range src {
			if err := insertValue(out, key, value); err != nil {
				return nil, err
			}
		}
		return out, nil
	}

	normalized, ok, err := nestmap.Node(mapping)
	if err != nil {
		return nil, &ConstructionError{Reason: err.Error()}
	}
	if !ok {
		return nil, constructionErrorf("cannot construct state from %T", mapping)
	}
	return normalized, nil
}

func insertValue(dst map[Key]any, key Key, value any) error {
	if sub, ok := value.(*State); ok {
		dst[key] = sub.mapping
		return nil
	}
	node, ok, err := nestmap.Node(value)
	if err != nil {
		return &ConstructionError{Reason: err.Error()}
	}
	if ok {
		dst[key] = node
		return nil
	}
	dst[key] = value
	return nil
}

func copyOuter(src map[Key]any) map[Key]any {
	out := make(map[Key]any, len(src))
	for key, value := range src {
		out[key] = value
	}
	return out
}

// Has reports whether key is present.
func (s *State) Has(key Key) bool {
	_, ok := s.mapping[key]
	return ok
}

// Get returns the value stored at key. When the stored value is a nested
// mapping the result is a *State view sharing that mapping's storage; no
// copy is made. Absent keys yield a *LookupError.
func (s *State) Get(key Key) (any, error) {
	value, ok := s.mapping[key]
	if !ok {
		return nil, &LookupError{Key: key}
	}
	if node, ok := value.(map[Key]any); ok {
		return &State{mapping: node, emitter: s.emitter}, nil
	}
	return value, nil
}

// MustGet is Get for call sites that treat absence as a bug.
func (s *State) MustGet(key Key) any {
	value, err := s.Get(key)
	if err != nil {
		panic(err)
	}
	return value
}

// Set stores value at key, overwriting any existing entry. A *State value
// is unwrapped and its underlying mapping attached by reference, which
// lets independently built sub-states be grafted in as subtrees. Every
// other value, including raw maps, is stored as given.
func (s *State) Set(key Key, value any) {
	if sub, ok := value.(*State); ok {
		s.mapping[key] = sub.mapping
	} else {
		s.mapping[key] = value
	}
	s.emit(observe.OpSet, key)
}

// Delete removes the entry at key; absent keys yield a *LookupError.
func (s *State) Delete(key Key) error {
	if _, ok := s.mapping[key]; !ok {
		return &LookupError{Key: key}
	}
	delete(s.mapping, key)
	s.emit(observe.OpDelete, key)
	return nil
}

// Keys returns the top-level keys in sorted order.
func (s *State) Keys() []Key {
	keys := make([]Key, 0, len(s.mapping))
	for key := range s.mapping {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of top-level entries.
func (s *State) Len() int {
	return len(s.mapping)
}

// IsEmpty reports whether the state holds no entries.
func (s *State) IsEmpty() bool {
	return s == nil || len(s.mapping) == 0
}

// At descends through keys and returns the value at the end of the path.
// It distinguishes a missing key from an attempt to descend through a leaf
// in the returned *LookupError.
func (s *State) At(keys ...Key) (any, error) {
	current := any(s)
	for i, key := range keys {
		node, ok := current.(*State)
		if !ok {
			return nil, &LookupError{
				Key:    key,
				Path:   Path(keys[:i]),
				Reason: "cannot be reached: parent is a leaf",
			}
		}
		value, err := node.Get(key)
		if err != nil {
			return nil, &LookupError{Key: key, Path: Path(keys[:i])}
		}
		current = value
	}
	return current, nil
}

// Raw exposes the underlying mapping. The result shares storage with the
// state and every view derived from it.
func (s *State) Raw() map[Key]any {
	return s.mapping
}

// Clone returns a deep copy of the node structure. Leaves are shared with
// the receiver, node maps are not.
func (s *State) Clone() *State {
	return &State{mapping: cloneMapping(s.mapping), emitter: s.emitter}
}

func cloneMapping(src map[Key]any) map[Key]any {
	out := make(map[Key]any, len(src))
	for key, value := range src {
		if node, ok := value.(map[Key]any); ok {
			out[key] = cloneMapping(node)
			continue
		}
		out[key] = value
	}
	return out
}

// Equal reports structural equality: the same keys at every level and
// deeply equal leaves at every path.
func (s *State) Equal(other *State) bool {
	if s == nil || other == nil {
		return s.IsEmpty() && other.IsEmpty()
	}
	return mappingsEqual(s.mapping, other.mapping)
}

func mappingsEqual(a, b map[Key]any) bool {
	if len(a) != len(b) {
		return false
	}
	for key, av := range a {
		bv, ok := b[key]
		if !ok {
			return false
		}
		an, aIsNode := av.(map[Key]any)
		bn, bIsNode := bv.(map[Key]any)
		if aIsNode != bIsNode {
			return false
		}
		if aIsNode {
			if !mappingsEqual(an, bn) {
				return false
			}
			continue
		}
		if !reflect.DeepEqual(av, bv) {
			return false
		}
	}
	return true
}

func (s *State) emit(op observe.Mutation, key Key) {
	if s.emitter == nil || !s.emitter.Enabled() {
		return
	}
	// Hook failures never affect the mutation itself.
	_ = s.emitter.Emit(context.Background(), observe.Event{
		Op:  op,
		Key: key,
	})
}
