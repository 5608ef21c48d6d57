package state

import (
	"encoding/json"

	"github.com/google/uuid"
)

// MergeTrace records, for every path of a merged result, which operand
// supplied the winning leaf. Entries follow the combined flat view's
// deterministic order.
type MergeTrace struct {
	OpID    string        `json:"op_id"`
	Origins []MergeOrigin `json:"origins"`
}

// MergeOrigin names the zero-based operand that won a single path.
type MergeOrigin struct {
	Path    string `json:"path"`
	Operand int    `json:"operand"`
}

// ToJSON serialises the trace for logging or transport helpers.
func (t MergeTrace) ToJSON() ([]byte, error) {
	type alias MergeTrace
	return json.Marshal(alias(t))
}

// MergeTraceFromJSON deserialises a payload produced by ToJSON.
func MergeTraceFromJSON(payload []byte) (MergeTrace, error) {
	type alias MergeTrace
	var trace alias
	if err := json.Unmarshal(payload, &trace); err != nil {
		return MergeTrace{}, err
	}
	return MergeTrace(trace), nil
}

// MergeTraced is Merge plus provenance: the returned trace carries a fresh
// operation ID and one origin entry per path of the result.
func MergeTraced(states ...*State) (*State, *MergeTrace, error) {
	if len(states) == 0 {
		return nil, nil, constructionErrorf("merge requires at least one state")
	}

	combined := NewFlatState()
	origin := map[string]int{}
	for i, s := range states {
		if s == nil {
			continue
		}
		for path, leaf := range s.Flatten().All() {
			combined.Set(path, leaf)
			origin[path.String()] = i
		}
	}

	merged, err := Unflatten(combined)
	if err != nil {
		return nil, nil, err
	}

	trace := &MergeTrace{OpID: uuid.NewString()}
	for path := range combined.All() {
		trace.Origins = append(trace.Origins, MergeOrigin{
			Path:    path.String(),
			Operand: origin[path.String()],
		})
	}
	return merged, trace, nil
}

// PartitionTrace records which filter claimed each leaf during a split.
type PartitionTrace struct {
	OpID        string                `json:"op_id"`
	Assignments []PartitionAssignment `json:"assignments"`
}

// PartitionAssignment pairs a path with the zero-based index of the filter
// whose bucket received it.
type PartitionAssignment struct {
	Path   string `json:"path"`
	Filter int    `json:"filter"`
}

// ToJSON serialises the trace for logging or transport helpers.
func (t PartitionTrace) ToJSON() ([]byte, error) {
	type alias PartitionTrace
	return json.Marshal(alias(t))
}

// PartitionTraceFromJSON deserialises a payload produced by ToJSON.
func PartitionTraceFromJSON(payload []byte) (PartitionTrace, error) {
	type alias PartitionTrace
	var trace alias
	if err := json.Unmarshal(payload, &trace); err != nil {
		return PartitionTrace{}, err
	}
	return PartitionTrace(trace), nil
}

// SplitTraced is Split plus provenance: the returned trace lists every
// leaf's assigned filter in the flattened traversal order.
func (s *State) SplitTraced(filters ...Filter) ([]*State, *PartitionTrace, error) {
	flat := s.Flatten()
	buckets, assign, err := partitionFlat(flat, filters)
	if err != nil {
		return nil, nil, err
	}
	remainder := buckets[len(buckets)-1]
	if remainder.Len() > 0 {
		return nil, nil, &NonExhaustiveError{Paths: remainder.Paths()}
	}
	states, err := unflattenBuckets(buckets[:len(buckets)-1])
	if err != nil {
		return nil, nil, err
	}

	trace := &PartitionTrace{OpID: uuid.NewString()}
	i := 0
	for path := range flat.All() {
		trace.Assignments = append(trace.Assignments, PartitionAssignment{
			Path:   path.String(),
			Filter: assign[i],
		})
		i++
	}
	return states, trace, nil
}
