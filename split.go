package state

// Split partitions the state's leaves across the given filters: each leaf
// lands in the bucket of the first filter that matches it, evaluated in
// argument order. Every leaf must be matched; a non-empty remainder fails
// with *NonExhaustiveError listing the unmatched paths. Append Wildcard to
// guarantee exhaustiveness.
//
// The result has exactly one *State per filter, in filter order.
func (s *State) Split(filters ...Filter) ([]*State, error) {
	buckets, _, err := partitionFlat(s.Flatten(), filters)
	if err != nil {
		return nil, err
	}
	remainder := buckets[len(buckets)-1]
	if remainder.Len() > 0 {
		return nil, &NonExhaustiveError{Paths: remainder.Paths()}
	}
	return unflattenBuckets(buckets[:len(buckets)-1])
}

// SplitOne is Split with a single filter, returning the lone bucket.
func (s *State) SplitOne(filter Filter) (*State, error) {
	states, err := s.Split(filter)
	if err != nil {
		return nil, err
	}
	return states[0], nil
}

// Filter partitions exactly like Split but never requires coverage: leaves
// matched by no filter are silently dropped along with the remainder
// bucket. Ordering violations still fail the whole call.
func (s *State) Filter(filters ...Filter) ([]*State, error) {
	buckets, _, err := partitionFlat(s.Flatten(), filters)
	if err != nil {
		return nil, err
	}
	return unflattenBuckets(buckets[:len(buckets)-1])
}

// FilterOne is Filter with a single filter, returning the lone bucket.
func (s *State) FilterOne(filter Filter) (*State, error) {
	states, err := s.Filter(filter)
	if err != nil {
		return nil, err
	}
	return states[0], nil
}

// partitionFlat assigns every entry of flat to the bucket of the first
// matching filter, with one trailing remainder bucket for entries matched
// by none. assign records the bucket index per entry, in flat's iteration
// order; len(filters) marks the remainder.
func partitionFlat(flat *FlatState, filters []Filter) ([]*FlatState, []int, error) {
	if err := validateFilterOrder(filters); err != nil {
		return nil, nil, err
	}

	buckets := make([]*FlatState, len(filters)+1)
	for i := range buckets {
		buckets[i] = NewFlatState()
	}

	assign := make([]int, 0, flat.Len())
	for path, leaf := range flat.All() {
		bucket := len(filters)
		for i, filter := range filters {
			if filter != nil && filter.Match(path, leaf) {
				bucket = i
				break
			}
		}
		buckets[bucket].Set(path, leaf)
		assign = append(assign, bucket)
	}
	return buckets, assign, nil
}

// validateFilterOrder rejects a Wildcard placed before any non-Wildcard
// filter. Trailing runs of Wildcard are fine.
func validateFilterOrder(filters []Filter) error {
	if len(filters) == 0 {
		return constructionErrorf("at least one filter is required")
	}
	for i, filter := range filters {
		if !IsWildcard(filter) || i == len(filters)-1 {
			continue
		}
		for _, rest := range filters[i+1:] {
			if !IsWildcard(rest) {
				return &OrderingError{Index: i, Total: len(filters)}
			}
		}
	}
	return nil
}

func unflattenBuckets(buckets []*FlatState) ([]*State, error) {
	states := make([]*State, len(buckets))
	for i, bucket := range buckets {
		s, err := Unflatten(bucket)
		if err != nil {
			return nil, err
		}
		states[i] = s
	}
	return states, nil
}
