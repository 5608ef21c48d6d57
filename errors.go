package state

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound indicates a key or path lookup against a State that does
	// not contain it.
	ErrNotFound = errors.New("state: not found")
	// ErrBadConstruction indicates a constructor or reconstruction call
	// received input it cannot accept.
	ErrBadConstruction = errors.New("state: invalid construction input")
	// ErrWildcardOrder indicates a Wildcard filter appeared before a
	// non-Wildcard filter.
	ErrWildcardOrder = errors.New("state: wildcard filter must be last")
	// ErrNonExhaustive indicates Split left unmatched leaves in the
	// remainder bucket.
	ErrNonExhaustive = errors.New("state: non-exhaustive filters")
)

// LookupError captures a failed key or path lookup. Reason distinguishes a
// missing key from an attempt to descend through a leaf.
type LookupError struct {
	Key    Key
	Path   Path
	Reason string
}

func (e *LookupError) Error() string {
	if e == nil {
		return "<nil>"
	}
	reason := e.Reason
	if reason == "" {
		reason = "not present"
	}
	if len(e.Path) > 0 {
		return fmt.Sprintf("state: key %q at %s %s", e.Key, e.Path.String(), reason)
	}
	return fmt.Sprintf("state: key %q %s", e.Key, reason)
}

func (e *LookupError) Unwrap() error {
	return ErrNotFound
}

// ConstructionError reports invalid input to New, Unflatten or Reconstruct.
type ConstructionError struct {
	Reason string
}

func (e *ConstructionError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return "state: " + e.Reason
}

func (e *ConstructionError) Unwrap() error {
	return ErrBadConstruction
}

func constructionErrorf(format string, args ...any) error {
	return &ConstructionError{Reason: fmt.Sprintf(format, args...)}
}

// OrderingError reports a Wildcard filter placed before a non-Wildcard one.
type OrderingError struct {
	Index int
	Total int
}

func (e *OrderingError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("state: wildcard filter at index %d of %d must be the last filter", e.Index, e.Total)
}

func (e *OrderingError) Unwrap() error {
	return ErrWildcardOrder
}

// NonExhaustiveError reports the leaves Split could not assign to any
// bucket. Use Wildcard as the final filter to match all remaining leaves.
type NonExhaustiveError struct {
	Paths []Path
}

func (e *NonExhaustiveError) Error() string {
	if e == nil {
		return "<nil>"
	}
	parts := make([]string, len(e.Paths))
	for i, p := range e.Paths {
		parts[i] = p.String()
	}
	return fmt.Sprintf("state: non-exhaustive filters, unmatched paths: %s (use Wildcard to match all remaining leaves)",
		strings.Join(parts, ", "))
}

func (e *NonExhaustiveError) Unwrap() error {
	return ErrNonExhaustive
}
