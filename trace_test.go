package state

import "testing"

func TestMergeTracedOrigins(t *testing.T) {
	a := MustNew(map[Key]any{"x": 1, "y": 2})
	b := MustNew(map[Key]any{"y": 99, "z": 3})

	merged, trace, err := MergeTraced(a, b)
	if err != nil {
		t.Fatalf("MergeTraced: %v", err)
	}
	if !merged.Equal(MustNew(map[string]any{"x": 1, "y": 99, "z": 3})) {
		t.Fatalf("merged = %v", merged.Raw())
	}
	if trace.OpID == "" {
		t.Fatal("trace missing operation ID")
	}

	want := map[string]int{"$.x": 0, "$.y": 1, "$.z": 1}
	if len(trace.Origins) != len(want) {
		t.Fatalf("Origins = %+v", trace.Origins)
	}
	for _, origin := range trace.Origins {
		if want[origin.Path] != origin.Operand {
			t.Fatalf("path %s attributed to operand %d", origin.Path, origin.Operand)
		}
	}
}

func TestMergeTracedDistinctOpIDs(t *testing.T) {
	a := MustNew(map[Key]any{"x": 1})
	_, first, err := MergeTraced(a)
	if err != nil {
		t.Fatalf("MergeTraced: %v", err)
	}
	_, second, err := MergeTraced(a)
	if err != nil {
		t.Fatalf("MergeTraced: %v", err)
	}
	if first.OpID == second.OpID {
		t.Fatal("operation IDs must be unique per call")
	}
}

func TestMergeTraceJSONRoundTrip(t *testing.T) {
	trace := MergeTrace{
		OpID: "op-1",
		Origins: []MergeOrigin{
			{Path: "$.x", Operand: 0},
			{Path: "$.y", Operand: 2},
		},
	}
	payload, err := trace.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	back, err := MergeTraceFromJSON(payload)
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	if back.OpID != trace.OpID || len(back.Origins) != 2 || back.Origins[1] != trace.Origins[1] {
		t.Fatalf("round trip mismatch: %+v", back)
	}
}

func TestSplitTracedAssignments(t *testing.T) {
	s := MustNew(map[Key]any{
		"a": map[Key]any{"b": 1},
		"c": 2,
	})

	parts, trace, err := s.SplitTraced(PathPrefix("a"), Wildcard)
	if err != nil {
		t.Fatalf("SplitTraced: %v", err)
	}
	if len(parts) != 2 {
		t.Fatalf("got %d buckets", len(parts))
	}
	if trace.OpID == "" {
		t.Fatal("trace missing operation ID")
	}

	want := map[string]int{"$.a.b": 0, "$.c": 1}
	if len(trace.Assignments) != len(want) {
		t.Fatalf("Assignments = %+v", trace.Assignments)
	}
	for _, assignment := range trace.Assignments {
		if want[assignment.Path] != assignment.Filter {
			t.Fatalf("path %s assigned to filter %d", assignment.Path, assignment.Filter)
		}
	}
}

func TestSplitTracedPropagatesErrors(t *testing.T) {
	s := MustNew(map[Key]any{"a": 1, "b": 2})

	if _, _, err := s.SplitTraced(PathPrefix("a")); err == nil {
		t.Fatal("expected non-exhaustive error")
	}
	if _, _, err := s.SplitTraced(Wildcard, PathPrefix("a")); err == nil {
		t.Fatal("expected ordering error")
	}
}

func TestPartitionTraceJSONRoundTrip(t *testing.T) {
	trace := PartitionTrace{
		OpID: "op-2",
		Assignments: []PartitionAssignment{
			{Path: "$.a.b", Filter: 0},
			{Path: "$.c", Filter: 1},
		},
	}
	payload, err := trace.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	back, err := PartitionTraceFromJSON(payload)
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	if back.OpID != trace.OpID || len(back.Assignments) != 2 || back.Assignments[0] != trace.Assignments[0] {
		t.Fatalf("round trip mismatch: %+v", back)
	}
}
