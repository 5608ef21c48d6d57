package state

import (
	"errors"
	"testing"
)

func TestFlattenExample(t *testing.T) {
	s := MustNew(map[Key]any{
		"a": map[Key]any{"b": 1},
		"c": 2,
	})

	flat := s.Flatten()
	if flat.Len() != 2 {
		t.Fatalf("Len() = %d", flat.Len())
	}
	if got, ok := flat.Get(Path{"a", "b"}); !ok || got != 1 {
		t.Fatalf("Get(a,b) = %v, %v", got, ok)
	}
	if got, ok := flat.Get(Path{"c"}); !ok || got != 2 {
		t.Fatalf("Get(c) = %v, %v", got, ok)
	}
	if flat.Has(Path{"a"}) {
		t.Fatal("intermediate nodes must not appear in the flat view")
	}
}

func TestFlattenOrderIsSortedDepthFirst(t *testing.T) {
	s := MustNew(map[Key]any{
		"b": map[Key]any{"z": 1, "a": 2},
		"a": 3,
		"c": map[Key]any{"m": map[Key]any{"n": 4}},
	})

	want := []string{"$.a", "$.b.a", "$.b.z", "$.c.m.n"}
	paths := s.Flatten().Paths()
	if len(paths) != len(want) {
		t.Fatalf("Paths() = %v", paths)
	}
	for i, path := range paths {
		if path.String() != want[i] {
			t.Fatalf("order mismatch at %d: got %s, want %s", i, path.String(), want[i])
		}
	}
}

func TestFlattenUnflattenRoundTrip(t *testing.T) {
	cases := []map[Key]any{
		{},
		{"a": 1},
		{"a": map[Key]any{"b": 1}, "c": 2},
		{
			"deep": map[Key]any{
				"deeper": map[Key]any{
					"deepest": "leaf",
				},
				"sibling": 1,
			},
			"top": 2,
		},
		{"with.dot": map[Key]any{"inner'quote": 1}},
	}
	for _, mapping := range cases {
		s := MustNew(mapping)
		back, err := Unflatten(s.Flatten())
		if err != nil {
			t.Fatalf("Unflatten: %v", err)
		}
		if !back.Equal(s) {
			t.Fatalf("round trip mismatch for %v", mapping)
		}
	}
}

func TestUnflattenRejectsPrefixConflicts(t *testing.T) {
	// A leaf at $.a.b plus a leaf below it at $.a.b.c.
	flat := NewFlatState()
	flat.Set(Path{"a", "b"}, 1)
	flat.Set(Path{"a", "b", "c"}, 2)
	if _, err := Unflatten(flat); !errors.Is(err, ErrBadConstruction) {
		t.Fatalf("expected construction error, got %v", err)
	}

	// The reverse insertion order must be rejected too.
	flat = NewFlatState()
	flat.Set(Path{"a", "b", "c"}, 2)
	flat.Set(Path{"a", "b"}, 1)
	if _, err := Unflatten(flat); !errors.Is(err, ErrBadConstruction) {
		t.Fatalf("expected construction error, got %v", err)
	}
}

func TestUnflattenRejectsEmptyPath(t *testing.T) {
	flat := NewFlatState()
	flat.Set(Path{}, 1)
	if _, err := Unflatten(flat); !errors.Is(err, ErrBadConstruction) {
		t.Fatalf("expected construction error, got %v", err)
	}
}

func TestFlatStateSetKeepsPositionOnOverwrite(t *testing.T) {
	flat := NewFlatState()
	flat.Set(Path{"a"}, 1)
	flat.Set(Path{"b"}, 2)
	flat.Set(Path{"a"}, 3)

	paths := flat.Paths()
	if len(paths) != 2 || paths[0].String() != "$.a" || paths[1].String() != "$.b" {
		t.Fatalf("Paths() = %v", paths)
	}
	if got, _ := flat.Get(Path{"a"}); got != 3 {
		t.Fatalf("overwrite lost: %v", got)
	}
}

func TestFlatStateDelete(t *testing.T) {
	flat := NewFlatState()
	flat.Set(Path{"a"}, 1)
	if !flat.Delete(Path{"a"}) {
		t.Fatal("expected delete to report presence")
	}
	if flat.Delete(Path{"a"}) {
		t.Fatal("expected delete of absent path to report false")
	}
	if flat.Len() != 0 {
		t.Fatalf("Len() = %d", flat.Len())
	}
}

func TestFlattenDoesNotMutateOperand(t *testing.T) {
	s := MustNew(map[Key]any{"a": map[Key]any{"b": 1}})
	before := s.Clone()
	_ = s.Flatten()
	if !s.Equal(before) {
		t.Fatal("flatten mutated its operand")
	}
}
