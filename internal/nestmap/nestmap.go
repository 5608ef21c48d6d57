// Package nestmap normalizes loosely typed nested Go values into the raw
// map[string]any node mappings the state container stores. Maps keyed by
// integers or by any are rebuilt with canonical string keys; maps that are
// already canonical are returned by reference so structural sharing is
// preserved.
package nestmap

import (
	"fmt"
	"reflect"
)

// leafMarker mirrors the state package's Leaf capability interface. Values
// implementing it are always leaves, even when they are map-like.
type leafMarker interface {
	StateLeaf()
}

// Node reports whether v is a mapping node and returns its canonical form.
// The same reference comes back when v is already a map[string]any whose
// nested nodes are all canonical; otherwise only the maps on a conversion
// path are rebuilt.
func Node(v any) (map[string]any, bool, error) {
	if v == nil {
		return nil, false, nil
	}
	if _, ok := v.(leafMarker); ok {
		return nil, false, nil
	}
	if m, ok := v.(map[string]any); ok {
		normalized, err := normalizeCanonical(m)
		if err != nil {
			return nil, false, err
		}
		return normalized, true, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map {
		return nil, false, nil
	}
	converted, err := convertMap(rv)
	if err != nil {
		return nil, false, err
	}
	if converted == nil {
		return nil, false, nil
	}
	return converted, true, nil
}

// normalizeCanonical walks an already string-keyed map, rebuilding it only
// when some nested value required conversion.
func normalizeCanonical(m map[string]any) (map[string]any, error) {
	var rebuilt map[string]any
	for key, value := range m {
		node, ok, err := Node(value)
		if err != nil {
			return nil, err
		}
		if !ok || sameMap(node, value) {
			if rebuilt != nil {
				rebuilt[key] = value
			}
			continue
		}
		if rebuilt == nil {
			rebuilt = make(map[string]any, len(m))
			for k, v := range m {
				rebuilt[k] = v
			}
		}
		rebuilt[key] = node
	}
	if rebuilt != nil {
		return rebuilt, nil
	}
	return m, nil
}

func sameMap(node map[string]any, original any) bool {
	m, ok := original.(map[string]any)
	if !ok {
		return false
	}
	return reflect.ValueOf(node).Pointer() == reflect.ValueOf(m).Pointer()
}

// convertMap rebuilds a non-canonical map with string keys. Returns nil
// (no error) when the key kind is not convertible, in which case the value
// is treated as a leaf.
func convertMap(rv reflect.Value) (map[string]any, error) {
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		key, ok := stringKey(iter.Key())
		if !ok {
			return nil, nil
		}
		if _, exists := out[key]; exists {
			return nil, fmt.Errorf("nestmap: duplicate key %q after normalization", key)
		}
		value := iter.Value().Interface()
		node, isNode, err := Node(value)
		if err != nil {
			return nil, err
		}
		if isNode {
			out[key] = node
			continue
		}
		out[key] = value
	}
	return out, nil
}

func stringKey(rk reflect.Value) (string, bool) {
	if rk.Kind() == reflect.Interface {
		if rk.IsNil() {
			return "", false
		}
		rk = rk.Elem()
	}
	switch rk.Kind() {
	case reflect.String:
		return rk.String(), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return fmt.Sprintf("%d", rk.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return fmt.Sprintf("%d", rk.Uint()), true
	default:
		return "", false
	}
}
