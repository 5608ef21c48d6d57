package state

import (
	"fmt"
	"strings"
)

// Key identifies one entry of a State. Keys are compared and ordered
// lexicographically; integer-like keys are normalized to their decimal form
// at construction.
type Key = string

// Path is an ordered sequence of keys locating a leaf from the root.
type Path []Key

// Child returns a new Path extending p with key. The receiver is not
// modified and no storage is shared with the result.
func (p Path) Child(key Key) Path {
	out := make(Path, len(p)+1)
	copy(out, p)
	out[len(p)] = key
	return out
}

// Equal reports whether p and other contain the same key sequence.
func (p Path) Equal(other Path) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}

// HasPrefix reports whether p starts with every key of prefix, in order.
func (p Path) HasPrefix(prefix Path) bool {
	if len(prefix) > len(p) {
		return false
	}
	for i := range prefix {
		if p[i] != prefix[i] {
			return false
		}
	}
	return true
}

// String renders the canonical dotted form, rooted at "$". Keys containing
// path metacharacters are single-quoted with backslash escaping, so the
// rendering is unambiguous and usable as a map key.
func (p Path) String() string {
	var b strings.Builder
	b.WriteByte('$')
	for _, key := range p {
		b.WriteByte('.')
		if needsQuoting(key) {
			escaped := strings.ReplaceAll(key, `\`, `\\`)
			escaped = strings.ReplaceAll(escaped, `'`, `\'`)
			b.WriteByte('\'')
			b.WriteString(escaped)
			b.WriteByte('\'')
			continue
		}
		b.WriteString(key)
	}
	return b.String()
}

func needsQuoting(key Key) bool {
	return key == "" || strings.ContainsAny(key, `'.$\`)
}

// ParsePath parses the canonical dotted form produced by Path.String.
func ParsePath(s string) (Path, error) {
	if len(s) == 0 || s[0] != '$' {
		return nil, fmt.Errorf("state: path %q should start with '$'", s)
	}
	rest := s[1:]
	var path Path
	for len(rest) > 0 {
		if rest[0] != '.' {
			return nil, fmt.Errorf("state: expected '.' at %q", rest)
		}
		rest = rest[1:]
		if len(rest) > 0 && rest[0] == '\'' {
			key, remainder, err := parseQuotedKey(rest[1:])
			if err != nil {
				return nil, err
			}
			path = append(path, key)
			rest = remainder
			continue
		}
		end := strings.IndexByte(rest, '.')
		if end == -1 {
			end = len(rest)
		}
		key := rest[:end]
		if key == "" {
			return nil, fmt.Errorf("state: empty key in path %q", s)
		}
		path = append(path, key)
		rest = rest[end:]
	}
	return path, nil
}

func parseQuotedKey(s string) (Key, string, error) {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			if i+1 >= len(s) {
				return "", "", fmt.Errorf("state: trailing escape in quoted key")
			}
			i++
			b.WriteByte(s[i])
		case '\'':
			return b.String(), s[i+1:], nil
		default:
			b.WriteByte(s[i])
		}
	}
	return "", "", fmt.Errorf("state: unterminated quoted key")
}

// pathStrings converts p into a plain []string for expression environments.
func pathStrings(p Path) []string {
	out := make([]string, len(p))
	copy(out, p)
	return out
}
