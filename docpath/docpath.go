// Package docpath parses path specifiers and reads or writes values at an
// arbitrary depth inside a JSON-like document. A path specifier is a root
// key optionally followed by dot-separated segments addressing nested
// fields ("user.inventory.0.name"). The root key identifies a stored
// document; the remaining segments identify a location inside it.
package docpath

import (
	"reflect"
	"strings"

	"github.com/cockroachdb/errors"
)

// Separator joins the root key and the nested segments in a path specifier.
const Separator = "."

// Sentinel errors for path parsing and document traversal.
var (
	// ErrInvalidPath marks a malformed path specifier (empty, or containing
	// empty segments such as "a..b").
	ErrInvalidPath = errors.New("docpath: invalid path specifier")

	// ErrInvalidDocument marks a write through a non-container intermediate
	// or a non-container value used where a document is required.
	ErrInvalidDocument = errors.New("docpath: value is not a document")
)

// Path is a parsed path specifier: the root key plus the ordered segments
// addressing a nested location inside the document stored under that key.
type Path struct {
	Key      string
	Segments []string
}

// Parse splits a path specifier into its root key and nested segments.
// Parsing is purely syntactic; container types along the path are not
// validated until access time.
func Parse(spec string) (Path, error) {
	if spec == "" {
		return Path{}, errors.Wrap(ErrInvalidPath, "empty specifier")
	}
	parts := strings.Split(spec, Separator)
	for _, part := range parts {
		if part == "" {
			return Path{}, errors.Wrapf(ErrInvalidPath, "empty segment in %q", spec)
		}
	}
	return Path{Key: parts[0], Segments: parts[1:]}, nil
}

// Root reports whether the path addresses the whole document.
func (p Path) Root() bool {
	return len(p.Segments) == 0
}

// String reassembles the specifier this path was parsed from.
func (p Path) String() string {
	if p.Root() {
		return p.Key
	}
	return p.Key + Separator + strings.Join(p.Segments, Separator)
}

// asIndex interprets a segment as a non-negative sequence index.
func asIndex(seg string) (int, bool) {
	if seg == "" {
		return 0, false
	}
	n := 0
	for _, r := range seg {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int(r-'0')
		if n < 0 { // overflow
			return 0, false
		}
	}
	return n, true
}

// Get walks container one segment at a time and returns the value at the
// addressed location. It returns false if any intermediate segment is
// absent, out of range, or not a container. A stored null resolves to
// (nil, true): the location exists, its value is null.
func Get(container any, segments []string) (any, bool) {
	cur := container
	for _, seg := range segments {
		switch c := cur.(type) {
		case map[string]any:
			v, ok := c[seg]
			if !ok {
				return nil, false
			}
			cur = v
		case []any:
			idx, ok := asIndex(seg)
			if !ok || idx >= len(c) {
				return nil, false
			}
			cur = c[idx]
		default:
			return nil, false
		}
	}
	return cur, true
}

// Set writes value at the location addressed by segments, creating missing
// intermediate containers along the way: object-shaped unless the segment
// is a non-negative integer, in which case a sequence is created (grown
// with nulls as needed). Writing through an existing non-container
// intermediate fails with ErrInvalidDocument. The returned value is the
// (possibly re-allocated) root and must replace the caller's reference.
func Set(container any, segments []string, value any) (any, error) {
	if len(segments) == 0 {
		return value, nil
	}
	seg := segments[0]
	rest := segments[1:]

	switch c := container.(type) {
	case map[string]any:
		child, err := Set(c[seg], rest, value)
		if err != nil {
			return nil, err
		}
		c[seg] = child
		return c, nil
	case []any:
		idx, ok := asIndex(seg)
		if !ok {
			return nil, errors.Wrapf(ErrInvalidDocument, "segment %q is not a sequence index", seg)
		}
		for idx >= len(c) {
			c = append(c, nil)
		}
		child, err := Set(c[idx], rest, value)
		if err != nil {
			return nil, err
		}
		c[idx] = child
		return c, nil
	case nil:
		if idx, ok := asIndex(seg); ok {
			arr := make([]any, idx+1)
			child, err := Set(nil, rest, value)
			if err != nil {
				return nil, err
			}
			arr[idx] = child
			return arr, nil
		}
		child, err := Set(nil, rest, value)
		if err != nil {
			return nil, err
		}
		return map[string]any{seg: child}, nil
	default:
		return nil, errors.Wrapf(ErrInvalidDocument, "cannot write segment %q through %T", seg, container)
	}
}

// IsDocument reports whether v can stand at the root of a stored document.
// Roots must be structured containers (maps, slices, arrays, or structs)
// because nested-path writes need a mutable container to descend into.
// Byte slices are excluded: they serialize as scalars.
func IsDocument(v any) bool {
	if v == nil {
		return false
	}
	if _, ok := v.([]byte); ok {
		return false
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return false
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct:
		return true
	default:
		return false
	}
}
