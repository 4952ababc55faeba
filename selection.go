package papyrus

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"github.com/papyrusdb/papyrus/docpath"
)

// Selection is an in-memory, mutable working set of documents detached from
// the store and the shared cache: once materialized, its operators only ever
// touch its own map. Operators mutate in place and return the same instance
// so calls chain. Go maps are unordered, so the Selection keeps an explicit
// iteration order alongside the map; Order, Limit, and the accessors all
// respect it.
type Selection struct {
	docs  map[string]any
	order []string
	holds string
}

// Row pairs a key with its document for the Order comparator.
type Row struct {
	Key string
	Doc any
}

func newSelection(holds string) *Selection {
	return &Selection{
		docs:  make(map[string]any),
		holds: holds,
	}
}

func (s *Selection) put(key string, doc any) {
	if _, ok := s.docs[key]; !ok {
		s.order = append(s.order, key)
	}
	s.docs[key] = doc
}

// Holds returns the label of the table this Selection was materialized
// from. Join uses it as the default merge label.
func (s *Selection) Holds() string {
	return s.holds
}

// Len returns the number of entries in the working set.
func (s *Selection) Len() int {
	return len(s.order)
}

// Keys returns the keys in iteration order.
func (s *Selection) Keys() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Documents returns the documents in iteration order.
func (s *Selection) Documents() []any {
	out := make([]any, 0, len(s.order))
	for _, key := range s.order {
		out = append(out, s.docs[key])
	}
	return out
}

// Retrieve resolves a path specifier against the working set: the root key
// names an entry, the remaining segments address a location inside its
// document.
func (s *Selection) Retrieve(pathlike string) (any, bool) {
	p, err := docpath.Parse(pathlike)
	if err != nil {
		return nil, false
	}
	doc, ok := s.docs[p.Key]
	if !ok {
		return nil, false
	}
	if p.Root() {
		return doc, true
	}
	return docpath.Get(doc, p.Segments)
}

// Order sorts the entries with the given comparator. The sort is stable:
// entries the comparator treats as equal keep their relative order.
func (s *Selection) Order(less func(a, b Row) bool) *Selection {
	sort.SliceStable(s.order, func(i, j int) bool {
		a := Row{Key: s.order[i], Doc: s.docs[s.order[i]]}
		b := Row{Key: s.order[j], Doc: s.docs[s.order[j]]}
		return less(a, b)
	})
	return s
}

// Filter retains only the entries for which pred returns true. Removal is
// by key, directly against the working map.
func (s *Selection) Filter(pred func(doc any, key string, s *Selection) bool) *Selection {
	kept := s.order[:0]
	for _, key := range s.order {
		if pred(s.docs[key], key, s) {
			kept = append(kept, key)
		} else {
			delete(s.docs, key)
		}
	}
	s.order = kept
	return s
}

// Limit keeps a contiguous window of entries by iteration order and
// discards the rest. One argument keeps the first n entries; two arguments
// keep [offset, offset+amount). The source this design derives from had an
// off-by-construction exclusion test that kept everything; this
// implementation performs the intended windowing.
func (s *Selection) Limit(bounds ...int) *Selection {
	var offset, amount int
	switch len(bounds) {
	case 0:
		return s
	case 1:
		offset, amount = 0, bounds[0]
	default:
		offset, amount = bounds[0], bounds[1]
	}
	if offset < 0 {
		offset = 0
	}
	if amount < 0 {
		amount = 0
	}
	end := offset + amount
	kept := s.order[:0]
	for i, key := range s.order {
		if i >= offset && i < end {
			kept = append(kept, key)
		} else {
			delete(s.docs, key)
		}
	}
	s.order = kept
	return s
}

// Group re-keys the working set by the value found at pathlike inside each
// document. Every segment of pathlike addresses into the document; there is
// no root-key segment here. Entries sharing a group value collapse into one
// map keyed by their original keys, stored under the group key. Scalar
// group values key by their literal text, absent values and nulls under
// "null", and container values under a stable hash of their canonical JSON.
func (s *Selection) Group(pathlike string) *Selection {
	p, err := docpath.Parse(pathlike)
	if err != nil {
		return s
	}
	segments := append([]string{p.Key}, p.Segments...)

	grouped := make(map[string]any, len(s.docs))
	var order []string
	for _, key := range s.order {
		doc := s.docs[key]
		v, ok := docpath.Get(doc, segments)
		gk := groupKey(v, ok)
		bucket, ok := grouped[gk].(map[string]any)
		if !ok {
			bucket = make(map[string]any)
			grouped[gk] = bucket
			order = append(order, gk)
		}
		bucket[key] = doc
	}
	s.docs = grouped
	s.order = order
	return s
}

// groupKey renders a group value as a map key. Scalars use their literal
// text so groups stay readable; containers hash, since their text form is
// unwieldy as a key. encoding/json writes map keys sorted, which makes the
// hash stable for equal containers.
func groupKey(v any, ok bool) string {
	if !ok || v == nil {
		return "null"
	}
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case json.Number:
		return t.String()
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return fmt.Sprintf("%016x", xxhash.Sum64(data))
}

// MergeFunc folds one matched row from the other Selection into a document
// of this one, mutating doc in place.
type MergeFunc func(doc any, otherKey string, otherDoc any)

type joinConfig struct {
	fieldPath string
	merge     MergeFunc
}

// JoinOption adjusts how Join matches and merges rows.
type JoinOption func(*joinConfig)

// JoinOn reads the join key from fieldPath inside each row of the other
// Selection instead of using the row's own key.
func JoinOn(fieldPath string) JoinOption {
	return func(c *joinConfig) { c.fieldPath = fieldPath }
}

// JoinWith replaces the default merge, which stores the other document
// under the other Selection's holds label.
func JoinWith(merge MergeFunc) JoinOption {
	return func(c *joinConfig) { c.merge = merge }
}

// Join folds other into this Selection. For every row of other it computes
// a join key (the row's own key, or the value at the JoinOn field path),
// looks up a matching entry here, and if one exists invokes the merge
// strategy on it. Rows with no match are silently skipped; no outer-join
// entries are created.
func (s *Selection) Join(other *Selection, opts ...JoinOption) *Selection {
	cfg := joinConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.merge == nil {
		label := other.holds
		cfg.merge = func(doc any, otherKey string, otherDoc any) {
			if m, ok := doc.(map[string]any); ok {
				m[label] = otherDoc
			}
		}
	}

	var fieldSegments []string
	if cfg.fieldPath != "" {
		p, err := docpath.Parse(cfg.fieldPath)
		if err != nil {
			return s
		}
		fieldSegments = append([]string{p.Key}, p.Segments...)
	}

	for _, otherKey := range other.order {
		otherDoc := other.docs[otherKey]
		joinKey := otherKey
		if fieldSegments != nil {
			v, ok := docpath.Get(otherDoc, fieldSegments)
			if !ok {
				continue
			}
			joinKey = groupKey(v, true)
		}
		doc, ok := s.docs[joinKey]
		if !ok {
			continue
		}
		cfg.merge(doc, otherKey, otherDoc)
	}
	return s
}

// Map replaces every entry's document with the transformer's return value,
// in place.
func (s *Selection) Map(fn func(doc any, key string) any) *Selection {
	for _, key := range s.order {
		s.docs[key] = fn(s.docs[key], key)
	}
	return s
}

// Select scans the full table in storage order, decodes every row, and
// returns a Selection over the rows pred retained. Cost is O(table size) in
// both time and memory; on large stores prefer Find or Each. The returned
// documents are private to the Selection: mutating them never reaches the
// cache or the store.
func (c *Connection) Select(ctx context.Context, pred func(doc any, key string) bool) (*Selection, error) {
	if err := c.guard(); err != nil {
		return nil, err
	}
	sel := newSelection(c.table)
	err := c.Each(ctx, func(doc any, key string) error {
		if pred(doc, key) {
			sel.put(key, doc)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sel, nil
}

// SelectPath fetches the single document addressed by pathlike, with the
// connection's usual cache and default semantics, and wraps it as a
// singleton Selection keyed by the root key. An absent value yields an
// empty Selection.
func (c *Connection) SelectPath(ctx context.Context, pathlike string, opts ...CallOption) (*Selection, error) {
	if err := c.guard(); err != nil {
		return nil, err
	}
	p, err := docpath.Parse(pathlike)
	if err != nil {
		return nil, err
	}
	sel := newSelection(c.table)
	found, doc, err := c.fetch(ctx, p, c.newCall(c.caching, opts))
	if err != nil {
		return nil, err
	}
	if found {
		sel.put(p.Key, doc)
	}
	return sel, nil
}
