package papyrus

import (
	"encoding/json"

	"github.com/vmihailenco/msgpack/v5"
)

// Codec serializes documents into the single value column and back. The
// column is opaque to the store; a Connection never inspects it except
// through its codec.
type Codec interface {
	Marshal(doc any) ([]byte, error)
	Unmarshal(data []byte) (any, error)
}

// JSONCodec stores documents as JSON text. It is the default codec: the
// value column stays human-readable and portable to other tooling.
type JSONCodec struct{}

func (JSONCodec) Marshal(doc any) ([]byte, error) {
	return json.Marshal(doc)
}

func (JSONCodec) Unmarshal(data []byte) (any, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// MsgpackCodec stores documents as msgpack. Smaller and faster than JSON
// at the cost of readability in the database file.
type MsgpackCodec struct{}

func (MsgpackCodec) Marshal(doc any) ([]byte, error) {
	return msgpack.Marshal(doc)
}

func (MsgpackCodec) Unmarshal(data []byte) (any, error) {
	var doc any
	if err := msgpack.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return normalize(doc), nil
}

// normalize rewrites msgpack's map[any]any containers into the
// map[string]any shape the rest of the package walks. Keys that are not
// strings are stringified through the decoder's own representation.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, e := range t {
			t[k] = normalize(e)
		}
		return t
	case map[any]any:
		m := make(map[string]any, len(t))
		for k, e := range t {
			if ks, ok := k.(string); ok {
				m[ks] = normalize(e)
			}
		}
		return m
	case []any:
		for i, e := range t {
			t[i] = normalize(e)
		}
		return t
	default:
		return v
	}
}

// deepCopy round-trips a document through the codec so callers receive a
// value with no aliasing back into the cache. Scalars pass through as is.
func deepCopy(c Codec, doc any) (any, error) {
	if doc == nil {
		return nil, nil
	}
	switch doc.(type) {
	case string, bool, float64, int, int64, json.Number:
		return doc, nil
	}
	data, err := c.Marshal(doc)
	if err != nil {
		return nil, err
	}
	return c.Unmarshal(data)
}
