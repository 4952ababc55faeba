package papyrus

// Schema supplies default document shapes. A Connection configured with a
// schema materializes Model() for reads of absent keys and seeds new keys
// from it on writes; the core never mutates what a Schema returns without
// copying it first.
type Schema interface {
	// Model returns the full default document.
	Model() map[string]any

	// Instance returns the default document with partial deep-merged over
	// it. Nil partial is the same as Model.
	Instance(partial map[string]any) map[string]any
}

type modelSchema struct {
	model map[string]any
}

// NewSchema builds a Schema from a model document. The model is copied on
// every use, so the caller may keep mutating its original.
func NewSchema(model map[string]any) Schema {
	return &modelSchema{model: model}
}

func (s *modelSchema) Model() map[string]any {
	return copyMap(s.model)
}

func (s *modelSchema) Instance(partial map[string]any) map[string]any {
	doc := copyMap(s.model)
	if len(partial) == 0 {
		return doc
	}
	return mergeMap(doc, partial)
}

// mergeMap writes src over dst in place. Maps merge recursively; any other
// source value, slices included, replaces the destination wholesale.
func mergeMap(dst, src map[string]any) map[string]any {
	for k, v := range src {
		if sm, ok := v.(map[string]any); ok {
			if dm, ok := dst[k].(map[string]any); ok {
				dst[k] = mergeMap(dm, sm)
				continue
			}
		}
		dst[k] = copyValue(v)
	}
	return dst
}

func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return copyMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = copyValue(e)
		}
		return out
	default:
		return v
	}
}
