package papyrus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaModelIsACopy(t *testing.T) {
	s := NewSchema(map[string]any{"items": []any{}})
	m := s.Model()
	m["items"] = "clobbered"
	assert.Equal(t, []any{}, s.Model()["items"])
}

func TestSchemaInstanceMergesDeep(t *testing.T) {
	s := NewSchema(map[string]any{
		"balance": 0,
		"profile": map[string]any{"name": "", "lang": "en"},
		"items":   []any{},
	})

	doc := s.Instance(map[string]any{
		"profile": map[string]any{"name": "aelin"},
	})
	require.Equal(t, "aelin", doc["profile"].(map[string]any)["name"])
	assert.Equal(t, "en", doc["profile"].(map[string]any)["lang"], "untouched defaults survive the merge")
	assert.Equal(t, 0, doc["balance"])
}

func TestSchemaInstanceReplacesSlices(t *testing.T) {
	s := NewSchema(map[string]any{"items": []any{"default"}})
	doc := s.Instance(map[string]any{"items": []any{"sword"}})
	assert.Equal(t, []any{"sword"}, doc["items"], "slices replace wholesale, they do not concatenate")
}

func TestSchemaInstanceNilPartial(t *testing.T) {
	s := NewSchema(map[string]any{"balance": 0})
	assert.Equal(t, s.Model(), s.Instance(nil))
}
