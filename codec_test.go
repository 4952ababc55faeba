package papyrus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMsgpackCodecNormalizesMaps(t *testing.T) {
	codec := MsgpackCodec{}
	data, err := codec.Marshal(map[string]any{
		"nested": map[string]any{"deep": []any{map[string]any{"leaf": "v"}}},
	})
	require.NoError(t, err)

	doc, err := codec.Unmarshal(data)
	require.NoError(t, err)
	nested, ok := doc.(map[string]any)["nested"].(map[string]any)
	require.True(t, ok, "containers must come back string-keyed")
	leaf := nested["deep"].([]any)[0].(map[string]any)["leaf"]
	assert.Equal(t, "v", leaf)
}

func TestConnectionWithMsgpackCodec(t *testing.T) {
	ctx := context.Background()
	conn := testConn(t, WithCodec(MsgpackCodec{}))

	require.NoError(t, conn.Set(ctx, "u1.profile.name", "aelin"))
	found, v, err := conn.Fetch(ctx, "u1.profile.name")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "aelin", v)
}

func TestDeepCopyBreaksAliasing(t *testing.T) {
	original := map[string]any{"items": []any{"sword"}}
	copied, err := deepCopy(JSONCodec{}, original)
	require.NoError(t, err)

	copied.(map[string]any)["items"].([]any)[0] = "clobbered"
	assert.Equal(t, "sword", original["items"].([]any)[0])
}

func TestDeepCopyPassesScalarsThrough(t *testing.T) {
	for _, v := range []any{nil, "s", true, float64(1.5), 7} {
		out, err := deepCopy(JSONCodec{}, v)
		require.NoError(t, err)
		assert.Equal(t, v, out)
	}
}
