package papyrus

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushAbsentArrayFails(t *testing.T) {
	ctx := context.Background()
	conn := testConn(t)

	// No schema default supplies a container, so there is nothing to push
	// into; the helper refuses rather than conjuring an array.
	_, err := conn.Push(ctx, "u1.items", "sword")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestPushWithSchemaDefault(t *testing.T) {
	ctx := context.Background()
	conn := testConn(t, WithSchema(NewSchema(map[string]any{
		"items": []any{},
	})))

	n, err := conn.Push(ctx, "u1.items", "sword")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	found, v, err := conn.Fetch(ctx, "u1.items")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []any{"sword"}, v)
}

func TestPushOnNonArray(t *testing.T) {
	ctx := context.Background()
	conn := testConn(t)

	require.NoError(t, conn.Set(ctx, "u1.name", "aelin"))
	_, err := conn.Push(ctx, "u1.name", "x")
	assert.True(t, errors.Is(err, ErrInvalidDocument))
}

func TestPopAndShift(t *testing.T) {
	ctx := context.Background()
	conn := testConn(t)

	require.NoError(t, conn.Set(ctx, "u1.queue", []any{"a", "b", "c"}))

	popped, err := conn.Pop(ctx, "u1.queue")
	require.NoError(t, err)
	assert.Equal(t, "c", popped)

	shifted, err := conn.Shift(ctx, "u1.queue")
	require.NoError(t, err)
	assert.Equal(t, "a", shifted)

	_, v, err := conn.Fetch(ctx, "u1.queue")
	require.NoError(t, err)
	assert.Equal(t, []any{"b"}, v)

	// Draining past empty returns nil, not an error.
	_, err = conn.Pop(ctx, "u1.queue")
	require.NoError(t, err)
	popped, err = conn.Pop(ctx, "u1.queue")
	require.NoError(t, err)
	assert.Nil(t, popped)
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	conn := testConn(t)

	require.NoError(t, conn.Set(ctx, "u1.rolls", []any{1, 2, 1, 3}))

	// Stored numbers come back as float64 through the JSON codec.
	n, err := conn.Remove(ctx, "u1.rolls", float64(1))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, v, err := conn.Fetch(ctx, "u1.rolls")
	require.NoError(t, err)
	assert.Equal(t, []any{float64(2), float64(3)}, v)
}

func TestRemoveFunc(t *testing.T) {
	ctx := context.Background()
	conn := testConn(t)

	require.NoError(t, conn.Set(ctx, "u1.words", []any{"axe", "bow", "arrow"}))
	n, err := conn.RemoveFunc(ctx, "u1.words", func(v any) bool {
		s, ok := v.(string)
		return ok && s[0] == 'a'
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, v, err := conn.Fetch(ctx, "u1.words")
	require.NoError(t, err)
	assert.Equal(t, []any{"bow"}, v)
}

func TestSlicePersistsWindow(t *testing.T) {
	ctx := context.Background()
	conn := testConn(t)

	require.NoError(t, conn.Set(ctx, "u1.log", []any{"a", "b", "c", "d", "e"}))
	window, err := conn.Slice(ctx, "u1.log", 1, 3)
	require.NoError(t, err)
	assert.Equal(t, []any{"b", "c"}, window)

	_, v, err := conn.Fetch(ctx, "u1.log")
	require.NoError(t, err)
	assert.Equal(t, []any{"b", "c"}, v)
}

func TestSliceNegativeBounds(t *testing.T) {
	ctx := context.Background()
	conn := testConn(t)

	require.NoError(t, conn.Set(ctx, "u1.log", []any{"a", "b", "c", "d", "e"}))
	window, err := conn.Slice(ctx, "u1.log", -2, 5)
	require.NoError(t, err)
	assert.Equal(t, []any{"d", "e"}, window)
}

func TestDefaultIsIdempotent(t *testing.T) {
	ctx := context.Background()
	conn := testConn(t, WithSchema(NewSchema(map[string]any{
		"balance": 0,
		"name":    "",
	})))

	first, err := conn.Default(ctx, "u1", map[string]any{"name": "aelin"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"balance": 0, "name": "aelin"}, first)

	// The second call must not re-materialize, even with a different
	// partial.
	second, err := conn.Default(ctx, "u1", map[string]any{"name": "rowan"})
	require.NoError(t, err)
	assert.EqualValues(t, "aelin", second.(map[string]any)["name"])

	n, err := conn.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestDefaultWithoutSchemaStoresPartial(t *testing.T) {
	ctx := context.Background()
	conn := testConn(t)

	doc, err := conn.Default(ctx, "u1", map[string]any{"v": 1})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"v": 1}, doc)
}

func TestEnsure(t *testing.T) {
	ctx := context.Background()
	conn := testConn(t)

	v, err := conn.Ensure(ctx, "u1.lang", "en")
	require.NoError(t, err)
	assert.Equal(t, "en", v)

	v, err = conn.Ensure(ctx, "u1.lang", "de")
	require.NoError(t, err)
	assert.Equal(t, "en", v, "existing value wins")
}

func TestModify(t *testing.T) {
	ctx := context.Background()
	conn := testConn(t)

	require.NoError(t, conn.Set(ctx, "u1.balance", 100))
	root, err := conn.Modify(ctx, "u1.balance", func(old any) any {
		return old.(float64) + 50
	})
	require.NoError(t, err)
	assert.EqualValues(t, 150, root.(map[string]any)["balance"])

	_, v, err := conn.Fetch(ctx, "u1.balance")
	require.NoError(t, err)
	assert.EqualValues(t, 150, v)
}

func TestModifyAbsentSeesNil(t *testing.T) {
	ctx := context.Background()
	conn := testConn(t)

	root, err := conn.Modify(ctx, "u1.visits", func(old any) any {
		if old == nil {
			return 1
		}
		return old.(float64) + 1
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, root.(map[string]any)["visits"])
}

func TestInvert(t *testing.T) {
	ctx := context.Background()
	conn := testConn(t)

	v, err := conn.Invert(ctx, "u1.muted")
	require.NoError(t, err)
	assert.True(t, v, "absent toggles to true")

	v, err = conn.Invert(ctx, "u1.muted")
	require.NoError(t, err)
	assert.False(t, v)

	require.NoError(t, conn.Set(ctx, "u1.count", 3))
	_, err = conn.Invert(ctx, "u1.count")
	assert.True(t, errors.Is(err, ErrInvalidDocument))
}
