package papyrus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTxnSingleHandle(t *testing.T) {
	ctx := context.Background()
	conn := testConn(t)

	txn, ok := conn.Begin(ctx)
	require.True(t, ok)

	_, ok = conn.Begin(ctx)
	assert.False(t, ok, "no nested transactions")

	txn.Rollback()
	_, ok = conn.Begin(ctx)
	assert.True(t, ok, "the slot frees once the first handle finishes")
}

func TestTxnCommitAllOrNothing(t *testing.T) {
	ctx := context.Background()
	conn := testConn(t)

	txn, ok := conn.Begin(ctx)
	require.True(t, ok)

	require.NoError(t, txn.Set(ctx, "a", map[string]any{"v": 1}))
	require.NoError(t, txn.Set(ctx, "b.nested.v", 2))

	// Staged writes are invisible to reads until Commit.
	for _, key := range []string{"a", "b"} {
		found, err := conn.Exists(ctx, key)
		require.NoError(t, err)
		assert.False(t, found, "key %q leaked before commit", key)
	}

	require.NoError(t, txn.Commit(ctx))

	_, v, err := conn.Fetch(ctx, "b.nested.v")
	require.NoError(t, err)
	assert.EqualValues(t, 2, v)
	n, err := conn.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func TestTxnRollbackLeavesEverythingUntouched(t *testing.T) {
	ctx := context.Background()
	conn := testConn(t)

	require.NoError(t, conn.Set(ctx, "a", map[string]any{"v": 1}))

	txn, ok := conn.Begin(ctx)
	require.True(t, ok)
	require.NoError(t, txn.Set(ctx, "a", map[string]any{"v": 99}))
	require.NoError(t, txn.Set(ctx, "b", map[string]any{"v": 2}))
	txn.Rollback()

	_, v, err := conn.Fetch(ctx, "a.v")
	require.NoError(t, err)
	assert.EqualValues(t, 1, v)
	found, err := conn.Exists(ctx, "b")
	require.NoError(t, err)
	assert.False(t, found)

	e, ok := conn.strategy.Get("a")
	require.True(t, ok)
	assert.EqualValues(t, 1, e.Doc.(map[string]any)["v"], "cache untouched by rollback")
}

func TestTxnNestedWritesBuildOnPendingState(t *testing.T) {
	ctx := context.Background()
	conn := testConn(t)

	txn, ok := conn.Begin(ctx)
	require.True(t, ok)
	require.NoError(t, txn.Set(ctx, "a.x", 1))
	require.NoError(t, txn.Set(ctx, "a.y", 2))
	require.NoError(t, txn.Commit(ctx))

	_, v, err := conn.Fetch(ctx, "a")
	require.NoError(t, err)
	doc := v.(map[string]any)
	assert.EqualValues(t, 1, doc["x"])
	assert.EqualValues(t, 2, doc["y"])
}

func TestTxnErase(t *testing.T) {
	ctx := context.Background()
	conn := testConn(t)

	require.NoError(t, conn.Set(ctx, "a", map[string]any{"v": 1}))

	txn, ok := conn.Begin(ctx)
	require.True(t, ok)
	require.NoError(t, txn.Erase("a"))

	// Still durable until the commit lands.
	found, err := conn.Exists(ctx, "a", Cache(false))
	require.NoError(t, err)
	assert.True(t, found)

	require.NoError(t, txn.Commit(ctx))
	found, err = conn.Exists(ctx, "a", Cache(false))
	require.NoError(t, err)
	assert.False(t, found)
	_, resident := conn.strategy.Get("a")
	assert.False(t, resident, "commit evicts erased keys")
}

func TestTxnEraseDropsPendingWrite(t *testing.T) {
	ctx := context.Background()
	conn := testConn(t)

	txn, ok := conn.Begin(ctx)
	require.True(t, ok)
	require.NoError(t, txn.Set(ctx, "a", map[string]any{"v": 1}))
	require.NoError(t, txn.Erase("a"))
	require.NoError(t, txn.Commit(ctx))

	found, err := conn.Exists(ctx, "a")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestTxnSetAfterEraseSurvivesCommit(t *testing.T) {
	ctx := context.Background()
	conn := testConn(t)

	require.NoError(t, conn.Set(ctx, "a", map[string]any{"v": 1}))

	txn, ok := conn.Begin(ctx)
	require.True(t, ok)
	require.NoError(t, txn.Erase("a"))
	// The later write supersedes the staged erase; nothing in the batch
	// may be dropped.
	require.NoError(t, txn.Set(ctx, "a", map[string]any{"v": 2}))
	require.NoError(t, txn.Commit(ctx))

	found, v, err := conn.Fetch(ctx, "a.v", Cache(false))
	require.NoError(t, err)
	require.True(t, found)
	assert.EqualValues(t, 2, v)
}

func TestTxnFinishedHandleRefusesWork(t *testing.T) {
	ctx := context.Background()
	conn := testConn(t)

	txn, ok := conn.Begin(ctx)
	require.True(t, ok)
	require.NoError(t, txn.Commit(ctx))

	assert.Error(t, txn.Set(ctx, "a", map[string]any{}))
	assert.Error(t, txn.Commit(ctx))
	txn.Rollback() // no-op, must not panic
}
