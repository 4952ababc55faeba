package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvictOldestPicksOldestTimestamp(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	entries := map[string]Entry{
		"young":  {Doc: nil, Touched: base.Add(2 * time.Minute)},
		"middle": {Doc: nil, Touched: base.Add(time.Minute)},
		"old":    {Doc: nil, Touched: base},
	}

	victims, admit := EvictOldest(entries)
	require.True(t, admit)
	assert.Equal(t, []string{"old"}, victims)
}

func TestEvictOldestTieBreaksByKey(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	entries := map[string]Entry{
		"zebra": {Touched: base},
		"apple": {Touched: base},
		"mango": {Touched: base},
	}

	// Equal timestamps must not make the outcome depend on map order.
	for i := 0; i < 50; i++ {
		victims, admit := EvictOldest(entries)
		require.True(t, admit)
		require.Equal(t, []string{"apple"}, victims)
	}
}

func TestEvictRandomReturnsSomeResident(t *testing.T) {
	entries := map[string]Entry{
		"a": {},
		"b": {},
	}

	victims, admit := EvictRandom(entries)
	require.True(t, admit)
	require.Len(t, victims, 1)
	assert.Contains(t, entries, victims[0])
}

func TestRefuseNewAdmitsNothing(t *testing.T) {
	victims, admit := RefuseNew(map[string]Entry{"a": {}})
	assert.False(t, admit)
	assert.Empty(t, victims)
}

func TestPolicyThatFreesNothingRefusesAdmission(t *testing.T) {
	// A policy can claim to admit while naming no victims; the bounded
	// strategy must still keep the map within maxSize.
	stubborn := func(entries map[string]Entry) ([]string, bool) {
		return nil, true
	}

	s := NewBounded(1, stubborn)
	defer s.Close()

	require.True(t, s.Patch("A", map[string]any{}))
	assert.False(t, s.Patch("B", map[string]any{}))
	assert.Equal(t, 1, s.Len())
}

func TestPolicyNamingUnknownVictimsIsHarmless(t *testing.T) {
	confused := func(entries map[string]Entry) ([]string, bool) {
		return []string{"never-stored"}, true
	}

	s := NewBounded(1, confused)
	defer s.Close()

	require.True(t, s.Patch("A", map[string]any{}))
	assert.False(t, s.Patch("B", map[string]any{}), "no slot was actually freed")
	assert.Equal(t, 1, s.Len())
}
