package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoundedNeverExceedsMaxSize(t *testing.T) {
	clk := newFakeClock()
	s := NewBounded(3, EvictOldest, WithClock(clk))
	defer s.Close()

	for i := 0; i < 20; i++ {
		s.Patch(fmt.Sprintf("key-%02d", i), map[string]any{})
		clk.Advance(time.Second)
		assert.LessOrEqual(t, s.Len(), 3)
	}
	assert.Equal(t, 3, s.Len())
}

func TestEvictOldestAdmission(t *testing.T) {
	clk := newFakeClock()
	s := NewBounded(1, EvictOldest, WithClock(clk))
	defer s.Close()

	require.True(t, s.Patch("A", map[string]any{"who": "A"}))
	clk.Advance(time.Second)
	require.True(t, s.Patch("B", map[string]any{"who": "B"}))

	assert.Equal(t, 1, s.Len())
	_, ok := s.Get("A")
	assert.False(t, ok, "A should have been evicted")
	e, ok := s.Get("B")
	require.True(t, ok)
	assert.Equal(t, map[string]any{"who": "B"}, e.Doc)
}

func TestRefusedAdmissionLeavesCacheUnchanged(t *testing.T) {
	s := NewBounded(1, RefuseNew)
	defer s.Close()

	require.True(t, s.Patch("A", map[string]any{}))
	assert.False(t, s.Patch("B", map[string]any{}))

	assert.Equal(t, 1, s.Len())
	_, ok := s.Get("A")
	assert.True(t, ok)
	_, ok = s.Get("B")
	assert.False(t, ok)
}

func TestUpdatingResidentKeyNeverEvicts(t *testing.T) {
	clk := newFakeClock()
	s := NewBounded(2, RefuseNew, WithClock(clk))
	defer s.Close()

	require.True(t, s.Patch("A", map[string]any{"v": 1}))
	require.True(t, s.Patch("B", map[string]any{"v": 1}))

	// The map is full, but refreshing a resident key must still succeed
	// even under a policy that refuses all new admissions.
	require.True(t, s.Patch("A", map[string]any{"v": 2}))

	assert.Equal(t, 2, s.Len())
	e, ok := s.Get("A")
	require.True(t, ok)
	assert.Equal(t, map[string]any{"v": 2}, e.Doc)
}

func TestEvictRandomFreesASlot(t *testing.T) {
	s := NewBounded(2, EvictRandom)
	defer s.Close()

	s.Patch("A", map[string]any{})
	s.Patch("B", map[string]any{})
	require.True(t, s.Patch("C", map[string]any{}))

	assert.Equal(t, 2, s.Len())
	_, ok := s.Get("C")
	assert.True(t, ok, "the new key is always admitted")
}

func TestNewBoundedPanicsOnBadArguments(t *testing.T) {
	assert.Panics(t, func() { NewBounded(0, EvictOldest) })
	assert.Panics(t, func() { NewBounded(4, nil) })
}
