package cache

// Policy decides, given the current map of a full bounded strategy, whether
// an admission may proceed. It returns the keys to evict and an admit flag;
// the strategy performs the actual deletions. A policy must not mutate the
// map it is given. Refusing admission (admit == false) is a silent,
// expected outcome: the write-through to the backing store has already
// happened, only the cache skips the entry.
type Policy func(entries map[string]Entry) (victims []string, admit bool)

// EvictOldest frees the entry with the oldest last-touch timestamp,
// breaking ties by the lexicographically smallest key so the choice is
// deterministic for a given map state.
func EvictOldest(entries map[string]Entry) ([]string, bool) {
	var victim string
	found := false
	for key, e := range entries {
		if !found {
			victim, found = key, true
			continue
		}
		v := entries[victim]
		if e.Touched.Before(v.Touched) || (e.Touched.Equal(v.Touched) && key < victim) {
			victim = key
		}
	}
	if !found {
		return nil, true
	}
	return []string{victim}, true
}

// EvictRandom frees an arbitrary resident entry. Which entry is evicted is
// unspecified; use EvictOldest where reproducibility matters.
func EvictRandom(entries map[string]Entry) ([]string, bool) {
	for key := range entries {
		return []string{key}, true
	}
	return nil, true
}

// RefuseNew never evicts: once the map is full, new keys are simply not
// admitted. Resident keys continue to refresh as usual.
func RefuseNew(map[string]Entry) ([]string, bool) {
	return nil, false
}
