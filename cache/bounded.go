package cache

import (
	"sync"
)

type bounded struct {
	mutex   sync.Mutex
	entries map[string]Entry
	maxSize int
	policy  Policy
	cfg     config
}

var _ Strategy = (*bounded)(nil)

// NewBounded returns the restricted strategy: the map never holds more than
// maxSize entries. A Patch for a new key at capacity consults the eviction
// policy, which either names victims to free a slot or refuses admission.
// Refreshing a resident key never triggers eviction accounting. Panics if
// maxSize < 1 or policy is nil.
func NewBounded(maxSize int, policy Policy, opts ...Option) Strategy {
	if maxSize < 1 {
		panic("cache: NewBounded requires maxSize >= 1")
	}
	if policy == nil {
		panic("cache: NewBounded requires an eviction policy")
	}
	return &bounded{
		entries: make(map[string]Entry, maxSize),
		maxSize: maxSize,
		policy:  policy,
		cfg:     applyOptions(opts),
	}
}

func (s *bounded) Patch(key string, doc any) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if _, ok := s.entries[key]; ok {
		s.entries[key] = Entry{Doc: doc, Touched: s.cfg.clock.Now()}
		return true
	}
	if len(s.entries) >= s.maxSize {
		victims, admit := s.policy(s.entries)
		if !admit {
			return false
		}
		for _, victim := range victims {
			delete(s.entries, victim)
		}
		if len(s.entries) >= s.maxSize {
			// The policy admitted without freeing a slot; refusing keeps
			// the size bound intact.
			return false
		}
	}
	s.entries[key] = Entry{Doc: doc, Touched: s.cfg.clock.Now()}
	return true
}

func (s *bounded) Get(key string) (Entry, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return Entry{}, false
	}
	e.Touched = s.cfg.clock.Now()
	s.entries[key] = e
	return e, true
}

func (s *bounded) Delete(keys ...string) {
	s.mutex.Lock()
	for _, key := range keys {
		delete(s.entries, key)
	}
	s.mutex.Unlock()
}

func (s *bounded) Len() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.entries)
}

func (s *bounded) Clear() {
	s.mutex.Lock()
	s.entries = make(map[string]Entry, s.maxSize)
	s.mutex.Unlock()
}

func (s *bounded) Range(fn func(key string, e Entry) bool) {
	s.mutex.Lock()
	type pair struct {
		key   string
		entry Entry
	}
	snapshot := make([]pair, 0, len(s.entries))
	for k, e := range s.entries {
		snapshot = append(snapshot, pair{k, e})
	}
	s.mutex.Unlock()
	for _, p := range snapshot {
		if !fn(p.key, p.entry) {
			return
		}
	}
}

// Close is a no-op: the bounded strategy runs no maintenance timer.
func (s *bounded) Close() {}
