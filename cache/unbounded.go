package cache

import (
	"context"
	"sync"
	"time"
)

type unbounded struct {
	ctx       context.Context
	cancel    context.CancelFunc
	mutex     sync.Mutex
	entries   map[string]Entry
	waitGroup sync.WaitGroup
	once      sync.Once
	cfg       config
}

var _ Strategy = (*unbounded)(nil)

// New returns the unbounded strategy: every Patch is admitted. When both a
// max age and a maintenance interval are configured, a background timer
// drops entries whose last touch is older than the max age; Close cancels
// it. The context bounds the timer's lifetime.
func New(parent context.Context, opts ...Option) Strategy {
	cfg := applyOptions(opts)
	ctx, cancel := context.WithCancel(parent)
	s := &unbounded{
		ctx:     ctx,
		cancel:  cancel,
		entries: make(map[string]Entry),
		cfg:     cfg,
	}
	if cfg.maintenance > 0 && cfg.maxAge > 0 {
		s.waitGroup.Add(1)
		go s.run()
	}
	return s
}

func (s *unbounded) Patch(key string, doc any) bool {
	s.mutex.Lock()
	s.entries[key] = Entry{Doc: doc, Touched: s.cfg.clock.Now()}
	s.mutex.Unlock()
	return true
}

func (s *unbounded) Get(key string) (Entry, bool) {
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

func (s *unbounded) Delete(keys ...string) {
	s.mutex.Lock()
	for _, key := range keys {
		delete(s.entries, key)
	}
	s.mutex.Unlock()
}

func (s *unbounded) Len() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.entries)
}

func (s *unbounded) Clear() {
	s.mutex.Lock()
	s.entries = make(map[string]Entry)
	s.mutex.Unlock()
}

func (s *unbounded) Range(fn func(key string, e Entry) bool) {
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

func (s *unbounded) Close() {
	s.once.Do(func() {
		s.cancel()
		s.waitGroup.Wait()
	})
}

func (s *unbounded) run() {
	defer s.waitGroup.Done()
	ticker := time.NewTicker(s.cfg.maintenance)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			cutoff := s.cfg.clock.Now().Add(-s.cfg.maxAge)
			s.mutex.Lock()
			for key, e := range s.entries {
				if e.Touched.Before(cutoff) {
					delete(s.entries, key)
				}
			}
			s.mutex.Unlock()
		}
	}
}
