package cache

import (
	"time"
)

// Entry is one cached document plus its bookkeeping timestamp. Touched is
// updated on every admission, refresh, and read; it exists for eviction
// accounting only and is never part of the document handed back to callers.
type Entry struct {
	Doc     any
	Touched time.Time
}

// Strategy is the capability set shared by every cache variant. A strategy
// owns its key→Entry map outright: callers only ever observe entries through
// these methods and must not retain or mutate what Range exposes.
type Strategy interface {
	// Patch admits a new entry or refreshes an existing one. It reports
	// whether the document is resident afterwards; a bounded strategy may
	// refuse admission, which is an expected outcome, not an error.
	Patch(key string, doc any) bool

	// Get returns the entry for key, updating its last-read timestamp.
	Get(key string) (Entry, bool)

	// Delete removes the named keys. Absent keys are ignored.
	Delete(keys ...string)

	// Len returns the number of resident entries.
	Len() int

	// Clear removes every entry.
	Clear()

	// Range calls fn for each resident entry in unspecified order until fn
	// returns false. It operates on a snapshot, so fn may call back into
	// the strategy.
	Range(fn func(key string, e Entry) bool)

	// Close cancels the maintenance timer, if any. It is safe to call more
	// than once.
	Close()
}

// Clock provides time for entry timestamps. Tests inject a fake to drive
// age-based maintenance deterministically.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// config holds the resolved configuration for a strategy.
type config struct {
	maxAge      time.Duration
	maintenance time.Duration
	clock       Clock
}

// Option configures a Strategy.
type Option func(*config)

func defaultConfig() config {
	return config{clock: realClock{}}
}

func applyOptions(opts []Option) config {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithMaxAge sets the age beyond which maintenance drops an entry, measured
// from its last touch. Zero (the default) never drops by age.
func WithMaxAge(d time.Duration) Option {
	return func(c *config) { c.maxAge = d }
}

// WithMaintenance sets the interval of the background maintenance timer.
// Zero (the default) disables the timer. The timer only runs when a max
// age is configured; it applies to the unbounded strategy.
func WithMaintenance(d time.Duration) Option {
	return func(c *config) { c.maintenance = d }
}

// WithClock injects the clock used for entry timestamps. Defaults to the
// wall clock.
func WithClock(clk Clock) Option {
	return func(c *config) {
		if clk != nil {
			c.clock = clk
		}
	}
}
