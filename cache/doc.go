// Package cache provides the in-memory admission and eviction strategies
// that sit between a papyrus connection and its backing store.
//
// # Strategy Interface
//
// The [Strategy] interface defines the capability set shared by every
// variant: [Strategy.Patch], [Strategy.Get], [Strategy.Delete],
// [Strategy.Len], [Strategy.Clear], [Strategy.Range], and [Strategy.Close].
// The connection only ever talks to this interface, so strategies can be
// swapped without changing calling code. A strategy owns its map outright;
// nothing else removes entries for capacity reasons.
//
// # Variants
//
//   - [New] is unbounded. Admits every patch. Optionally runs a background
//     maintenance timer ([WithMaintenance] together with [WithMaxAge]) that
//     drops entries whose last touch is older than the configured age. The
//     timer is owned by the strategy and canceled by [Strategy.Close].
//
//   - [NewBounded] is restricted to a maximum size. A patch for a new key
//     when the map is full consults the [Policy], which either names
//     victims to free a slot (admission proceeds) or refuses (the patch is
//     silently dropped; the caller's write-through to the backing store has
//     already succeeded). Refreshing a key that is already resident never
//     triggers eviction accounting.
//
// # Eviction Policies
//
// Three policies are provided: [EvictOldest] (deterministic: oldest
// last-touch, lexicographic tie-break), [EvictRandom] (arbitrary victim),
// and [RefuseNew] (never evicts, refuses admission). A policy receives the
// current map and returns victims plus an admit flag; it decides, the
// strategy executes.
//
// # Refusal Is Not Failure
//
// Patch returns false when a bounded strategy refuses admission. This is
// bookkeeping, not an error: the cache is a read accelerator, never the
// durable copy, so skipping an entry only costs a future round trip.
//
// # Timestamps
//
// Every entry carries a last-touch timestamp used by EvictOldest and by
// age-based maintenance. Tests inject a fake clock with [WithClock] to
// drive both deterministically.
package cache
