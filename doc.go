// Package papyrus is a document-oriented access layer over SQLite. It maps
// string keys to JSON-like documents stored in one two-column table,
// addresses nested fields with dotted paths, and keeps a configurable
// in-memory cache synchronized with the store so repeated reads skip the
// round trip.
//
// # Connections
//
// [Open] binds a [Connection] to one table of one database file (an empty
// path opens an in-memory database). Reads are cache-first: [Connection.Fetch]
// consults the strategy's map before running the prepared fetch statement
// and admits what it finds. Writes are write-through: [Connection.Set]
// always persists the whole root document with insert-or-replace semantics
// and refreshes the cache entry according to the call flags, so once a key
// is resident, cache and store never diverge. The cache is only ever a read
// accelerator; the store is the durable copy.
//
//	conn, err := papyrus.Open(ctx, "app.db")
//	if err != nil { ... }
//	defer conn.Close()
//
//	err = conn.Set(ctx, "u1", map[string]any{"balance": 100})
//	_, balance, err := conn.Fetch(ctx, "u1.balance")
//
// # Paths
//
// A path specifier is a root key optionally followed by dot-separated
// segments addressing a location inside the document ("u1.inventory.0").
// Nested writes create missing intermediate containers; integer segments
// create sequences, everything else creates objects. The value stored at
// the root of a key must itself be a container, never a bare scalar.
// Parsing and traversal live in the docpath package.
//
// # Caching
//
// The cache package provides the strategies: unbounded (optionally with
// age-based maintenance on a timer) and bounded (a maximum size guarded by
// a pluggable eviction policy). Pass one with [WithCache]; the default is
// unbounded with no timer. A bounded strategy may refuse admission, which
// silently skips the cache while the write-through still succeeds.
//
// # Selections
//
// [Connection.Select] materializes a filtered snapshot of the whole table
// into a [Selection]: an in-memory working set with relational operators
// (Order, Filter, Limit, Group, Join, Map) that never reach back to the
// store or the shared cache. Select decodes every row, so it is O(table
// size); for large stores prefer [Connection.Find] or [Connection.Each].
//
// # Defaults
//
// A [Schema] supplies default document shapes. With one configured, reads
// of absent keys materialize the default instead of reporting not-found,
// and writes to absent keys build on a copy of it, so helpers like
// [Connection.Push] can address arrays the schema guarantees.
//
// # Transactions
//
// [Connection.Begin] returns a [Txn] that stages writes in memory and
// applies them inside one database transaction at Commit, all or nothing.
// One open Txn per Connection; a second Begin yields no handle.
package papyrus
