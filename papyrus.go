package papyrus

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	_ "modernc.org/sqlite"

	"github.com/papyrusdb/papyrus/cache"
	"github.com/papyrusdb/papyrus/docpath"
	"github.com/papyrusdb/papyrus/logger"
)

// Connection binds one table in an SQLite database to a private in-memory
// cache. Reads are cache-first; writes always go through to the store and
// refresh the cache according to the call flags. A Connection runs its
// operations one at a time: read-modify-write helpers are not atomic with
// respect to other connections sharing the same database file.
type Connection struct {
	db       *sql.DB
	stmts    *statements
	strategy cache.Strategy
	schema   Schema
	codec    Codec
	log      logger.Logger

	table       string
	cacheAll    bool
	caching     bool
	assumeCache bool
	defaultsOn  bool

	mu     sync.Mutex
	closed bool
	txn    *Txn
}

func validJournalMode(mode string) bool {
	switch mode {
	case JournalDelete, JournalTruncate, JournalPersist, JournalMemory, JournalWAL, JournalOff:
		return true
	}
	return false
}

func validSynchronous(level string) bool {
	switch level {
	case SynchronousOff, SynchronousNormal, SynchronousFull, SynchronousExtra:
		return true
	}
	return false
}

// Open opens the database file at path, creating it and the configured
// table as needed, and returns a Connection bound to that table. An empty
// path opens an in-memory database. Any failure to open or initialize the
// store is marked with ErrInit.
func Open(ctx context.Context, path string, opts ...Option) (*Connection, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.journalMode = strings.ToLower(cfg.journalMode)
	cfg.synchronous = strings.ToLower(cfg.synchronous)
	if !validJournalMode(cfg.journalMode) {
		return nil, errors.Mark(errors.Newf("unknown journal mode %q", cfg.journalMode), ErrInit)
	}
	if !validSynchronous(cfg.synchronous) {
		return nil, errors.Mark(errors.Newf("unknown synchronous level %q", cfg.synchronous), ErrInit)
	}

	if path == "" {
		path = ":memory:"
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "open %s", path), ErrInit)
	}

	// One operation at a time, matching the cooperative model. A single
	// pooled connection also keeps SQLITE_BUSY out of the data plane.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		fmt.Sprintf("PRAGMA journal_mode=%s", cfg.journalMode),
		fmt.Sprintf("PRAGMA synchronous=%s", cfg.synchronous),
	}
	if cfg.cacheSize != 0 {
		pragmas = append(pragmas, fmt.Sprintf("PRAGMA cache_size=%d", cfg.cacheSize))
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, errors.Mark(errors.Wrap(err, pragma), ErrInit)
		}
	}

	stmts := newStatements(db, cfg.table)
	if _, err := db.ExecContext(ctx, stmts.createText()); err != nil {
		db.Close()
		return nil, errors.Mark(errors.Wrapf(err, "create table %s", cfg.table), ErrInit)
	}

	strategy := cfg.strategy
	if strategy == nil {
		strategy = cache.New(context.Background())
	}
	defaultsOn := cfg.schema != nil
	if cfg.defaults != nil {
		defaultsOn = *cfg.defaults
	}

	c := &Connection{
		db:          db,
		stmts:       stmts,
		strategy:    strategy,
		schema:      cfg.schema,
		codec:       cfg.codec,
		log:         cfg.log.With(map[string]interface{}{"table": cfg.table}),
		table:       cfg.table,
		cacheAll:    cfg.cacheAll,
		caching:     cfg.caching,
		assumeCache: cfg.assumeCache,
		defaultsOn:  defaultsOn,
	}
	c.log.Debug("opened %s (journal=%s, synchronous=%s)", path, cfg.journalMode, cfg.synchronous)

	for _, ext := range cfg.extensions {
		if err := ext.Attach(ctx, c); err != nil {
			strategy.Close()
			db.Close()
			return nil, errors.Mark(errors.Wrap(err, "attaching extension"), ErrInit)
		}
	}
	return c, nil
}

// Table returns the name of the table this Connection reads and writes.
func (c *Connection) Table() string {
	return c.table
}

func (c *Connection) guard() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	return nil
}

// newCall resolves the flags for one operation: connection defaults first,
// then the caller's overrides.
func (c *Connection) newCall(cacheDefault bool, opts []CallOption) callConfig {
	cc := callConfig{
		cache:       cacheDefault,
		assumeCache: c.assumeCache,
		defaults:    c.defaultsOn,
	}
	for _, opt := range opts {
		opt(&cc)
	}
	return cc
}

// Fetch reads the value addressed by pathlike. The boolean reports whether
// a defined value was found. Cache misses run the prepared fetch and admit
// the decoded document when the Cache flag allows (on by default for
// reads); with a schema and the Defaults flag, an absent key materializes
// the default shape without persisting it. Returned containers are deep
// copies, so mutating them never reaches the cache.
func (c *Connection) Fetch(ctx context.Context, pathlike string, opts ...CallOption) (bool, any, error) {
	if err := c.guard(); err != nil {
		return false, nil, err
	}
	p, err := docpath.Parse(pathlike)
	if err != nil {
		return false, nil, err
	}
	return c.fetch(ctx, p, c.newCall(true, opts))
}

func (c *Connection) fetch(ctx context.Context, p docpath.Path, cc callConfig) (bool, any, error) {
	doc, found, err := c.root(ctx, p.Key, cc)
	if err != nil || !found {
		return false, nil, err
	}
	if p.Root() {
		return true, doc, nil
	}
	v, ok := docpath.Get(doc, p.Segments)
	if !ok {
		return false, nil, nil
	}
	return true, v, nil
}

// root returns a private copy of the document stored under key. The cache
// is consulted first; under AssumeCache it is the only tier consulted.
func (c *Connection) root(ctx context.Context, key string, cc callConfig) (any, bool, error) {
	if e, ok := c.strategy.Get(key); ok {
		doc, err := deepCopy(c.codec, e.Doc)
		if err != nil {
			return nil, false, err
		}
		return doc, true, nil
	}
	if cc.assumeCache {
		return nil, false, nil
	}
	found, doc, err := c.fetchRow(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if !found && cc.defaults && c.schema != nil {
		doc = c.schema.Model()
		found = true
	}
	if !found {
		return nil, false, nil
	}
	if (cc.cache || c.cacheAll) && c.strategy.Patch(key, doc) {
		// The document is resident now; hand back a copy so the caller
		// cannot mutate the cache through the return value.
		copied, err := deepCopy(c.codec, doc)
		if err != nil {
			return nil, false, err
		}
		return copied, true, nil
	}
	return doc, true, nil
}

// fetchRow runs the prepared fetch for key and decodes the stored column.
func (c *Connection) fetchRow(ctx context.Context, key string) (bool, any, error) {
	stmt, err := c.stmts.query(ctx, stmtFetch)
	if err != nil {
		return false, nil, err
	}
	var raw []byte
	if err := stmt.QueryRowContext(ctx, key).Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil, nil
		}
		return false, nil, errors.Wrapf(err, "fetch %s", key)
	}
	doc, err := c.codec.Unmarshal(raw)
	if err != nil {
		return false, nil, errors.Wrapf(err, "decode %s", key)
	}
	return true, doc, nil
}

// Set writes doc at the location addressed by pathlike and persists the
// whole root document with insert-or-replace semantics. Root-level writes
// require a container value. Nested writes reshape the current document,
// a schema default when the key is absent and the Defaults flag is on, or
// an empty object. The write always reaches the store; the cache entry
// refreshes when the call's Cache flag is set, when the connection caches
// everything, or when the key is already resident.
func (c *Connection) Set(ctx context.Context, pathlike string, doc any, opts ...CallOption) error {
	if err := c.guard(); err != nil {
		return err
	}
	p, err := docpath.Parse(pathlike)
	if err != nil {
		return err
	}
	return c.set(ctx, p, doc, c.newCall(c.caching, opts))
}

func (c *Connection) set(ctx context.Context, p docpath.Path, doc any, cc callConfig) error {
	var root any
	if p.Root() {
		if !docpath.IsDocument(doc) {
			return errors.Mark(errors.Newf("value stored at %q must be a container, got %T", p.Key, doc), ErrInvalidDocument)
		}
		root = doc
	} else {
		base, found, err := c.currentRoot(ctx, p.Key, cc)
		if err != nil {
			return err
		}
		if !found {
			if cc.defaults && c.schema != nil {
				base = c.schema.Model()
			} else {
				base = map[string]any{}
			}
		}
		root, err = docpath.Set(base, p.Segments, doc)
		if err != nil {
			return err
		}
	}
	return c.persist(ctx, p.Key, root, cc)
}

// currentRoot reads the document under key for a read-modify-write cycle.
// Neither cache admission nor schema defaults apply; the caller decides
// both for the final document.
func (c *Connection) currentRoot(ctx context.Context, key string, cc callConfig) (any, bool, error) {
	read := cc
	read.cache = false
	read.defaults = false
	return c.root(ctx, key, read)
}

// persist encodes root, upserts it under key, and refreshes the cache per
// the call flags.
func (c *Connection) persist(ctx context.Context, key string, root any, cc callConfig) error {
	raw, err := c.codec.Marshal(root)
	if err != nil {
		return errors.Wrapf(err, "encode %s", key)
	}
	if err := c.execUpsert(ctx, key, raw); err != nil {
		return err
	}
	c.refresh(key, raw, cc)
	return nil
}

func (c *Connection) execUpsert(ctx context.Context, key string, raw []byte) error {
	stmt, err := c.stmts.query(ctx, stmtUpsert)
	if err != nil {
		return err
	}
	if _, err := stmt.ExecContext(ctx, key, raw); err != nil {
		return errors.Wrapf(err, "persist %s", key)
	}
	return nil
}

// refresh admits the just-written bytes to the cache when the flags ask
// for it or the key is already resident. The cached document is decoded
// from the stored bytes, never aliased to the caller's value, so cache and
// store stay deep-equal once a key is resident.
func (c *Connection) refresh(key string, raw []byte, cc callConfig) {
	if !cc.cache && !c.cacheAll {
		if _, resident := c.strategy.Get(key); !resident {
			return
		}
	}
	doc, err := c.codec.Unmarshal(raw)
	if err != nil {
		c.log.Warn("cache refresh skipped for %s: %v", key, err)
		return
	}
	c.strategy.Patch(key, doc)
}

// Evict removes the named keys from the cache only; the store is never
// touched. Evicting an absent key is a no-op. With no arguments the whole
// cache is cleared.
func (c *Connection) Evict(keys ...string) {
	if len(keys) == 0 {
		c.strategy.Clear()
		return
	}
	c.strategy.Delete(keys...)
}

// Erase evicts the named keys and deletes their rows in one batched
// statement. Erasing zero keys is a no-op.
func (c *Connection) Erase(ctx context.Context, keys ...string) error {
	if err := c.guard(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	c.strategy.Delete(keys...)
	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}
	if _, err := c.db.ExecContext(ctx, c.stmts.eraseText(len(keys)), args...); err != nil {
		return errors.Wrapf(err, "erase %d keys", len(keys))
	}
	return nil
}

// Exists reports whether pathlike addresses a defined value. Cache side
// effects follow the same flags as Fetch, with the connection's caching
// default.
func (c *Connection) Exists(ctx context.Context, pathlike string, opts ...CallOption) (bool, error) {
	if err := c.guard(); err != nil {
		return false, err
	}
	p, err := docpath.Parse(pathlike)
	if err != nil {
		return false, err
	}
	found, _, err := c.fetch(ctx, p, c.newCall(c.caching, opts))
	return found, err
}

// Find returns the first document satisfying pred. When the Cache flag is
// set the in-memory map is scanned first (iteration order is unspecified)
// and a hit is returned as a deep copy without touching the store. On a
// cache miss, or with the flag unset, rows are scanned in storage order
// and the scan stops at the first match.
func (c *Connection) Find(ctx context.Context, pred func(doc any, key string) bool, opts ...CallOption) (bool, any, error) {
	if err := c.guard(); err != nil {
		return false, nil, err
	}
	cc := c.newCall(c.caching, opts)
	if cc.cache {
		var (
			hit     any
			found   bool
			copyErr error
		)
		c.strategy.Range(func(key string, e cache.Entry) bool {
			if pred(e.Doc, key) {
				hit, copyErr = deepCopy(c.codec, e.Doc)
				found = true
				return false
			}
			return true
		})
		if copyErr != nil {
			return false, nil, copyErr
		}
		if found {
			return true, hit, nil
		}
	}

	stmt, err := c.stmts.query(ctx, stmtListAll)
	if err != nil {
		return false, nil, err
	}
	rows, err := stmt.QueryContext(ctx)
	if err != nil {
		return false, nil, errors.Wrap(err, "scanning table")
	}
	defer rows.Close()
	for rows.Next() {
		var key string
		var raw []byte
		if err := rows.Scan(&key, &raw); err != nil {
			return false, nil, err
		}
		doc, err := c.codec.Unmarshal(raw)
		if err != nil {
			return false, nil, errors.Wrapf(err, "decode %s", key)
		}
		if pred(doc, key) {
			return true, doc, nil
		}
	}
	return false, nil, rows.Err()
}

// Each calls fn once per row in storage order, always reading fresh from
// the store. An error from fn aborts the scan and is returned as is.
func (c *Connection) Each(ctx context.Context, fn func(doc any, key string) error) error {
	if err := c.guard(); err != nil {
		return err
	}
	stmt, err := c.stmts.query(ctx, stmtListAll)
	if err != nil {
		return err
	}
	rows, err := stmt.QueryContext(ctx)
	if err != nil {
		return errors.Wrap(err, "scanning table")
	}
	defer rows.Close()
	for rows.Next() {
		var key string
		var raw []byte
		if err := rows.Scan(&key, &raw); err != nil {
			return err
		}
		doc, err := c.codec.Unmarshal(raw)
		if err != nil {
			return errors.Wrapf(err, "decode %s", key)
		}
		if err := fn(doc, key); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Count returns the number of rows in the table.
func (c *Connection) Count(ctx context.Context) (int64, error) {
	if err := c.guard(); err != nil {
		return 0, err
	}
	stmt, err := c.stmts.query(ctx, stmtCount)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := stmt.QueryRowContext(ctx).Scan(&n); err != nil {
		return 0, errors.Wrap(err, "count")
	}
	return n, nil
}

// Keys returns every key in the table in storage order.
func (c *Connection) Keys(ctx context.Context) ([]string, error) {
	if err := c.guard(); err != nil {
		return nil, err
	}
	stmt, err := c.stmts.query(ctx, stmtListKeys)
	if err != nil {
		return nil, err
	}
	rows, err := stmt.QueryContext(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "listing keys")
	}
	defer rows.Close()
	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// Close closes the prepared statements and the database handle, clears the
// cache, and stops its maintenance timer. Closing an already-closed
// Connection is a caller error and returns ErrClosed.
func (c *Connection) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.closed = true
	c.mu.Unlock()

	c.strategy.Clear()
	c.strategy.Close()
	stmtErr := c.stmts.Close()
	dbErr := c.db.Close()
	c.log.Debug("closed")
	if stmtErr != nil {
		return stmtErr
	}
	return dbErr
}
