package papyrus

import (
	"github.com/papyrusdb/papyrus/cache"
	"github.com/papyrusdb/papyrus/logger"
)

// Journal modes accepted by WithJournalMode.
const (
	JournalDelete   = "delete"
	JournalTruncate = "truncate"
	JournalPersist  = "persist"
	JournalMemory   = "memory"
	JournalWAL      = "wal"
	JournalOff      = "off"
)

// Synchronous levels accepted by WithSynchronous.
const (
	SynchronousOff    = "off"
	SynchronousNormal = "normal"
	SynchronousFull   = "full"
	SynchronousExtra  = "extra"
)

// DefaultTable is the table name used when WithTable is not given.
const DefaultTable = "documents"

type config struct {
	table       string
	strategy    cache.Strategy
	schema      Schema
	codec       Codec
	log         logger.Logger
	journalMode string
	synchronous string
	cacheSize   int
	cacheAll    bool
	caching     bool
	assumeCache bool
	defaults    *bool
	extensions  []Extension
}

// Option configures a Connection at open time.
type Option func(*config)

func defaultConfig() config {
	return config{
		table:       DefaultTable,
		codec:       JSONCodec{},
		log:         logger.NewNoop(),
		journalMode: JournalWAL,
		synchronous: SynchronousNormal,
		caching:     true,
	}
}

// WithTable sets the table the Connection reads and writes. Defaults to
// "documents".
func WithTable(name string) Option {
	return func(c *config) {
		if name != "" {
			c.table = name
		}
	}
}

// WithCache sets the cache strategy. Defaults to an unbounded strategy
// with no maintenance timer. The Connection takes ownership: Close clears
// and closes it.
func WithCache(s cache.Strategy) Option {
	return func(c *config) { c.strategy = s }
}

// WithSchema sets the schema supplying default document shapes. Configuring
// a schema also turns on default materialization unless WithDefaults says
// otherwise.
func WithSchema(s Schema) Option {
	return func(c *config) { c.schema = s }
}

// WithCodec sets the document codec. Defaults to JSONCodec.
func WithCodec(codec Codec) Option {
	return func(c *config) {
		if codec != nil {
			c.codec = codec
		}
	}
}

// WithLogger sets the logger. Defaults to a silent one.
func WithLogger(log logger.Logger) Option {
	return func(c *config) {
		if log != nil {
			c.log = log
		}
	}
}

// WithJournalMode sets the journal_mode pragma applied once at open.
// Defaults to wal.
func WithJournalMode(mode string) Option {
	return func(c *config) { c.journalMode = mode }
}

// WithSynchronous sets the synchronous pragma applied once at open.
// Defaults to normal.
func WithSynchronous(level string) Option {
	return func(c *config) { c.synchronous = level }
}

// WithCacheSize sets the cache_size pragma in pages. Zero leaves the
// driver default.
func WithCacheSize(pages int) Option {
	return func(c *config) { c.cacheSize = pages }
}

// WithCacheAll makes every read and write refresh the cache entry
// regardless of per-call flags.
func WithCacheAll(enabled bool) Option {
	return func(c *config) { c.cacheAll = enabled }
}

// WithCaching sets the connection-level default for the per-call Cache
// flag on writes and scans. Defaults to true.
func WithCaching(enabled bool) Option {
	return func(c *config) { c.caching = enabled }
}

// WithAssumeCache sets the connection-level default for the per-call
// AssumeCache flag. Only sensible when eviction is disabled and the cache
// is known to be complete, such as after Preload.
func WithAssumeCache(enabled bool) Option {
	return func(c *config) { c.assumeCache = enabled }
}

// WithDefaults sets the connection-level default for the per-call
// Defaults flag. When never called, defaults are on exactly when a schema
// is configured.
func WithDefaults(enabled bool) Option {
	return func(c *config) { c.defaults = &enabled }
}

// WithExtensions registers extensions whose Attach hook runs once at the
// end of Open, in order.
func WithExtensions(exts ...Extension) Option {
	return func(c *config) { c.extensions = append(c.extensions, exts...) }
}

// callConfig carries the flags recognized by one data-plane call. The
// starting values come from the connection configuration.
type callConfig struct {
	cache       bool
	assumeCache bool
	defaults    bool
}

// CallOption overrides one behavior flag for a single call.
type CallOption func(*callConfig)

// Cache sets whether this call may admit or refresh a cache entry.
func Cache(enabled bool) CallOption {
	return func(c *callConfig) { c.cache = enabled }
}

// AssumeCache makes this read consult only the in-memory map, never the
// backing store. An absent key is reported as not found even if a row
// exists.
func AssumeCache() CallOption {
	return func(c *callConfig) { c.assumeCache = true }
}

// Defaults sets whether schema defaults materialize for this call.
func Defaults(enabled bool) CallOption {
	return func(c *callConfig) { c.defaults = enabled }
}
