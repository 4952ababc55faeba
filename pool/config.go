package pool

import (
	"context"
	"os"
	"time"

	"github.com/cockroachdb/errors"
	str2duration "github.com/xhit/go-str2duration/v2"
	"gopkg.in/yaml.v3"

	"github.com/papyrusdb/papyrus"
	"github.com/papyrusdb/papyrus/cache"
)

// Config is the YAML shape FromConfig loads. Durations accept day suffixes
// ("1d12h") in addition to the usual time.ParseDuration units.
type Config struct {
	Path        string        `yaml:"path"`
	JournalMode string        `yaml:"journal_mode"`
	Synchronous string        `yaml:"synchronous"`
	CacheSize   int           `yaml:"cache_size"`
	Tables      []TableConfig `yaml:"tables"`
}

// TableConfig describes one labeled connection.
type TableConfig struct {
	Label string      `yaml:"label"`
	Cache CacheConfig `yaml:"cache"`
}

// CacheConfig selects the cache strategy for one label. A MaxSize of zero
// means unbounded; a positive MaxSize requires a policy.
type CacheConfig struct {
	MaxSize     int    `yaml:"max_size"`
	Policy      string `yaml:"policy"` // oldest | random | refuse
	MaxAge      string `yaml:"max_age"`
	Maintenance string `yaml:"maintenance"`
}

func (c CacheConfig) strategy(ctx context.Context) (cache.Strategy, error) {
	var opts []cache.Option
	if c.MaxAge != "" {
		d, err := parseDuration(c.MaxAge)
		if err != nil {
			return nil, errors.Wrap(err, "max_age")
		}
		opts = append(opts, cache.WithMaxAge(d))
	}
	if c.Maintenance != "" {
		d, err := parseDuration(c.Maintenance)
		if err != nil {
			return nil, errors.Wrap(err, "maintenance")
		}
		opts = append(opts, cache.WithMaintenance(d))
	}
	if c.MaxSize <= 0 {
		return cache.New(ctx, opts...), nil
	}
	var policy cache.Policy
	switch c.Policy {
	case "", "oldest":
		policy = cache.EvictOldest
	case "random":
		policy = cache.EvictRandom
	case "refuse":
		policy = cache.RefuseNew
	default:
		return nil, errors.Newf("unknown eviction policy %q", c.Policy)
	}
	return cache.NewBounded(c.MaxSize, policy, opts...), nil
}

func parseDuration(s string) (time.Duration, error) {
	return str2duration.ParseDuration(s)
}

// FromConfig loads a YAML pool definition and opens a connection for every
// listed label eagerly, so configuration errors surface at startup rather
// than on first use.
func FromConfig(ctx context.Context, file string) (*Pool, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", file)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrapf(err, "parsing %s", file)
	}
	return FromConfigData(ctx, cfg)
}

// FromConfigData builds a pool from an already-parsed Config.
func FromConfigData(ctx context.Context, cfg Config) (*Pool, error) {
	var shared []papyrus.Option
	if cfg.JournalMode != "" {
		shared = append(shared, papyrus.WithJournalMode(cfg.JournalMode))
	}
	if cfg.Synchronous != "" {
		shared = append(shared, papyrus.WithSynchronous(cfg.Synchronous))
	}
	if cfg.CacheSize != 0 {
		shared = append(shared, papyrus.WithCacheSize(cfg.CacheSize))
	}

	p := New(ctx, cfg.Path, shared...)
	for _, table := range cfg.Tables {
		if table.Label == "" {
			p.Disconnect()
			return nil, errors.New("table entry missing label")
		}
		strategy, err := table.Cache.strategy(ctx)
		if err != nil {
			p.Disconnect()
			return nil, errors.Wrapf(err, "table %q", table.Label)
		}
		p.mu.Lock()
		p.labelOpts[table.Label] = []papyrus.Option{papyrus.WithCache(strategy)}
		p.mu.Unlock()
		if _, err := p.Get(table.Label); err != nil {
			p.Disconnect()
			return nil, err
		}
	}
	return p, nil
}
