package httpcache

import (
	"fmt"

	"github.com/AdguardTeam/golibs/log"
	"github.com/dustin/go-humanize"
)

// ByteSize is a size in bytes with a human-readable String(), following the
// convention (and naming) bboehmke-gitmproxy uses for its own cache size
// tunables.
type ByteSize int64

func (b ByteSize) String() string {
	return humanize.IBytes(uint64(b))
}

// DisconnectedMode controls how the cache behaves when the client has no
// network connectivity, per spec §3.4.
type DisconnectedMode int

const (
	// DisconnectedNone is normal online operation.
	DisconnectedNone DisconnectedMode = iota
	// DisconnectedNormal serves stale/cached responses when possible and
	// fails requests only when nothing usable is cached.
	DisconnectedNormal
	// DisconnectedExternal never attempts the network: every request
	// must be satisfiable from the cache.
	DisconnectedExternal
)

const (
	// defaultTotalSize is libdap4's CACHE_TOTAL_SIZE (20 MiB).
	defaultTotalSize ByteSize = 20 * 1 << 20
	// minTotalSize is libdap4's MIN_CACHE_TOTAL_SIZE (5 MiB): SetMaxSize
	// clamps any smaller request up to this floor.
	minTotalSize ByteSize = 5 * 1 << 20
	// defaultMaxEntrySize is libdap4's MAX_CACHE_ENTRY_SIZE (3 MiB).
	defaultMaxEntrySize ByteSize = 3 * 1 << 20
)

// Config holds the tunable, cache-wide policy properties of spec §3.4.
// Fields are tagged for decoding via github.com/caarlos0/env, the
// convention bboehmke-gitmproxy uses for its own cache Config, so a client
// can build one straight from the process environment with
// env.ParseAs[Config]() and then pass it to NewCache.
type Config struct {
	// Root is the cache root directory. If empty, NewCache resolves it
	// from DODS_CACHE, then TMP, then TEMP, then a platform default, per
	// spec §6.2.
	Root string `env:"DODS_CACHE"`

	TotalSize         ByteSize `env:"HTTPCACHE_TOTAL_SIZE" envDefault:"20971520"`
	MaxEntrySize      ByteSize `env:"HTTPCACHE_MAX_ENTRY_SIZE" envDefault:"3145728"`
	DefaultExpiration int64    `env:"HTTPCACHE_DEFAULT_EXPIRATION" envDefault:"86400"`

	Enabled        bool `env:"HTTPCACHE_ENABLED" envDefault:"true"`
	CacheProtected bool `env:"HTTPCACHE_PROTECTED" envDefault:"false"`
	ExpireIgnored  bool `env:"HTTPCACHE_EXPIRE_IGNORED" envDefault:"false"`
	AlwaysValidate bool `env:"HTTPCACHE_ALWAYS_VALIDATE" envDefault:"false"`

	Disconnected DisconnectedMode `env:"-"`

	// Force, when true, removes a stale lockfile found at construction
	// instead of leaving the cache disabled.
	Force bool `env:"HTTPCACHE_FORCE" envDefault:"false"`
}

// folderSize returns 10% of TotalSize, reserved for metadata/directory
// overhead, per spec §3.4.
func (c Config) folderSize() int64 { return int64(c.TotalSize) / 10 }

// gcBuffer returns 10% of TotalSize, the headroom GC tries to leave free.
func (c Config) gcBuffer() int64 { return int64(c.TotalSize) / 10 }

// normalize clamps TotalSize/MaxEntrySize into their constrained ranges
// (spec §3.4) and reports whether any clamp actually changed a value.
// SetMaxSize, SetMaxEntrySize and SetDefaultExpiration discard that result;
// none of them runs garbage collection or rewrites the index.
func (c *Config) normalize() (changed bool) {
	if c.TotalSize < minTotalSize {
		c.TotalSize = minTotalSize
		changed = true
	}
	maxAllowedEntry := ByteSize(int64(c.TotalSize) - c.folderSize())
	if c.MaxEntrySize <= 0 {
		c.MaxEntrySize = defaultMaxEntrySize
		changed = true
	}
	if c.MaxEntrySize >= maxAllowedEntry {
		c.MaxEntrySize = maxAllowedEntry
		changed = true
	}
	if c.DefaultExpiration <= 0 {
		c.DefaultExpiration = defaultExpirationSeconds
		changed = true
	}
	return changed
}

// Print logs the effective configuration, mirroring the log.Info/humanize
// pairing bboehmke-gitmproxy's Config.Print uses.
func (c Config) Print() {
	log.Info("httpcache config:")
	log.Info("  Root: %s", c.Root)
	log.Info("  TotalSize: %s", c.TotalSize)
	log.Info("  MaxEntrySize: %s", c.MaxEntrySize)
	log.Info("  DefaultExpiration: %ds", c.DefaultExpiration)
	log.Info("  Enabled: %t", c.Enabled)
	log.Info("  CacheProtected: %t", c.CacheProtected)
	log.Info("  ExpireIgnored: %t", c.ExpireIgnored)
	log.Info("  AlwaysValidate: %t", c.AlwaysValidate)
}

// DefaultConfig returns a Config populated with the spec's §3.4 defaults.
func DefaultConfig() Config {
	return Config{
		TotalSize:         defaultTotalSize,
		MaxEntrySize:      defaultMaxEntrySize,
		DefaultExpiration: defaultExpirationSeconds,
		Enabled:           true,
	}
}

func (c Config) String() string {
	return fmt.Sprintf("Config{Root:%s TotalSize:%s MaxEntrySize:%s}", c.Root, c.TotalSize, c.MaxEntrySize)
}
