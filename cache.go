package httpcache

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/AdguardTeam/golibs/log"
)

// Cache is an RFC 2616 §13 compliant on-disk HTTP response cache, bound to
// a single root directory. Every exported method is safe to call from any
// goroutine; each acquires the interface mutex (mu) internally, per spec
// §4.11/§5. There is no per-entry mutex: every CacheEntry field, including
// its locked counter, is guarded by mu alone.
type Cache struct {
	mu sync.Mutex

	root      string
	indexPath string

	table       *table
	currentSize int64
	newEntries  int

	cfg     Config
	enabled bool

	// lockedEntries maps an outstanding body handle to the entry it was
	// checked out from, mirroring libdap4's d_locked_entries. Protected by
	// mu, same as the CacheEntry.locked counters it tracks.
	lockedEntries map[*os.File]*CacheEntry

	openFiles *openFileList
	signals   *signalCleanup
	metrics   *metrics
	clock     clock

	reqDirectives  requestDirectives
	requestNoStore bool
}

// NewCache constructs a Cache rooted at cfg.Root (resolved per spec §6.2 if
// empty), acquiring the single-writer lockfile. If the lock cannot be
// acquired and cfg.Force is false, NewCache does not fail: it returns a
// Cache with every mutating operation returning ErrDisabled, matching spec
// §7 ("Failure to obtain the process lock — construction succeeds but
// leaves the cache disabled").
func NewCache(cfg Config) (*Cache, error) {
	cfg.normalize()

	root, err := resolveCacheRoot(cfg.Root)
	if err != nil {
		return nil, err
	}

	c := &Cache{
		root:          root,
		indexPath:     filepath.Join(root, indexFileName),
		table:         newTable(),
		cfg:           cfg,
		lockedEntries: make(map[*os.File]*CacheEntry),
		openFiles:     newOpenFileList(),
		clock:         defaultClock,
		reqDirectives: requestDirectives{maxAge: -1, maxStale: -1, minFresh: -1},
	}

	acquired, lockErr := acquireSingleUserLock(root, cfg.Force)
	if lockErr != nil {
		return nil, lockErr
	}
	if !acquired {
		log.Error("%v", lockError(root))
		c.enabled = false
		return c, nil
	}

	entries, err := readIndex(c.indexPath)
	if err != nil {
		releaseSingleUserLock(root)
		return nil, err
	}
	for _, e := range entries {
		c.table.add(e)
		c.currentSize += e.Size
	}

	c.enabled = cfg.Enabled
	c.metrics = newMetrics(root)
	c.signals = startSignalCleanup(root, c.openFiles)

	return c, nil
}

// resolveCacheRoot implements spec §6.2: if root is empty, use the first
// non-empty of DODS_CACHE, TMP, TEMP, else /tmp, with "dods-cache/"
// appended.
func resolveCacheRoot(root string) (string, error) {
	if root != "" {
		return root, nil
	}
	for _, env := range []string{"DODS_CACHE", "TMP", "TEMP"} {
		if v := os.Getenv(env); v != "" {
			return filepath.Join(v, "dods-cache"), nil
		}
	}
	return filepath.Join(os.TempDir(), "dods-cache"), nil
}

// Close writes the index file and releases the single-writer lock. It is
// the orderly-shutdown counterpart to the signal-driven cleanup path: both
// ultimately release the same lockfile, but Close additionally persists
// the in-memory table so a later NewCache over the same root picks up
// where this one left off.
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.signals == nil {
		// The single-writer lock was never acquired: nothing to persist
		// or release.
		return nil
	}
	c.signals.stop()

	// Index write failures at shutdown are logged and swallowed, per spec
	// §7.
	if err := writeIndex(c.indexPath, c.table); err != nil {
		log.Error("httpcache: failed to write index at close: %v", err)
	}
	releaseSingleUserLock(c.root)
	return nil
}

// GetCacheRoot returns the cache's root directory.
func (c *Cache) GetCacheRoot() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.root
}

// IsCacheEnabled reports whether the cache is usable. A cache is disabled
// if it failed to acquire its single-writer lock, or was explicitly
// disabled via SetCacheEnabled.
func (c *Cache) IsCacheEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}

// SetCacheEnabled enables or disables the cache.
func (c *Cache) SetCacheEnabled(mode bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = mode
}

// IsURLInCache reports whether url has an entry in the table, without
// regard to freshness.
func (c *Cache) IsURLInCache(url string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.table.get(url) != nil
}

// GetMaxSize returns the cache-wide total_size property in bytes.
func (c *Cache) GetMaxSize() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return int64(c.cfg.TotalSize)
}

// SetMaxSize sets total_size, clamping any request below MIN_CACHE_TOTAL_SIZE
// up to that floor, per spec §8's clamp property.
func (c *Cache) SetMaxSize(size int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg.TotalSize = ByteSize(size)
	c.cfg.normalize()
}

// GetMaxEntrySize returns the max_entry_size property in bytes.
func (c *Cache) GetMaxEntrySize() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return int64(c.cfg.MaxEntrySize)
}

// SetMaxEntrySize sets max_entry_size, clamped below total_size-folder_size.
func (c *Cache) SetMaxEntrySize(size int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg.MaxEntrySize = ByteSize(size)
	c.cfg.normalize()
}

// GetDefaultExpiration returns default_expiration in seconds.
func (c *Cache) GetDefaultExpiration() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg.DefaultExpiration
}

// SetDefaultExpiration sets default_expiration in seconds.
func (c *Cache) SetDefaultExpiration(seconds int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg.DefaultExpiration = seconds
	c.cfg.normalize()
}

// IsCacheProtected reports the cache_protected property. Per spec §9(b),
// the source leaves this settable but never consults it in the storage
// path; this implementation honors that decision by the same name as a
// refusal condition in CacheResponse (see DESIGN.md).
func (c *Cache) IsCacheProtected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg.CacheProtected
}

// SetCacheProtected sets the cache_protected property.
func (c *Cache) SetCacheProtected(protect bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg.CacheProtected = protect
}

// IsExpireIgnored reports whether expiredGC's sweep phase is skipped.
func (c *Cache) IsExpireIgnored() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg.ExpireIgnored
}

// SetExpireIgnored sets expire_ignored.
func (c *Cache) SetExpireIgnored(ignore bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg.ExpireIgnored = ignore
}

// GetAlwaysValidate reports always_validate.
func (c *Cache) GetAlwaysValidate() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg.AlwaysValidate
}

// SetAlwaysValidate sets always_validate.
func (c *Cache) SetAlwaysValidate(always bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg.AlwaysValidate = always
}

// GetCacheDisconnected returns the disconnected-mode property.
func (c *Cache) GetCacheDisconnected() DisconnectedMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg.Disconnected
}

// SetCacheDisconnected sets the disconnected-mode property.
func (c *Cache) SetCacheDisconnected(mode DisconnectedMode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg.Disconnected = mode
}

// IsURLValid implements spec §4.3's validity decision. It returns
// ErrNotFound if url has no cache entry, except while always_validate or a
// request-side no-cache/no-store is in effect: then it reports false
// without looking url up.
func (c *Cache) IsURLValid(url string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfg.AlwaysValidate || c.requestNoStore {
		return false, nil
	}

	entry := c.table.get(url)
	if entry == nil {
		return false, fmt.Errorf("%w: %s", ErrNotFound, url)
	}

	return isValid(entry, c.reqDirectives, false, c.clock.now()), nil
}

// GetConditionalRequestHeaders implements spec §4.4.
func (c *Cache) GetConditionalRequestHeaders(url string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := c.table.get(url)
	if entry == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, url)
	}

	return conditionalRequestHeaders(entry), nil
}

// SetCacheControl parses request-side Cache-Control headers (full "Name:
// Value" lines) and stores max-age/max-stale/min-fresh for use by
// IsURLValid, per spec §6.1. The presence of no-cache or no-store disables
// the cache, as SetCacheEnabled(false) does; a later call without them
// does not re-enable it.
func (c *Cache) SetCacheControl(headers []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	dirs := requestDirectives{maxAge: -1, maxStale: -1, minFresh: -1}
	noStore := false

	for _, h := range headers {
		name, value := splitHeaderLine(h)
		if name != "Cache-Control" {
			continue
		}
		for _, part := range strings.Split(value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			key := part
			val := ""
			if idx := strings.Index(part, "="); idx >= 0 {
				key = strings.TrimSpace(part[:idx])
				val = strings.Trim(strings.TrimSpace(part[idx+1:]), `"`)
			}
			n, _ := strconv.ParseInt(val, 10, 64)
			switch strings.ToLower(key) {
			case "no-cache", "no-store":
				noStore = true
			case "max-age":
				dirs.maxAge = n
			case "max-stale":
				if val == "" {
					dirs.maxStale = 1<<63 - 1 // bare max-stale: any staleness acceptable
				} else {
					dirs.maxStale = n
				}
			case "min-fresh":
				dirs.minFresh = n
			}
		}
	}

	c.reqDirectives = dirs
	c.requestNoStore = noStore
	if noStore {
		c.enabled = false
	}
	return nil
}

// CacheResponse implements spec §4.5. It returns (false, nil) for every
// refusal condition the spec lists as non-exceptional (wrong scheme,
// no-cache/no-store headers), and a wrapped ErrIO only for genuine I/O
// failure.
func (c *Cache) CacheResponse(url string, requestTime int64, headers []string, body io.Reader) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.enabled {
		return false, ErrDisabled
	}

	if !hasHTTPScheme(url) {
		if c.metrics != nil {
			c.metrics.refusals.Inc()
		}
		return false, nil
	}

	if !c.cfg.CacheProtected && requiresAuth(headers) {
		if c.metrics != nil {
			c.metrics.refusals.Inc()
		}
		return false, nil
	}

	c.removeEntryLocked(url)

	entry := newCacheEntry()
	entry.URL = url
	entry.Hash = hashURL(url)

	parseHeaders(entry, headers, int64(c.cfg.MaxEntrySize))
	if entry.NoCache {
		if c.metrics != nil {
			c.metrics.refusals.Inc()
		}
		return false, nil
	}

	calculateTime(entry, requestTime, c.clock.now())

	dir, err := createHashDirectory(c.root, entry.Hash)
	if err != nil {
		return false, err
	}
	f, cachename, err := createBodyFile(dir)
	if err != nil {
		return false, err
	}
	entry.CacheName = cachename

	size, err := writeBody(cachename, body, c.openFiles)
	f.Close()
	if err != nil {
		removeEntryFiles(cachename)
		return false, err
	}
	entry.Size = size

	if err := writeMetadata(cachename, headers, c.openFiles); err != nil {
		removeEntryFiles(cachename)
		return false, err
	}

	c.table.add(entry)
	c.currentSize += entry.Size
	if c.metrics != nil {
		c.metrics.stores.Inc()
		c.metrics.currentSize.Set(float64(c.currentSize))
	}

	c.newEntries++
	if c.newEntries > dumpFrequency {
		c.maybeRunGCLocked()
		if err := writeIndex(c.indexPath, c.table); err != nil {
			log.Error("httpcache: failed to write index: %v", err)
		}
		c.newEntries = 0
	}

	return true, nil
}

// GetCachedResponse implements spec §4.6's header-returning variant.
func (c *Cache) GetCachedResponse(url string) (body *os.File, headers []string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.enabled {
		return nil, nil, ErrDisabled
	}

	entry := c.table.get(url)
	if entry == nil {
		if c.metrics != nil {
			c.metrics.misses.Inc()
		}
		return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, url)
	}

	headers, err = readMetadata(entry.CacheName)
	if err != nil {
		return nil, nil, err
	}

	body, err = openBody(entry.CacheName)
	if err != nil {
		return nil, nil, err
	}

	c.checkOutLocked(entry, body)
	return body, headers, nil
}

// GetCachedResponseBody implements spec §4.6's body-only variant.
func (c *Cache) GetCachedResponseBody(url string) (*os.File, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.enabled {
		return nil, ErrDisabled
	}

	entry := c.table.get(url)
	if entry == nil {
		if c.metrics != nil {
			c.metrics.misses.Inc()
		}
		return nil, fmt.Errorf("%w: %s", ErrNotFound, url)
	}

	body, err := openBody(entry.CacheName)
	if err != nil {
		return nil, err
	}

	c.checkOutLocked(entry, body)
	return body, nil
}

// checkOutLocked records body as checked out against entry: hits++,
// locked++, and the body->entry mapping GetCachedResponse/Body callers
// must later release via ReleaseCachedResponse. Must be called with mu
// held.
func (c *Cache) checkOutLocked(entry *CacheEntry, body *os.File) {
	entry.Hits++
	entry.locked++
	c.lockedEntries[body] = entry
	if c.metrics != nil {
		c.metrics.hits.Inc()
	}
}

// ReleaseCachedResponse implements spec §4.6's release half. Releasing a
// handle that was never checked out is an ErrInternal, not a silent
// no-op, matching libdap4's release_cached_response.
func (c *Cache) ReleaseCachedResponse(body *os.File) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.lockedEntries[body]
	if !ok {
		return fmt.Errorf("%w: released handle was not checked out", ErrInternal)
	}

	// The mapping is keyed per handle, so this handle's entry is always
	// removed; only the entry's own locked counter is conditional on it
	// reaching zero. Two concurrent checkouts of the same URL give
	// locked==2 with two distinct keys in lockedEntries — releasing one
	// must not leave the other's key (or this one) stranded in the map.
	delete(c.lockedEntries, body)

	entry.locked--
	if entry.locked < 0 {
		return fmt.Errorf("%w: an unlocked entry was released", ErrInternal)
	}

	return body.Close()
}

// UpdateResponse implements spec §4.7: merge a 304 (or similar)'s headers
// into the entry already on disk for url.
func (c *Cache) UpdateResponse(url string, requestTime int64, headers []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.enabled {
		return ErrDisabled
	}

	entry := c.table.get(url)
	if entry == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, url)
	}

	parseHeaders(entry, headers, int64(c.cfg.MaxEntrySize))
	calculateTime(entry, requestTime, c.clock.now())

	oldHeaders, err := readMetadata(entry.CacheName)
	if err != nil {
		return err
	}
	merged := mergeHeadersByName(headers, oldHeaders)

	return writeMetadata(entry.CacheName, merged, c.openFiles)
}

// mergeHeadersByName merges newHeaders and oldHeaders by header name only,
// new values winning over old ones with the same name, and returns the
// result in reverse insertion order — mirroring libdap4's
// update_response, which loads new headers into a set first (so old
// headers with the same name lose the set-insertion race), then reads the
// set back out in reverse to recover a deterministic order.
func mergeHeadersByName(newHeaders, oldHeaders []string) []string {
	seen := make(map[string]bool)
	var order []string

	for _, h := range newHeaders {
		name, _ := splitHeaderLine(h)
		if !seen[name] {
			seen[name] = true
			order = append(order, h)
		}
	}
	for _, h := range oldHeaders {
		name, _ := splitHeaderLine(h)
		if !seen[name] {
			seen[name] = true
			order = append(order, h)
		}
	}

	result := make([]string, len(order))
	for i, h := range order {
		result[len(order)-1-i] = h
	}
	return result
}

// PurgeCache implements spec §4.10/§7: deletes every entry's files, clears
// the table, and deletes the index, but refuses with ErrInUse if any entry
// is currently checked out.
func (c *Cache) PurgeCache() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.enabled {
		return ErrDisabled
	}
	if len(c.lockedEntries) > 0 {
		return ErrInUse
	}

	c.table.all(func(e *CacheEntry) {
		removeEntryFiles(e.CacheName)
	})
	c.table = newTable()
	c.currentSize = 0

	return deleteIndex(c.indexPath)
}

// removeEntryLocked removes and deletes the files of any existing entry
// for url. Must be called with mu held. It is a no-op if url has no entry.
func (c *Cache) removeEntryLocked(url string) {
	e := c.table.remove(url)
	if e == nil {
		return
	}
	removeEntryFiles(e.CacheName)
	c.currentSize -= e.Size
}

// maybeRunGCLocked runs perform_garbage_collection if the start watermark
// is currently crossed. Must be called with mu held.
func (c *Cache) maybeRunGCLocked() {
	limits := gcLimits{
		totalSize:    int64(c.cfg.TotalSize),
		folderSize:   c.cfg.folderSize(),
		gcBuffer:     c.cfg.gcBuffer(),
		maxEntrySize: int64(c.cfg.MaxEntrySize),
	}
	if !limits.start(c.currentSize) {
		return
	}

	if c.metrics != nil {
		c.metrics.gcRuns.Inc()
	}
	performGarbageCollection(
		c.table,
		limits,
		c.cfg.ExpireIgnored,
		c.clock.now(),
		func() int64 { return c.currentSize },
		func(e *CacheEntry) {
			removeEntryFiles(e.CacheName)
			c.currentSize -= e.Size
			if c.metrics != nil {
				c.metrics.evictions.Inc()
				c.metrics.currentSize.Set(float64(c.currentSize))
			}
		},
	)
}

// hasHTTPScheme reports whether url has an http or https scheme, per spec
// §4.5's refusal condition.
func hasHTTPScheme(url string) bool {
	return len(url) >= 5 && (url[:5] == "http:" || (len(url) >= 6 && url[:6] == "https:"))
}

// requiresAuth reports whether a response's headers indicate it came from
// an authentication-gated resource. This is how cache_protected (spec §9b,
// "settable but not consulted anywhere in the storage path of the source")
// is honored here: a response carrying WWW-Authenticate is refused unless
// the cache is explicitly configured to protect (encrypt-at-rest-adjacent
// policy is out of scope; here "protected" just means "allowed in").
func requiresAuth(headers []string) bool {
	for _, h := range headers {
		name, _ := splitHeaderLine(h)
		if name == "WWW-Authenticate" {
			return true
		}
	}
	return false
}
