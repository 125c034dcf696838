package httpcache

// buckets is the fixed bucket count for the in-memory cache table. It is a
// compile-time constant rather than a resizable table so that a slot
// directory name (named after an entry's hash) never needs to change for
// the lifetime of a cache root, matching the on-disk compatibility
// requirement in §6.3 of the spec.
const buckets = 1499

// CacheEntry represents one cached response: its identity, its location on
// disk, and the timing/validator fields the freshness engine needs.
//
// Every field, including locked, is only ever read or mutated by a caller
// holding the interface mutex (Cache.mu). A separate per-entry mutex was
// considered (the original design keeps one alongside its reference-counted
// lock) but dropped here: see DESIGN.md for why it would be redundant, and
// risky, given Cache.mu already serializes every access.
type CacheEntry struct {
	URL       string
	Hash      int
	CacheName string // absolute path to the body file
	ETag      string

	LastModified int64 // -1 if absent
	Expires      int64 // -1 if absent
	Date         int64 // -1 if absent
	Age          int64 // -1 if absent
	MaxAge       int64 // -1 if absent

	Size int64
	Hits int

	FreshnessLifetime    int64
	CorrectedInitialAge  int64
	ResponseTime         int64
	MustRevalidate       bool
	NoCache              bool
	Range                bool // carried for on-disk forward compatibility; unused

	locked int
}

// newCacheEntry returns a CacheEntry with all "absent" timestamp fields set
// to -1, matching the sentinel the spec defines for "absent".
func newCacheEntry() *CacheEntry {
	return &CacheEntry{
		LastModified: -1,
		Expires:      -1,
		Date:         -1,
		Age:          -1,
		MaxAge:       -1,
	}
}

// table is the fixed-bucket hash table keyed by URL hash. Each bucket is an
// ordered slice of entries; lookup hashes the URL and linear-scans the
// bucket for a URL match, exactly as the teacher's cache table design
// specifies it should.
type table struct {
	buckets [buckets][]*CacheEntry
}

func newTable() *table {
	return &table{}
}

// hashURL computes a deterministic bucket index for url. The function need
// not be cryptographically strong, only pure and stable across the life of
// a cache root (entries reloaded from the index must land in the same
// bucket they were written from). A simple polynomial hash, same shape as
// libdap4's get_hash, satisfies this.
func hashURL(url string) int {
	h := 0
	for i := 0; i < len(url); i++ {
		h = (h*3 + int(url[i])) % buckets
	}
	if h < 0 {
		h += buckets
	}
	return h
}

func (t *table) get(url string) *CacheEntry {
	h := hashURL(url)
	for _, e := range t.buckets[h] {
		if e.URL == url {
			return e
		}
	}
	return nil
}

func (t *table) add(e *CacheEntry) {
	t.buckets[e.Hash] = append(t.buckets[e.Hash], e)
}

// remove deletes the entry for url from the table, returning it, or nil if
// no such entry existed.
func (t *table) remove(url string) *CacheEntry {
	h := hashURL(url)
	bucket := t.buckets[h]
	for i, e := range bucket {
		if e.URL == url {
			bucket[i] = bucket[len(bucket)-1]
			t.buckets[h] = bucket[:len(bucket)-1]
			return e
		}
	}
	return nil
}

// all calls fn for every entry currently in the table. fn may be called
// with entries in any bucket order; it must not mutate the table itself
// (use removeIf for that).
func (t *table) all(fn func(*CacheEntry)) {
	for _, bucket := range t.buckets {
		for _, e := range bucket {
			fn(e)
		}
	}
}

// removeIf removes every entry for which shouldRemove returns true,
// invoking onRemove for each before it is dropped from the table.
func (t *table) removeIf(shouldRemove func(*CacheEntry) bool, onRemove func(*CacheEntry)) {
	for h, bucket := range t.buckets {
		kept := bucket[:0]
		for _, e := range bucket {
			if shouldRemove(e) {
				onRemove(e)
			} else {
				kept = append(kept, e)
			}
		}
		t.buckets[h] = kept
	}
}
