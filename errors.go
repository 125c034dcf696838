package httpcache

import "errors"

// Error taxonomy for the cache. Callers should use errors.Is to test for
// these sentinels since I/O failures are wrapped with additional context.
var (
	// ErrNotFound is returned when an operation requires a cache entry for
	// a URL that is not present in the table.
	ErrNotFound = errors.New("httpcache: no cache entry for url")

	// ErrInUse is returned by PurgeCache when any entry is currently
	// locked (has an outstanding body handle).
	ErrInUse = errors.New("httpcache: entries are in use")

	// ErrIO wraps a filesystem failure (open, write, rename, unlink,
	// stat, mkdir).
	ErrIO = errors.New("httpcache: i/o error")

	// ErrOversize indicates a response body exceeded MaxEntrySize and was
	// not cached.
	ErrOversize = errors.New("httpcache: response too large to cache")

	// ErrConfig indicates an invalid configuration value.
	ErrConfig = errors.New("httpcache: invalid configuration value")

	// ErrInternal indicates a broken invariant: a bug in the cache, never
	// a property of caller input.
	ErrInternal = errors.New("httpcache: internal invariant violated")

	// ErrDisabled is returned by every mutating operation when the cache
	// failed to acquire the single-writer lock over its root at
	// construction and was left in a disabled state.
	ErrDisabled = errors.New("httpcache: cache is disabled")
)
