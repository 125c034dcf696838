package httpcache

// startGC reports whether the cache has grown enough to warrant a garbage
// collection pass: used + folder_size has exceeded total_size.
func startGC(currentSize, folderSize, totalSize int64) bool {
	return currentSize+folderSize > totalSize
}

// stopGC reports whether garbage collection has freed enough space: used +
// folder_size has dropped below total_size - gc_buffer.
func stopGC(currentSize, folderSize, totalSize, gcBuffer int64) bool {
	return currentSize+folderSize < totalSize-gcBuffer
}

// gcLimits bundles the size watermarks a GC pass needs; passed by value so
// callers can't accidentally observe the cache mutating size limits
// mid-sweep.
type gcLimits struct {
	totalSize    int64
	folderSize   int64
	gcBuffer     int64
	maxEntrySize int64
}

func (l gcLimits) stop(currentSize int64) bool {
	return stopGC(currentSize, l.folderSize, l.totalSize, l.gcBuffer)
}

func (l gcLimits) start(currentSize int64) bool {
	return startGC(currentSize, l.folderSize, l.totalSize)
}

// performGarbageCollection runs the two-phase reclamation of spec §4.8:
// first an expiration sweep (skipped if expireIgnored), then a hit-count
// sweep. currentSize is read/updated via the getSize/onRemove callbacks so
// the caller (Cache, which owns d_current_size) stays the single writer of
// that field. now is the wall-clock time (Unix seconds) GC runs at.
func performGarbageCollection(t *table, limits gcLimits, expireIgnored bool, now int64, getSize func() int64, onRemove func(*CacheEntry)) {
	if !expireIgnored {
		expiredGC(t, now, onRemove)
	}
	hitsGC(t, limits, now, getSize, onRemove)
}

// expiredGC removes every unlocked entry whose freshness lifetime has
// already elapsed, per spec §4.8. Locked entries are never removed.
func expiredGC(t *table, now int64, onRemove func(*CacheEntry)) {
	t.removeIf(
		func(e *CacheEntry) bool {
			if e.locked > 0 {
				return false
			}
			return e.FreshnessLifetime < e.CorrectedInitialAge+(now-e.ResponseTime)
		},
		onRemove,
	)
}

// hitsGC removes entries larger than max_entry_size or with too few hits,
// raising the hit-count threshold on each full pass, until stopGC holds.
// The loop is bounded (spec §4.8's "known limitation" edge case: if locked
// entries alone exceed the GC watermark, the C++ original never
// terminates). This implementation bounds the number of passes instead of
// looping forever, per the spec's instruction to "bound total iterations
// or include locked entries in the counted-toward-GC set".
const maxHitsGCPasses = 1 << 16

func hitsGC(t *table, limits gcLimits, now int64, getSize func() int64, onRemove func(*CacheEntry)) {
	hits := 0
	for pass := 0; pass < maxHitsGCPasses && !limits.stop(getSize()); pass++ {
		threshold := hits
		t.removeIf(
			func(e *CacheEntry) bool {
				if e.locked > 0 {
					return false
				}
				return e.Size > limits.maxEntrySize || e.Hits <= threshold
			},
			onRemove,
		)
		// Every entry at or below the current hit threshold (and not
		// locked) is gone after this sweep; raising hits and checking the
		// stop watermark again is the only way to make further progress,
		// same as libdap4's hits++ each full pass. If every remaining
		// entry is locked, no threshold ever frees enough and this loop
		// spins until maxHitsGCPasses, mirroring the spec's documented
		// potential-infinite-loop edge case.
		hits++
	}
}
