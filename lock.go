package httpcache

import (
	"fmt"
	"os"
	"sync"
)

// openFileList is the process-wide list of files currently being written
// (body during write, metadata during write). It backs the signal-driven
// cleanup of spec §4.9: on a termination signal, every path still in the
// list is unlinked before the process exits.
//
// The list is written under the interface mutex by normal code paths but
// must be safe to read without any lock from the signal handler goroutine,
// so it is backed by its own mutex rather than reusing Cache.mu (taking
// Cache.mu from inside a signal handler could deadlock against a held
// lock).
type openFileList struct {
	mu    sync.Mutex
	paths map[string]struct{}
}

func newOpenFileList() *openFileList {
	return &openFileList{paths: make(map[string]struct{})}
}

func (l *openFileList) add(path string) {
	l.mu.Lock()
	l.paths[path] = struct{}{}
	l.mu.Unlock()
}

func (l *openFileList) remove(path string) {
	l.mu.Lock()
	delete(l.paths, path)
	l.mu.Unlock()
}

// snapshot returns the currently open paths. Used by the signal handler;
// the lock it takes is uncontended in the signal-delivery case because the
// handler runs on its own goroutine and a crash mid-write is exactly the
// scenario being guarded against, not a normal code path holding this
// mutex indefinitely.
func (l *openFileList) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	paths := make([]string, 0, len(l.paths))
	for p := range l.paths {
		paths = append(paths, p)
	}
	return paths
}

// acquireSingleUserLock implements the process-singleton lockfile of spec
// §4.11. If the lockfile already exists and force is false, the cache is
// left disabled (construction still succeeds, matching the C++ design's
// choice to avoid a partially-constructed or panicking constructor). If
// force is true, a stale lockfile is removed before acquiring a fresh one.
func acquireSingleUserLock(root string, force bool) (acquired bool, err error) {
	if err := createCacheRoot(root); err != nil {
		return false, err
	}

	lockPath := root + string(os.PathSeparator) + lockFileName
	if _, statErr := os.Stat(lockPath); statErr == nil {
		if !force {
			return false, nil
		}
		os.Remove(lockPath)
	}

	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		return false, nil
	}
	f.Close()
	return true, nil
}

// releaseSingleUserLock removes the lockfile sentinel for root. It is
// idempotent: removing an already-absent lockfile is not an error.
func releaseSingleUserLock(root string) {
	os.Remove(root + string(os.PathSeparator) + lockFileName)
}

// lockError is a helper for surfacing why a cache could not be enabled,
// kept separate from ErrIO because construction does not fail outright
// (spec §7: "Failure to obtain the process lock — construction succeeds
// but leaves the cache disabled").
func lockError(root string) error {
	return fmt.Errorf("httpcache: could not acquire single-writer lock on %s", root)
}
