package httpcache

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// dumpFrequency is how many new entries accumulate before cache_response
// triggers an index rewrite (and a GC check), matching libdap4's
// DUMP_FREQUENCY.
const dumpFrequency = 10

// readIndex parses the ASCII .index file at path and returns the entries it
// describes, in file order. A missing index file is not an error: the
// cache simply starts empty, per spec §4.10.
func readIndex(path string) ([]*CacheEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: opening index %s: %v", ErrIO, path, err)
	}
	defer f.Close()

	var entries []*CacheEntry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 1024), 64*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if line == "" {
			continue
		}
		entry, err := parseIndexLine(line)
		if err != nil {
			return nil, fmt.Errorf("%w: corrupt index line %q: %v", ErrInternal, line, err)
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading index %s: %v", ErrIO, path, err)
	}
	return entries, nil
}

// parseIndexLine parses one whitespace-separated index line per spec §3.3:
//
//	url cachename etag|@cache@ lm expires size range hash hits
//	freshness_lifetime response_time corrected_initial_age must_revalidate
func parseIndexLine(line string) (*CacheEntry, error) {
	fields := strings.Fields(line)
	if len(fields) != 13 {
		return nil, fmt.Errorf("expected 13 fields, found %d", len(fields))
	}

	entry := newCacheEntry()
	entry.URL = fields[0]
	entry.CacheName = fields[1]

	if fields[2] == emptyETag {
		entry.ETag = ""
	} else {
		entry.ETag = fields[2]
	}

	var err error
	if entry.LastModified, err = strconv.ParseInt(fields[3], 10, 64); err != nil {
		return nil, err
	}
	if entry.Expires, err = strconv.ParseInt(fields[4], 10, 64); err != nil {
		return nil, err
	}
	if entry.Size, err = strconv.ParseInt(fields[5], 10, 64); err != nil {
		return nil, err
	}
	entry.Range = fields[6] == "1"
	hash, err := strconv.Atoi(fields[7])
	if err != nil {
		return nil, err
	}
	entry.Hash = hash
	if entry.Hits, err = strconv.Atoi(fields[8]); err != nil {
		return nil, err
	}
	if entry.FreshnessLifetime, err = strconv.ParseInt(fields[9], 10, 64); err != nil {
		return nil, err
	}
	if entry.ResponseTime, err = strconv.ParseInt(fields[10], 10, 64); err != nil {
		return nil, err
	}
	if entry.CorrectedInitialAge, err = strconv.ParseInt(fields[11], 10, 64); err != nil {
		return nil, err
	}
	entry.MustRevalidate = fields[12] == "1"

	return entry, nil
}

// writeIndexLine renders one CacheEntry in the §3.3 format, CRLF
// terminated.
func writeIndexLine(w *bufio.Writer, e *CacheEntry) error {
	etag := e.ETag
	if etag == "" {
		etag = emptyETag
	}
	rangeFlag := "0"
	if e.Range {
		rangeFlag = "1"
	}
	mustRevalidate := "0"
	if e.MustRevalidate {
		mustRevalidate = "1"
	}

	_, err := fmt.Fprintf(w, "%s %s %s %d %d %d %s %d %d %d %d %d %s\r\n",
		e.URL,
		e.CacheName,
		etag,
		e.LastModified,
		e.Expires,
		e.Size,
		rangeFlag,
		e.Hash,
		e.Hits,
		e.FreshnessLifetime,
		e.ResponseTime,
		e.CorrectedInitialAge,
		mustRevalidate,
	)
	return err
}

// writeIndex truncates and rewrites the .index file at path with every
// entry currently in t, in table (bucket) order.
func writeIndex(path string, t *table) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0600)
	if err != nil {
		return fmt.Errorf("%w: opening index %s for writing: %v", ErrIO, path, err)
	}

	w := bufio.NewWriter(f)
	var writeErr error
	t.all(func(e *CacheEntry) {
		if writeErr != nil {
			return
		}
		writeErr = writeIndexLine(w, e)
	})
	if writeErr != nil {
		f.Close()
		return fmt.Errorf("%w: writing index %s: %v", ErrIO, path, writeErr)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("%w: flushing index %s: %v", ErrIO, path, err)
	}
	return f.Close()
}

// deleteIndex removes the .index file, used by PurgeCache.
func deleteIndex(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: removing index %s: %v", ErrIO, path, err)
	}
	return nil
}
