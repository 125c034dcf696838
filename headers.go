package httpcache

import (
	"strconv"
	"strings"
	"time"
)

// hopByHopHeaders lists the headers that apply only to a single transport
// hop and must never be persisted to the metadata file. Adapted from
// getEndToEndHeaders' hopByHopHeaders set in the teacher package, minus
// "Te"/"Trailer" (not listed by the spec) and case-matched the way the
// spec's §4.2 names them.
var hopByHopHeaders = map[string]struct{}{
	"Connection":          {},
	"Keep-Alive":          {},
	"Proxy-Authenticate":  {},
	"Proxy-Authorization": {},
	"Transfer-Encoding":   {},
	"Upgrade":             {},
}

func isHopByHopHeader(name string) bool {
	_, ok := hopByHopHeaders[name]
	return ok
}

// splitHeaderLine splits a raw "Name: Value" header line as produced by an
// HTTP client, returning the header name and its value.
func splitHeaderLine(line string) (name, value string) {
	i := strings.Index(line, ":")
	if i < 0 {
		return line, ""
	}
	name = line[:i]
	value = strings.TrimPrefix(line[i+1:], " ")
	return name, value
}

// parseHeaders populates entry from an ordered list of raw "Name: Value"
// response header lines, per spec §4.2. It does not reset fields entry
// already has: calling it twice (as update_response does, to merge a 304's
// headers into an existing entry) only overwrites headers that are present
// in the new set. maxEntrySize is the cache's current max_entry_size
// property, consulted against Content-Length.
func parseHeaders(entry *CacheEntry, headers []string, maxEntrySize int64) {
	for _, line := range headers {
		name, value := splitHeaderLine(line)
		switch name {
		case "ETag":
			entry.ETag = value
		case "Last-Modified":
			if t, ok := parseHTTPDate(value); ok {
				entry.LastModified = t
			}
		case "Expires":
			if t, ok := parseHTTPDate(value); ok {
				entry.Expires = t
			}
		case "Date":
			if t, ok := parseHTTPDate(value); ok {
				entry.Date = t
			}
		case "Age":
			if secs, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
				entry.Age = secs
			}
		case "Content-Length":
			if length, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
				if length > maxEntrySize {
					entry.NoCache = true
				}
			}
		case "Cache-Control":
			parseCacheControlHeader(entry, value)
		}
	}
}

// parseCacheControlHeader applies one Cache-Control header's directives to
// entry, per spec §4.2. public/private/no-transform/proxy-revalidate/
// s-max-age are shared-cache directives and are ignored, matching both the
// spec and the teacher's parseCacheControl comment to the same effect.
func parseCacheControlHeader(entry *CacheEntry, value string) {
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
		switch strings.ToLower(key) {
		case "no-cache", "no-store":
			entry.NoCache = true
		case "must-revalidate":
			entry.MustRevalidate = true
		case "max-age":
			if secs, err := strconv.ParseInt(val, 10, 64); err == nil {
				entry.MaxAge = secs
			}
		}
	}
}

// httpDateLayouts are the formats parseHTTPDate will try, in order.
// RFC1123 is what Date()/getFreshness() in the teacher package expects;
// the other two are the historical formats RFC 2616 §3.3.1 requires a
// compliant cache to also accept.
var httpDateLayouts = []string{
	time.RFC1123,
	time.RFC850,
	time.ANSIC,
}

func parseHTTPDate(value string) (unixSeconds int64, ok bool) {
	value = strings.TrimSpace(value)
	for _, layout := range httpDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC().Unix(), true
		}
	}
	return 0, false
}

// formatHTTPDate renders t (Unix seconds) as an RFC 1123 HTTP-date in GMT,
// the format used both for request validators and, on write, for response
// headers synthesized by the cache itself.
func formatHTTPDate(unixSeconds int64) string {
	return time.Unix(unixSeconds, 0).UTC().Format(http1123GMT)
}

// http1123GMT is time.RFC1123 with the zone forced to "GMT" as HTTP/1.1
// requires, rather than Go's default "UTC".
const http1123GMT = "Mon, 02 Jan 2006 15:04:05 GMT"
