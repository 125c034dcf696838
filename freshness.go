package httpcache

import "fmt"

const (
	// defaultExpirationSeconds is used when neither max-age, Expires nor
	// Last-Modified headers are present: 24 hours, matching libdap4's
	// NO_LM_EXPIRATION.
	defaultExpirationSeconds = 24 * 3600

	// maxLastModifiedExpiration caps the heuristic "10% of resource age"
	// freshness lifetime derived from Last-Modified, matching libdap4's
	// MAX_LM_EXPIRATION.
	maxLastModifiedExpiration = 48 * 3600
)

// calculateTime computes entry.ResponseTime, CorrectedInitialAge and
// FreshnessLifetime per RFC 2616 §13.2.3/13.2.4, following the same
// sequence as libdap4's calculate_time. now and requestTime are Unix
// seconds; now is what the response to cache was considered "received" at
// (the call site uses the wall clock), requestTime is when the request
// that produced it was issued.
func calculateTime(entry *CacheEntry, requestTime, now int64) {
	entry.ResponseTime = now

	apparentAge := int64(0)
	if entry.Date >= 0 {
		if d := entry.ResponseTime - entry.Date; d > apparentAge {
			apparentAge = d
		}
	}

	correctedReceivedAge := apparentAge
	if entry.Age > correctedReceivedAge {
		correctedReceivedAge = entry.Age
	}

	responseDelay := entry.ResponseTime - requestTime
	entry.CorrectedInitialAge = correctedReceivedAge + responseDelay

	freshnessLifetime := entry.MaxAge
	if freshnessLifetime < 0 {
		switch {
		case entry.Expires >= 0:
			freshnessLifetime = entry.Expires - entry.Date
		case entry.LastModified >= 0 && entry.Date >= 0:
			freshnessLifetime = lastModifiedExpiration(entry.Date - entry.LastModified)
		default:
			freshnessLifetime = defaultExpirationSeconds
		}
	}

	if freshnessLifetime < 0 {
		freshnessLifetime = 0
	}
	entry.FreshnessLifetime = freshnessLifetime
}

// lastModifiedExpiration implements libdap4's LM_EXPIRATION(t) heuristic:
// 10% of the resource's apparent age, capped at maxLastModifiedExpiration.
func lastModifiedExpiration(resourceAge int64) int64 {
	heuristic := resourceAge / 10
	if heuristic > maxLastModifiedExpiration {
		return maxLastModifiedExpiration
	}
	if heuristic < 0 {
		return 0
	}
	return heuristic
}

// requestDirectives holds the request-side cache-control directives the
// cache itself honors (set via Cache.SetCacheControl), per spec §4.3/§6.1.
type requestDirectives struct {
	maxAge   int64 // -1 if unset
	maxStale int64 // -1 if unset
	minFresh int64 // -1 if unset
}

// isValid implements the validity decision of spec §4.3 (is_url_valid).
// alwaysValidate and the entry's own MustRevalidate both force
// revalidation unconditionally.
func isValid(entry *CacheEntry, req requestDirectives, alwaysValidate bool, now int64) bool {
	if alwaysValidate {
		return false
	}
	if entry.MustRevalidate {
		return false
	}

	residentTime := now - entry.ResponseTime
	currentAge := entry.CorrectedInitialAge + residentTime

	if req.maxAge >= 0 && currentAge > req.maxAge {
		return false
	}
	if req.minFresh >= 0 && entry.FreshnessLifetime < currentAge+req.minFresh {
		return false
	}

	maxStale := int64(0)
	if req.maxStale >= 0 {
		maxStale = req.maxStale
	}
	return entry.FreshnessLifetime+maxStale > currentAge
}

// conditionalRequestHeaders builds the validator headers of spec §4.4 for
// a cached entry: If-None-Match when an ETag is present, else
// If-Modified-Since from the first of Last-Modified, max-age, or Expires
// that is present and positive (mirroring libdap4's
// get_conditional_request_headers, which prefers Last-Modified over the
// derived max-age/Expires timestamps).
func conditionalRequestHeaders(entry *CacheEntry) []string {
	var headers []string

	if entry.ETag != "" {
		headers = append(headers, fmt.Sprintf("If-None-Match: %s", entry.ETag))
		return headers
	}

	switch {
	case entry.LastModified > 0:
		headers = append(headers, "If-Modified-Since: "+formatHTTPDate(entry.LastModified))
	case entry.MaxAge > 0:
		headers = append(headers, "If-Modified-Since: "+formatHTTPDate(entry.MaxAge))
	case entry.Expires > 0:
		headers = append(headers, "If-Modified-Since: "+formatHTTPDate(entry.Expires))
	}

	return headers
}
