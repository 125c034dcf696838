package httpcache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculateTimeMaxAgeWins(t *testing.T) {
	e := newCacheEntry()
	e.Date = 1000
	e.MaxAge = 3600
	e.Expires = 1500 // would otherwise imply freshness_lifetime = 500

	calculateTime(e, 990, 1000)

	assert.EqualValues(t, 3600, e.FreshnessLifetime)
	assert.EqualValues(t, 1000, e.ResponseTime)
	assert.GreaterOrEqual(t, e.CorrectedInitialAge, int64(0))
}

func TestCalculateTimeExpiresHeaderUsedWhenNoMaxAge(t *testing.T) {
	e := newCacheEntry()
	e.Date = 1000
	e.Expires = 1500

	calculateTime(e, 1000, 1000)

	assert.EqualValues(t, 500, e.FreshnessLifetime)
}

func TestCalculateTimeLastModifiedHeuristic(t *testing.T) {
	e := newCacheEntry()
	e.Date = 10_000
	e.LastModified = 0 // resource is 10000s old

	calculateTime(e, 10_000, 10_000)

	// 10% of 10000 = 1000, well under the 48h cap.
	assert.EqualValues(t, 1000, e.FreshnessLifetime)
}

func TestCalculateTimeLastModifiedHeuristicCapped(t *testing.T) {
	e := newCacheEntry()
	e.Date = 10_000_000
	e.LastModified = 0 // resource age is huge, heuristic would exceed the cap

	calculateTime(e, 10_000_000, 10_000_000)

	assert.EqualValues(t, maxLastModifiedExpiration, e.FreshnessLifetime)
}

func TestCalculateTimeDefaultExpiration(t *testing.T) {
	e := newCacheEntry()
	// No Date, no Expires, no Last-Modified, no max-age.
	calculateTime(e, 1000, 1000)
	assert.EqualValues(t, defaultExpirationSeconds, e.FreshnessLifetime)
}

func TestIsValidFreshEntry(t *testing.T) {
	e := newCacheEntry()
	e.ResponseTime = 1000
	e.CorrectedInitialAge = 0
	e.FreshnessLifetime = 3600

	req := requestDirectives{maxAge: -1, maxStale: -1, minFresh: -1}
	assert.True(t, isValid(e, req, false, 1000))
	assert.True(t, isValid(e, req, false, 2000))  // 1000s resident, still < 3600
	assert.False(t, isValid(e, req, false, 5000)) // 4000s resident, stale
}

func TestIsValidAlwaysValidateForcesRevalidation(t *testing.T) {
	e := newCacheEntry()
	e.FreshnessLifetime = 3600
	req := requestDirectives{maxAge: -1, maxStale: -1, minFresh: -1}
	assert.False(t, isValid(e, req, true, e.ResponseTime))
}

func TestIsValidMustRevalidateForcesRevalidation(t *testing.T) {
	e := newCacheEntry()
	e.FreshnessLifetime = 3600
	e.MustRevalidate = true
	req := requestDirectives{maxAge: -1, maxStale: -1, minFresh: -1}
	assert.False(t, isValid(e, req, false, e.ResponseTime))
}

func TestIsValidRequestMaxAgeOverride(t *testing.T) {
	e := newCacheEntry()
	e.ResponseTime = 1000
	e.FreshnessLifetime = 3600

	req := requestDirectives{maxAge: 10, maxStale: -1, minFresh: -1}
	assert.False(t, isValid(e, req, false, 1020)) // current_age 20 > max-age 10
}

func TestIsValidRequestMinFresh(t *testing.T) {
	e := newCacheEntry()
	e.ResponseTime = 1000
	e.FreshnessLifetime = 100

	req := requestDirectives{maxAge: -1, maxStale: -1, minFresh: 50}
	// current_age = 40, freshness_lifetime(100) < current_age(40)+min_fresh(50)=90? 100<90 false -> valid stays true from this check
	assert.True(t, isValid(e, req, false, 1040))
	// current_age = 60, 100 < 60+50=110 -> true -> invalid
	assert.False(t, isValid(e, req, false, 1060))
}

func TestIsValidRequestMaxStale(t *testing.T) {
	e := newCacheEntry()
	e.ResponseTime = 1000
	e.FreshnessLifetime = 100

	req := requestDirectives{maxAge: -1, maxStale: 50, minFresh: -1}
	// current_age = 120, stale by 20s, within max-stale of 50.
	assert.True(t, isValid(e, req, false, 1120))
	// current_age = 200, stale by 100s, beyond max-stale of 50.
	assert.False(t, isValid(e, req, false, 1200))
}

func TestConditionalRequestHeadersETagTakesPriority(t *testing.T) {
	e := newCacheEntry()
	e.ETag = `"abc"`
	e.LastModified = 1000

	headers := conditionalRequestHeaders(e)
	assert.Equal(t, []string{`If-None-Match: "abc"`}, headers)
}

func TestConditionalRequestHeadersFallsBackToLastModified(t *testing.T) {
	e := newCacheEntry()
	e.LastModified = 1_700_000_000

	headers := conditionalRequestHeaders(e)
	assert.Equal(t, []string{"If-Modified-Since: " + formatHTTPDate(1_700_000_000)}, headers)
}

func TestConditionalRequestHeadersEmptyWhenNoValidators(t *testing.T) {
	e := newCacheEntry()
	headers := conditionalRequestHeaders(e)
	assert.Empty(t, headers)
}
