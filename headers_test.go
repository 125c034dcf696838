package httpcache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitHeaderLine(t *testing.T) {
	name, value := splitHeaderLine("Cache-Control: max-age=3600")
	assert.Equal(t, "Cache-Control", name)
	assert.Equal(t, "max-age=3600", value)

	name, value = splitHeaderLine("X-Empty:")
	assert.Equal(t, "X-Empty", name)
	assert.Equal(t, "", value)
}

func TestIsHopByHopHeader(t *testing.T) {
	assert.True(t, isHopByHopHeader("Connection"))
	assert.True(t, isHopByHopHeader("Transfer-Encoding"))
	assert.False(t, isHopByHopHeader("ETag"))
	assert.False(t, isHopByHopHeader("Content-Length"))
}

func TestParseHeadersBasicFields(t *testing.T) {
	e := newCacheEntry()
	parseHeaders(e, []string{
		`ETag: "abc"`,
		"Last-Modified: " + formatHTTPDate(1000),
		"Expires: " + formatHTTPDate(2000),
		"Date: " + formatHTTPDate(500),
		"Age: 30",
		"Cache-Control: max-age=3600, must-revalidate",
	}, 1<<20)

	assert.Equal(t, `"abc"`, e.ETag)
	assert.EqualValues(t, 1000, e.LastModified)
	assert.EqualValues(t, 2000, e.Expires)
	assert.EqualValues(t, 500, e.Date)
	assert.EqualValues(t, 30, e.Age)
	assert.EqualValues(t, 3600, e.MaxAge)
	assert.True(t, e.MustRevalidate)
}

func TestParseHeadersContentLengthOversizeSetsNoCache(t *testing.T) {
	e := newCacheEntry()
	parseHeaders(e, []string{"Content-Length: 2000000"}, 1000)
	assert.True(t, e.NoCache)
}

func TestParseHeadersContentLengthWithinBudget(t *testing.T) {
	e := newCacheEntry()
	parseHeaders(e, []string{"Content-Length: 500"}, 1000)
	assert.False(t, e.NoCache)
}

func TestParseCacheControlNoCacheAndNoStore(t *testing.T) {
	e := newCacheEntry()
	parseCacheControlHeader(e, "no-cache")
	assert.True(t, e.NoCache)

	e2 := newCacheEntry()
	parseCacheControlHeader(e2, "no-store")
	assert.True(t, e2.NoCache)
}

func TestParseCacheControlIgnoresSharedCacheDirectives(t *testing.T) {
	e := newCacheEntry()
	parseCacheControlHeader(e, "public, private, no-transform, proxy-revalidate, s-maxage=10")
	assert.False(t, e.NoCache)
	assert.False(t, e.MustRevalidate)
	assert.EqualValues(t, -1, e.MaxAge)
}

func TestParseHTTPDateRoundTrip(t *testing.T) {
	formatted := formatHTTPDate(1_700_000_000)
	got, ok := parseHTTPDate(formatted)
	require.True(t, ok)
	assert.EqualValues(t, 1_700_000_000, got)
}

func TestParseHTTPDateRejectsGarbage(t *testing.T) {
	_, ok := parseHTTPDate("not a date")
	assert.False(t, ok)
}
