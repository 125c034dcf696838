package httpcache

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteAndReadIndexRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, indexFileName)

	tbl := newTable()
	e1 := newCacheEntry()
	e1.URL = "http://example.com/a"
	e1.CacheName = filepath.Join(dir, "1", "dods000001")
	e1.ETag = `"abc"`
	e1.LastModified = 100
	e1.Expires = 200
	e1.Size = 12345
	e1.Hash = hashURL(e1.URL)
	e1.Hits = 3
	e1.FreshnessLifetime = 3600
	e1.ResponseTime = 500
	e1.CorrectedInitialAge = 10
	e1.MustRevalidate = true
	tbl.add(e1)

	e2 := newCacheEntry()
	e2.URL = "http://example.com/b"
	e2.CacheName = filepath.Join(dir, "2", "dods000002")
	e2.Hash = hashURL(e2.URL)
	// ETag absent: exercises the @cache@ sentinel.
	tbl.add(e2)

	require.NoError(t, writeIndex(path, tbl))

	entries, err := readIndex(path)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	byURL := map[string]*CacheEntry{}
	for _, e := range entries {
		byURL[e.URL] = e
	}

	got1 := byURL[e1.URL]
	require.NotNil(t, got1)
	assert.Equal(t, e1.CacheName, got1.CacheName)
	assert.Equal(t, e1.ETag, got1.ETag)
	assert.Equal(t, e1.LastModified, got1.LastModified)
	assert.Equal(t, e1.Expires, got1.Expires)
	assert.Equal(t, e1.Size, got1.Size)
	assert.Equal(t, e1.Hash, got1.Hash)
	assert.Equal(t, e1.Hits, got1.Hits)
	assert.Equal(t, e1.FreshnessLifetime, got1.FreshnessLifetime)
	assert.Equal(t, e1.ResponseTime, got1.ResponseTime)
	assert.Equal(t, e1.CorrectedInitialAge, got1.CorrectedInitialAge)
	assert.True(t, got1.MustRevalidate)

	got2 := byURL[e2.URL]
	require.NotNil(t, got2)
	assert.Equal(t, "", got2.ETag)
}

func TestReadIndexMissingFileReturnsEmpty(t *testing.T) {
	dir := t.TempDir()
	entries, err := readIndex(filepath.Join(dir, indexFileName))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestReadIndexRejectsCorruptLine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, indexFileName)
	writeErr := writeFile(t, path, "not enough fields\r\n")
	require.NoError(t, writeErr)

	_, err := readIndex(path)
	assert.ErrorIs(t, err, ErrInternal)
}

func TestDeleteIndexIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, indexFileName)
	assert.NoError(t, deleteIndex(path)) // absent file: not an error

	require.NoError(t, writeFile(t, path, "x\r\n"))
	assert.NoError(t, deleteIndex(path))
}
