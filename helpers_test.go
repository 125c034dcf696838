package httpcache

import (
	"os"
	"testing"
)

// writeFile is a small helper shared by the package's tests for seeding
// fixture files without pulling in testify's file-assertion helpers.
func writeFile(t *testing.T, path, content string) error {
	t.Helper()
	return os.WriteFile(path, []byte(content), 0600)
}

// fakeClock lets cache_test.go pin "now" to the same timestamps its Date
// headers use, rather than racing the real wall clock.
type fakeClock struct{ t int64 }

func (f *fakeClock) now() int64 { return f.t }

func setClock(c *Cache, t int64) {
	c.clock.(*fakeClock).t = t
}
