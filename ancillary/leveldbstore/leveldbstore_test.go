package leveldbstore

import (
	"path/filepath"
	"testing"

	"github.com/dap-go/httpcache/ancillary"
)

func TestLevelDBStoreConformance(t *testing.T) {
	store, err := New(filepath.Join(t.TempDir(), "db"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ancillary.Conformance(t, store)
}
