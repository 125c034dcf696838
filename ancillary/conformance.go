package ancillary

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

// Conformance exercises a Store implementation against the contract every
// backend must satisfy: absence before Set, presence and byte-identical
// round-trip after Set, and absence again after Delete.
func Conformance(t *testing.T, store Store) {
	t.Helper()
	key := "http://example.org/data.nc.ddx"

	ok, err := store.Has(key)
	if err != nil {
		t.Fatalf("Has before Set: %v", err)
	}
	if ok {
		t.Fatal("Has reported a key present before it was ever Set")
	}

	if _, err := store.Get(key); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get before Set: want ErrNotFound, got %v", err)
	}

	val := []byte("<Dataset><Attribute name=\"units\" value=\"K\"/></Dataset>")
	if err := store.Set(key, bytes.NewReader(val)); err != nil {
		t.Fatalf("Set: %v", err)
	}

	ok, err = store.Has(key)
	if err != nil {
		t.Fatalf("Has after Set: %v", err)
	}
	if !ok {
		t.Fatal("Has did not report a key just Set")
	}

	rc, err := store.Get(key)
	if err != nil {
		t.Fatalf("Get after Set: %v", err)
	}
	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("reading Get result: %v", err)
	}
	if err := rc.Close(); err != nil {
		t.Fatalf("closing Get result: %v", err)
	}
	if !bytes.Equal(got, val) {
		t.Fatalf("round trip mismatch: got %q, want %q", got, val)
	}

	if err := store.Set(key, bytes.NewReader([]byte("replacement"))); err != nil {
		t.Fatalf("Set (overwrite): %v", err)
	}
	rc, err = store.Get(key)
	if err != nil {
		t.Fatalf("Get after overwrite: %v", err)
	}
	got, _ = io.ReadAll(rc)
	rc.Close()
	if string(got) != "replacement" {
		t.Fatalf("overwrite did not take effect: got %q", got)
	}

	if err := store.Delete(key); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if _, err := store.Get(key); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get after Delete: want ErrNotFound, got %v", err)
	}

	// Deleting an already-absent key must not error.
	if err := store.Delete(key); err != nil {
		t.Fatalf("Delete of absent key: %v", err)
	}
}
