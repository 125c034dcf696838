// Package diskstore is an ancillary.Store backed by diskv, storing each
// document as a file named by the MD5 of the caller's key. New sets no
// diskv Transform, so every file lives directly in the base directory.
package diskstore

import (
	"crypto/md5"
	"encoding/hex"
	"io"

	"github.com/peterbourgon/diskv/v3"

	"github.com/dap-go/httpcache/ancillary"
)

// Store persists ancillary documents under a diskv-managed directory tree.
type Store struct {
	d *diskv.Diskv
}

func (s *Store) Has(key string) (bool, error) {
	return s.d.Has(keyToFilename(key)), nil
}

func (s *Store) Get(key string) (io.ReadCloser, error) {
	stream, err := s.d.ReadStream(keyToFilename(key), true)
	if err != nil {
		return nil, ancillary.ErrNotFound
	}
	return stream, nil
}

func (s *Store) Set(key string, r io.Reader) error {
	return s.d.WriteStream(keyToFilename(key), r, true)
}

func (s *Store) Delete(key string) error {
	// diskv.Erase errors on a missing key; Delete of an absent key is a
	// no-op for every other backend here, so that error is swallowed too.
	_ = s.d.Erase(keyToFilename(key))
	return nil
}

func keyToFilename(key string) string {
	h := md5.New()
	io.WriteString(h, key)
	return hex.EncodeToString(h.Sum(nil))
}

// New returns a Store that keeps documents under basePath, capping diskv's
// in-memory read cache at 100MiB.
func New(basePath string) *Store {
	return &Store{
		d: diskv.New(diskv.Options{
			BasePath:     basePath,
			CacheSizeMax: 100 * 1024 * 1024,
		}),
	}
}

// NewWithDiskv wraps an already-configured diskv.Diskv.
func NewWithDiskv(d *diskv.Diskv) *Store {
	return &Store{d}
}
