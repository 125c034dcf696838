// Package leveldbstore is an ancillary.Store backed by
// github.com/syndtr/goleveldb, suited to a single long-lived process that
// wants ancillary documents durable across restarts without running a
// separate database server.
package leveldbstore

import (
	"bytes"
	"errors"
	"io"

	"github.com/syndtr/goleveldb/leveldb"

	"github.com/dap-go/httpcache/ancillary"
)

// Store persists ancillary documents in a leveldb instance.
type Store struct {
	db *leveldb.DB
}

func (s *Store) Has(key string) (bool, error) {
	return s.db.Has([]byte(key), nil)
}

func (s *Store) Get(key string) (io.ReadCloser, error) {
	data, err := s.db.Get([]byte(key), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, ancillary.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *Store) Set(key string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	return s.db.Put([]byte(key), data, nil)
}

func (s *Store) Delete(key string) error {
	return s.db.Delete([]byte(key), nil)
}

// New opens (creating if necessary) a leveldb database at path.
func New(path string) (*Store, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, err
	}
	return &Store{db}, nil
}

// NewWithDB wraps an already-open leveldb.DB.
func NewWithDB(db *leveldb.DB) *Store {
	return &Store{db}
}
