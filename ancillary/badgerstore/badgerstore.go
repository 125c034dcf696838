// Package badgerstore is an ancillary.Store backed by github.com/dgraph-io/badger,
// for deployments that already run badger for other embedded-KV needs and
// want ancillary documents in the same engine.
package badgerstore

import (
	"bytes"
	"errors"
	"io"

	badger "github.com/dgraph-io/badger/v2"

	"github.com/dap-go/httpcache/ancillary"
)

// Store persists ancillary documents in a badger database.
type Store struct {
	db *badger.DB
}

func (s *Store) Has(key string) (bool, error) {
	var ok bool
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		ok = true
		return nil
	})
	return ok, err
}

func (s *Store) Get(key string) (io.ReadCloser, error) {
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ancillary.ErrNotFound
		}
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
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
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

func (s *Store) Delete(key string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

// New opens (creating if necessary) a badger database at path.
func New(path string) (*Store, error) {
	db, err := badger.Open(badger.DefaultOptions(path))
	if err != nil {
		return nil, err
	}
	return &Store{db}, nil
}

// NewWithDB wraps an already-open badger.DB.
func NewWithDB(db *badger.DB) *Store {
	return &Store{db}
}
