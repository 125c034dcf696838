// Package memcachedstore is an ancillary.Store backed by
// github.com/bradfitz/gomemcache, for deployments that already run a
// memcached fleet and want ancillary documents sharing its eviction policy
// rather than living on local disk.
package memcachedstore

import (
	"bytes"
	"errors"
	"io"

	"github.com/bradfitz/gomemcache/memcache"

	"github.com/dap-go/httpcache/ancillary"
)

// Store caches ancillary documents in a memcached server.
type Store struct {
	client *memcache.Client
}

// storeKey namespaces keys so ancillary documents don't collide with other
// data sharing the same memcached instance.
func storeKey(key string) string {
	return "ancillary:" + key
}

func (s *Store) Has(key string) (bool, error) {
	_, err := s.client.Get(storeKey(key))
	if errors.Is(err, memcache.ErrCacheMiss) {
		return false, nil
	}
	return err == nil, err
}

func (s *Store) Get(key string) (io.ReadCloser, error) {
	item, err := s.client.Get(storeKey(key))
	if errors.Is(err, memcache.ErrCacheMiss) {
		return nil, ancillary.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(item.Value)), nil
}

func (s *Store) Set(key string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	return s.client.Set(&memcache.Item{Key: storeKey(key), Value: data})
}

func (s *Store) Delete(key string) error {
	err := s.client.Delete(storeKey(key))
	if errors.Is(err, memcache.ErrCacheMiss) {
		return nil
	}
	return err
}

// New returns a Store using the given memcached server(s) with equal
// weight. A server listed multiple times gets a proportional share of
// weight, matching gomemcache's own ServerList semantics.
func New(server ...string) *Store {
	return NewWithClient(memcache.New(server...))
}

// NewWithClient wraps an already-configured memcache.Client.
func NewWithClient(client *memcache.Client) *Store {
	return &Store{client}
}
