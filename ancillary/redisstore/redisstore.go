// Package redisstore is an ancillary.Store backed by github.com/gomodule/redigo,
// for deployments that want ancillary documents shared across multiple
// client processes through a central redis server rather than kept
// per-process or on local disk.
package redisstore

import (
	"bytes"
	"errors"
	"io"

	"github.com/gomodule/redigo/redis"

	"github.com/dap-go/httpcache/ancillary"
)

// Store caches ancillary documents in a redis server via a single
// connection. Callers that need concurrency should wrap a redis.Pool and
// call NewWithClient per request.
type Store struct {
	conn redis.Conn
}

// storeKey namespaces keys so ancillary documents don't collide with other
// data sharing the same redis instance.
func storeKey(key string) string {
	return "ancillary:" + key
}

func (s *Store) Has(key string) (bool, error) {
	return redis.Bool(s.conn.Do("EXISTS", storeKey(key)))
}

func (s *Store) Get(key string) (io.ReadCloser, error) {
	data, err := redis.Bytes(s.conn.Do("GET", storeKey(key)))
	if errors.Is(err, redis.ErrNil) {
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
	_, err = s.conn.Do("SET", storeKey(key), data)
	return err
}

func (s *Store) Delete(key string) error {
	_, err := s.conn.Do("DEL", storeKey(key))
	return err
}

// NewWithClient wraps an already-established redis connection.
func NewWithClient(conn redis.Conn) *Store {
	return &Store{conn}
}
