// Package headercache keeps fetched block headers on local disk so restarts
// do not have to re-download the retarget history.
package headercache

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/goodnatureofminers/multialgo-retarget/internal/model"
)

// ErrNotFound is returned when a header is not cached.
var ErrNotFound = errors.New("header not cached")

// Store is a badger-backed HeaderStore.
type Store struct {
	db *badger.DB
}

// Open creates or opens a store at path. An empty path opens an in-memory store.
func Open(path string) (*Store, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger %q: %w", path, err)
	}
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Keys:
// "header:<network>:<height, zero padded>" -> gob-encoded model.Header
// Padding keeps badger's byte order equal to height order.

func networkPrefix(network model.Network) []byte {
	return []byte(fmt.Sprintf("header:%s:", network))
}

func headerKey(network model.Network, height uint64) []byte {
	return []byte(fmt.Sprintf("header:%s:%020d", network, height))
}

// Put stores header, replacing any header cached at the same height.
func (s *Store) Put(header model.Header) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(header); err != nil {
		return fmt.Errorf("encode header %d: %w", header.Height, err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(headerKey(header.Network, header.Height), buf.Bytes())
	})
}

// Get returns the header cached at height, or ErrNotFound.
func (s *Store) Get(network model.Network, height uint64) (model.Header, error) {
	var header model.Header
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(headerKey(network, height))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			return gob.NewDecoder(bytes.NewReader(val)).Decode(&header)
		})
	})
	if err != nil {
		return model.Header{}, err
	}
	return header, nil
}

// DeleteFrom removes every header of network at or above height and returns how many were removed.
func (s *Store) DeleteFrom(network model.Network, height uint64) (int, error) {
	var keys [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = networkPrefix(network)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(headerKey(network, height)); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, k := range keys {
		if err := wb.Delete(k); err != nil {
			return 0, err
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, err
	}
	return len(keys), nil
}
