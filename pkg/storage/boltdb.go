package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	bolt "go.etcd.io/bbolt"

	"github.com/burrowdb/burrow/pkg/types"
)

// BoltStore implements Store using bbolt. Every column family maps to a
// top-level bucket; range scans run inside read transactions, so every scan
// observes a consistent snapshot.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (or creates) the database below dataDir.
func NewBoltStore(dataDir string) (*BoltStore, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	dbPath := filepath.Join(dataDir, "burrow.db")

	db, err := bolt.Open(dbPath, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// Close closes the database.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// CFExists reports whether the column family exists.
func (s *BoltStore) CFExists(cf string) bool {
	exists := false
	_ = s.db.View(func(tx *bolt.Tx) error {
		exists = tx.Bucket([]byte(cf)) != nil
		return nil
	})
	return exists
}

// CreateCF creates a new column family. It fails with ErrInvalidColumnFamily
// if one with the same name already exists.
func (s *BoltStore) CreateCF(cf string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucket([]byte(cf))
		return err
	})
	if errors.Is(err, bolt.ErrBucketExists) {
		return invalidCF(cf)
	}
	if err != nil {
		return ioErr(err)
	}
	return nil
}

// DropCF deletes a column family and all documents in it.
func (s *BoltStore) DropCF(cf string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.DeleteBucket([]byte(cf))
	})
	if errors.Is(err, bolt.ErrBucketNotFound) {
		return invalidCF(cf)
	}
	if err != nil {
		return ioErr(err)
	}
	return nil
}

// Get reads the document stored under key and decodes it into out.
func (s *BoltStore) Get(cf, key string, out any) error {
	return s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(cf))
		if b == nil {
			return invalidCF(cf)
		}
		data := b.Get([]byte(key))
		if data == nil {
			return keyNotFound(cf, key)
		}
		if err := json.Unmarshal(data, out); err != nil {
			return serializationErr(err)
		}
		return nil
	})
}

// Has reports whether key is present without decoding its value.
func (s *BoltStore) Has(cf, key string) (bool, error) {
	var present bool
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(cf))
		if b == nil {
			return invalidCF(cf)
		}
		present = b.Get([]byte(key)) != nil
		return nil
	})
	return present, err
}

// Insert stores value under key, overwriting any previous document.
func (s *BoltStore) Insert(cf, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return serializationErr(err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(cf))
		if b == nil {
			return invalidCF(cf)
		}
		if err := b.Put([]byte(key), data); err != nil {
			return ioErr(err)
		}
		return nil
	})
}

// Delete removes the document stored under key.
func (s *BoltStore) Delete(cf, key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(cf))
		if b == nil {
			return invalidCF(cf)
		}
		if b.Get([]byte(key)) == nil {
			return keyNotFound(cf, key)
		}
		if err := b.Delete([]byte(key)); err != nil {
			return ioErr(err)
		}
		return nil
	})
}

// BatchInsert writes all pairs in a single transaction. Either every pair
// becomes visible or none does. Serialization is checked up front so a bad
// value cannot leave a partial batch behind.
func (s *BoltStore) BatchInsert(cf string, pairs []types.KeyValue) error {
	encoded := make([][]byte, len(pairs))
	for i, pair := range pairs {
		data, err := json.Marshal(pair.Value)
		if err != nil {
			return serializationErr(err)
		}
		encoded[i] = data
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(cf))
		if b == nil {
			return invalidCF(cf)
		}
		for i, pair := range pairs {
			if err := b.Put([]byte(pair.Key), encoded[i]); err != nil {
				return ioErr(err)
			}
		}
		return nil
	})
}

// GetRange returns the documents whose keys fall in [from, to), at most limit
// of them, walking keys in the requested direction.
func (s *BoltStore) GetRange(cf, from, to string, limit int, dir Direction) ([]any, error) {
	var values []any
	err := s.scanRange(cf, from, to, limit, dir, func(_, v []byte) error {
		var doc any
		if err := json.Unmarshal(v, &doc); err != nil {
			return serializationErr(err)
		}
		values = append(values, doc)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return values, nil
}

// GetRangeWithKeys is GetRange with each document paired with its key.
func (s *BoltStore) GetRangeWithKeys(cf, from, to string, limit int, dir Direction) ([]types.KeyValue, error) {
	var items []types.KeyValue
	err := s.scanRange(cf, from, to, limit, dir, func(k, v []byte) error {
		var doc any
		if err := json.Unmarshal(v, &doc); err != nil {
			return serializationErr(err)
		}
		items = append(items, types.KeyValue{Key: string(k), Value: doc})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// scanRange drives a bucket cursor over [from, to) and hands every pair to
// fn. A limit of Unbounded emits everything in range.
func (s *BoltStore) scanRange(cf, from, to string, limit int, dir Direction, fn func(k, v []byte) error) error {
	lower := []byte(from)
	upper := []byte(to)

	return s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(cf))
		if b == nil {
			return invalidCF(cf)
		}
		c := b.Cursor()
		count := 0

		emit := func(k, v []byte) (bool, error) {
			if limit >= 0 && count >= limit {
				return false, nil
			}
			if err := fn(k, v); err != nil {
				return false, err
			}
			count++
			return true, nil
		}

		if dir == Forward {
			for k, v := c.Seek(lower); k != nil && bytes.Compare(k, upper) < 0; k, v = c.Next() {
				ok, err := emit(k, v)
				if err != nil {
					return err
				}
				if !ok {
					return nil
				}
			}
			return nil
		}

		// Reverse: position on the last key below the exclusive upper bound,
		// then walk down to the inclusive lower bound.
		k, v := c.Seek(upper)
		if k == nil {
			k, v = c.Last()
		} else {
			k, v = c.Prev()
		}
		for ; k != nil && bytes.Compare(k, lower) >= 0; k, v = c.Prev() {
			ok, err := emit(k, v)
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
		}
		return nil
	})
}

// Size reports the approximate footprint of a column family. bbolt has no
// SST/memtable/blob split; on-page bytes are reported as sst_bytes and
// inline-bucket bytes as blob_bytes to keep the wire contract.
func (s *BoltStore) Size(cf string) (types.CollectionSize, error) {
	var size types.CollectionSize
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(cf))
		if b == nil {
			return invalidCF(cf)
		}
		stats := b.Stats()
		size.SSTBytes = int64(stats.LeafInuse + stats.BranchInuse)
		size.BlobBytes = int64(stats.InlineBucketInuse)
		return nil
	})
	return size, err
}
