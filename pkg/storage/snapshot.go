package storage

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	bolt "go.etcd.io/bbolt"
)

// snapshotMagic marks the head of a backup file. The payload is the column
// family's key/value pairs in key order, each as a uvarint-length-prefixed
// key and value.
var snapshotMagic = []byte("BSST\x01")

// CreateBackup writes the full contents of a column family to filePath. The
// export runs inside a read transaction, so concurrent writers never produce
// a torn snapshot.
func (s *BoltStore) CreateBackup(cf, filePath string) error {
	f, err := os.Create(filePath)
	if err != nil {
		return ioErr(err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	err = s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(cf))
		if b == nil {
			return invalidCF(cf)
		}
		if _, err := w.Write(snapshotMagic); err != nil {
			return ioErr(err)
		}
		return b.ForEach(func(k, v []byte) error {
			if err := writeChunk(w, k); err != nil {
				return err
			}
			return writeChunk(w, v)
		})
	})
	if err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return ioErr(err)
	}
	if err := f.Sync(); err != nil {
		return ioErr(err)
	}
	return nil
}

// RestoreBackup ingests the pairs of a backup file into an existing column
// family in a single transaction. Existing keys are overwritten; keys not in
// the snapshot are left alone.
func (s *BoltStore) RestoreBackup(cf, filePath string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return ioErr(err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	magic := make([]byte, len(snapshotMagic))
	if _, err := io.ReadFull(r, magic); err != nil {
		return ioErr(fmt.Errorf("truncated backup file: %w", err))
	}
	if string(magic) != string(snapshotMagic) {
		return ioErr(fmt.Errorf("not a backup file: %s", filePath))
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(cf))
		if b == nil {
			return invalidCF(cf)
		}
		for {
			key, err := readChunk(r)
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return err
			}
			value, err := readChunk(r)
			if err != nil {
				return err
			}
			if err := b.Put(key, value); err != nil {
				return ioErr(err)
			}
		}
	})
}

func writeChunk(w *bufio.Writer, data []byte) error {
	var lenBuf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(lenBuf[:], uint64(len(data)))
	if _, err := w.Write(lenBuf[:n]); err != nil {
		return ioErr(err)
	}
	if _, err := w.Write(data); err != nil {
		return ioErr(err)
	}
	return nil
}

func readChunk(r *bufio.Reader) ([]byte, error) {
	length, err := binary.ReadUvarint(r)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, ioErr(err)
	}
	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, ioErr(fmt.Errorf("truncated backup file: %w", err))
	}
	return data, nil
}
