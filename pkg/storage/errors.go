package storage

import (
	"errors"
	"fmt"
)

// Sentinel error kinds of the storage facade. Callers classify failures with
// errors.Is and map them to HTTP status codes at the API boundary.
var (
	// ErrKeyNotFound reports a lookup for a key that is not present.
	ErrKeyNotFound = errors.New("key not found")

	// ErrInvalidColumnFamily reports an operation against a column family
	// that does not exist, or an attempt to create one that already does.
	ErrInvalidColumnFamily = errors.New("invalid column family")

	// ErrSerialization reports a value that could not be encoded to or
	// decoded from JSON.
	ErrSerialization = errors.New("serialization error")

	// ErrIo reports an engine or filesystem failure.
	ErrIo = errors.New("io error")

	// ErrQuery reports a malformed JSONPath expression.
	ErrQuery = errors.New("query error")
)

func keyNotFound(cf, key string) error {
	return fmt.Errorf("%w: %q in column family %q", ErrKeyNotFound, key, cf)
}

func invalidCF(cf string) error {
	return fmt.Errorf("%w: %q", ErrInvalidColumnFamily, cf)
}

func serializationErr(err error) error {
	return fmt.Errorf("%w: %v", ErrSerialization, err)
}

func ioErr(err error) error {
	return fmt.Errorf("%w: %v", ErrIo, err)
}

func queryErr(err error) error {
	return fmt.Errorf("%w: %v", ErrQuery, err)
}
