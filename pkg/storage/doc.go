/*
Package storage implements the typed column-family facade over the embedded
engine.

Burrow stores arbitrary JSON documents under user-chosen keys. Each
collection is backed by a bbolt bucket ("column family"), and the facade
exposes the operations the rest of the system builds on:

  - column family lifecycle: CFExists, CreateCF, DropCF
  - document operations: Get, Has, Insert, Delete
  - atomic multi-document writes: BatchInsert
  - ordered range scans with forward/reverse cursors and limits
  - JSONPath queries over whole column families
  - snapshot export and ingest for the backup/restore lifecycle

# Ordering

Keys are ordered lexicographically by the engine. Range scans take an
inclusive lower bound and an exclusive upper bound; HighSentinel serves as
the default upper bound and sorts above any key the API accepts. Reverse
scans mirror the bound handling and walk the cursor downward.

# Snapshots and consistency

Every scan and query runs inside a single read transaction, so it observes a
consistent snapshot of the column family regardless of concurrent writers.
Batch inserts commit in one write transaction: all pairs become visible or
none do.

# Errors

The facade reports failures through sentinel kinds (ErrKeyNotFound,
ErrInvalidColumnFamily, ErrSerialization, ErrIo, ErrQuery) wrapped with
context. Callers classify with errors.Is; the API layer maps kinds to HTTP
status codes.
*/
package storage
