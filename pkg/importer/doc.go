/*
Package importer implements bulk JSON ingestion for a collection.

An import payload is a JSON array of objects. Each object's storage key is
read from a caller-chosen field (dot paths reach into nested objects);
objects without a usable key get a positional item_N key and a note in the
result. Writes go through the storage facade in bounded batches, and a
failed batch is recorded and skipped rather than aborting the run. After
the writes, subscribers receive one create event per stored document,
throttled in chunks on large imports.
*/
package importer
