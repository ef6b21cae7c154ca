package importer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/burrowdb/burrow/pkg/log"
	"github.com/burrowdb/burrow/pkg/metrics"
	"github.com/burrowdb/burrow/pkg/pubsub"
	"github.com/burrowdb/burrow/pkg/types"
)

const (
	// maxBatchSize caps how many documents a single storage batch carries.
	maxBatchSize = 5000

	// eventChunkSize and eventChunkPause throttle post-import event fan-out
	// so a large import cannot flood subscriber buffers all at once.
	eventChunkSize  = 200
	eventChunkPause = 2 * time.Millisecond
)

// Batcher is the subset of the storage facade the importer writes through.
type Batcher interface {
	BatchInsert(cf string, pairs []types.KeyValue) error
}

// Result summarizes one bulk import run.
type Result struct {
	Imported int
	Errors   []string
}

// Importer ingests JSON arrays of documents into a collection in batches and
// fans out a create event per stored document afterwards.
type Importer struct {
	store  Batcher
	fabric *pubsub.Fabric
	logger zerolog.Logger
}

// New returns an Importer writing through store and publishing on fabric.
func New(store Batcher, fabric *pubsub.Fabric) *Importer {
	return &Importer{
		store:  store,
		fabric: fabric,
		logger: log.WithComponent("importer"),
	}
}

// Run parses data as a JSON array of objects and writes it to the internal
// column family in batches. keyPath selects the document field used as the
// storage key (dot-separated for nested fields); documents missing a usable
// key fall back to a positional key and add a note to the result's errors.
// A batch that fails to commit is skipped, recorded, and does not stop the
// remaining batches.
func (i *Importer) Run(internalName, userName string, data []byte, keyPath string) (*Result, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var items []map[string]any
	if err := dec.Decode(&items); err != nil {
		return nil, fmt.Errorf("expected a JSON array of objects: %w", err)
	}

	result := &Result{}
	pairs := make([]types.KeyValue, 0, len(items))
	for idx, item := range items {
		key, anomaly := extractKey(item, keyPath, idx)
		if anomaly != "" {
			result.Errors = append(result.Errors, anomaly)
		}
		pairs = append(pairs, types.KeyValue{Key: key, Value: item})
	}

	batchSize := len(pairs)
	if batchSize > maxBatchSize {
		batchSize = maxBatchSize
	}

	stored := make([]types.KeyValue, 0, len(pairs))
	for start := 0; start < len(pairs); start += batchSize {
		end := start + batchSize
		if end > len(pairs) {
			end = len(pairs)
		}
		batch := pairs[start:end]
		if err := i.store.BatchInsert(internalName, batch); err != nil {
			i.logger.Error().Err(err).
				Str("collection", userName).
				Int("batch_start", start).
				Msg("import batch failed")
			result.Errors = append(result.Errors, fmt.Sprintf("batch starting at item %d failed: %v", start+1, err))
			continue
		}
		result.Imported += len(batch)
		stored = append(stored, batch...)
	}

	if result.Imported > 0 {
		metrics.DocumentsWritten.Add(float64(result.Imported))
		metrics.ImportedDocuments.Add(float64(result.Imported))
		i.publishEvents(internalName, stored)
	}

	return result, nil
}

// publishEvents notifies subscribers of every stored document, pausing
// between chunks on large imports. Subscribers are keyed by the internal
// column family name.
func (i *Importer) publishEvents(internalName string, stored []types.KeyValue) {
	if i.fabric == nil || !i.fabric.HasSubscribers(internalName) {
		return
	}
	throttle := len(stored) >= eventChunkSize
	for start := 0; start < len(stored); start += eventChunkSize {
		end := start + eventChunkSize
		if end > len(stored) {
			end = len(stored)
		}
		for _, pair := range stored[start:end] {
			i.fabric.Publish(internalName, types.Event{
				Operation: types.OperationCreate,
				Key:       pair.Key,
				Value:     pair.Value,
			})
			metrics.EventsPublished.Inc()
		}
		if throttle && end < len(stored) {
			time.Sleep(eventChunkPause)
		}
	}
}

// extractKey resolves keyPath against item. Strings are used verbatim and
// numbers are stringified; anything else (missing field, object, bool, null)
// yields a positional item_N key plus an anomaly message. Without a keyPath
// the positional key applies silently.
func extractKey(item map[string]any, keyPath string, index int) (string, string) {
	fallback := fmt.Sprintf("item_%d", index+1)
	if keyPath == "" {
		return fallback, ""
	}

	value := lookupPath(item, keyPath)
	switch v := value.(type) {
	case string:
		if v != "" {
			return v, ""
		}
	case json.Number:
		return v.String(), ""
	}
	return fallback, fmt.Sprintf("item %d: field %q missing or not usable as a key, stored as %q", index+1, keyPath, fallback)
}

func lookupPath(item map[string]any, keyPath string) any {
	var current any = item
	for _, segment := range strings.Split(keyPath, ".") {
		node, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current, ok = node[segment]
		if !ok {
			return nil
		}
	}
	return current
}
