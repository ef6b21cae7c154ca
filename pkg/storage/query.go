package storage

import (
	"context"
	"encoding/json"

	"github.com/PaesslerAG/gval"
	"github.com/PaesslerAG/jsonpath"
	bolt "go.etcd.io/bbolt"

	"github.com/burrowdb/burrow/pkg/types"
)

// queryLanguage is the JSONPath dialect of the query endpoints: full gval
// expressions inside filters, so `$[?@.premium == true && @.age > 21]`,
// wildcards and indexed access all work.
var queryLanguage = gval.Full(jsonpath.PlaceholderExtension())

// compileQuery parses a JSONPath expression once per request.
func compileQuery(path string) (gval.Evaluable, error) {
	eval, err := queryLanguage.NewEvaluable(path)
	if err != nil {
		return nil, queryErr(err)
	}
	return eval, nil
}

// matchQuery tests one document against a compiled expression. The document
// is wrapped in a single-element array so that root-level filters like
// `$[?@.field == value]` apply per document; an expression error for a given
// document (e.g. a missing field) simply means no match.
func matchQuery(eval gval.Evaluable, doc any) bool {
	res, err := eval(context.Background(), []any{doc})
	if err != nil || res == nil {
		return false
	}
	if matches, ok := res.([]any); ok {
		return len(matches) > 0
	}
	return true
}

// Query returns every document in the column family matching the JSONPath
// expression, in iteration order.
func (s *BoltStore) Query(cf, path string) ([]any, error) {
	eval, err := compileQuery(path)
	if err != nil {
		return nil, err
	}
	var values []any
	err = s.scanAll(cf, func(_ []byte, doc any) {
		if matchQuery(eval, doc) {
			values = append(values, doc)
		}
	})
	if err != nil {
		return nil, err
	}
	return values, nil
}

// QueryWithKeys is Query with each match paired with its key.
func (s *BoltStore) QueryWithKeys(cf, path string) ([]types.KeyValue, error) {
	eval, err := compileQuery(path)
	if err != nil {
		return nil, err
	}
	var items []types.KeyValue
	err = s.scanAll(cf, func(k []byte, doc any) {
		if matchQuery(eval, doc) {
			items = append(items, types.KeyValue{Key: string(k), Value: doc})
		}
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// scanAll decodes every document in the column family inside one read
// transaction.
func (s *BoltStore) scanAll(cf string, fn func(k []byte, doc any)) error {
	return s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(cf))
		if b == nil {
			return invalidCF(cf)
		}
		return b.ForEach(func(k, v []byte) error {
			var doc any
			if err := json.Unmarshal(v, &doc); err != nil {
				return serializationErr(err)
			}
			fn(k, doc)
			return nil
		})
	})
}
