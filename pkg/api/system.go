package api

import (
	"fmt"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/burrowdb/burrow/pkg/namespace"
	"github.com/burrowdb/burrow/pkg/storage"
	"github.com/burrowdb/burrow/pkg/types"
)

// health implements GET /health, a plain liveness check.
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
	})
}

// ready implements GET /ready: the process is ready once the secrets column
// family is reachable.
func (s *Server) ready(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{"storage": "ok"}
	status := http.StatusOK
	state := "ready"

	if !s.store.CFExists(namespace.SecretsCF) {
		checks["storage"] = "secrets column family missing"
		status = http.StatusServiceUnavailable
		state = "not ready"
	}

	writeJSON(w, status, map[string]any{
		"status":    state,
		"timestamp": time.Now().UTC(),
		"checks":    checks,
	})
}

const benchmarkCF = "benchmark_cf"

var benchmarkQueries = []string{
	"$[*]",
	"$[?@.premium==true]",
	"$[?@.status=='active']",
	"$[?@.type=='admin']",
	"$[?@.score>800]",
	"$[?@.age<30&&@.premium==true]",
	"$[?@.metadata.login_count>500]",
	"$[?@.age>50&&@.status!='inactive'&&@.score<500]",
}

func benchmarkUser(id int, rng *rand.Rand) map[string]any {
	statuses := []string{"active", "inactive", "pending"}
	kinds := []string{"user", "admin", "guest"}
	return map[string]any{
		"id":       id,
		"username": fmt.Sprintf("user_%d", id),
		"type":     kinds[rng.Intn(len(kinds))],
		"status":   statuses[rng.Intn(len(statuses))],
		"age":      18 + rng.Intn(62),
		"score":    rng.Intn(1000),
		"premium":  rng.Float64() < 0.3,
		"data": map[string]any{
			"name":     fmt.Sprintf("User %d", id),
			"email":    fmt.Sprintf("user%d@example.com", id),
			"verified": rng.Float64() < 0.7,
		},
		"metadata": map[string]any{
			"login_count": rng.Intn(1000),
		},
	}
}

// benchmark implements GET /benchmark: an admin-gated synthetic workload
// that exercises batch writes, JSONPath queries, range scans and deletes
// against a scratch column family and reports per-phase timings.
func (s *Server) benchmark(w http.ResponseWriter, r *http.Request) {
	if !namespace.VerifyAdminToken(r, s.cfg.AdminToken) {
		writeError(w, http.StatusUnauthorized, "Unauthorized access")
		return
	}

	q := r.URL.Query()
	count := queryInt(q.Get("count"), 1000)
	if n := q.Get("n"); n != "" {
		count = queryInt(n, count)
	}
	batchSize := queryInt(q.Get("batch_size"), 100)
	queryCount := queryInt(q.Get("query_count"), 4)
	if queryCount > len(benchmarkQueries) {
		queryCount = len(benchmarkQueries)
	}

	if !s.store.CFExists(benchmarkCF) {
		if err := s.store.CreateCF(benchmarkCF); err != nil {
			writeStorageError(w, err, benchmarkCF)
			return
		}
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	keys := make([]string, count)
	pairs := make([]types.KeyValue, count)
	for i := 0; i < count; i++ {
		keys[i] = fmt.Sprintf("bench_key_%08d", i)
		pairs[i] = types.KeyValue{Key: keys[i], Value: benchmarkUser(i, rng)}
	}

	insertStart := time.Now()
	inserted := 0
	for start := 0; start < count; start += batchSize {
		end := start + batchSize
		if end > count {
			end = count
		}
		if err := s.store.BatchInsert(benchmarkCF, pairs[start:end]); err == nil {
			inserted += end - start
		}
	}
	insertMs := time.Since(insertStart).Milliseconds()

	queryStart := time.Now()
	querySuccess, queryResults := 0, 0
	for _, path := range benchmarkQueries[:queryCount] {
		if docs, err := s.store.Query(benchmarkCF, path); err == nil {
			querySuccess++
			queryResults += len(docs)
		}
	}
	queryMs := time.Since(queryStart).Milliseconds()

	rangeStart := time.Now()
	rangeSuccess, rangeResults := 0, 0
	for _, limit := range []int{10, 50, 100, 500} {
		if docs, err := s.store.GetRange(benchmarkCF, "", storage.HighSentinel, limit, storage.Forward); err == nil {
			rangeSuccess++
			rangeResults += len(docs)
		}
	}
	rangeMs := time.Since(rangeStart).Milliseconds()

	deleteStart := time.Now()
	deleted := 0
	for _, key := range keys {
		if err := s.store.Delete(benchmarkCF, key); err == nil {
			deleted++
		}
	}
	deleteMs := time.Since(deleteStart).Milliseconds()

	size, _ := s.store.Size(benchmarkCF)

	writeJSON(w, http.StatusOK, map[string]any{
		"params": map[string]any{
			"count":       count,
			"batch_size":  batchSize,
			"query_count": queryCount,
		},
		"operations": map[string]any{
			"inserts": map[string]any{"count": count, "success": inserted, "duration_ms": insertMs},
			"queries": map[string]any{"count": queryCount, "success": querySuccess, "duration_ms": queryMs, "total_results": queryResults},
			"range_queries": map[string]any{"count": 4, "success": rangeSuccess, "duration_ms": rangeMs, "total_results": rangeResults},
			"deletes": map[string]any{"count": count, "success": deleted, "duration_ms": deleteMs},
		},
		"storage": size,
	})
}

func queryInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
