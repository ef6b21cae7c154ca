package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/burrowdb/burrow/pkg/log"
	"github.com/burrowdb/burrow/pkg/metrics"
)

// subscribe answers GET /api/{collection}/_subscribe with a server-sent
// events stream of the collection's mutations. The stream stays open until
// the client disconnects or the fabric shuts down.
func (s *Server) subscribe(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	res := resolved(r, ps.ByName("collection"))

	if !s.store.CFExists(res.InternalName) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "Collection not found", Collection: res.UserName})
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "Streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	sub := s.fabric.Subscribe(res.InternalName)
	defer s.fabric.Unsubscribe(res.InternalName, sub)
	metrics.SubscribersActive.Inc()
	defer metrics.SubscribersActive.Dec()

	logger := log.WithCollection(res.UserName)
	logger.Info().Msg("subscriber connected")

	fmt.Fprintf(w, "data: {\"type\":\"connected\",\"collection\":%q}\n\n", res.UserName)
	flusher.Flush()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("subscriber disconnected")
			return
		case event, open := <-sub.Events():
			if !open {
				// Fabric shut down; end the stream.
				logger.Info().Msg("subscription channel closed")
				return
			}
			if skipped := sub.Lagged(); skipped > 0 {
				logger.Warn().Uint64("skipped", skipped).Msg("subscriber lagged, events dropped")
				metrics.SubscriberLagEvents.Add(float64(skipped))
			}

			if obj, isObject := event.Value.(map[string]any); isObject {
				// Every subscriber receives the same value reference, so the
				// timestamp goes into a copy.
				stamped := make(map[string]any, len(obj)+1)
				for k, v := range obj {
					stamped[k] = v
				}
				stamped["serverTime"] = time.Now().UnixMilli()
				event.Value = stamped
			}
			payload, err := json.Marshal(event)
			if err != nil {
				logger.Error().Err(err).Str("key", event.Key).Msg("failed to encode event")
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
		}
	}
}
