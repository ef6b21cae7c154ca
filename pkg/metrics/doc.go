/*
Package metrics exposes Burrow's Prometheus instrumentation.

Counters and gauges cover the request path (totals and latency by method),
the storage facade (documents written and deleted), the subscription fabric
(events published, live subscribers, lag drops), and the backup/restore and
import pipelines. Handler returns the /metrics endpoint.
*/
package metrics
