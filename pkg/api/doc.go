/*
Package api serves the HTTP surface of the document store.

Request flow:

	CORS -> request log -> metrics -> body limit -> resolver -> auth gate -> router

The resolver maps the user-visible collection name of each /api request to
its namespaced column family; the auth gate then admits the request on the
admin token or the collection secret. Handlers are thin adapters over the
storage facade and the pub/sub fabric: a mutating handler writes first and
publishes its event second. Collection-wide operations live under reserved
_-prefixed keys (_batch, _subscribe, _backup, _restore, _import).

Outside /api the server exposes /health, /ready, /metrics, the admin-gated
/benchmark workload, and read-only static serving of backup artifacts under
/backups/.
*/
package api
