/*
Package backup orchestrates collection snapshot and restore jobs.

Jobs run detached from the request that started them, bounded by a shared
worker semaphore, and report progress through persistent records:

	in_progress ──> completed (url set)
	            └─> failed    (error set)

Each backup record is written twice, once to the global backups column
family and once to the collection's "-backups" sibling, so a tenant can
list its own backups without seeing anyone else's. Restore requests are
validated up front (the backup must exist, be completed, and its file must
still be on disk); a request that fails validation still leaves a failed
restore record behind.
*/
package backup
