/*
Package config loads Burrow's server configuration.

Configuration comes from environment variables with sensible defaults,
matching the deployment story of a single self-contained binary:

	PORT           listen port                (default 5050)
	WORKERS        background job concurrency (default 4)
	ADMIN_TOKEN    admin bearer token         (default supersecret)
	DATABASE_PATH  engine database root       (default ./rocksdb)
	LOG_LEVEL      debug|info|warn|error      (default info)
	BACKUP_DIR     backup artifact directory  (default ./backups)

An optional YAML file can seed the same fields; environment variables always
take precedence over the file.
*/
package config
