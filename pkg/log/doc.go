/*
Package log provides structured logging for Burrow built on zerolog.

A single global logger is initialized once at startup from the LOG_LEVEL
configuration and shared by all components. Child loggers carry contextual
fields so that log lines from the storage facade, the subscription fabric,
and the HTTP layer can be told apart:

	logger := log.WithComponent("storage")
	logger.Info().Str("cf", name).Msg("column family created")

Console output (human-readable, RFC3339 timestamps) is the default;
JSONOutput switches to newline-delimited JSON for log shippers.
*/
package log
