/*
Package types defines the core data structures shared across Burrow.

This package contains the domain model of the document store: secret records
binding collections to tenants, backup and restore job records with their
status state machine, mutation events delivered over subscriptions, and the
range/JSONPath query request shape.

All types serialize to JSON with snake_case field names matching the HTTP
wire format, so the same structs serve storage and the API layer.
*/
package types
