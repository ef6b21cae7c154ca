/*
Package namespace implements tenant isolation and request authentication.

Collections are addressed by a user-visible name, but stored under a
physical column family name derived from the tenant's secret:

	token    = hex(sha256(secret))[0:8]
	internal = token + "-" + name

Two tenants using the same collection name with different secrets therefore
address disjoint column families, and losing the secret makes a collection
unreachable by name (the data remains, but nothing can re-derive its
internal name).

The Resolver middleware performs this mapping for every /api request and
attaches the outcome to the request context; the AuthGate middleware runs
after it and admits a request when it carries the process admin token or a
secret hashing to the stored value for the resolved internal name.
Collection creation (PUT on a bare collection path) is exempt: it is the
operation that establishes the secret in the first place.
*/
package namespace
