package namespace

import (
	"context"
	"net/http"
	"strings"

	"github.com/burrowdb/burrow/pkg/log"
	"github.com/burrowdb/burrow/pkg/storage"
	"github.com/burrowdb/burrow/pkg/types"
)

type contextKey int

const resolvedKey contextKey = iota

// Resolved carries the outcome of collection name resolution through the
// request context.
type Resolved struct {
	// UserName is the collection name as it appears in the URL.
	UserName string
	// InternalName is the physical column family name to use for storage.
	InternalName string
	// Secret is the plaintext secret, when the request carried one or the
	// resolver generated one for a collection creation.
	Secret string
	// GeneratedSecret marks a secret minted by the resolver rather than
	// supplied by the client.
	GeneratedSecret bool
}

// FromContext returns the resolution attached to the request, if any.
func FromContext(ctx context.Context) (*Resolved, bool) {
	r, ok := ctx.Value(resolvedKey).(*Resolved)
	return r, ok
}

// pathCollection extracts the collection segment of an /api path. It returns
// the segment, the total segment count, and whether the path targets the API
// scope at all.
func pathCollection(path string) (string, int, bool) {
	if !strings.HasPrefix(path, "/api/") {
		return "", 0, false
	}
	segments := strings.Split(strings.TrimSuffix(path, "/"), "/")
	// segments[0] is empty, segments[1] == "api".
	if len(segments) < 3 || segments[2] == "" {
		return "", len(segments), false
	}
	return segments[2], len(segments), true
}

// Resolver returns middleware that maps the user-visible collection name of
// every /api request to its internal column family name and attaches the
// result to the request context.
//
// Resolution order: a collection creation derives the namespace from the
// header secret (minting one when absent); otherwise a row in the secrets
// column family under the bare user name wins (legacy, non-namespaced
// collections); otherwise a header secret derives the namespace; otherwise
// the user name is used verbatim, which typically ends in a 404.
func Resolver(store storage.Store) func(http.Handler) http.Handler {
	logger := log.WithComponent("namespace")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userName, segments, ok := pathCollection(r.URL.Path)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			headerSecret := r.Header.Get(SecretHeader)
			resolved := &Resolved{UserName: userName, Secret: headerSecret}

			isCreate := r.Method == http.MethodPut && segments == 3
			var legacy types.Secret

			switch {
			case isCreate:
				secret := headerSecret
				if secret == "" {
					generated, err := GenerateSecret()
					if err != nil {
						http.Error(w, `{"error":"failed to generate secret"}`, http.StatusInternalServerError)
						return
					}
					secret = generated
					resolved.GeneratedSecret = true
					logger.Info().Str("collection", userName).Msg("generated new secret key")
				}
				resolved.Secret = secret
				resolved.InternalName = InternalName(secret, userName)

			case store.Get(SecretsCF, userName, &legacy) == nil:
				// Legacy collection keyed by its bare user name: the stored
				// hash's prefix doubles as the namespace token.
				token := legacy.Secret
				if len(token) > 8 {
					token = token[:8]
				}
				resolved.InternalName = token + "-" + userName

			case headerSecret != "":
				resolved.InternalName = InternalName(headerSecret, userName)

			default:
				resolved.InternalName = userName
			}

			ctx := context.WithValue(r.Context(), resolvedKey, resolved)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
