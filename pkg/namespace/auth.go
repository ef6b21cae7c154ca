package namespace

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/burrowdb/burrow/pkg/log"
	"github.com/burrowdb/burrow/pkg/storage"
	"github.com/burrowdb/burrow/pkg/types"
)

// VerifyAdminToken reports whether the request carries the process admin
// token.
func VerifyAdminToken(r *http.Request, adminToken string) bool {
	header := r.Header.Get(AdminHeader)
	if header == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(header), []byte(adminToken)) == 1
}

// VerifyCollectionSecret reports whether the request's secret header hashes
// to the value stored for the internal collection name. A missing header is
// not an error, just a failed check.
func VerifyCollectionSecret(r *http.Request, store storage.Store, internalName string) bool {
	secretKey := r.Header.Get(SecretHeader)
	if secretKey == "" {
		return false
	}

	var stored types.Secret
	if err := store.Get(SecretsCF, internalName, &stored); err != nil {
		return false
	}
	return stored.Secret == HashSecret(secretKey)
}

// AuthGate returns middleware enforcing authentication on /api requests.
// Collection creation bootstraps itself and passes unauthenticated; every
// other /api request needs the admin token or the collection's secret.
// Non-/api paths (static backups, benchmark, health, metrics) pass through.
func AuthGate(store storage.Store, adminToken string) func(http.Handler) http.Handler {
	logger := log.WithComponent("auth")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.HasPrefix(r.URL.Path, "/api/") {
				next.ServeHTTP(w, r)
				return
			}

			userName, segments, ok := pathCollection(r.URL.Path)
			if !ok {
				unauthorized(w, "Invalid path")
				return
			}

			// Collection creation is its own bootstrap.
			if r.Method == http.MethodPut && segments == 3 {
				next.ServeHTTP(w, r)
				return
			}

			internalName := userName
			if resolved, found := FromContext(r.Context()); found {
				internalName = resolved.InternalName
			}

			if VerifyAdminToken(r, adminToken) || VerifyCollectionSecret(r, store, internalName) {
				next.ServeHTTP(w, r)
				return
			}

			logger.Debug().
				Str("collection", userName).
				Str("method", r.Method).
				Msg("rejected unauthenticated request")
			unauthorized(w, "Unauthorized access")
		})
	}
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"` + msg + `"}`))
}
