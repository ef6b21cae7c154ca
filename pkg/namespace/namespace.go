package namespace

import (
	"crypto/sha256"
	"encoding/hex"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// SecretsCF is the global column family holding one secret record per
// internal collection name. It exists from first startup.
const SecretsCF = "secrets"

// HTTP headers carrying credentials.
const (
	SecretHeader = "X-SECRET-KEY"
	AdminHeader  = "X-ADMIN-TOKEN"
)

// secretLength is the length of generated plaintext collection secrets.
const secretLength = 32

// HashSecret returns the hex-encoded SHA-256 of a plaintext secret. This is
// what gets persisted; the plaintext never touches the store.
func HashSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

// Token derives the 8-hex-character namespace token from a plaintext secret.
// The token is deterministic: the same secret yields the same token on any
// node, and distinct secrets yield distinct tokens.
func Token(secret string) string {
	return HashSecret(secret)[:8]
}

// InternalName maps a tenant secret and a user-visible collection name to
// the physical column family name. Two tenants holding different secrets for
// the same name get disjoint column families.
func InternalName(secret, userName string) string {
	return Token(secret) + "-" + userName
}

// GenerateSecret produces a fresh plaintext collection secret.
func GenerateSecret() (string, error) {
	return gonanoid.New(secretLength)
}
