// Package service provides the secret material services behind authorization keys.
//
// Keys are 192 bits of randomness encoded as unpadded base64url. Only the first characters
// are stored in clear for candidate lookup; the full key is stored as an Argon2id hash.
package service

// KeyService generates, hashes and compares authorization key secrets.
type KeyService interface {
	// GenerateKey creates a new random key. It returns the plaintext (shown to the issuer
	// once), the lookup prefix and the Argon2id hash to persist.
	GenerateKey() (plainKey string, prefix string, keyHash string, err error)

	// HashKey hashes a plaintext key using Argon2id.
	HashKey(plainKey string) (keyHash string, err error)

	// CompareKey reports whether the plaintext matches the hash in constant time.
	// Malformed hashes never match.
	CompareKey(plainKey string, keyHash string) bool

	// Prefix returns the lookup prefix of a presented key.
	Prefix(plainKey string) string
}
