package service

import (
	"crypto/rand"
	"encoding/base64"

	"github.com/allisson/go-pwdhash"

	"github.com/allisson/authkeys/internal/authkey/domain"
	apperrors "github.com/allisson/authkeys/internal/errors"
)

// keyEntropyBytes is the amount of randomness per key (192 bits, 32 encoded characters).
const keyEntropyBytes = 24

type keyService struct {
	hasher *pwdhash.PasswordHasher
}

// GenerateKey creates a new cryptographically secure key and its stored forms.
func (s *keyService) GenerateKey() (plainKey string, prefix string, keyHash string, err error) {
	randomBytes := make([]byte, keyEntropyBytes)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", "", "", apperrors.Wrap(err, "failed to generate random key")
	}

	plainKey = base64.RawURLEncoding.EncodeToString(randomBytes)

	keyHash, err = s.HashKey(plainKey)
	if err != nil {
		return "", "", "", err
	}

	return plainKey, s.Prefix(plainKey), keyHash, nil
}

// HashKey hashes a plaintext key using Argon2id.
func (s *keyService) HashKey(plainKey string) (string, error) {
	keyHash, err := s.hasher.Hash([]byte(plainKey))
	if err != nil {
		return "", apperrors.Wrap(err, "failed to hash key")
	}
	return keyHash, nil
}

// CompareKey performs a constant-time comparison between a plaintext key and its hash.
func (s *keyService) CompareKey(plainKey string, keyHash string) bool {
	ok, err := s.hasher.Verify([]byte(plainKey), keyHash)
	if err != nil {
		return false
	}
	return ok
}

// Prefix returns the first domain.PrefixLength characters of the key.
func (s *keyService) Prefix(plainKey string) string {
	if len(plainKey) <= domain.PrefixLength {
		return plainKey
	}
	return plainKey[:domain.PrefixLength]
}

// NewKeyService creates a KeyService using Argon2id with the Moderate policy.
func NewKeyService() KeyService {
	hasher, err := pwdhash.New(
		pwdhash.WithPolicy(pwdhash.PolicyModerate),
	)
	if err != nil {
		// This should never happen with valid policy
		panic(err)
	}

	return &keyService{
		hasher: hasher,
	}
}
