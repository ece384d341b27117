package storage

import (
	"time"
)

// Vault encrypts credentials at rest and memoizes decryption, keyed by ciphertext.
// Ciphertexts are never reused across values, so entries cannot go stale.
type Vault struct {
	enc   *Encryption
	cache *LRUCache[string]
}

// NewVault creates a credential vault from a raw AES key.
func NewVault(key []byte, cacheSize int, cacheTTL time.Duration) (*Vault, error) {
	enc, err := NewEncryption(key)
	if err != nil {
		return nil, err
	}
	return &Vault{enc: enc, cache: NewLRUCache[string](cacheSize, cacheTTL)}, nil
}

// Seal encrypts a plaintext credential.
func (v *Vault) Seal(plaintext string) (string, error) {
	return v.enc.EncryptString(plaintext)
}

// Open decrypts a sealed credential.
func (v *Vault) Open(ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", nil
	}
	if plain, ok := v.cache.Get(ciphertext); ok {
		return plain, nil
	}
	plain, err := v.enc.DecryptString(ciphertext)
	if err != nil {
		return "", err
	}
	v.cache.Set(ciphertext, plain)
	return plain, nil
}

// CleanupExpired drops expired cache entries.
func (v *Vault) CleanupExpired() int {
	return v.cache.CleanupExpired()
}
