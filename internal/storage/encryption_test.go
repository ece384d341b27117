package storage

import (
	"encoding/base64"
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey() []byte {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	return key
}

func TestEncryption_RoundTrip(t *testing.T) {
	enc, err := NewEncryption(testKey())
	require.NoError(t, err)

	ciphertext, err := enc.EncryptString("sk-test-12345")
	require.NoError(t, err)
	assert.NotContains(t, ciphertext, "sk-test")

	plaintext, err := enc.DecryptString(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, "sk-test-12345", plaintext)
}

func TestEncryption_UniqueNonces(t *testing.T) {
	enc, err := NewEncryption(testKey())
	require.NoError(t, err)

	a, err := enc.EncryptString("same")
	require.NoError(t, err)
	b, err := enc.EncryptString("same")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestEncryption_EmptyPassthrough(t *testing.T) {
	enc, err := NewEncryption(testKey())
	require.NoError(t, err)

	c, err := enc.EncryptString("")
	require.NoError(t, err)
	assert.Empty(t, c)

	p, err := enc.DecryptString("")
	require.NoError(t, err)
	assert.Empty(t, p)
}

func TestEncryption_Errors(t *testing.T) {
	_, err := NewEncryption([]byte("short"))
	assert.Error(t, err)

	enc, err := NewEncryption(testKey())
	require.NoError(t, err)

	_, err = enc.DecryptString("not base64!!")
	assert.Error(t, err)

	_, err = enc.DecryptString(base64.StdEncoding.EncodeToString([]byte("tiny")))
	assert.Error(t, err)

	other := testKey()
	other[0] = 0xff
	enc2, err := NewEncryption(other)
	require.NoError(t, err)
	sealed, err := enc2.EncryptString("secret")
	require.NoError(t, err)
	_, err = enc.DecryptString(sealed)
	assert.Error(t, err)
}

func TestGenerateKey(t *testing.T) {
	key, err := GenerateKey(32)
	require.NoError(t, err)
	raw, err := hex.DecodeString(key)
	require.NoError(t, err)
	assert.Len(t, raw, 32)

	_, err = GenerateKey(10)
	assert.Error(t, err)
}

func TestVault_OpenCaches(t *testing.T) {
	v, err := NewVault(testKey(), 10, time.Minute)
	require.NoError(t, err)

	sealed, err := v.Seal("gemini-key")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		plain, err := v.Open(sealed)
		require.NoError(t, err)
		assert.Equal(t, "gemini-key", plain)
	}
	assert.Equal(t, 1, v.cache.Len())

	plain, err := v.Open("")
	require.NoError(t, err)
	assert.Empty(t, plain)
}
