package cryptox

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveKey_Deterministic(t *testing.T) {
	secret := []byte("machine-secret")
	salt := []byte("alice@example.com")

	key1 := DeriveKey(secret, salt)
	key2 := DeriveKey(secret, salt)

	assert.Equal(t, key1, key2)
	assert.Len(t, key1, 32)
}

func TestDeriveKey_DifferentSalts(t *testing.T) {
	secret := []byte("machine-secret")

	key1 := DeriveKey(secret, []byte("salt-1"))
	key2 := DeriveKey(secret, []byte("salt-2"))

	assert.False(t, bytes.Equal(key1, key2))
}

func TestSealOpen_RoundTrip(t *testing.T) {
	key := DeriveKey([]byte("secret"), []byte("salt"))
	plaintext := []byte(`{"user":"alice","app_password":"s3cr3t"}`)

	sealed, err := Seal(plaintext, key)
	require.NoError(t, err)
	assert.NotEqual(t, plaintext, sealed)

	opened, err := Open(sealed, key)
	require.NoError(t, err)
	assert.Equal(t, plaintext, opened)
}

func TestOpen_WrongKey(t *testing.T) {
	key := DeriveKey([]byte("secret"), []byte("salt"))
	sealed, err := Seal([]byte("data"), key)
	require.NoError(t, err)

	other := DeriveKey([]byte("other"), []byte("salt"))
	_, err = Open(sealed, other)
	assert.Error(t, err)
}

func TestOpen_TooShort(t *testing.T) {
	key := DeriveKey([]byte("secret"), []byte("salt"))
	_, err := Open([]byte{0x01}, key)
	assert.ErrorIs(t, err, ErrCiphertextTooShort)
}
