package encryption_test

import (
	"strings"
	"testing"

	"invoicehub-sync/internal/infrastructure/encryption"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey() []byte {
	return []byte(strings.Repeat("k", 32))
}

func TestAESRoundTrip(t *testing.T) {
	svc, err := encryption.NewAESEncryptionService(testKey())
	require.NoError(t, err)

	ciphertext, err := svc.Encrypt("super-secret-token")
	require.NoError(t, err)
	assert.NotContains(t, ciphertext, "super-secret-token")

	plaintext, err := svc.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, "super-secret-token", plaintext)
}

func TestAESNoncesDiffer(t *testing.T) {
	svc, err := encryption.NewAESEncryptionService(testKey())
	require.NoError(t, err)

	a, err := svc.Encrypt("same input")
	require.NoError(t, err)
	b, err := svc.Encrypt("same input")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestAESRejectsBadKeyLength(t *testing.T) {
	_, err := encryption.NewAESEncryptionService([]byte("short"))
	assert.Error(t, err)
}

func TestAESRejectsTamperedCiphertext(t *testing.T) {
	svc, err := encryption.NewAESEncryptionService(testKey())
	require.NoError(t, err)

	ciphertext, err := svc.Encrypt("payload")
	require.NoError(t, err)

	_, err = svc.Decrypt("AAAA" + ciphertext[4:])
	assert.Error(t, err)

	_, err = svc.Decrypt("not base64!!")
	assert.Error(t, err)

	_, err = svc.Decrypt("")
	assert.Error(t, err)
}
