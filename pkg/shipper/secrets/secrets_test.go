package secrets_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/courierhub/pkg/shipper/secrets"
)

func TestBox_RoundTrip(t *testing.T) {
	box, err := secrets.NewBox("operator-key")
	require.NoError(t, err)

	sealed, err := box.Encrypt("s3cr3t-password")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(sealed, secrets.Prefix))
	assert.NotContains(t, sealed, "s3cr3t")

	plain, err := box.Decrypt(sealed)
	require.NoError(t, err)
	assert.Equal(t, "s3cr3t-password", plain)
}

func TestBox_NoncesDiffer(t *testing.T) {
	box, err := secrets.NewBox("operator-key")
	require.NoError(t, err)

	a, _ := box.Encrypt("same")
	b, _ := box.Encrypt("same")
	assert.NotEqual(t, a, b)
}

func TestBox_PlainValueIsNotEncrypted(t *testing.T) {
	box, err := secrets.NewBox("operator-key")
	require.NoError(t, err)

	_, err = box.Decrypt("plain-api-token")
	assert.ErrorIs(t, err, secrets.ErrNotEncrypted)
}

func TestBox_WrongKeyFails(t *testing.T) {
	a, _ := secrets.NewBox("key-a")
	b, _ := secrets.NewBox("key-b")

	sealed, err := a.Encrypt("value")
	require.NoError(t, err)

	_, err = b.Decrypt(sealed)
	assert.ErrorIs(t, err, secrets.ErrDecrypt)
}

func TestBox_Tampered(t *testing.T) {
	box, _ := secrets.NewBox("operator-key")

	_, err := box.Decrypt(secrets.Prefix + "not base64 !!")
	assert.ErrorIs(t, err, secrets.ErrDecrypt)

	_, err = box.Decrypt(secrets.Prefix + "AAAA")
	assert.ErrorIs(t, err, secrets.ErrDecrypt)
}

func TestNewBox_EmptySecret(t *testing.T) {
	_, err := secrets.NewBox("  ")
	assert.Error(t, err)
}

func TestNop(t *testing.T) {
	_, err := secrets.Nop{}.Decrypt(secrets.Prefix + "abc")
	assert.ErrorIs(t, err, secrets.ErrNotEncrypted)
}
