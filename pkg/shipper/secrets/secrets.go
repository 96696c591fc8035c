// Package secrets decrypts operator-entered carrier credentials.
package secrets

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// Prefix marks a value produced by Box.Encrypt.
const Prefix = "enc:v1:"

var (
	// ErrNotEncrypted is returned for values that were never encrypted.
	ErrNotEncrypted = errors.New("value is not encrypted")
	// ErrDecrypt is returned when an encrypted value cannot be opened.
	ErrDecrypt = errors.New("decryption failed")
)

// Decrypter opens stored credential values.
type Decrypter interface {
	Decrypt(value string) (string, error)
}

// Nop is a Decrypter for deployments without a secret key.
// Every value is reported as not encrypted.
type Nop struct{}

// Decrypt always returns ErrNotEncrypted.
func (Nop) Decrypt(string) (string, error) {
	return "", ErrNotEncrypted
}

// Box seals and opens values with XChaCha20-Poly1305.
type Box struct {
	aead cipher.AEAD
}

// NewBox derives a 256-bit key from the operator secret with HKDF-SHA256.
func NewBox(secret string) (*Box, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("secret key is empty")
	}
	key := make([]byte, chacha20poly1305.KeySize)
	kdf := hkdf.New(sha256.New, []byte(secret), nil, []byte("courierhub carrier credentials"))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("deriving key: %w", err)
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}
	return &Box{aead: aead}, nil
}

// Encrypt seals plaintext into a prefixed base64 string.
func (b *Box) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, b.aead.NonceSize(), b.aead.NonceSize()+len(plaintext)+b.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}
	sealed := b.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return Prefix + base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a value produced by Encrypt.
func (b *Box) Decrypt(value string) (string, error) {
	if !strings.HasPrefix(value, Prefix) {
		return "", ErrNotEncrypted
	}
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimPrefix(value, Prefix))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	ns := b.aead.NonceSize()
	if len(raw) < ns+b.aead.Overhead() {
		return "", fmt.Errorf("%w: ciphertext too short", ErrDecrypt)
	}
	plain, err := b.aead.Open(nil, raw[:ns], raw[ns:], nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	return string(plain), nil
}

var (
	_ Decrypter = Nop{}
	_ Decrypter = (*Box)(nil)
)
