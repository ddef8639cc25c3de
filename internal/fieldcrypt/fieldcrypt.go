// Package fieldcrypt provides field-level at-rest encryption for sensitive
// string columns (expense descriptions). Values are encrypted with
// AES-256-GCM and stored as "base64(iv):base64(ciphertext)" so each row is
// self-contained. The key is derived once from the configured master key.
package fieldcrypt

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// gcmNonceLen is the standard 96-bit GCM nonce length.
	gcmNonceLen = 12

	// keyLen is the AES-256 key length in bytes.
	keyLen = 32

	// kdfIterations is the PBKDF2 iteration count for key derivation. The
	// derivation runs once at startup, so a high count is affordable.
	kdfIterations = 600_000

	// separator joins the encoded nonce and ciphertext in the stored value.
	separator = ":"
)

// kdfSalt is a fixed application salt for deriving the field key from the
// master key. The master key itself is the secret; the salt only
// domain-separates this derivation from any other use of the same key.
var kdfSalt = []byte("spendloop.fieldcrypt.v1")

// Codec encrypts and decrypts field values. Safe for concurrent use.
type Codec struct {
	aead cipher.AEAD
}

// New derives the AES-256 key from the master key and returns a ready codec.
func New(masterKey string) (*Codec, error) {
	if masterKey == "" {
		return nil, fmt.Errorf("master key must not be empty")
	}

	key := pbkdf2.Key([]byte(masterKey), kdfSalt, kdfIterations, keyLen, sha256.New)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("creating GCM: %w", err)
	}

	return &Codec{aead: aead}, nil
}

// Encrypt encrypts a plaintext field value. Empty strings pass through
// unchanged so optional columns stay NULL-equivalent.
func (c *Codec) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	nonce := make([]byte, gcmNonceLen)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}

	ciphertext := c.aead.Seal(nil, nonce, []byte(plaintext), nil)

	return base64.StdEncoding.EncodeToString(nonce) + separator +
		base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Decrypt reverses Encrypt. Fails on malformed input, a wrong key, or any
// tampering with the ciphertext (GCM authentication).
func (c *Codec) Decrypt(stored string) (string, error) {
	if stored == "" {
		return "", nil
	}

	parts := strings.SplitN(stored, separator, 2)
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid encrypted field format")
	}

	nonce, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return "", fmt.Errorf("decoding nonce: %w", err)
	}
	if len(nonce) != gcmNonceLen {
		return "", fmt.Errorf("invalid nonce length %d", len(nonce))
	}
	ciphertext, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return "", fmt.Errorf("decoding ciphertext: %w", err)
	}

	plaintext, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("decrypting field: %w", err)
	}
	return string(plaintext), nil
}
