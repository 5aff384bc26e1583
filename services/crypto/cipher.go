// Package crypto encrypts vendor credentials at rest.
//
// Ciphertexts are stored as hex(iv) + ":" + hex(sealed), where sealed is the
// AES-256-GCM output (ciphertext plus tag) and iv a fresh 12-byte nonce.
// The key is SHA-256 of the configured passphrase.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/upb/llm-gateway/config"
	"github.com/upb/llm-gateway/services"
	"go.uber.org/zap"
)

const separator = ":"

// Cipher encrypts and decrypts secrets with a key derived once at construction
type Cipher struct {
	aead   cipher.AEAD
	random io.Reader
}

// NewCipher derives the key from passphrase. An empty passphrase falls back to
// the compiled-in insecure default and logs a warning.
func NewCipher(passphrase string, logger *zap.Logger) (*Cipher, error) {
	if passphrase == "" || passphrase == config.InsecureDefaultPassphrase {
		logger.Warn("credential passphrase not configured, using insecure default")
		passphrase = config.InsecureDefaultPassphrase
	}

	key := sha256.Sum256([]byte(passphrase))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("failed to create block cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &Cipher{aead: aead, random: rand.Reader}, nil
}

// Encrypt seals plaintext under a fresh random IV
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	iv := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(c.random, iv); err != nil {
		return "", fmt.Errorf("failed to generate iv: %w", err)
	}

	sealed := c.aead.Seal(nil, iv, []byte(plaintext), nil)
	return hex.EncodeToString(iv) + separator + hex.EncodeToString(sealed), nil
}

// Decrypt opens a value produced by Encrypt. A value that is not exactly two
// hex segments yields a credential format error.
func (c *Cipher) Decrypt(encoded string) (string, error) {
	parts := strings.Split(encoded, separator)
	if len(parts) != 2 {
		return "", services.NewCredentialFormatError(fmt.Sprintf("expected 2 segments, got %d", len(parts)))
	}
	if parts[0] == "" || parts[1] == "" {
		return "", services.NewCredentialFormatError("empty segment")
	}

	iv, err := hex.DecodeString(parts[0])
	if err != nil {
		return "", services.NewCredentialFormatError("iv is not hex")
	}
	if len(iv) != c.aead.NonceSize() {
		return "", services.NewCredentialFormatError(fmt.Sprintf("iv must be %d bytes", c.aead.NonceSize()))
	}
	sealed, err := hex.DecodeString(parts[1])
	if err != nil {
		return "", services.NewCredentialFormatError("ciphertext is not hex")
	}

	plaintext, err := c.aead.Open(nil, iv, sealed, nil)
	if err != nil {
		return "", services.NewDomainError(services.ErrorTypeCredential, "failed to decrypt credential", err)
	}
	return string(plaintext), nil
}

// Hash returns the SHA-256 hex digest of text
func Hash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// CompareHash reports whether text hashes to digest, in constant time
func CompareHash(text, digest string) bool {
	return subtle.ConstantTimeCompare([]byte(Hash(text)), []byte(strings.ToLower(digest))) == 1
}
