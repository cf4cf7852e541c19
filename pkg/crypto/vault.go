// Package crypto provides encryption for connection credentials at rest.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/tabular-ai/tabular-engine/pkg/apperrors"
)

// ErrInvalidKey is returned when the encryption key is empty.
var ErrInvalidKey = errors.New("invalid encryption key: must not be empty")

// Vault provides AES-256-GCM authenticated encryption for credential material.
// The envelope format is base64(nonce || ciphertext || tag). Decryption fails
// closed: any tamper or malformed envelope yields apperrors.ErrCredentialIntegrity,
// never partial plaintext.
type Vault struct {
	gcm cipher.AEAD
}

// NewVault creates a vault from a key string supplied at process start.
// The key can be:
//   - A base64-encoded 32-byte key (e.g., from: openssl rand -base64 32)
//   - Any passphrase (hashed to 32 bytes with SHA-256)
func NewVault(keyInput string) (*Vault, error) {
	if keyInput == "" {
		return nil, ErrInvalidKey
	}

	var key []byte
	decoded, err := base64.StdEncoding.DecodeString(keyInput)
	if err == nil && len(decoded) == 32 {
		key = decoded
	} else {
		hash := sha256.Sum256([]byte(keyInput))
		key = hash[:]
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &Vault{gcm: gcm}, nil
}

// Encrypt encrypts plaintext and returns base64(nonce || ciphertext || tag).
func (v *Vault) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, v.gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	// Seal appends ciphertext and tag to nonce: nonce || ciphertext || tag
	ciphertext := v.gcm.Seal(nonce, nonce, []byte(plaintext), nil)

	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Decrypt decrypts base64(nonce || ciphertext || tag) and returns plaintext.
func (v *Vault) Decrypt(envelope string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(envelope)
	if err != nil {
		return "", fmt.Errorf("%w: base64 decode failed", apperrors.ErrCredentialIntegrity)
	}

	nonceSize := v.gcm.NonceSize()
	if len(data) < nonceSize+v.gcm.Overhead() {
		return "", fmt.Errorf("%w: envelope too short", apperrors.ErrCredentialIntegrity)
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := v.gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("%w: authentication failed", apperrors.ErrCredentialIntegrity)
	}

	return string(plaintext), nil
}
