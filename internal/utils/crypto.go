// internal/utils/crypto.go
package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// sealedPrefix marks values produced by Encrypt so plain keys in an old
// settings file are still readable
const sealedPrefix = "sealed:v1:"

const keyInfo = "notequiz settings key"

// deriveKey stretches an arbitrary secret into a 32-byte AEAD key
func deriveKey(secret string) ([]byte, error) {
	key := make([]byte, chacha20poly1305.KeySize)
	r := hkdf.New(sha256.New, []byte(secret), nil, []byte(keyInfo))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	return key, nil
}

// Encrypt seals plaintext with XChaCha20-Poly1305 under a key derived from secret
func Encrypt(plaintext, secret string) (string, error) {
	key, err := deriveKey(secret)
	if err != nil {
		return "", err
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	sealed := aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return sealedPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a value produced by Encrypt. Values without the sealed
// prefix are returned as-is.
func Decrypt(ciphertext, secret string) (string, error) {
	if !IsSealed(ciphertext) {
		return ciphertext, nil
	}
	data, err := base64.StdEncoding.DecodeString(ciphertext[len(sealedPrefix):])
	if err != nil {
		return "", err
	}

	key, err := deriveKey(secret)
	if err != nil {
		return "", err
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return "", err
	}

	if len(data) < aead.NonceSize() {
		return "", fmt.Errorf("ciphertext too short")
	}
	nonce, body := data[:aead.NonceSize()], data[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, body, nil)
	if err != nil {
		return "", fmt.Errorf("open sealed value: %w", err)
	}
	return string(plaintext), nil
}

// IsSealed reports whether s was produced by Encrypt
func IsSealed(s string) bool {
	return len(s) > len(sealedPrefix) && s[:len(sealedPrefix)] == sealedPrefix
}

// GenerateSecureKey generates a cryptographically secure random key of specified length
func GenerateSecureKey(length int) ([]byte, error) {
	if length <= 0 {
		return nil, fmt.Errorf("key length must be greater than 0")
	}

	key := make([]byte, length)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate secure key: %w", err)
	}
	return key, nil
}
