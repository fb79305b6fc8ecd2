// Package crypto seals upstream credentials at rest with AES-256-GCM so they
// can be kept in config files and environment variables as "enc:<base64>".
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
)

// SealedPrefix marks a sealed credential value.
const SealedPrefix = "enc:"

var (
	// ErrInvalidKeySize 密钥长度无效
	ErrInvalidKeySize = errors.New("encryption key must be 32 bytes (256 bits)")
	// ErrInvalidCiphertext 密文格式无效
	ErrInvalidCiphertext = errors.New("invalid ciphertext: too short or malformed")
	// ErrDecryptionFailed 解密失败（密钥错误或密文被篡改）
	ErrDecryptionFailed = errors.New("decryption failed: authentication failed")
	// ErrNoKey 遇到 enc: 值但未配置密钥
	ErrNoKey = errors.New("sealed credential found but no encryption key configured")
)

// Sealer seals and opens credential values.
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer creates a Sealer. key must be exactly 32 bytes.
func NewSealer(key []byte) (*Sealer, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("%w: got %d bytes", ErrInvalidKeySize, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &Sealer{aead: aead}, nil
}

// IsSealed reports whether value carries the sealed prefix.
func IsSealed(value string) bool {
	return strings.HasPrefix(value, SealedPrefix)
}

// Seal returns "enc:" + base64(nonce | ciphertext | tag). Empty input stays empty.
func (s *Sealer) Seal(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := s.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return SealedPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Open returns the plaintext of a sealed value. Values without the prefix are
// returned unchanged.
func (s *Sealer) Open(value string) (string, error) {
	if !IsSealed(value) {
		return value, nil
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, SealedPrefix))
	if err != nil {
		return "", fmt.Errorf("failed to decode base64: %w", err)
	}

	nonceSize := s.aead.NonceSize()
	if len(decoded) < nonceSize+s.aead.Overhead() {
		return "", ErrInvalidCiphertext
	}

	plaintext, err := s.aead.Open(nil, decoded[:nonceSize], decoded[nonceSize:], nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}

	return string(plaintext), nil
}

// OpenAll opens every sealed entry of values, leaving plain entries as-is.
// A nil Sealer is allowed as long as no entry is sealed.
func OpenAll(s *Sealer, values []string) ([]string, error) {
	out := make([]string, len(values))
	for i, v := range values {
		if !IsSealed(v) {
			out[i] = v
			continue
		}
		if s == nil {
			return nil, fmt.Errorf("entry %d: %w", i, ErrNoKey)
		}
		opened, err := s.Open(v)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		out[i] = opened
	}
	return out, nil
}
