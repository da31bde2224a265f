// Package sealer produces opaque, tamper-evident tokens with AES-GCM.
package sealer

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

var ErrInvalidToken = errors.New("invalid sealed token")

type Sealer struct {
	aead cipher.AEAD
}

// New builds a Sealer from a 16, 24 or 32 byte key.
func New(key []byte) (*Sealer, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}
	return &Sealer{aead: aead}, nil
}

// Seal joins parts with ':' and encrypts them into a URL-safe token.
func (s *Sealer) Seal(parts ...string) (string, error) {
	plaintext := []byte(strings.Join(parts, ":"))

	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	ct := s.aead.Seal(nonce, nonce, plaintext, nil)
	return base64.RawURLEncoding.EncodeToString(ct), nil
}

// Open reverses Seal and checks the token carries exactly n parts.
func (s *Sealer) Open(token string, n int) ([]string, error) {
	data, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, ErrInvalidToken
	}

	nonceSize := s.aead.NonceSize()
	if len(data) < nonceSize {
		return nil, ErrInvalidToken
	}

	pt, err := s.aead.Open(nil, data[:nonceSize], data[nonceSize:], nil)
	if err != nil {
		return nil, ErrInvalidToken
	}

	parts := strings.SplitN(string(pt), ":", n)
	if len(parts) != n {
		return nil, ErrInvalidToken
	}
	return parts, nil
}
