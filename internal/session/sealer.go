package session

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"github.com/qumail/qumail-client/internal/logger"
	"golang.org/x/crypto/hkdf"
)

const (
	sealedPrefix    = "v1:"
	plaintextPrefix = "plain:"

	keySize = 32
)

var (
	hkdfSalt = []byte("qumail.session.v1")
	hkdfInfo = []byte("qumail session token")
)

// Sealer protects the token at rest. aad binds the sealed value to the slot
// it is stored under.
type Sealer interface {
	Seal(plaintext, aad []byte) (string, error)
	Open(sealed string, aad []byte) ([]byte, error)
}

// NewSealer returns an AES-256-GCM sealer keyed from secret. With an empty
// secret it fails with ErrNoEncryptionKey unless allowPlaintext is set.
func NewSealer(secret string, allowPlaintext bool) (Sealer, error) {
	if strings.TrimSpace(secret) != "" {
		return NewAESSealer([]byte(secret))
	}
	if !allowPlaintext {
		return nil, ErrNoEncryptionKey
	}
	logger.Warn("Session encryption key not configured, storing token without at-rest protection (session.allow_plaintext is set)")
	return PlaintextSealer{}, nil
}

// AESSealer seals with AES-256-GCM under a key derived by HKDF-SHA-256.
type AESSealer struct {
	aead cipher.AEAD
}

// NewAESSealer derives the key from secret.
func NewAESSealer(secret []byte) (*AESSealer, error) {
	if len(secret) == 0 {
		return nil, ErrNoEncryptionKey
	}
	key, err := deriveKey(secret)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return &AESSealer{aead: aead}, nil
}

func deriveKey(secret []byte) ([]byte, error) {
	reader := hkdf.New(sha256.New, secret, hkdfSalt, hkdfInfo)
	key := make([]byte, keySize)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	return key, nil
}

// Seal returns "v1:" || base64url(nonce || ciphertext || tag).
func (s *AESSealer) Seal(plaintext, aad []byte) (string, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("nonce generation failed: %w", err)
	}
	sealed := s.aead.Seal(nonce, nonce, plaintext, aad)
	return sealedPrefix + base64.RawURLEncoding.EncodeToString(sealed), nil
}

func (s *AESSealer) Open(sealed string, aad []byte) ([]byte, error) {
	if strings.HasPrefix(sealed, plaintextPrefix) {
		return nil, fmt.Errorf("%w: stored token is not encrypted", ErrDecryptionFailed)
	}
	encoded, ok := strings.CutPrefix(sealed, sealedPrefix)
	if !ok {
		return nil, fmt.Errorf("%w: unknown token encoding", ErrDecryptionFailed)
	}
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}
	nonceSize := s.aead.NonceSize()
	if len(raw) < nonceSize+s.aead.Overhead() {
		return nil, fmt.Errorf("%w: ciphertext too short", ErrDecryptionFailed)
	}
	plaintext, err := s.aead.Open(nil, raw[:nonceSize], raw[nonceSize:], aad)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}

// PlaintextSealer stores the token as-is. Only reachable through the
// session.allow_plaintext opt-in.
type PlaintextSealer struct{}

func (PlaintextSealer) Seal(plaintext, _ []byte) (string, error) {
	return plaintextPrefix + string(plaintext), nil
}

func (PlaintextSealer) Open(sealed string, _ []byte) ([]byte, error) {
	if strings.HasPrefix(sealed, sealedPrefix) {
		return nil, fmt.Errorf("%w: token was stored encrypted", ErrNoEncryptionKey)
	}
	value, ok := strings.CutPrefix(sealed, plaintextPrefix)
	if !ok {
		return nil, fmt.Errorf("%w: unknown token encoding", ErrDecryptionFailed)
	}
	return []byte(value), nil
}
