// internal/secret/secret.go
//
// Credential sealing and generation.
//
// Context
// -------
// Site records persist FTP, WordPress admin, and database passwords.  They
// are sealed before they reach SQL and opened only right before an outbound
// API call or a one-time display to the owning client.
//
// Two ciphers satisfy `Cipher`:
//
//   • `Local`        – XChaCha20-Poly1305 with a 32-byte key from config.
//   • `vault.Transit` – Vault's transit engine (see internal/vault).
//
// Sealed values from `Local` look like `wpm:v1:<base64url>`.  Empty
// plaintext seals to the empty string so "no credential" round-trips.
package secret

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
)

// Cipher seals and opens single credential strings.
type Cipher interface {
	Seal(ctx context.Context, plaintext string) (string, error)
	Open(ctx context.Context, sealed string) (string, error)
}

const localPrefix = "wpm:v1:"

// ErrMalformed is returned by Open for values not produced by Seal.
var ErrMalformed = errors.New("secret: malformed sealed value")

// Local is an AEAD cipher keyed from config.  Safe for concurrent use.
type Local struct {
	key []byte
}

// NewLocal accepts a 32-byte key.
func NewLocal(key []byte) (*Local, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("secret: key must be %d bytes, got %d", chacha20poly1305.KeySize, len(key))
	}
	k := make([]byte, len(key))
	copy(k, key)
	return &Local{key: k}, nil
}

// NewLocalFromBase64 decodes a standard base64 key as written in config.
func NewLocalFromBase64(b64 string) (*Local, error) {
	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(b64))
	if err != nil {
		return nil, fmt.Errorf("secret: decode key: %w", err)
	}
	return NewLocal(key)
}

// Seal encrypts plaintext with a random 24-byte nonce.
func (l *Local) Seal(_ context.Context, plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	aead, err := chacha20poly1305.NewX(l.key)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("secret: nonce: %w", err)
	}
	out := aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return localPrefix + base64.RawURLEncoding.EncodeToString(out), nil
}

// Open reverses Seal.
func (l *Local) Open(_ context.Context, sealed string) (string, error) {
	if sealed == "" {
		return "", nil
	}
	body, ok := strings.CutPrefix(sealed, localPrefix)
	if !ok {
		return "", ErrMalformed
	}
	raw, err := base64.RawURLEncoding.DecodeString(body)
	if err != nil {
		return "", ErrMalformed
	}
	aead, err := chacha20poly1305.NewX(l.key)
	if err != nil {
		return "", err
	}
	if len(raw) < aead.NonceSize()+aead.Overhead() {
		return "", ErrMalformed
	}
	nonce, ct := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	pt, err := aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return "", fmt.Errorf("secret: open: %w", err)
	}
	return string(pt), nil
}
