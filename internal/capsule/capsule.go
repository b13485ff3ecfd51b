// Package capsule seals short strings into opaque, authenticated tokens that are
// safe to hand to untrusted clients and to embed in JSON or URLs.
package capsule

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"
)

const (
	keySize   = 32
	nonceSize = 12
	tagSize   = 16

	// keyInfo binds derived keys to this envelope format.
	keyInfo = "pfm capsule v1"
)

var strictStd = base64.StdEncoding.Strict()

var (
	// ErrMissingSecret is returned when no passphrase is configured.
	ErrMissingSecret = errors.New("capsule: passphrase not configured")

	// ErrInvalidCapsule is returned when a capsule is malformed, tampered with,
	// or was sealed under a different passphrase.
	ErrInvalidCapsule = errors.New("capsule: invalid or tampered capsule")
)

// envelope is the serialized form of a capsule before text encoding.
type envelope struct {
	IV   string `json:"iv"`
	Tag  string `json:"tag"`
	Data string `json:"data"`
}

// Cipher seals and opens capsules with a key derived from a passphrase.
// It is safe for concurrent use.
type Cipher struct {
	aead cipher.AEAD
}

// New derives the capsule key from passphrase.
// The same passphrase always yields the same key.
func New(passphrase string) (*Cipher, error) {
	key, err := DeriveKey(passphrase)
	if err != nil {
		return nil, err
	}

	// Key size is fixed, so neither constructor can fail.
	block, _ := aes.NewCipher(key) //nolint:errcheck
	gcm, _ := cipher.NewGCM(block) //nolint:errcheck

	return &Cipher{aead: gcm}, nil
}

// DeriveKey returns the 32-byte AES key for passphrase using HKDF-SHA256.
// Surrounding whitespace in the passphrase is ignored.
func DeriveKey(passphrase string) ([]byte, error) {
	secret := strings.TrimSpace(passphrase)
	if secret == "" {
		return nil, ErrMissingSecret
	}

	key := make([]byte, keySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(keyInfo)), key); err != nil {
		return nil, err
	}
	return key, nil
}

// Seal encrypts plaintext under a fresh random nonce and returns the capsule.
func (c *Cipher) Seal(plaintext string) (string, error) {
	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	sealed := c.aead.Seal(nil, nonce, []byte(plaintext), nil)
	data, tag := sealed[:len(sealed)-tagSize], sealed[len(sealed)-tagSize:]

	raw, err := json.Marshal(envelope{
		IV:   base64.StdEncoding.EncodeToString(nonce),
		Tag:  base64.StdEncoding.EncodeToString(tag),
		Data: base64.StdEncoding.EncodeToString(data),
	})
	if err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// Open authenticates and decrypts a capsule produced by Seal.
// Every failure is reported as ErrInvalidCapsule.
func (c *Cipher) Open(capsule string) (string, error) {
	raw, err := base64.RawURLEncoding.Strict().DecodeString(strings.TrimSpace(capsule))
	if err != nil {
		return "", ErrInvalidCapsule
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return "", ErrInvalidCapsule
	}

	nonce, err := strictStd.DecodeString(env.IV)
	if err != nil || len(nonce) != nonceSize {
		return "", ErrInvalidCapsule
	}
	tag, err := strictStd.DecodeString(env.Tag)
	if err != nil || len(tag) != tagSize {
		return "", ErrInvalidCapsule
	}
	data, err := strictStd.DecodeString(env.Data)
	if err != nil {
		return "", ErrInvalidCapsule
	}

	plaintext, err := c.aead.Open(nil, nonce, append(data, tag...), nil)
	if err != nil {
		return "", ErrInvalidCapsule
	}

	return string(plaintext), nil
}

// Encrypt seals plaintext with a key derived from passphrase.
func Encrypt(plaintext, passphrase string) (string, error) {
	c, err := New(passphrase)
	if err != nil {
		return "", err
	}
	return c.Seal(plaintext)
}

// Decrypt opens a capsule with a key derived from passphrase.
func Decrypt(capsule, passphrase string) (string, error) {
	c, err := New(passphrase)
	if err != nil {
		return "", err
	}
	return c.Open(capsule)
}
