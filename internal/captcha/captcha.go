// Package captcha issues image challenges and verifies answers without keeping
// any server-side session: the encrypted token handed to the client carries the
// expected answer and its issue time.
package captcha

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pumpfoilmap/pfm-api/internal/capsule"
)

// Defaults for generated challenges.
const (
	DefaultLength = 6
	DefaultTTL    = 10 * time.Minute

	// clockSkew tolerates tokens issued slightly in the future by another instance.
	clockSkew = 30 * time.Second
)

// Errors returned by Verify.
var (
	// ErrMissingInput is returned when the token or the answer is empty.
	ErrMissingInput = errors.New("captcha: missing token or answer")
	// ErrInvalidToken is returned when a token cannot be decrypted or parsed.
	ErrInvalidToken = errors.New("captcha: invalid token")
	// ErrExpiredToken is returned when a token is older than the configured TTL.
	ErrExpiredToken = errors.New("captcha: token expired")
	// ErrTokenUsed is returned in single-use mode when a solved token is replayed.
	ErrTokenUsed = errors.New("captcha: token already used")
)

// Challenge is a generated captcha.
type Challenge struct {
	// Data is the rendered image as a data URI.
	Data string
	// Token is the opaque capsule the client must send back with its answer.
	Token string
	// Answer is the expected text. It never leaves the server.
	Answer string
}

// payload is the plaintext sealed into a token.
type payload struct {
	Answer   string `json:"a"`
	IssuedAt int64  `json:"iat"`
}

// Options tunes a Service.
type Options struct {
	// Length is the number of characters in the answer (DefaultLength when zero).
	Length int
	// TTL bounds the age of a verifiable token. Zero disables expiry.
	TTL time.Duration
	// SingleUse rejects a token once it has been solved.
	SingleUse bool
}

// Service generates and verifies challenges.
type Service struct {
	cipher *capsule.Cipher
	length int
	ttl    time.Duration
	used   *usedSet

	now      func() time.Time
	randText func(n int) (string, error)
	render   func(text string) ([]byte, error)
}

// NewService creates a captcha service sealing tokens with c.
func NewService(c *capsule.Cipher, opts Options) *Service {
	length := opts.Length
	if length <= 0 {
		length = DefaultLength
	}

	s := &Service{
		cipher:   c,
		length:   length,
		ttl:      opts.TTL,
		now:      time.Now,
		randText: randomText,
		render:   renderPNG,
	}
	if opts.SingleUse {
		s.used = newUsedSet()
	}
	return s
}

// Generate creates a new challenge.
func (s *Service) Generate() (*Challenge, error) {
	answer, err := s.randText(s.length)
	if err != nil {
		return nil, fmt.Errorf("failed to generate captcha text: %w", err)
	}

	img, err := s.render(answer)
	if err != nil {
		return nil, fmt.Errorf("failed to render captcha: %w", err)
	}

	raw, err := json.Marshal(payload{Answer: answer, IssuedAt: s.now().Unix()})
	if err != nil {
		return nil, err
	}
	token, err := s.cipher.Seal(string(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to seal captcha token: %w", err)
	}

	return &Challenge{
		Data:   dataURI(img),
		Token:  token,
		Answer: answer,
	}, nil
}

// Verify reports whether answer solves the challenge sealed in token.
// Comparison ignores case and surrounding whitespace. A wrong answer is
// (false, nil); a token that cannot be opened is ErrInvalidToken.
func (s *Service) Verify(token, answer string) (bool, error) {
	token = strings.TrimSpace(token)
	candidate := normalize(answer)
	if token == "" || candidate == "" {
		return false, ErrMissingInput
	}

	plain, err := s.cipher.Open(token)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	var p payload
	if err := json.Unmarshal([]byte(plain), &p); err != nil || p.Answer == "" {
		return false, ErrInvalidToken
	}

	now := s.now()
	issued := time.Unix(p.IssuedAt, 0)
	if s.ttl > 0 {
		if now.Sub(issued) > s.ttl || issued.Sub(now) > clockSkew {
			return false, ErrExpiredToken
		}
	}

	if normalize(p.Answer) != candidate {
		return false, nil
	}

	if s.used != nil {
		// Without a TTL the entry is kept for DefaultTTL; the token is
		// then only protected against immediate replay.
		keep := s.ttl
		if keep <= 0 {
			keep = DefaultTTL
		}
		if !s.used.claim(tokenDigest(token), issued.Add(keep+clockSkew), now) {
			return false, ErrTokenUsed
		}
	}

	return true, nil
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func tokenDigest(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}
