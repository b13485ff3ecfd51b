// Package auth guards moderation routes with a shared admin secret.
//
// Clients never send the secret itself. They send its MD5 digest as a bearer
// credential, and the gate compares it with the digest of the configured
// secret. MD5 is acceptable here only because there is a single operator-chosen
// secret; per-user credentials would need a salted, slow hash.
package auth

import (
	"crypto/md5" //nolint:gosec // see package doc
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
)

// Errors for admin authorization failures.
var (
	// ErrMissingCredential indicates no usable bearer credential was sent.
	ErrMissingCredential = errors.New("auth: missing credential")
	// ErrUnauthorized indicates the credential does not match the admin secret,
	// or no admin secret is configured.
	ErrUnauthorized = errors.New("auth: unauthorized")
)

// Decision is the outcome of an authorization check.
type Decision int

const (
	// MissingCredential means the request carried no bearer digest.
	MissingCredential Decision = iota
	// Unauthorized means a digest was sent but does not match.
	Unauthorized
	// Authorized means the digest matches the admin secret.
	Authorized
)

// String returns the decision name used in logs and metrics.
func (d Decision) String() string {
	switch d {
	case Authorized:
		return "authorized"
	case Unauthorized:
		return "unauthorized"
	case MissingCredential:
		return "missing_credential"
	default:
		return "unknown"
	}
}

// Result is the structured outcome of Gate.Authorize.
type Result struct {
	Decision Decision
	Err      error
}

// OK reports whether the request is authorized.
func (r Result) OK() bool {
	return r.Decision == Authorized
}

// Digest returns the lowercase hex MD5 digest of secret.
func Digest(secret string) string {
	sum := md5.Sum([]byte(secret)) //nolint:gosec // see package doc
	return hex.EncodeToString(sum[:])
}

// Gate validates admin credentials against a configured secret.
// The zero value has no secret and rejects everything.
type Gate struct {
	expected string // lowercase digest of the admin secret; empty when unset
}

// NewGate creates a gate for adminSecret. An empty secret makes every
// authorization fail.
func NewGate(adminSecret string) *Gate {
	g := &Gate{}
	if adminSecret != "" {
		g.expected = Digest(adminSecret)
	}
	return g
}

// Configured reports whether an admin secret is set.
func (g *Gate) Configured() bool {
	return g.expected != ""
}

// Authorize checks the bearer credential of r.
func (g *Gate) Authorize(r *http.Request) Result {
	presented := ExtractBearer(r)
	if presented == "" {
		return Result{Decision: MissingCredential, Err: ErrMissingCredential}
	}
	if !g.Match(presented) {
		return Result{Decision: Unauthorized, Err: ErrUnauthorized}
	}
	return Result{Decision: Authorized}
}

// Match reports whether digest equals the admin secret digest, ignoring case.
// It is always false when no secret is configured.
func (g *Gate) Match(digest string) bool {
	if g.expected == "" {
		return false
	}
	got := strings.ToLower(strings.TrimSpace(digest))
	return subtle.ConstantTimeCompare([]byte(got), []byte(g.expected)) == 1
}

// ExtractBearer returns the credential of an "Authorization: Bearer <value>"
// header. The scheme is matched case-insensitively. It returns "" when the
// header is absent, uses another scheme, or has an empty value.
func ExtractBearer(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return ""
	}
	scheme, value, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(value)
}
