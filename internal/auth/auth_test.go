package auth

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestDigest(t *testing.T) {
	t.Parallel()

	// md5("dev")
	if got := Digest("dev"); got != "e77989ed21758e78331b20e477fc5582" {
		t.Errorf("Digest(dev) = %s", got)
	}
	if got := Digest(""); got != "d41d8cd98f00b204e9800998ecf8427e" {
		t.Errorf("Digest(\"\") = %s", got)
	}
}

func TestExtractBearer(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		header string
		want   string
	}{
		{name: "no header", header: "", want: ""},
		{name: "standard", header: "Bearer abc123", want: "abc123"},
		{name: "lowercase scheme", header: "bearer abc123", want: "abc123"},
		{name: "mixed case scheme", header: "BeArEr abc123", want: "abc123"},
		{name: "value whitespace trimmed", header: "Bearer   abc123  ", want: "abc123"},
		{name: "other scheme", header: "Basic dXNlcjpwYXNz", want: ""},
		{name: "scheme only", header: "Bearer", want: ""},
		{name: "empty value", header: "Bearer    ", want: ""},
		{name: "raw value without scheme", header: "abc123", want: ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest("GET", "/admin/spots", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if got := ExtractBearer(req); got != tt.want {
				t.Errorf("ExtractBearer(%q) = %q, want %q", tt.header, got, tt.want)
			}
		})
	}
}

func TestGateAuthorize(t *testing.T) {
	t.Parallel()

	gate := NewGate("dev")
	digest := Digest("dev")

	tests := []struct {
		name     string
		header   string
		decision Decision
		err      error
	}{
		{name: "valid digest", header: "Bearer " + digest, decision: Authorized},
		{name: "valid digest upper case", header: "Bearer " + strings.ToUpper(digest), decision: Authorized},
		{name: "missing header", header: "", decision: MissingCredential, err: ErrMissingCredential},
		{name: "unparsable header", header: "Token " + digest, decision: MissingCredential, err: ErrMissingCredential},
		{name: "wrong digest", header: "Bearer " + Digest("nope"), decision: Unauthorized, err: ErrUnauthorized},
		{name: "plaintext secret rejected", header: "Bearer dev", decision: Unauthorized, err: ErrUnauthorized},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest("GET", "/admin/spots", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			res := gate.Authorize(req)
			if res.Decision != tt.decision {
				t.Errorf("decision = %s, want %s", res.Decision, tt.decision)
			}
			if !errors.Is(res.Err, tt.err) {
				t.Errorf("err = %v, want %v", res.Err, tt.err)
			}
			if res.OK() != (tt.decision == Authorized) {
				t.Errorf("OK() = %v", res.OK())
			}
		})
	}
}

func TestGateWithoutSecretFailsClosed(t *testing.T) {
	t.Parallel()

	gate := NewGate("")
	if gate.Configured() {
		t.Fatal("expected gate without secret to be unconfigured")
	}

	// Digest of the empty string must not unlock an unconfigured gate.
	req := httptest.NewRequest("GET", "/admin/spots", nil)
	req.Header.Set("Authorization", "Bearer "+Digest(""))
	if res := gate.Authorize(req); res.Decision != Unauthorized {
		t.Errorf("expected Unauthorized, got %s", res.Decision)
	}

	var zero Gate
	if zero.Match(Digest("")) {
		t.Error("zero gate must not match anything")
	}
}

func TestDecisionString(t *testing.T) {
	t.Parallel()

	cases := map[Decision]string{
		Authorized:        "authorized",
		Unauthorized:      "unauthorized",
		MissingCredential: "missing_credential",
		Decision(42):      "unknown",
	}
	for d, want := range cases {
		if got := d.String(); got != want {
			t.Errorf("Decision(%d).String() = %q, want %q", int(d), got, want)
		}
	}
}
