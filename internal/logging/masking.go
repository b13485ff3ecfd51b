package logging

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	redacted = "[REDACTED]"

	// maxLoggedString caps string values in logged bodies; captcha images
	// are data URIs of several kilobytes.
	maxLoggedString = 256
)

// SensitiveFields are JSON keys whose values never appear in logs:
// captcha tokens and answers, the admin digest, and the submitter's email.
var SensitiveFields = []string{"secret", "answer", "md5", "token", "contactEmail", "to"}

// MaskHeader masks sensitive header values.
// Headers with password, secret or cookie in the name are fully redacted.
// Authorization keeps its scheme and the last 4 characters of the credential.
func MaskHeader(name, value string) string {
	lowerName := strings.ToLower(name)

	if strings.Contains(lowerName, "password") ||
		strings.Contains(lowerName, "secret") ||
		strings.Contains(lowerName, "cookie") {
		return redacted
	}

	if lowerName == "authorization" {
		scheme, cred, found := strings.Cut(value, " ")
		if !found {
			return maskTail(value)
		}
		return scheme + " " + maskTail(cred)
	}

	return value
}

func maskTail(v string) string {
	if len(v) < 8 {
		return "****"
	}
	return "****" + v[len(v)-4:]
}

// MaskJSONBody redacts the values of sensitive keys at any depth and
// shortens long strings. Bodies that are not JSON are returned unchanged.
func MaskJSONBody(body []byte, sensitive []string) []byte {
	if len(body) == 0 {
		return body
	}

	var data any
	if err := json.Unmarshal(body, &data); err != nil {
		return body
	}

	deny := make(map[string]bool, len(sensitive))
	for _, field := range sensitive {
		deny[field] = true
	}

	result, err := json.Marshal(maskJSONValue(data, deny))
	if err != nil {
		return body
	}
	return result
}

func maskJSONValue(value any, deny map[string]bool) any {
	switch v := value.(type) {
	case map[string]any:
		result := make(map[string]any, len(v))
		for key, val := range v {
			if deny[key] && val != nil {
				result[key] = redacted
				continue
			}
			result[key] = maskJSONValue(val, deny)
		}
		return result
	case []any:
		result := make([]any, len(v))
		for i, item := range v {
			result[i] = maskJSONValue(item, deny)
		}
		return result
	case string:
		if len(v) > maxLoggedString {
			return fmt.Sprintf("[TRUNCATED: %d chars]", len(v))
		}
		return v
	default:
		return value
	}
}

// MaskEmail keeps the first character of the local part and the domain:
// "alice@example.org" becomes "a***@example.org".
func MaskEmail(addr string) string {
	local, domain, ok := strings.Cut(addr, "@")
	if !ok || local == "" {
		return "***"
	}
	first, _ := utf8.DecodeRuneInString(local)
	return string(first) + "***@" + domain
}

// FormatBinaryData formats binary data for logging by showing only its size.
func FormatBinaryData(data []byte) string {
	return fmt.Sprintf("[BINARY: %d bytes]", len(data))
}
