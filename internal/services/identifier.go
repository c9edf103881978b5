package services

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
)

// CanonicalLoginID derives the deterministic email-shaped login identifier
// for a directory profile. Recomputing it for the same (username, id) always
// yields the same value, which keeps provisioning idempotent.
func CanonicalLoginID(username string, id uint64, domain string) string {
	local := canonicalLocalPart(username)
	if local == "" {
		local = fmt.Sprintf("user%d", id)
	}
	return local + "@" + domain
}

// canonicalLocalPart lowercases the username and restricts it to
// [a-z0-9._-]; every other run of characters collapses to a single dot, and
// leading/trailing dots are trimmed.
func canonicalLocalPart(username string) string {
	var b strings.Builder
	pendingDot := false

	for _, r := range strings.ToLower(strings.TrimSpace(username)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			if pendingDot && b.Len() > 0 {
				b.WriteByte('.')
			}
			pendingDot = false
			b.WriteRune(r)
		default:
			pendingDot = true
		}
	}

	return strings.Trim(b.String(), ".")
}

// fallbackLoginID appends an 8-character random suffix to the canonical
// local part. Used exactly once when the canonical identifier collides with
// an orphaned provider record outside this service's visibility.
func fallbackLoginID(canonical string) (string, error) {
	at := strings.LastIndex(canonical, "@")
	if at < 0 {
		return "", fmt.Errorf("malformed login identifier %q", canonical)
	}

	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", fmt.Errorf("random suffix: %w", err)
	}

	return canonical[:at] + "." + hex.EncodeToString(buf[:]) + canonical[at:], nil
}
