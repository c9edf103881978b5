package services

import (
	"encoding/json"
	"strings"

	"github.com/woopsyyy/portal-credsvc/internal/models"
)

// AdminRole is the token that grants access to credential provisioning.
const AdminRole = "admin"

// RoleSet is a normalised, deduplicated set of lower-cased role tokens.
type RoleSet map[string]struct{}

// Has reports whether the set contains the given role token.
func (s RoleSet) Has(role string) bool {
	_, ok := s[strings.ToLower(strings.TrimSpace(role))]
	return ok
}

// Tokens returns the set's members in unspecified order.
func (s RoleSet) Tokens() []string {
	out := make([]string, 0, len(s))
	for token := range s {
		out = append(out, token)
	}
	return out
}

// NormalizeRoles merges the four legacy role columns of a directory profile
// into one RoleSet. Each column may hold a single token, a JSON-encoded
// string array, or a comma-separated list. Unparseable values contribute no
// tokens; this function never fails.
func NormalizeRoles(user *models.DirectoryUser) RoleSet {
	if user == nil {
		return RoleSet{}
	}
	return roleSetFrom(user.Role, user.Roles, user.SubRole, user.SubRoles)
}

func roleSetFrom(fields ...string) RoleSet {
	set := RoleSet{}
	for _, field := range fields {
		for _, token := range parseRoleField(field) {
			token = strings.ToLower(strings.TrimSpace(token))
			if token == "" {
				continue
			}
			set[token] = struct{}{}
		}
	}
	return set
}

// parseRoleField tries JSON array decode, then CSV split, then treats the
// value as a single token, in that order.
func parseRoleField(value string) []string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}

	if strings.HasPrefix(value, "[") {
		var decoded []any
		if err := json.Unmarshal([]byte(value), &decoded); err == nil {
			tokens := make([]string, 0, len(decoded))
			for _, item := range decoded {
				if s, ok := item.(string); ok {
					tokens = append(tokens, s)
				}
			}
			return tokens
		}
		// malformed JSON falls through to the CSV path
	}

	if strings.Contains(value, ",") {
		return strings.Split(value, ",")
	}

	return []string{value}
}
