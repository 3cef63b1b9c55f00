// Package auth implements the per-route authentication policies the route
// engine checks in step 3 of dispatch (spec §4.A). Semantics beyond
// presence are pluggable per spec §9.5; this module ships basic auth and
// API-key checks against header content.
package auth

import (
	"crypto/subtle"
	"encoding/base64"
	"strings"

	"github.com/briarcliff/relaygate/internal/model"
)

// Authenticate reports whether the request headers satisfy policy. A nil
// policy always authenticates — auth is opt-in per route.
func Authenticate(policy *model.AuthPolicy, headers map[string][]string) bool {
	if policy == nil {
		return true
	}
	switch policy.Kind {
	case model.AuthBasic:
		return checkBasic(policy, headers)
	case model.AuthAPIKey:
		return checkAPIKey(policy, headers)
	default:
		return false
	}
}

func checkBasic(policy *model.AuthPolicy, headers map[string][]string) bool {
	raw := headerValue(headers, "Authorization")
	const prefix = "Basic "
	if !strings.HasPrefix(raw, prefix) {
		return false
	}
	decoded, err := base64.StdEncoding.DecodeString(raw[len(prefix):])
	if err != nil {
		return false
	}
	user, pass, ok := strings.Cut(string(decoded), ":")
	if !ok {
		return false
	}
	return constantTimeEqual(user, policy.Username) && constantTimeEqual(pass, policy.Password)
}

func checkAPIKey(policy *model.AuthPolicy, headers map[string][]string) bool {
	name := policy.HeaderName
	if name == "" {
		name = "X-API-Key"
	}
	return constantTimeEqual(headerValue(headers, name), policy.APIKey)
}

func constantTimeEqual(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// headerValue looks up a header case-insensitively in a map[string][]string
// as produced by http.Header or assembled directly from a raw request.
func headerValue(headers map[string][]string, name string) string {
	for k, vv := range headers {
		if strings.EqualFold(k, name) && len(vv) > 0 {
			return vv[0]
		}
	}
	return ""
}
