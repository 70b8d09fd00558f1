package utils

import "strings"

// StringAttributes copies the string valued entries of a decoded JSON object,
// such as provider traits or token claims, into dst.
func StringAttributes(dst map[string]string, claims map[string]any) map[string]string {
	if dst == nil {
		dst = make(map[string]string, len(claims))
	}
	for k, v := range claims {
		if s, ok := v.(string); ok {
			dst[k] = s
		}
	}
	return dst
}

// AsClaims converts a decoded JSON value into an object, if it is one.
func AsClaims(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

// NormaliseEmail lower-cases and trims an email address so it can be used as
// a stable key.
func NormaliseEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
