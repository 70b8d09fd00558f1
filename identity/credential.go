package identity

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Credential is the token material proving an authenticated session to
// backend APIs. It lives only in the provider's session cache.
type Credential struct {
	AccessToken string
	IDToken     string
	ExpiresAt   time.Time // zero when the provider does not say
}

// Valid reports whether the credential carries a token that has not expired at now.
func (c Credential) Valid(now time.Time) bool {
	if c.AccessToken == "" {
		return false
	}
	return c.ExpiresAt.IsZero() || now.Before(c.ExpiresAt)
}

// ExpiryFromJWT reads the exp claim of a JWT without verifying it. Opaque
// tokens return false.
func ExpiryFromJWT(raw string) (time.Time, bool) {
	token, _, err := jwt.NewParser().ParseUnverified(raw, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, false
	}
	exp, err := token.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
