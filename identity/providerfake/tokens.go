package providerfake

import (
	"fmt"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "providerfake"

// mintAccessToken creates an HMAC signed access token for account.
func (p *FakeProvider) mintAccessToken(account *Account, now time.Time) (string, time.Time, error) {
	expiresAt := now.Add(p.tokenTTL)
	claims := jwtlib.MapClaims{
		"iss":       issuer,
		"sub":       account.ID,
		"email":     account.Email,
		"token_use": "access",
		"iat":       now.Unix(),
		"exp":       expiresAt.Unix(),
		"jti":       uuid.New().String(),
	}
	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(p.signingKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, expiresAt, nil
}

// VerifyAccessToken checks a token issued by this provider and returns its
// subject and email. Test doubles of downstream APIs use it to authenticate
// requests.
func (p *FakeProvider) VerifyAccessToken(raw string) (string, string, error) {
	token, err := jwtlib.Parse(raw, func(t *jwtlib.Token) (any, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return p.signingKey, nil
	},
		jwtlib.WithIssuer(issuer),
		jwtlib.WithTimeFunc(p.nowTime),
	)
	if err != nil {
		return "", "", fmt.Errorf("invalid access token: %w", err)
	}
	claims, ok := token.Claims.(jwtlib.MapClaims)
	if !ok {
		return "", "", fmt.Errorf("invalid access token claims")
	}
	sub, _ := claims.GetSubject()
	email, _ := claims["email"].(string)
	return sub, email, nil
}
