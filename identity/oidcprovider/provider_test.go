package oidcprovider_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-learner-session/identity"
	"github.com/jrsteele09/go-learner-session/identity/oidcprovider"
	apperrors "github.com/jrsteele09/go-learner-session/internal/errors"
	"github.com/stretchr/testify/require"
)

const (
	clientID     = "learner-app"
	clientSecret = "secret"
	keyID        = "test-key"
	testEmail    = "a@x.com"
	testPassword = "Pw1!"
)

type issuerUser struct {
	subject  string
	password string
	verified bool
}

// fakeIssuer is a minimal OpenID Connect issuer supporting the password and
// refresh grants, userinfo and a JSON sign-up endpoint.
type fakeIssuer struct {
	t      *testing.T
	server *httptest.Server
	key    *rsa.PrivateKey

	mu            sync.Mutex
	users         map[string]*issuerUser // email -> user
	accessTokens  map[string]string      // access token -> email
	refreshTokens map[string]string      // refresh token -> email
	expiresIn     int
	requireVerify bool
	issued        int
	tokenEndpoint int
}

func newFakeIssuer(t *testing.T) *fakeIssuer {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	f := &fakeIssuer{
		t:             t,
		key:           key,
		users:         make(map[string]*issuerUser),
		accessTokens:  make(map[string]string),
		refreshTokens: make(map[string]string),
		expiresIn:     3600,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /.well-known/openid-configuration", f.discovery)
	mux.HandleFunc("GET /keys", f.keys)
	mux.HandleFunc("POST /token", f.token)
	mux.HandleFunc("GET /userinfo", f.userinfo)
	mux.HandleFunc("POST /signup", f.signup)
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (f *fakeIssuer) discovery(w http.ResponseWriter, _ *http.Request) {
	respond(w, http.StatusOK, map[string]any{
		"issuer":                                f.server.URL,
		"authorization_endpoint":                f.server.URL + "/authorize",
		"token_endpoint":                        f.server.URL + "/token",
		"jwks_uri":                              f.server.URL + "/keys",
		"userinfo_endpoint":                     f.server.URL + "/userinfo",
		"id_token_signing_alg_values_supported": []string{"RS256"},
	})
}

func (f *fakeIssuer) keys(w http.ResponseWriter, _ *http.Request) {
	pub := f.key.PublicKey
	respond(w, http.StatusOK, map[string]any{
		"keys": []any{map[string]any{
			"kty": "RSA",
			"kid": keyID,
			"use": "sig",
			"alg": "RS256",
			"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
		}},
	})
}

func (f *fakeIssuer) idToken(email string, user *issuerUser) string {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"iss":   f.server.URL,
		"aud":   clientID,
		"sub":   user.subject,
		"email": email,
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
	})
	token.Header["kid"] = keyID
	signed, err := token.SignedString(f.key)
	require.NoError(f.t, err)
	return signed
}

func (f *fakeIssuer) token(w http.ResponseWriter, r *http.Request) {
	require.NoError(f.t, r.ParseForm())

	f.mu.Lock()
	defer f.mu.Unlock()

	var email string
	switch r.PostForm.Get("grant_type") {
	case "password":
		email = r.PostForm.Get("username")
		user, ok := f.users[email]
		if !ok || user.password != r.PostForm.Get("password") {
			respond(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant", "error_description": "Invalid user credentials"})
			return
		}
		if !user.verified {
			respond(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant", "error_description": "Account is not fully set up"})
			return
		}
	case "refresh_token":
		var ok bool
		email, ok = f.refreshTokens[r.PostForm.Get("refresh_token")]
		if !ok {
			respond(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant", "error_description": "Token is not active"})
			return
		}
	default:
		respond(w, http.StatusBadRequest, map[string]string{"error": "unsupported_grant_type"})
		return
	}

	f.issued++
	access := fmt.Sprintf("access-%d", f.issued)
	refresh := fmt.Sprintf("refresh-%d", f.issued)
	f.accessTokens[access] = email
	f.refreshTokens[refresh] = email
	respond(w, http.StatusOK, map[string]any{
		"access_token":  access,
		"token_type":    "Bearer",
		"expires_in":    f.expiresIn,
		"refresh_token": refresh,
		"id_token":      f.idToken(email, f.users[email]),
	})
}

func (f *fakeIssuer) userinfo(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	email, ok := f.accessTokens[strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")]
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	respond(w, http.StatusOK, map[string]any{
		"sub":            f.users[email].subject,
		"email":          email,
		"email_verified": true,
		"locale":         "en",
	})
}

func (f *fakeIssuer) signup(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	require.NoError(f.t, json.NewDecoder(r.Body).Decode(&body))

	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.users[body.Email]; exists {
		respond(w, http.StatusConflict, map[string]string{"message": "User already exists"})
		return
	}
	if len(body.Password) < 4 {
		respond(w, http.StatusBadRequest, map[string]string{"message": "Password is too short"})
		return
	}
	user := &issuerUser{subject: fmt.Sprintf("user-%d", len(f.users)+1), password: body.Password, verified: !f.requireVerify}
	f.users[body.Email] = user
	respond(w, http.StatusCreated, map[string]any{"user_id": user.subject, "confirmation_required": f.requireVerify})
}

func (f *fakeIssuer) configure(expiresIn int, requireVerify bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.expiresIn = expiresIn
	f.requireVerify = requireVerify
}

func (f *fakeIssuer) revokeAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accessTokens = make(map[string]string)
	f.refreshTokens = make(map[string]string)
}

func (f *fakeIssuer) settings() oidcprovider.Settings {
	return oidcprovider.Settings{
		Issuer:       f.server.URL,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		SignUpURL:    f.server.URL + "/signup",
		Timeout:      5 * time.Second,
	}
}

func setup(t *testing.T) (*identity.Client, *oidcprovider.Provider, *fakeIssuer) {
	t.Helper()
	issuer := newFakeIssuer(t)
	provider, err := oidcprovider.New(context.Background(), issuer.settings())
	require.NoError(t, err)
	client, err := identity.NewClient(provider)
	require.NoError(t, err)
	return client, provider, issuer
}

func TestNew_RequiresIssuerAndClient(t *testing.T) {
	_, err := oidcprovider.New(context.Background(), oidcprovider.Settings{})
	require.ErrorIs(t, err, apperrors.ErrMissingConfig)
}

func TestOIDC_SignUpSignInUserInfoSignOut(t *testing.T) {
	ctx := context.Background()
	client, provider, _ := setup(t)

	receipt, err := client.SignUp(ctx, testEmail, testPassword)
	require.NoError(t, err)
	require.Equal(t, "user-1", receipt.UserID)

	session, err := client.SignIn(ctx, testEmail, testPassword)
	require.NoError(t, err)
	require.Equal(t, "user-1", session.UserID)
	require.True(t, session.SignedIn)

	user, ok := client.CurrentUser(ctx)
	require.True(t, ok)
	require.Equal(t, identity.User{UserID: "user-1", Email: testEmail}, user)

	attributes, err := provider.FetchUserAttributes(ctx)
	require.NoError(t, err)
	require.Equal(t, "en", attributes["locale"])

	cred, err := client.AccessCredential(ctx)
	require.NoError(t, err)
	require.Equal(t, "access-1", cred.AccessToken)
	require.NotEmpty(t, cred.IDToken)

	require.NoError(t, client.SignOut(ctx))
	require.NoError(t, client.SignOut(ctx))
	_, ok = client.CurrentUser(ctx)
	require.False(t, ok)
}

func TestOIDC_RefreshesExpiredAccessToken(t *testing.T) {
	ctx := context.Background()
	client, _, issuer := setup(t)
	// Shorter than the oauth2 expiry margin, so every read refreshes.
	issuer.configure(1, false)

	_, err := client.SignUp(ctx, testEmail, testPassword)
	require.NoError(t, err)
	_, err = client.SignIn(ctx, testEmail, testPassword)
	require.NoError(t, err)

	cred, err := client.AccessCredential(ctx)
	require.NoError(t, err)
	require.NotEqual(t, "access-1", cred.AccessToken)

	issuer.revokeAll()
	_, err = client.AccessCredential(ctx)
	require.ErrorIs(t, err, apperrors.ErrNoSession)
}

func TestOIDC_ErrorMapping(t *testing.T) {
	ctx := context.Background()

	t.Run("wrong password", func(t *testing.T) {
		client, _, _ := setup(t)
		_, err := client.SignUp(ctx, testEmail, testPassword)
		require.NoError(t, err)
		_, err = client.SignIn(ctx, testEmail, "Wrong1")
		require.ErrorIs(t, err, identity.ErrInvalidCredential)
		require.Contains(t, err.Error(), "Invalid user credentials")
	})

	t.Run("duplicate sign up", func(t *testing.T) {
		client, _, _ := setup(t)
		_, err := client.SignUp(ctx, testEmail, testPassword)
		require.NoError(t, err)
		_, err = client.SignUp(ctx, testEmail, testPassword)
		require.ErrorIs(t, err, identity.ErrConflict)
	})

	t.Run("weak password", func(t *testing.T) {
		client, _, _ := setup(t)
		_, err := client.SignUp(ctx, testEmail, "P1")
		require.ErrorIs(t, err, identity.ErrValidation)
	})

	t.Run("unverified account", func(t *testing.T) {
		client, _, issuer := setup(t)
		issuer.configure(3600, true)
		receipt, err := client.SignUp(ctx, testEmail, testPassword)
		require.NoError(t, err)
		require.True(t, receipt.ConfirmationRequired)
		_, err = client.SignIn(ctx, testEmail, testPassword)
		require.ErrorIs(t, err, identity.ErrUnconfirmed)
	})

	t.Run("issuer unreachable", func(t *testing.T) {
		client, _, issuer := setup(t)
		issuer.server.Close()
		_, err := client.SignIn(ctx, testEmail, testPassword)
		require.ErrorIs(t, err, identity.ErrNetwork)
	})
}

func TestOIDC_SignUpUnsupportedWithoutEndpoint(t *testing.T) {
	issuer := newFakeIssuer(t)
	settings := issuer.settings()
	settings.SignUpURL = ""
	provider, err := oidcprovider.New(context.Background(), settings)
	require.NoError(t, err)

	_, err = provider.SignUp(context.Background(), testEmail, testPassword, nil)
	require.ErrorIs(t, err, apperrors.ErrUnsupported)
}
