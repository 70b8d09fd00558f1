package auth

import (
	"time"

	"github.com/jrsteele09/go-learner-session/authctx"
)

// LoginRequest carries the login form.
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResult is the outcome of a successful login. AliasID is empty when
// the alias lookup failed; ExpiresAt is zero when the provider does not say.
type LoginResult struct {
	User      authctx.Session `json:"user"`
	AliasID   string          `json:"aliasId,omitempty"`
	ExpiresAt time.Time       `json:"expiresAt,omitzero"`
}

// SignUpRequest carries the sign-up form. FullName is required by the form
// but not sent to the identity provider.
type SignUpRequest struct {
	FullName string `json:"fullName" validate:"required"`
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
	Confirm  string `json:"confirm" validate:"required,eqfield=Password"`
}

type SignUpResult struct {
	UserID               string `json:"userId"`
	ConfirmationRequired bool   `json:"confirmationRequired"`
}

// OnboardingAnswers maps each profile setup step to the options picked.
type OnboardingAnswers map[string][]string
