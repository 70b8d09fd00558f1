package identity

import (
	"context"
	"time"
)

// AttributeEmail is the user attribute holding the account email.
const AttributeEmail = "email"

// Provider is the boundary to a hosted identity service. Implementations
// keep their own session cache; they should classify failures with *Error
// where they can and return errors.ErrNoSession when there is no session.
type Provider interface {
	SignUp(ctx context.Context, email, password string, attributes map[string]string) (SignUpReceipt, error)
	SignIn(ctx context.Context, email, password string) (ProviderSession, error)
	// CurrentSession returns the live token material, refreshing it if the
	// provider supports that.
	CurrentSession(ctx context.Context) (Credential, error)
	// GetCurrentUser returns the provider's user id for the active session.
	GetCurrentUser(ctx context.Context) (string, error)
	FetchUserAttributes(ctx context.Context) (map[string]string, error)
	SignOut(ctx context.Context) error
}

// SignUpReceipt is what the provider hands back after registration.
type SignUpReceipt struct {
	UserID               string
	ConfirmationRequired bool
}

// ProviderSession describes a freshly established provider session.
type ProviderSession struct {
	UserID    string
	SignedIn  bool
	ExpiresAt time.Time
}

// User is the identity of the logged in account.
type User struct {
	UserID string
	Email  string
}
