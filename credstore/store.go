// Package credstore holds small durable strings that belong to the session
// side channel, such as the alias identifier resolved at login. Access
// credentials are never written here.
package credstore

import (
	"context"

	"github.com/jrsteele09/go-learner-session/internal/utils"
)

// Well known keys.
const (
	// KeyProfileSetup holds the onboarding answers as JSON.
	KeyProfileSetup = "profileSetup"
	// KeyProfileComplete is "true" once onboarding has finished.
	KeyProfileComplete = "profileComplete"

	aliasKeyPrefix = "aliasId:"
)

// Store is a durable, unordered, last-write-wins string key/value store.
type Store interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set writes value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Clear removes every entry.
	Clear(ctx context.Context) error
}

// AliasKey is the key under which the alias identifier for email is kept.
// Keying by user means a value left behind by one account can never be read
// on behalf of another.
func AliasKey(email string) string {
	return aliasKeyPrefix + utils.NormaliseEmail(email)
}
