package utils_test

import (
	"testing"

	"github.com/jrsteele09/go-learner-session/internal/utils"
	"github.com/stretchr/testify/require"
)

func TestStringAttributes(t *testing.T) {
	claims := utils.AsClaims(map[string]any{
		"email":          "a@x.com",
		"email_verified": true,
		"name":           map[string]any{"first": "Emma"},
	})
	attributes := utils.StringAttributes(map[string]string{"sub": "u-1"}, claims)
	require.Equal(t, map[string]string{"sub": "u-1", "email": "a@x.com"}, attributes)

	require.Empty(t, utils.StringAttributes(nil, utils.AsClaims("not an object")))
}

func TestNormaliseEmail(t *testing.T) {
	require.Equal(t, "a@x.com", utils.NormaliseEmail("  A@X.com "))
}

func TestValue(t *testing.T) {
	var missing *string
	present := "set"
	require.Equal(t, "", utils.Value(missing))
	require.Equal(t, "set", utils.Value(&present))
}
