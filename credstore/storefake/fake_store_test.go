package storefake_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jrsteele09/go-learner-session/credstore/storefake"
	"github.com/stretchr/testify/require"
)

func TestFakeStore(t *testing.T) {
	ctx := context.Background()
	s := storefake.NewFakeStore()

	require.NoError(t, s.Set(ctx, "k", "v"))
	v, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v", v)

	boom := errors.New("disk full")
	s.FailWith(boom)
	_, _, err = s.Get(ctx, "k")
	require.ErrorIs(t, err, boom)

	s.FailWith(nil)
	require.NoError(t, s.Clear(ctx))
	require.Equal(t, 0, s.Len())
}
