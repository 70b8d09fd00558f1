package sqlitestore_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jrsteele09/go-learner-session/credstore"
	"github.com/jrsteele09/go-learner-session/credstore/sqlitestore"
	"github.com/jrsteele09/go-learner-session/internal/errors"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T, folder string) *sqlitestore.Store {
	t.Helper()
	s, err := sqlitestore.OpenInFolder(folder)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_SetGetLastWriteWins(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, t.TempDir())

	_, ok, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.Set(ctx, "k", "v1"))
	require.NoError(t, s.Set(ctx, "k", "v2"))

	v, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v2", v)
}

func TestStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	folder := filepath.Join(t.TempDir(), "nested")

	first, err := sqlitestore.OpenInFolder(folder)
	require.NoError(t, err)
	require.NoError(t, first.Set(ctx, credstore.AliasKey("a@x.com"), "alias-a"))
	require.NoError(t, first.Close())

	second := openStore(t, folder)
	v, ok, err := second.Get(ctx, credstore.AliasKey("A@X.com "))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "alias-a", v)
}

func TestStore_DeleteAndClear(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, t.TempDir())

	require.NoError(t, s.Set(ctx, "a", "1"))
	require.NoError(t, s.Set(ctx, "b", "2"))

	require.NoError(t, s.Delete(ctx, "a"))
	require.NoError(t, s.Delete(ctx, "a"), "deleting a missing key is not an error")
	_, ok, err := s.Get(ctx, "a")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.Clear(ctx))
	_, ok, err = s.Get(ctx, "b")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestStore_Validation(t *testing.T) {
	_, err := sqlitestore.Open("  ")
	require.Error(t, err)

	s := openStore(t, t.TempDir())
	err = s.Set(context.Background(), "", "v")
	require.ErrorIs(t, err, errors.ErrKeyRequired)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err = s.Get(ctx, "k")
	require.ErrorIs(t, err, context.Canceled)
}
