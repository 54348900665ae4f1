// Package backendtest holds the behavior every backend.Store implementation
// must share. Backend packages call Run from their own tests.
package backendtest

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/suyash-sneo/prefstore/backend"
)

// Factory returns an empty store. It is called once per subtest.
type Factory func(t *testing.T) backend.Store

// Run exercises the full backend.Store contract against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	t.Run("GetMissing", func(t *testing.T) { testGetMissing(t, newStore(t)) })
	t.Run("SetGet", func(t *testing.T) { testSetGet(t, newStore(t)) })
	t.Run("Overwrite", func(t *testing.T) { testOverwrite(t, newStore(t)) })
	t.Run("RemoveIdempotent", func(t *testing.T) { testRemoveIdempotent(t, newStore(t)) })
	t.Run("Keys", func(t *testing.T) { testKeys(t, newStore(t)) })
	t.Run("RemoveMany", func(t *testing.T) { testRemoveMany(t, newStore(t)) })
	t.Run("ValueIsCopied", func(t *testing.T) { testValueIsCopied(t, newStore(t)) })
}

func testGetMissing(t *testing.T, s backend.Store) {
	val, ok, err := s.Get(context.Background(), "device:appLanguage")
	require.NoError(t, err)
	require.False(t, ok)
	require.Nil(t, val)
}

func testSetGet(t *testing.T, s backend.Store) {
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "device:appLanguage", []byte(`{"data":"es"}`)))

	val, ok, err := s.Get(ctx, "device:appLanguage")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, `{"data":"es"}`, string(val))
}

func testOverwrite(t *testing.T, s backend.Store) {
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "account:u1:searchHistory", []byte(`{"data":["a"]}`)))
	require.NoError(t, s.Set(ctx, "account:u1:searchHistory", []byte(`{"data":["a","b"]}`)))

	val, ok, err := s.Get(ctx, "account:u1:searchHistory")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, `{"data":["a","b"]}`, string(val))
}

func testRemoveIdempotent(t *testing.T, s backend.Store) {
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "device:hasSeenOnboarding", []byte(`{"data":true}`)))
	require.NoError(t, s.Remove(ctx, "device:hasSeenOnboarding"))
	require.NoError(t, s.Remove(ctx, "device:hasSeenOnboarding"))

	_, ok, err := s.Get(ctx, "device:hasSeenOnboarding")
	require.NoError(t, err)
	require.False(t, ok)
}

func testKeys(t *testing.T, s backend.Store) {
	ctx := context.Background()
	keys, err := s.Keys(ctx)
	require.NoError(t, err)
	require.Empty(t, keys)

	want := []string{"account:u1:lastViewedHouseId", "device:appLanguage", "device:preferences"}
	for _, k := range want {
		require.NoError(t, s.Set(ctx, k, []byte(`{"data":1}`)))
	}

	keys, err = s.Keys(ctx)
	require.NoError(t, err)
	sort.Strings(keys)
	require.Equal(t, want, keys)
}

func testRemoveMany(t *testing.T, s backend.Store) {
	ctx := context.Background()
	for _, k := range []string{"device:a", "device:b", "account:u1:c"} {
		require.NoError(t, s.Set(ctx, k, []byte(`{"data":null}`)))
	}

	require.NoError(t, s.RemoveMany(ctx, nil))
	require.NoError(t, s.RemoveMany(ctx, []string{"device:a", "device:b", "device:never-written"}))

	keys, err := s.Keys(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"account:u1:c"}, keys)
}

func testValueIsCopied(t *testing.T, s backend.Store) {
	ctx := context.Background()
	in := []byte(`{"data":"x"}`)
	require.NoError(t, s.Set(ctx, "device:k", in))
	in[9] = 'y'

	out, ok, err := s.Get(ctx, "device:k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, `{"data":"x"}`, string(out))

	out[9] = 'z'
	again, _, err := s.Get(ctx, "device:k")
	require.NoError(t, err)
	require.Equal(t, `{"data":"x"}`, string(again))
}
