package sqlstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/suyash-sneo/prefstore/backend"
	"github.com/suyash-sneo/prefstore/backend/backendtest"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenSQLite(Options{DSN: filepath.Join(t.TempDir(), "prefs.sqlite")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestConformance(t *testing.T) {
	backendtest.Run(t, func(t *testing.T) backend.Store {
		return setupTestStore(t)
	})
}

func TestSetUpdatesTimestamp(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "device:appLanguage", []byte(`{"data":"es"}`)))
	var first Record
	require.NoError(t, s.db.First(&first, "key = ?", "device:appLanguage").Error)

	require.NoError(t, s.Set(ctx, "device:appLanguage", []byte(`{"data":"en"}`)))
	var second Record
	require.NoError(t, s.db.First(&second, "key = ?", "device:appLanguage").Error)

	require.Equal(t, `{"data":"en"}`, string(second.Value))
	require.False(t, second.UpdatedAt.Before(first.UpdatedAt))

	var count int64
	require.NoError(t, s.db.Model(&Record{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestOpenRequiresDSN(t *testing.T) {
	_, err := OpenSQLite(Options{})
	require.Error(t, err)
}
