package kvstore

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLite(t *testing.T) *SQLite {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	s, err := NewSQLite(dbPath)
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLitePutGet(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	_, found, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.Put(ctx, "k", []byte(`{"cached":true}`), time.Minute))

	got, found, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte(`{"cached":true}`), got)

	// Overwrite replaces the value.
	require.NoError(t, s.Put(ctx, "k", []byte("v2"), time.Minute))
	got, _, err = s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), got)
}

func TestSQLiteExpiry(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	now := time.Now()
	s.now = func() time.Time { return now }

	require.NoError(t, s.Put(ctx, "k", []byte("v"), 5*time.Minute))

	now = now.Add(6 * time.Minute)
	_, found, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)

	// Zero TTL never expires.
	require.NoError(t, s.Put(ctx, "forever", []byte("v"), 0))
	now = now.Add(1000 * time.Hour)
	_, found, err = s.Get(ctx, "forever")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestSQLiteIncr(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	now := time.Now()
	s.now = func() time.Time { return now }

	for i := 1; i <= 3; i++ {
		count, err := s.Incr(ctx, "rate:addr", time.Hour)
		require.NoError(t, err)
		assert.Equal(t, int64(i), count)
	}

	now = now.Add(61 * time.Minute)
	count, err := s.Incr(ctx, "rate:addr", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count, "counter resets after window expiry")
}

func TestSQLiteDeleteFunc(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "cache:issues:a", []byte("1"), 0))
	require.NoError(t, s.Put(ctx, "token:x", []byte("2"), 0))

	err := s.DeleteFunc(ctx, func(key string) bool {
		return strings.HasPrefix(key, "cache:")
	})
	require.NoError(t, err)

	_, found, _ := s.Get(ctx, "cache:issues:a")
	assert.False(t, found)
	_, found, _ = s.Get(ctx, "token:x")
	assert.True(t, found)
}

func TestSQLiteMigrateIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	s, err := NewSQLite(dbPath)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Migrate(context.Background()))
	require.NoError(t, s.Migrate(context.Background()))
}
