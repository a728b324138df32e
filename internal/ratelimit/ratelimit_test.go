package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/nightfallstudio/bugboard/internal/kvstore"
)

func TestAdmitUpToCeiling(t *testing.T) {
	l := New(kvstore.NewMemory(), 10, time.Hour)
	ctx := context.Background()

	for i := 1; i <= 10; i++ {
		assert.True(t, l.Admit(ctx, "203.0.113.7"), "request %d should be admitted", i)
	}
	assert.False(t, l.Admit(ctx, "203.0.113.7"), "request 11 should be rejected")
	assert.False(t, l.Admit(ctx, "203.0.113.7"), "rejections continue past the ceiling")
}

func TestAdmitPerAddress(t *testing.T) {
	l := New(kvstore.NewMemory(), 1, time.Hour)
	ctx := context.Background()

	assert.True(t, l.Admit(ctx, "203.0.113.7"))
	assert.False(t, l.Admit(ctx, "203.0.113.7"))

	// A different address has its own counter.
	assert.True(t, l.Admit(ctx, "198.51.100.9"))
}

func TestAdmitWindowReset(t *testing.T) {
	kv := kvstore.NewMemory()
	now := time.Now()
	kv.SetNow(func() time.Time { return now })

	l := New(kv, 2, time.Hour)
	ctx := context.Background()

	assert.True(t, l.Admit(ctx, "203.0.113.7"))
	assert.True(t, l.Admit(ctx, "203.0.113.7"))
	assert.False(t, l.Admit(ctx, "203.0.113.7"))

	// Rejected attempts must not extend the window.
	now = now.Add(61 * time.Minute)
	assert.True(t, l.Admit(ctx, "203.0.113.7"), "counter resets after the window expires")
}

// brokenStore always fails, standing in for an unreachable backend.
type brokenStore struct {
	kvstore.Store
}

func (brokenStore) Incr(context.Context, string, time.Duration) (int64, error) {
	return 0, assert.AnError
}

func TestAdmitOnStoreFailure(t *testing.T) {
	l := New(brokenStore{}, 1, time.Hour)
	assert.True(t, l.Admit(context.Background(), "203.0.113.7"))
}
