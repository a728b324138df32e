// Package ratelimit gates write operations with a fixed-window counter
// per client address. Bursts straddling a window boundary are an accepted
// trade-off of the fixed window; the point is cheap abuse control, not a
// precise sliding window.
package ratelimit

import (
	"context"
	"time"

	"github.com/nightfallstudio/bugboard/internal/kvstore"
	"github.com/nightfallstudio/bugboard/internal/logging"
)

const keyPrefix = "rate:"

// Limiter admits or rejects requests per client address.
type Limiter struct {
	kv      kvstore.Store
	ceiling int64
	window  time.Duration
}

// New creates a limiter allowing ceiling requests per address per window.
func New(kv kvstore.Store, ceiling int, window time.Duration) *Limiter {
	return &Limiter{kv: kv, ceiling: int64(ceiling), window: window}
}

// Admit counts a request from addr and reports whether it is allowed.
// The counter resets when its window expires. On store failure the
// request is admitted; losing a little rate accounting is better than
// refusing every write.
func (l *Limiter) Admit(ctx context.Context, addr string) bool {
	count, err := l.kv.Incr(ctx, keyPrefix+addr, l.window)
	if err != nil {
		logging.Warn("rate counter unavailable", "addr", addr, "error", err)
		return true
	}
	if count > l.ceiling {
		logging.Info("rate limited", "addr", addr, "count", count)
		return false
	}
	return true
}
