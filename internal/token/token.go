// Package token classifies client-supplied attribution tokens. A token is
// an attribution signal, not an authentication control: any caller can
// mint one matching the public prefix convention, so trust here only
// influences issue labeling, never access.
package token

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/nightfallstudio/bugboard/internal/kvstore"
	"github.com/nightfallstudio/bugboard/internal/logging"
)

// Classification is the attribution outcome for a request.
type Classification string

const (
	Trusted   Classification = "trusted"
	Anonymous Classification = "anonymous"
)

// Record tracks a sighted token. Records expire passively via the store
// TTL; each sighting refreshes it.
type Record struct {
	Created  time.Time `json:"created"`
	LastUsed time.Time `json:"last_used"`
	Type     string    `json:"type"` // app-generated or unknown
}

const keyPrefix = "token:"

// maxTokenLen bounds what gets recorded, so a hostile client cannot grow
// the store with arbitrarily large keys.
const maxTokenLen = 128

// Store owns the token records. No other component reads or writes them.
type Store struct {
	kv     kvstore.Store
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

// NewStore creates a token store recognizing the given application token
// prefix, with records expiring ttl after their last sighting.
func NewStore(kv kvstore.Store, prefix string, ttl time.Duration) *Store {
	return &Store{kv: kv, prefix: prefix, ttl: ttl, now: time.Now}
}

// Classify returns the attribution for the supplied token. Known tokens
// and tokens matching the application prefix classify as trusted and are
// recorded (refreshing last-used); everything else is anonymous. Store
// errors degrade to anonymous rather than failing the request.
func (s *Store) Classify(ctx context.Context, tok string) Classification {
	tok = strings.TrimSpace(tok)
	if tok == "" || len(tok) > maxTokenLen {
		return Anonymous
	}

	raw, found, err := s.kv.Get(ctx, keyPrefix+tok)
	if err != nil {
		logging.Warn("token lookup failed", "error", err)
		return Anonymous
	}

	now := s.now()
	if found {
		var rec Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			rec = Record{Created: now, Type: "unknown"}
		}
		rec.LastUsed = now
		s.record(ctx, tok, rec)
		return Trusted
	}

	if strings.HasPrefix(tok, s.prefix) {
		s.record(ctx, tok, Record{Created: now, LastUsed: now, Type: "app-generated"})
		return Trusted
	}

	return Anonymous
}

func (s *Store) record(ctx context.Context, tok string, rec Record) {
	raw, err := json.Marshal(rec)
	if err != nil {
		return
	}
	if err := s.kv.Put(ctx, keyPrefix+tok, raw, s.ttl); err != nil {
		logging.Warn("token record failed", "token", logging.MaskSensitive(tok), "error", err)
	}
}
