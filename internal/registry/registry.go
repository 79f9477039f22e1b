// Package registry holds the pending verification codes. It is the single
// source of truth for "has this user been issued a code and what is it".
// Entries are not persisted; a restart invalidates all pending codes.
package registry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/uniusa/verify-bot/internal/metrics"
)

// RedeemResult classifies the outcome of an atomic code redemption.
type RedeemResult int

const (
	// RedeemNoPending means the user has no outstanding code.
	RedeemNoPending RedeemResult = iota
	// RedeemMismatch means the submitted code did not match; the entry is
	// retained so the user can retry.
	RedeemMismatch
	// RedeemMatched means the submitted code matched; the entry is removed.
	RedeemMatched
)

type entry struct {
	code     string
	issuedAt time.Time
}

// Registry maps a user ID to their outstanding verification code. At most
// one entry exists per user; issuing overwrites. All operations are safe
// for concurrent use, and Redeem performs its check-then-consume under the
// same lock so it can never interleave with a concurrent Issue in a way
// that loses an update.
type Registry struct {
	mu      sync.Mutex
	entries map[string]entry
	ttl     time.Duration // 0 means entries never expire
	logger  *slog.Logger
}

// New creates a registry. ttl of zero preserves the historical behavior of
// codes staying valid until consumed or overwritten.
func New(ttl time.Duration, logger *slog.Logger) *Registry {
	return &Registry{
		entries: make(map[string]entry),
		ttl:     ttl,
		logger:  logger.With("component", "registry"),
	}
}

// Issue inserts or overwrites the user's pending code.
func (r *Registry) Issue(userID, code string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[userID] = entry{code: code, issuedAt: time.Now()}
	metrics.PendingCodes.Set(float64(len(r.entries)))
}

// Has reports whether the user has an outstanding, unexpired code.
func (r *Registry) Has(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.live(userID)
	return ok
}

// Get returns the user's outstanding code, if any.
func (r *Registry) Get(userID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.live(userID)
	return e.code, ok
}

// Consume removes the user's pending code unconditionally.
func (r *Registry) Consume(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, userID)
	metrics.PendingCodes.Set(float64(len(r.entries)))
}

// Redeem compares the submitted code against the user's pending entry and
// removes the entry on a match, all atomically. A mismatch leaves the
// entry in place for retry.
func (r *Registry) Redeem(userID, code string) RedeemResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.live(userID)
	if !ok {
		return RedeemNoPending
	}
	if e.code != code {
		return RedeemMismatch
	}
	delete(r.entries, userID)
	metrics.PendingCodes.Set(float64(len(r.entries)))
	return RedeemMatched
}

// Len returns the number of outstanding entries, expired ones included.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// live returns the user's entry if present and unexpired, removing it if
// expired. Caller must hold r.mu.
func (r *Registry) live(userID string) (entry, bool) {
	e, ok := r.entries[userID]
	if !ok {
		return entry{}, false
	}
	if r.ttl > 0 && time.Since(e.issuedAt) > r.ttl {
		delete(r.entries, userID)
		metrics.PendingCodes.Set(float64(len(r.entries)))
		return entry{}, false
	}
	return e, true
}

// StartJanitor periodically drops expired entries. It is a no-op when the
// registry has no TTL and returns when ctx is cancelled.
func (r *Registry) StartJanitor(ctx context.Context, interval time.Duration) {
	if r.ttl == 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	r.logger.Info("janitor started", "interval", interval, "ttl", r.ttl)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("janitor shut down")
			return
		case <-ticker.C:
			r.sweep()
		}
	}
}

func (r *Registry) sweep() {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed int
	for userID, e := range r.entries {
		if time.Since(e.issuedAt) > r.ttl {
			delete(r.entries, userID)
			removed++
		}
	}
	if removed > 0 {
		metrics.PendingCodes.Set(float64(len(r.entries)))
		r.logger.Info("swept expired codes", "count", removed)
	}
}
