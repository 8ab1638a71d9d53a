package store

import (
	"context"
	"errors"
	"time"
)

// ErrDuplicateSignal is returned by SignalRepo.Insert when the
// (owner, strategy, symbol, bar-time-key) uniqueness constraint rejects the
// row. Callers treat it as "already emitted, skip" -- it is the idempotency
// mechanism, not an error path.
var ErrDuplicateSignal = errors.New("signal already exists for bar-time key")

// StrategyRepo supplies enabled strategy definitions for a scan owner,
// including the shared core library (empty owner).
type StrategyRepo interface {
	ListEnabled(ctx context.Context, owner string) ([]StrategyDefinition, error)
}

// SignalRepo is the persistence boundary for emitted signals. The
// uniqueness constraint on (owner, strategy_id, symbol, bar_time_key) is
// the only correctness mechanism preventing duplicates under concurrent
// scans, so it must live in the storage layer.
type SignalRepo interface {
	// Insert persists a new signal, returning ErrDuplicateSignal on a
	// bar-time-key collision.
	Insert(ctx context.Context, sig Signal) error

	// Latest returns the most recent signal for the tuple, or nil when
	// none exists.
	Latest(ctx context.Context, owner, strategyID, symbol string) (*Signal, error)

	// CountSince counts signals for a symbol under an owner since the
	// given instant, for the per-hour emission cap.
	CountSince(ctx context.Context, owner, symbol string, since time.Time) (int, error)
}

// CooldownCache is an optional fast path in front of SignalRepo.Latest for
// the cooldown check. A cache miss or error falls through to the repo; the
// cache is never authoritative.
type CooldownCache interface {
	LastSignalTime(ctx context.Context, owner, strategyID, symbol string) (time.Time, bool, error)
	SetLastSignalTime(ctx context.Context, owner, strategyID, symbol string, at time.Time, ttl time.Duration) error
}
