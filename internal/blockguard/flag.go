// Package blockguard owns the block flag: a TTL'd stop signal raised by
// whichever detector notices the site pushing back first. While the flag is
// up the orchestrator makes no navigation of any kind; the flag expiring or
// an operator release is the only way forward.
package blockguard

import (
	"context"
	"math/rand"
	"time"
)

// Producers that may raise the flag. Kept as plain strings so metrics and
// logs can label by source without a mapping layer.
const (
	SourceContent   = "content_scan"
	SourceTransport = "transport"
	SourceOperator  = "operator"
)

// Status is a point-in-time read of the flag.
type Status struct {
	Blocked bool      `json:"blocked"`
	Until   time.Time `json:"until,omitempty"`
	Source  string    `json:"source,omitempty"`
}

// Flag is the shared stop signal. Raise never shortens an existing block:
// with two independent producers the later, wider raise must win, so a
// second Raise either extends the deadline or leaves it alone.
type Flag interface {
	Status(ctx context.Context) (Status, error)
	Raise(ctx context.Context, source string, ttl time.Duration) (Status, error)
	Release(ctx context.Context) error
}

const (
	minBlockTTL = 60 * time.Minute
	maxBlockTTL = 120 * time.Minute
)

// RandomTTL picks a cooldown in the one-to-two hour band. A fixed cooldown
// would make the agent's retry cadence itself a fingerprint.
func RandomTTL(rng *rand.Rand) time.Duration {
	span := maxBlockTTL - minBlockTTL
	if rng == nil {
		return minBlockTTL + time.Duration(rand.Int63n(int64(span)))
	}
	return minBlockTTL + time.Duration(rng.Int63n(int64(span)))
}

// widen applies the no-shrink rule given the current and proposed states.
func widen(current Status, proposed Status, now time.Time) Status {
	if current.Blocked && current.Until.After(now) && current.Until.After(proposed.Until) {
		return current
	}
	return proposed
}
