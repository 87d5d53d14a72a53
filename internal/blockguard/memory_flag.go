package blockguard

import (
	"context"
	"sync"
	"time"
)

// MemoryFlag is an in-process Flag for tests and dry runs.
type MemoryFlag struct {
	mu     sync.Mutex
	status Status
	now    func() time.Time
}

// NewMemoryFlag constructs a lowered MemoryFlag.
func NewMemoryFlag() *MemoryFlag {
	return &MemoryFlag{now: time.Now}
}

// WithClock overrides the time source for tests.
func (f *MemoryFlag) WithClock(now func() time.Time) *MemoryFlag {
	f.now = now
	return f
}

// Status reports the current flag state, treating an expired deadline as
// lowered.
func (f *MemoryFlag) Status(context.Context) (Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.status.Blocked && !f.status.Until.After(f.now()) {
		f.status = Status{}
	}
	return f.status, nil
}

// Raise raises or widens the flag.
func (f *MemoryFlag) Raise(_ context.Context, source string, ttl time.Duration) (Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := f.now()
	proposed := Status{Blocked: true, Until: now.Add(ttl), Source: source}
	f.status = widen(f.status, proposed, now)
	return f.status, nil
}

// Release lowers the flag unconditionally.
func (f *MemoryFlag) Release(context.Context) error {
	f.mu.Lock()
	f.status = Status{}
	f.mu.Unlock()
	return nil
}
