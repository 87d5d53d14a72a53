package blockguard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

const flagFile = "block.json"

// FileFlag keeps the block flag next to the progress record on disk, so a
// block raised in one incarnation still halts the next one.
type FileFlag struct {
	dir string
	now func() time.Time
}

// NewFileFlag roots the flag at dir, creating it when missing.
func NewFileFlag(dir string) (*FileFlag, error) {
	if dir == "" {
		return nil, errors.New("flag dir is required")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create flag dir %s: %w", dir, err)
	}
	return &FileFlag{dir: dir, now: time.Now}, nil
}

// WithClock overrides the time source for tests.
func (f *FileFlag) WithClock(now func() time.Time) *FileFlag {
	f.now = now
	return f
}

// Status reads the persisted flag. An expired record reads as lowered and is
// cleaned up on the spot.
func (f *FileFlag) Status(ctx context.Context) (Status, error) {
	if err := ctx.Err(); err != nil {
		return Status{}, err
	}
	raw, err := os.ReadFile(f.path())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Status{}, nil
		}
		return Status{}, fmt.Errorf("read block flag: %w", err)
	}
	var s Status
	if err := json.Unmarshal(raw, &s); err != nil {
		return Status{}, fmt.Errorf("decode block flag: %w", err)
	}
	if !s.Until.After(f.now()) {
		_ = os.Remove(f.path())
		return Status{}, nil
	}
	s.Blocked = true
	return s, nil
}

// Raise raises or widens the flag and persists the result.
func (f *FileFlag) Raise(ctx context.Context, source string, ttl time.Duration) (Status, error) {
	current, err := f.Status(ctx)
	if err != nil {
		return Status{}, err
	}
	now := f.now()
	s := widen(current, Status{Blocked: true, Until: now.Add(ttl), Source: source}, now)
	raw, err := json.Marshal(s)
	if err != nil {
		return Status{}, fmt.Errorf("encode block flag: %w", err)
	}
	tmp := f.path() + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return Status{}, fmt.Errorf("write block flag: %w", err)
	}
	if err := os.Rename(tmp, f.path()); err != nil {
		return Status{}, fmt.Errorf("replace block flag: %w", err)
	}
	return s, nil
}

// Release removes the flag; releasing a lowered flag is not an error.
func (f *FileFlag) Release(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(f.path()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("release block flag: %w", err)
	}
	return nil
}

func (f *FileFlag) path() string {
	return filepath.Join(f.dir, flagFile)
}
