// Package state persists the one durable artifact of a walk: the workflow
// progress record. A navigation transition can tear the executing process
// down with no further code running, so callers save immediately after every
// mutation that must survive and re-derive everything else on restart.
package state

import (
	"context"
	"errors"
	"fmt"

	"github.com/adwalk/listing-agent/internal/extract"
	"github.com/adwalk/listing-agent/internal/humanize"
	"github.com/adwalk/listing-agent/internal/links"
)

// ErrNotFound signals that no progress record exists (no job in flight).
var ErrNotFound = errors.New("no workflow progress stored")

// Progress is the resumable job state. Exactly one record exists at a time.
type Progress struct {
	JobID        string            `json:"job_id"`
	Token        string            `json:"token,omitempty"`
	AnchorURL    string            `json:"anchor_url"`
	TargetQueue  []string          `json:"target_queue"`
	Cursor       int               `json:"cursor"`
	Results      []extract.Record  `json:"results"`
	Selectors    extract.Selectors `json:"selectors"`
	RequirePhone bool              `json:"require_phone"`
	Humanize     humanize.Config   `json:"humanize"`
	MaxItems     int               `json:"max_items"`
	// Recoveries counts drift-recovery attempts so the bound holds across
	// process restarts, not just within one incarnation.
	Recoveries int `json:"recoveries"`
	// Errors accumulates non-fatal step errors for the finalize metadata.
	Errors []string `json:"errors,omitempty"`
}

// Validate enforces the record invariants. Every Save checks them so a
// violated invariant never becomes durable.
func (p *Progress) Validate() error {
	if p.JobID == "" {
		return errors.New("progress requires a job id")
	}
	if p.AnchorURL == "" {
		return errors.New("progress requires an anchor url")
	}
	if p.Cursor < 0 || p.Cursor > len(p.TargetQueue) {
		return fmt.Errorf("cursor %d outside [0, %d]", p.Cursor, len(p.TargetQueue))
	}
	if len(p.Results) > p.Cursor {
		return fmt.Errorf("results %d exceed cursor %d", len(p.Results), p.Cursor)
	}
	seen := make(map[string]struct{}, len(p.TargetQueue))
	for _, target := range p.TargetQueue {
		id := links.Identity(target)
		if _, dup := seen[id]; dup {
			return fmt.Errorf("duplicate target identity %s", id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

// Exhausted reports whether every queued target has been processed.
func (p *Progress) Exhausted() bool {
	return p.Cursor >= len(p.TargetQueue)
}

// CurrentTarget returns the target under the cursor, or "" when exhausted.
func (p *Progress) CurrentTarget() string {
	if p.Exhausted() {
		return ""
	}
	return p.TargetQueue[p.Cursor]
}

// Store is the durable progress contract. Load returns ErrNotFound when no
// job is in flight; Clear is idempotent.
type Store interface {
	Load(ctx context.Context) (*Progress, error)
	Save(ctx context.Context, p *Progress) error
	Clear(ctx context.Context) error
}
