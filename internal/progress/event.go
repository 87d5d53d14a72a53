// Package progress defines the milestone events the orchestrator emits while
// walking a job, and the hub that fans them out to sinks.
package progress

import (
	"errors"
	"fmt"
	"time"
)

// Stage denotes the milestone an Event represents.
type Stage string

// Supported progress stages. Paused is distinct from Error: a paused job is
// healthy and waiting out a block, an errored job stopped on its own fault.
const (
	StageStarting   Stage = "STARTING"
	StageProcessing Stage = "PROCESSING"
	StagePaused     Stage = "PAUSED"
	StageCompleted  Stage = "COMPLETED"
	StageError      Stage = "ERROR"
)

// Event captures one milestone of a walk.
type Event struct {
	// JobID identifies the job run.
	JobID string
	// TS is the UTC timestamp recorded by the emitter.
	TS time.Time
	// Stage is the milestone kind.
	Stage Stage
	// Index is the cursor position at emission time.
	Index int
	// Total is the queue length at emission time.
	Total int
	// URL optionally scopes the event to the target being processed.
	URL string
	// Note carries low-volume context (block source, error text).
	Note string
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.JobID == "" {
		return errors.New("job id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Stage {
	case StageStarting, StageProcessing, StagePaused, StageCompleted, StageError:
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	if e.Index < 0 || e.Total < 0 {
		return errors.New("index and total must be >= 0")
	}
	if e.Total > 0 && e.Index > e.Total {
		return fmt.Errorf("index %d past total %d", e.Index, e.Total)
	}
	return nil
}
