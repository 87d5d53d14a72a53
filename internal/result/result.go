// Package result delivers the finalize payload of a completed walk. Delivery
// failures are reported, never fatal: the walk's outcome is already durable
// in the progress store when delivery starts.
package result

import (
	"context"
	"time"

	"github.com/adwalk/listing-agent/internal/extract"
)

// Job terminal statuses carried in the payload.
const (
	StatusCompleted      = "completed"
	StatusCompletedEmpty = "completed_empty"
	StatusCancelled      = "cancelled"
)

// Metadata summarizes the walk for the consumer.
type Metadata struct {
	ItemsExtracted int       `json:"items_extracted"`
	Errors         []string  `json:"errors,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// Payload is the full deliverable of one job.
type Payload struct {
	JobID    string           `json:"job_id"`
	Token    string           `json:"token,omitempty"`
	Status   string           `json:"status"`
	Records  []extract.Record `json:"records"`
	Metadata Metadata         `json:"metadata"`
}

// Sink receives the payload of a finished job.
type Sink interface {
	Deliver(ctx context.Context, p Payload) error
}
