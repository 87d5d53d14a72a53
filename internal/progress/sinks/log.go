// Package sinks holds the progress.Sink implementations.
package sinks

import (
	"context"

	"go.uber.org/zap"

	"github.com/adwalk/listing-agent/internal/progress"
)

// LogSink emits structured logs for the progress stream. It is the default
// sink when no exporter is configured.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wires a Zap logger to the sink interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Consume logs each event in the batch.
func (s *LogSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		s.logger.Info("progress",
			zap.String("job_id", evt.JobID),
			zap.String("stage", string(evt.Stage)),
			zap.Int("index", evt.Index),
			zap.Int("total", evt.Total),
			zap.String("url", evt.URL),
			zap.String("note", evt.Note),
		)
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *LogSink) Close(context.Context) error {
	return nil
}
