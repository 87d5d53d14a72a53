// Package logging builds the process logger. Logs always go to stderr:
// stdout is reserved for machine-readable command output.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a zap.Logger for development (console, colored) or production
// (JSON, sampled).
func New(development bool) (*zap.Logger, error) {
	var cfg zap.Config
	if development {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}

// WithJob returns a child logger that stamps every entry with the job id, so
// log lines from interleaved incarnations of the same walk correlate.
func WithJob(logger *zap.Logger, jobID string) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	if jobID == "" {
		return logger
	}
	return logger.With(zap.String("job_id", jobID))
}
