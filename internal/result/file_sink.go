package result

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// FileSink writes each payload as a JSON file named after the job. It is the
// default sink when no remote consumer is configured.
type FileSink struct {
	dir string
}

// NewFileSink roots the sink at dir, creating it when missing.
func NewFileSink(dir string) (*FileSink, error) {
	if dir == "" {
		return nil, errors.New("result dir is required")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create result dir %s: %w", dir, err)
	}
	return &FileSink{dir: dir}, nil
}

// Deliver writes the payload to <dir>/<job_id>.json.
func (s *FileSink) Deliver(ctx context.Context, p Payload) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result payload: %w", err)
	}
	path := filepath.Join(s.dir, p.JobID+".json")
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return fmt.Errorf("write result payload: %w", err)
	}
	return nil
}
