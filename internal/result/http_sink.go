package result

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

const tokenHeader = "X-Agent-Token"

// HTTPSinkConfig controls the webhook delivery client.
type HTTPSinkConfig struct {
	// Endpoint receives the payload as a JSON POST.
	Endpoint string `mapstructure:"endpoint"`
	// RetryCount bounds redelivery attempts (default 3).
	RetryCount int `mapstructure:"retry_count"`
	// Timeout bounds each attempt (default 15s).
	Timeout time.Duration `mapstructure:"timeout"`
	// RetryWait is the base backoff between attempts (default 2s).
	RetryWait time.Duration `mapstructure:"retry_wait"`
}

// HTTPSink posts payloads to a consumer webhook. The job's correlation token
// travels in a header so the consumer can route without parsing the body.
type HTTPSink struct {
	client   *resty.Client
	endpoint string
}

// NewHTTPSink builds a sink with bounded retries and a per-attempt timeout.
func NewHTTPSink(cfg HTTPSinkConfig) (*HTTPSink, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("result endpoint is required")
	}
	if cfg.RetryCount <= 0 {
		cfg.RetryCount = 3
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.RetryWait <= 0 {
		cfg.RetryWait = 2 * time.Second
	}
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(cfg.RetryWait).
		SetRetryMaxWaitTime(10 * cfg.RetryWait).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= 500
		})
	return &HTTPSink{client: client, endpoint: cfg.Endpoint}, nil
}

// Deliver posts the payload, treating any non-2xx response as failure.
func (s *HTTPSink) Deliver(ctx context.Context, p Payload) error {
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader(tokenHeader, p.Token).
		SetBody(p).
		Post(s.endpoint)
	if err != nil {
		return fmt.Errorf("deliver result: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("deliver result: consumer answered %s", resp.Status())
	}
	return nil
}
