package blockguard

import (
	"context"
	"math/rand"
	"net/http"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// challengePathMarkers flag redirects into a verification flow. These are
// path fragments, not full URLs, because challenge vendors mount under the
// target's own host.
var challengePathMarkers = []string{
	"/verify",
	"/challenge",
	"captcha",
	"cf_chl",
	"perimeterx",
	"_distil",
	"geetest",
}

// TransportObserver is the wire-level block producer. The browser session
// feeds it every response on the main document; a throttle status or a
// redirect into a challenge flow raises the shared flag independently of
// what the page body says.
type TransportObserver struct {
	flag   Flag
	logger *zap.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// NewTransportObserver wires an observer to the shared flag.
func NewTransportObserver(flag Flag, rng *rand.Rand, logger *zap.Logger) *TransportObserver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TransportObserver{flag: flag, logger: logger, rng: rng}
}

// Observe inspects one document response and raises the flag when it looks
// like pushback. It returns whether a raise happened.
func (o *TransportObserver) Observe(ctx context.Context, statusCode int, url string) bool {
	reason := o.classify(statusCode, url)
	if reason == "" {
		return false
	}
	o.mu.Lock()
	ttl := RandomTTL(o.rng)
	o.mu.Unlock()
	status, err := o.flag.Raise(ctx, SourceTransport, ttl)
	if err != nil {
		o.logger.Error("raising block flag failed",
			zap.String("reason", reason),
			zap.Error(err))
		return true
	}
	o.logger.Warn("transport block detected",
		zap.String("reason", reason),
		zap.Int("status_code", statusCode),
		zap.String("url", url),
		zap.Time("blocked_until", status.Until))
	return true
}

func (o *TransportObserver) classify(statusCode int, url string) string {
	if statusCode == http.StatusTooManyRequests {
		return "throttle status"
	}
	lowered := strings.ToLower(url)
	for _, marker := range challengePathMarkers {
		if strings.Contains(lowered, marker) {
			return "challenge redirect"
		}
	}
	return ""
}
