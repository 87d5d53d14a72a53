// Package links discovers detail-resource URLs from a paginated listing.
// Candidate-link strategies and pagination controls both follow the same
// ordered "first strategy that matches wins" rule so queue ordering stays
// predictable across runs.
package links

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/adwalk/listing-agent/internal/metrics"
)

// Config controls a collection run over one listing.
type Config struct {
	// AnchorURL is the first listing page.
	AnchorURL string `mapstructure:"anchor_url"`
	// Strategies are candidate-link selector chains tried in order per page;
	// the first one yielding at least one anchor wins, no merging.
	Strategies []string `mapstructure:"strategies"`
	// MaxItems caps the queue; collection stops once reached.
	MaxItems int `mapstructure:"max_items"`
	// MaxPages bounds pagination as a safety net.
	MaxPages int `mapstructure:"max_pages"`
	// UserAgent is sent with every fetch.
	UserAgent string `mapstructure:"user_agent"`
	// PageQPS throttles pagination politeness (pages per second).
	PageQPS float64 `mapstructure:"page_qps"`
	// RequestTimeout bounds a single page fetch.
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

func (c Config) withDefaults() Config {
	if c.MaxItems <= 0 {
		c.MaxItems = 50
	}
	if c.MaxPages <= 0 {
		c.MaxPages = 25
	}
	if c.UserAgent == "" {
		c.UserAgent = "listing-agent/1.0"
	}
	if c.PageQPS <= 0 {
		c.PageQPS = 0.5
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 15 * time.Second
	}
	return c
}

// Default strategies for listing cards: semantic markup first, then the
// conventional classes, then any anchor inside a result row.
var defaultStrategies = []string{
	`a.classifiedTitle`,
	`tr.searchResultsItem a[href]`,
	`[data-testid="listing-card"] a[href]`,
	`.listing-card a[href]`,
	`article a[href]`,
}

// Collector walks listing pagination and gathers deduplicated detail URLs.
type Collector struct {
	cfg     Config
	logger  *zap.Logger
	limiter *rate.Limiter
	fetch   fetchFunc
}

type fetchFunc func(ctx context.Context, rawURL string) ([]byte, error)

// NewCollector builds a Collector fetching through colly.
func NewCollector(cfg Config, logger *zap.Logger) *Collector {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()
	return &Collector{
		cfg:     cfg,
		logger:  logger,
		limiter: rate.NewLimiter(rate.Limit(cfg.PageQPS), 1),
		fetch:   collyFetcher(cfg),
	}
}

// Collect walks the listing from the anchor page and returns the ordered,
// deduplicated detail URLs. An empty result is not an error: the caller
// finalizes with an empty record set.
func (c *Collector) Collect(ctx context.Context) ([]string, error) {
	strategies := c.cfg.Strategies
	if len(strategies) == 0 {
		strategies = defaultStrategies
	}

	var (
		queue []string
		seen  = map[string]struct{}{}
	)
	pageURL := c.cfg.AnchorURL
	for page := 0; page < c.cfg.MaxPages && len(queue) < c.cfg.MaxItems; page++ {
		if err := ctx.Err(); err != nil {
			return queue, err
		}
		if page > 0 {
			if err := c.limiter.Wait(ctx); err != nil {
				return queue, fmt.Errorf("pagination limiter: %w", err)
			}
		}

		body, err := c.fetch(ctx, pageURL)
		if err != nil {
			if page == 0 {
				return nil, fmt.Errorf("fetch anchor %s: %w", pageURL, err)
			}
			c.logger.Warn("pagination fetch failed, stopping collection",
				zap.String("url", pageURL), zap.Int("page", page), zap.Error(err))
			break
		}
		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
		if err != nil {
			return queue, fmt.Errorf("parse listing %s: %w", pageURL, err)
		}
		base, err := url.Parse(pageURL)
		if err != nil {
			return queue, fmt.Errorf("parse page url %s: %w", pageURL, err)
		}

		found := c.collectPage(doc, base, strategies, seen, &queue)
		metrics.ObserveListingPage()
		c.logger.Debug("listing page collected",
			zap.String("url", pageURL),
			zap.Int("new_links", found),
			zap.Int("queue", len(queue)),
		)

		next, ok := FindNext(doc)
		if !ok {
			break
		}
		pageURL, err = Normalize(base, next)
		if err != nil {
			c.logger.Warn("next control had an unusable href", zap.String("href", next), zap.Error(err))
			break
		}
	}
	return queue, nil
}

// collectPage applies the strategy chain to one page: the first strategy
// with any match supplies all links for the page.
func (c *Collector) collectPage(
	doc *goquery.Document,
	base *url.URL,
	strategies []string,
	seen map[string]struct{},
	queue *[]string,
) int {
	added := 0
	for _, strategy := range strategies {
		nodes := doc.Find(strategy)
		if nodes.Length() == 0 {
			continue
		}
		nodes.EachWithBreak(func(_ int, s *goquery.Selection) bool {
			href, ok := s.Attr("href")
			if !ok {
				return true
			}
			normalized, err := Normalize(base, href)
			if err != nil {
				return true
			}
			id := Identity(normalized)
			if _, dup := seen[id]; dup {
				return true
			}
			seen[id] = struct{}{}
			*queue = append(*queue, normalized)
			added++
			return len(*queue) < c.cfg.MaxItems
		})
		break
	}
	return added
}

// collyFetcher adapts a colly collector into a single-page fetch call.
func collyFetcher(cfg Config) fetchFunc {
	base := colly.NewCollector(
		colly.UserAgent(cfg.UserAgent),
		colly.Async(true),
	)
	base.AllowURLRevisit = true
	base.SetRequestTimeout(cfg.RequestTimeout)
	base.WithTransport(&http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          16,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: cfg.RequestTimeout,
		ForceAttemptHTTP2:     true,
	})

	return func(ctx context.Context, rawURL string) ([]byte, error) {
		collector := base.Clone()
		resultCh := make(chan pageResult, 1)
		var once sync.Once
		send := func(res pageResult) {
			once.Do(func() { resultCh <- res })
		}

		collector.OnResponse(func(r *colly.Response) {
			if r.StatusCode != http.StatusOK {
				send(pageResult{err: fmt.Errorf("listing fetch status %d", r.StatusCode)})
				return
			}
			send(pageResult{body: append([]byte{}, r.Body...)})
		})
		collector.OnError(func(r *colly.Response, err error) {
			if err == nil {
				err = errors.New("unknown colly error")
			}
			if r != nil && r.StatusCode != 0 {
				err = fmt.Errorf("listing fetch status %d: %w", r.StatusCode, err)
			}
			send(pageResult{err: err})
		})

		if err := collector.Visit(rawURL); err != nil {
			return nil, err
		}
		collector.Wait()

		select {
		case res := <-resultCh:
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			return res.body, res.err
		default:
			return nil, errors.New("listing fetch produced no result")
		}
	}
}

type pageResult struct {
	body []byte
	err  error
}
