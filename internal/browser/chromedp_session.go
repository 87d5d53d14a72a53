package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// ObserveFunc receives every main-document response the tab loads. The
// transport block producer hangs off this hook.
type ObserveFunc func(statusCode int, url string)

// Config controls the headless Chrome session.
type Config struct {
	UserAgent  string        `mapstructure:"user_agent"`
	Headless   bool          `mapstructure:"headless"`
	NavTimeout time.Duration `mapstructure:"nav_timeout"`
}

// Normalize fills defaults.
func (c Config) Normalize() Config {
	if c.UserAgent == "" {
		c.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	}
	if c.NavTimeout <= 0 {
		c.NavTimeout = 45 * time.Second
	}
	return c
}

// ChromedpSession is the chromedp-backed Session. One allocator, one browser
// context, one tab reused for the whole walk so cookies and history behave
// like a real visitor's.
type ChromedpSession struct {
	allocatorCancel context.CancelFunc
	tabCtx          context.Context
	tabCancel       context.CancelFunc
	logger          *zap.Logger
	navTimeout      time.Duration
}

// NewChromedpSession launches Chrome, opens the tab and wires the response
// observer before any navigation happens.
func NewChromedpSession(cfg Config, observe ObserveFunc, logger *zap.Logger) (*ChromedpSession, error) {
	cfg = cfg.Normalize()
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := chromedp.DefaultExecAllocatorOptions[:]
	opts = append(opts,
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(cfg.UserAgent),
	)
	allocatorCtx, allocatorCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	tabCtx, tabCancel := chromedp.NewContext(allocatorCtx)

	if observe != nil {
		chromedp.ListenTarget(tabCtx, func(ev interface{}) {
			resp, ok := ev.(*network.EventResponseReceived)
			if !ok || resp.Type != network.ResourceTypeDocument {
				return
			}
			observe(int(resp.Response.Status), resp.Response.URL)
		})
	}

	warmup := chromedp.Tasks{
		network.Enable(),
		emulation.SetUserAgentOverride(cfg.UserAgent),
	}
	if err := chromedp.Run(tabCtx, warmup); err != nil {
		tabCancel()
		allocatorCancel()
		return nil, fmt.Errorf("chromedp warmup: %w", err)
	}

	return &ChromedpSession{
		allocatorCancel: allocatorCancel,
		tabCtx:          tabCtx,
		tabCancel:       tabCancel,
		logger:          logger,
		navTimeout:      cfg.NavTimeout,
	}, nil
}

// Location returns the tab's current document URL.
func (s *ChromedpSession) Location(ctx context.Context) (string, error) {
	var loc string
	if err := s.run(ctx, chromedp.Location(&loc)); err != nil {
		return "", fmt.Errorf("read location: %w", err)
	}
	return loc, nil
}

// Navigate loads rawURL in the tab.
func (s *ChromedpSession) Navigate(ctx context.Context, rawURL string) error {
	if err := s.run(ctx, chromedp.Navigate(rawURL)); err != nil {
		return fmt.Errorf("navigate %s: %w", rawURL, err)
	}
	return nil
}

// Back performs a history-back navigation.
func (s *ChromedpSession) Back(ctx context.Context) error {
	if err := s.run(ctx, chromedp.NavigateBack()); err != nil {
		return fmt.Errorf("navigate back: %w", err)
	}
	return nil
}

// WaitReady blocks until sel is ready, bounded by the navigation timeout.
func (s *ChromedpSession) WaitReady(ctx context.Context, sel string) error {
	if err := s.run(ctx, chromedp.WaitReady(sel, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("wait ready %q: %w", sel, err)
	}
	return nil
}

// HTML snapshots the current DOM.
func (s *ChromedpSession) HTML(ctx context.Context) (string, error) {
	var html string
	if err := s.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("snapshot dom: %w", err)
	}
	return html, nil
}

// ScrollBy scrolls the window vertically by px.
func (s *ChromedpSession) ScrollBy(ctx context.Context, px int) error {
	script := fmt.Sprintf("window.scrollBy({top: %d, behavior: 'smooth'});", px)
	if err := s.run(ctx, chromedp.Evaluate(script, nil)); err != nil {
		return fmt.Errorf("scroll: %w", err)
	}
	return nil
}

// Click dispatches a click on the first node matching sel.
func (s *ChromedpSession) Click(ctx context.Context, sel string) error {
	if err := s.run(ctx, chromedp.Click(sel, chromedp.ByQuery, chromedp.NodeVisible)); err != nil {
		return fmt.Errorf("click %q: %w", sel, err)
	}
	return nil
}

// Close tears down the tab and the allocator.
func (s *ChromedpSession) Close(ctx context.Context) error {
	if s == nil {
		return nil
	}
	// Best effort: give Chrome a chance to flush before the contexts drop.
	_ = chromedp.Run(s.tabCtx, page.Close())
	s.tabCancel()
	s.allocatorCancel()
	if err := ctx.Err(); err != nil {
		return err
	}
	return nil
}

func (s *ChromedpSession) run(ctx context.Context, actions ...chromedp.Action) error {
	taskCtx, cancelTask := context.WithTimeout(s.tabCtx, s.navTimeout)
	defer cancelTask()
	stop := forwardCancel(ctx, cancelTask)
	defer stop()
	return chromedp.Run(taskCtx, actions...)
}

// forwardCancel propagates the caller's cancellation into a chromedp task
// context, which hangs off the tab rather than the caller.
func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	if parent == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}
