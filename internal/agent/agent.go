// Package agent walks a listing job to completion. The walk is discontinuous
// by nature: any navigation can tear the process down before the next line
// runs, so every Step treats the durable progress record as the only truth
// and persists before it moves.
package agent

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/adwalk/listing-agent/internal/archive"
	"github.com/adwalk/listing-agent/internal/blockguard"
	"github.com/adwalk/listing-agent/internal/browser"
	"github.com/adwalk/listing-agent/internal/extract"
	"github.com/adwalk/listing-agent/internal/humanize"
	"github.com/adwalk/listing-agent/internal/job"
	"github.com/adwalk/listing-agent/internal/links"
	"github.com/adwalk/listing-agent/internal/metrics"
	"github.com/adwalk/listing-agent/internal/progress"
	"github.com/adwalk/listing-agent/internal/result"
	"github.com/adwalk/listing-agent/internal/state"
)

// Outcome reports what one Step incarnation accomplished.
type Outcome string

// Step outcomes. Terminal for Run are Idle, Blocked, Finalized and Halted.
const (
	OutcomeIdle       Outcome = "idle"
	OutcomeBlocked    Outcome = "blocked"
	OutcomeAdvanced   Outcome = "advanced"
	OutcomeApproach   Outcome = "approach"
	OutcomeRecovering Outcome = "recovering"
	OutcomeFinalized  Outcome = "finalized"
	OutcomeHalted     Outcome = "halted"
)

// ErrBlocked is returned by Start while the block flag is raised.
var ErrBlocked = errors.New("navigation is blocked")

// ErrJobInFlight is returned by Start when a progress record already exists.
var ErrJobInFlight = errors.New("a job is already in flight")

// CollectFunc gathers the target queue for a job.
type CollectFunc func(ctx context.Context, j job.Job) ([]string, error)

// Config tunes the orchestrator.
type Config struct {
	// ReadySelector is awaited on every detail page (default "body").
	ReadySelector string `mapstructure:"ready_selector"`
	// ReadyRetries bounds wait-ready attempts per target (default 2).
	ReadyRetries int `mapstructure:"ready_retries"`
	// MaxRecoveries bounds drift recoveries across the whole walk (default 3).
	MaxRecoveries int `mapstructure:"max_recoveries"`
	// ItemsPerPage sizes the progressive-scroll bucket (default 20).
	ItemsPerPage int `mapstructure:"items_per_page"`
}

func (c Config) normalize() Config {
	if c.ReadySelector == "" {
		c.ReadySelector = "body"
	}
	if c.ReadyRetries <= 0 {
		c.ReadyRetries = 2
	}
	if c.MaxRecoveries <= 0 {
		c.MaxRecoveries = 3
	}
	if c.ItemsPerPage <= 0 {
		c.ItemsPerPage = 20
	}
	return c
}

// Deps carries the orchestrator's collaborators.
type Deps struct {
	Store   state.Store
	Session browser.Session
	Flag    blockguard.Flag
	Results result.Sink
	Archive archive.Store
	Emitter progress.Emitter
	Sleeper humanize.Sleeper
	Collect CollectFunc
	Logger  *zap.Logger
	Rng     *rand.Rand
}

// Agent drives one job at a time over a single browser session.
type Agent struct {
	cfg     Config
	store   state.Store
	session browser.Session
	flag    blockguard.Flag
	results result.Sink
	archive archive.Store
	emitter progress.Emitter
	sleeper humanize.Sleeper
	collect CollectFunc
	logger  *zap.Logger
	rng     *rand.Rand
	now     func() time.Time
}

// New wires an Agent. Store, Session and Flag are required; everything else
// falls back to a no-op.
func New(cfg Config, deps Deps) (*Agent, error) {
	if deps.Store == nil {
		return nil, errors.New("progress store is required")
	}
	if deps.Session == nil {
		return nil, errors.New("browser session is required")
	}
	if deps.Flag == nil {
		return nil, errors.New("block flag is required")
	}
	metrics.Init()
	a := &Agent{
		cfg:     cfg.normalize(),
		store:   deps.Store,
		session: deps.Session,
		flag:    deps.Flag,
		results: deps.Results,
		archive: deps.Archive,
		emitter: deps.Emitter,
		sleeper: deps.Sleeper,
		collect: deps.Collect,
		logger:  deps.Logger,
		rng:     deps.Rng,
		now:     time.Now,
	}
	if a.results == nil {
		a.results = discardSink{}
	}
	if a.archive == nil {
		a.archive = archive.Nop{}
	}
	if a.emitter == nil {
		a.emitter = progress.NopEmitter{}
	}
	if a.sleeper == nil {
		a.sleeper = humanize.TimerSleeper{}
	}
	if a.logger == nil {
		a.logger = zap.NewNop()
	}
	if a.rng == nil {
		a.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if a.collect == nil {
		a.collect = a.defaultCollect
	}
	return a, nil
}

func (a *Agent) defaultCollect(ctx context.Context, j job.Job) ([]string, error) {
	c := links.NewCollector(links.Config{
		AnchorURL: j.AnchorURL,
		MaxItems:  j.MaxItems,
	}, a.logger)
	return c.Collect(ctx)
}

// Start accepts a job, gathers its target queue and persists the initial
// progress record. An empty collection finalizes immediately with an empty
// payload and leaves nothing behind.
func (a *Agent) Start(ctx context.Context, j job.Job) error {
	status, err := a.flag.Status(ctx)
	if err != nil {
		return fmt.Errorf("read block flag: %w", err)
	}
	if status.Blocked {
		return fmt.Errorf("%w until %s", ErrBlocked, status.Until.Format(time.RFC3339))
	}

	if _, err := a.store.Load(ctx); err == nil {
		return ErrJobInFlight
	} else if !errors.Is(err, state.ErrNotFound) {
		return fmt.Errorf("load progress: %w", err)
	}

	accepted, err := job.Accept(j)
	if err != nil {
		return fmt.Errorf("accept job: %w", err)
	}

	queue, err := a.collect(ctx, accepted)
	if err != nil {
		return fmt.Errorf("collect targets: %w", err)
	}

	if len(queue) == 0 {
		a.logger.Info("collection found no targets", zap.String("job_id", accepted.ID))
		a.deliver(ctx, &state.Progress{
			JobID:     accepted.ID,
			Token:     accepted.Token,
			AnchorURL: accepted.AnchorURL,
		}, result.StatusCompletedEmpty)
		a.emit(progress.StageCompleted, &state.Progress{JobID: accepted.ID}, "", "no targets")
		return nil
	}

	p := &state.Progress{
		JobID:        accepted.ID,
		Token:        accepted.Token,
		AnchorURL:    accepted.AnchorURL,
		TargetQueue:  queue,
		Selectors:    accepted.Selectors,
		RequirePhone: accepted.RequirePhone,
		Humanize:     accepted.Humanize,
		MaxItems:     accepted.MaxItems,
		Results:      []extract.Record{},
	}
	if err := a.store.Save(ctx, p); err != nil {
		return fmt.Errorf("persist initial progress: %w", err)
	}
	a.emit(progress.StageStarting, p, "", fmt.Sprintf("%d targets queued", len(queue)))
	a.logger.Info("job started",
		zap.String("job_id", accepted.ID),
		zap.Int("targets", len(queue)))
	return nil
}

// Step runs one incarnation: re-derive everything from the store, act once,
// persist. Callers may rebuild the Agent between Steps without losing the
// walk.
func (a *Agent) Step(ctx context.Context) (Outcome, error) {
	status, err := a.flag.Status(ctx)
	if err != nil {
		return OutcomeHalted, fmt.Errorf("read block flag: %w", err)
	}
	if status.Blocked {
		a.logger.Info("walk paused by block flag",
			zap.Time("until", status.Until),
			zap.String("source", status.Source))
		a.emitBare(progress.StagePaused, status.Source)
		return OutcomeBlocked, nil
	}

	p, err := a.store.Load(ctx)
	if errors.Is(err, state.ErrNotFound) {
		return OutcomeIdle, nil
	}
	if err != nil {
		return OutcomeHalted, fmt.Errorf("load progress: %w", err)
	}

	if p.Exhausted() {
		return a.finalize(ctx, p)
	}

	model := humanize.New(p.Humanize, a.rng)
	if err := a.sleeper.Sleep(ctx, model.Warmup()); err != nil {
		return OutcomeHalted, err
	}

	loc, err := a.session.Location(ctx)
	if err != nil {
		return OutcomeHalted, fmt.Errorf("read location: %w", err)
	}

	switch {
	case links.SameResource(loc, p.CurrentTarget()):
		return a.processTarget(ctx, p, model)
	case links.SameResource(loc, p.AnchorURL):
		return a.approachTarget(ctx, p, model)
	case loc == "" || loc == "about:blank":
		// Fresh session, nothing loaded yet. Not drift.
		if err := a.session.Navigate(ctx, p.AnchorURL); err != nil {
			return OutcomeHalted, fmt.Errorf("navigate to anchor: %w", err)
		}
		return OutcomeApproach, nil
	default:
		return a.recover(ctx, p, loc)
	}
}

// Run loops Step until a terminal outcome. Each iteration is a fresh
// incarnation; nothing carries over but the store.
func (a *Agent) Run(ctx context.Context) (Outcome, error) {
	for {
		if err := ctx.Err(); err != nil {
			return OutcomeHalted, err
		}
		outcome, err := a.Step(ctx)
		if err != nil {
			return outcome, err
		}
		switch outcome {
		case OutcomeIdle, OutcomeBlocked, OutcomeFinalized, OutcomeHalted:
			return outcome, nil
		}
	}
}

// Cancel abandons the in-flight job: the partial results are delivered with
// a cancelled status and the progress record is cleared.
func (a *Agent) Cancel(ctx context.Context) error {
	p, err := a.store.Load(ctx)
	if errors.Is(err, state.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load progress: %w", err)
	}
	a.deliver(ctx, p, result.StatusCancelled)
	if err := a.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear progress: %w", err)
	}
	a.emit(progress.StageCompleted, p, "", "cancelled")
	a.logger.Info("job cancelled",
		zap.String("job_id", p.JobID),
		zap.Int("items_extracted", len(p.Results)))
	return nil
}

// processTarget handles the AtTarget state: scan, dwell, extract, advance.
func (a *Agent) processTarget(ctx context.Context, p *state.Progress, model *humanize.Model) (Outcome, error) {
	target := p.CurrentTarget()

	html, err := a.session.HTML(ctx)
	if err != nil {
		return OutcomeHalted, fmt.Errorf("snapshot target: %w", err)
	}
	if phrase, blocked := blockguard.ScanHTML(html); blocked {
		return a.raiseAndPause(ctx, p, blockguard.SourceContent, phrase)
	}

	if err := a.waitReady(ctx, model); err != nil {
		p.Errors = append(p.Errors, fmt.Sprintf("%s: page never became ready", target))
		if saveErr := a.store.Save(ctx, p); saveErr != nil {
			return OutcomeHalted, fmt.Errorf("persist progress: %w", saveErr)
		}
		return a.recover(ctx, p, target)
	}

	if out, stop, err := a.stopIfRaised(ctx, p); stop {
		return out, err
	}

	// Re-snapshot now that the content is ready: the first snapshot may
	// predate late-rendered markup and feeds the block scan only.
	html, err = a.session.HTML(ctx)
	if err != nil {
		return OutcomeHalted, fmt.Errorf("snapshot target: %w", err)
	}
	if phrase, blocked := blockguard.ScanHTML(html); blocked {
		return a.raiseAndPause(ctx, p, blockguard.SourceContent, phrase)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return OutcomeHalted, fmt.Errorf("parse target: %w", err)
	}

	if err := a.readPage(ctx, doc, model, firstSelector(p.Selectors.Address)); err != nil {
		return OutcomeHalted, err
	}

	if model.QuickSkip() {
		metrics.ObserveQuickSkip()
		a.logger.Debug("quick skip", zap.String("target", target))
	} else {
		a.extractRecord(ctx, p, doc, target, html)
	}

	p.Cursor++
	if err := a.store.Save(ctx, p); err != nil {
		return OutcomeHalted, fmt.Errorf("persist progress: %w", err)
	}
	metrics.ObserveTargetVisited()
	a.emit(progress.StageProcessing, p, target, "")

	if pause := model.BreakAfter(p.Cursor); pause > 0 {
		a.logger.Debug("taking a break", zap.Duration("for", pause))
		if err := a.sleeper.Sleep(ctx, pause); err != nil {
			return OutcomeHalted, err
		}
	}

	if p.Exhausted() {
		return a.finalize(ctx, p)
	}
	return a.returnToAnchor(ctx, p, model)
}

// approachTarget handles the on-anchor state: pause like a reader, then
// navigate to the pending target.
func (a *Agent) approachTarget(ctx context.Context, p *state.Progress, model *humanize.Model) (Outcome, error) {
	if err := a.session.ScrollBy(ctx, humanize.ProgressiveScroll(p.Cursor, a.cfg.ItemsPerPage)); err != nil {
		a.logger.Debug("anchor scroll failed", zap.Error(err))
	}
	if err := a.sleeper.Sleep(ctx, model.NavDelay()); err != nil {
		return OutcomeHalted, err
	}
	if out, stop, err := a.stopIfRaised(ctx, p); stop {
		return out, err
	}
	if err := a.session.Navigate(ctx, p.CurrentTarget()); err != nil {
		return OutcomeHalted, fmt.Errorf("navigate to target: %w", err)
	}
	return OutcomeApproach, nil
}

// returnToAnchor goes back to the listing between targets, verifying the
// history landed where expected and falling back to a direct navigation.
func (a *Agent) returnToAnchor(ctx context.Context, p *state.Progress, model *humanize.Model) (Outcome, error) {
	if out, stop, err := a.stopIfRaised(ctx, p); stop {
		return out, err
	}
	if err := a.session.Back(ctx); err != nil {
		a.logger.Debug("history back failed", zap.Error(err))
	}
	loc, err := a.session.Location(ctx)
	if err != nil {
		return OutcomeHalted, fmt.Errorf("read location: %w", err)
	}
	if !links.SameResource(loc, p.AnchorURL) {
		a.logger.Debug("back drifted off the anchor", zap.String("landed", loc))
		if out, stop, err := a.stopIfRaised(ctx, p); stop {
			return out, err
		}
		if err := a.session.Navigate(ctx, p.AnchorURL); err != nil {
			return OutcomeHalted, fmt.Errorf("navigate to anchor: %w", err)
		}
	}
	if err := a.session.ScrollBy(ctx, humanize.ProgressiveScroll(p.Cursor, a.cfg.ItemsPerPage)); err != nil {
		a.logger.Debug("anchor scroll failed", zap.Error(err))
	}
	if err := a.sleeper.Sleep(ctx, model.NavDelay()); err != nil {
		return OutcomeHalted, err
	}
	if out, stop, err := a.stopIfRaised(ctx, p); stop {
		return out, err
	}
	if err := a.session.Navigate(ctx, p.CurrentTarget()); err != nil {
		return OutcomeHalted, fmt.Errorf("navigate to target: %w", err)
	}
	return OutcomeAdvanced, nil
}

// recover handles drift: the session is neither on the anchor nor on the
// current target. One bounded navigation back to the anchor per attempt.
func (a *Agent) recover(ctx context.Context, p *state.Progress, loc string) (Outcome, error) {
	html, err := a.session.HTML(ctx)
	if err == nil {
		if phrase, blocked := blockguard.ScanHTML(html); blocked {
			return a.raiseAndPause(ctx, p, blockguard.SourceContent, phrase)
		}
	}

	if p.Recoveries >= a.cfg.MaxRecoveries {
		a.logger.Warn("recovery budget exhausted, halting with state preserved",
			zap.String("job_id", p.JobID),
			zap.String("location", loc),
			zap.Int("recoveries", p.Recoveries))
		a.emit(progress.StageError, p, loc, "recovery budget exhausted")
		return OutcomeHalted, nil
	}

	p.Recoveries++
	if err := a.store.Save(ctx, p); err != nil {
		return OutcomeHalted, fmt.Errorf("persist progress: %w", err)
	}
	metrics.ObserveRecovery()
	a.logger.Info("recovering to anchor",
		zap.String("drifted_to", loc),
		zap.Int("attempt", p.Recoveries))
	if out, stop, err := a.stopIfRaised(ctx, p); stop {
		return out, err
	}
	if err := a.session.Navigate(ctx, p.AnchorURL); err != nil {
		return OutcomeHalted, fmt.Errorf("recovery navigate: %w", err)
	}
	return OutcomeRecovering, nil
}

// finalize delivers the payload, clears the progress record and completes.
func (a *Agent) finalize(ctx context.Context, p *state.Progress) (Outcome, error) {
	status := result.StatusCompleted
	if len(p.Results) == 0 {
		status = result.StatusCompletedEmpty
	}
	a.deliver(ctx, p, status)
	if err := a.store.Clear(ctx); err != nil {
		return OutcomeHalted, fmt.Errorf("clear progress: %w", err)
	}
	a.emit(progress.StageCompleted, p, "", status)
	a.logger.Info("job completed",
		zap.String("job_id", p.JobID),
		zap.Int("items_extracted", len(p.Results)),
		zap.Int("targets", len(p.TargetQueue)))
	return OutcomeFinalized, nil
}

// extractRecord parses the page into a record, archives the snapshot and
// appends the record to the progress. Failures degrade, they never stop the
// walk.
func (a *Agent) extractRecord(ctx context.Context, p *state.Progress, doc *goquery.Document, target string, html string) {
	engine := extract.NewEngine(p.Selectors, p.RequirePhone, a.logger)
	rec, err := engine.Extract(doc, target)
	if err != nil {
		if errors.Is(err, extract.ErrMissingPhone) {
			metrics.ObserveRecordDropped("missing_phone")
			a.logger.Info("record dropped, no phone", zap.String("target", target))
		} else {
			metrics.ObserveRecordDropped("extract_error")
			p.Errors = append(p.Errors, fmt.Sprintf("%s: %v", target, err))
		}
		return
	}
	p.Results = append(p.Results, rec)
	metrics.ObserveRecordExtracted()

	key := p.JobID + "/" + links.Identity(target)
	if uri, err := a.archive.Put(ctx, key, []byte(html)); err != nil {
		a.logger.Warn("snapshot archive failed", zap.String("target", target), zap.Error(err))
	} else if uri != "" {
		a.logger.Debug("snapshot archived", zap.String("uri", uri))
	}
}

// readPage imitates reading: dwell proportional to the word count, a scroll
// gesture, and sometimes a glance at the address block. The address click
// opens the in-page map widget; it never navigates, so extraction is
// unaffected.
func (a *Agent) readPage(ctx context.Context, doc *goquery.Document, model *humanize.Model, addressSel string) error {
	words := len(strings.Fields(doc.Find("body").Text()))
	if err := a.sleeper.Sleep(ctx, model.DwellFor(words)); err != nil {
		return err
	}
	switch model.PickScrollPattern() {
	case humanize.ScrollDown:
		a.scroll(ctx, 600)
	case humanize.ScrollDownThenUp:
		a.scroll(ctx, 900)
		a.scroll(ctx, -400)
	case humanize.ScrollDoubleDown:
		a.scroll(ctx, 500)
		a.scroll(ctx, 700)
	}
	if model.AddressClick() {
		if addressSel != "" {
			if err := a.session.Click(ctx, addressSel); err != nil {
				a.logger.Debug("address click failed", zap.Error(err))
			}
		}
		if err := a.sleeper.Sleep(ctx, model.NavDelay()); err != nil {
			return err
		}
	}
	return nil
}

// firstSelector returns the head of a selector chain, if any.
func firstSelector(spec extract.FieldSpec) string {
	if len(spec.Selectors) == 0 {
		return ""
	}
	return spec.Selectors[0]
}

func (a *Agent) scroll(ctx context.Context, px int) {
	if err := a.session.ScrollBy(ctx, px); err != nil {
		a.logger.Debug("scroll failed", zap.Error(err))
	}
}

func (a *Agent) waitReady(ctx context.Context, model *humanize.Model) error {
	var err error
	for attempt := 0; attempt < a.cfg.ReadyRetries; attempt++ {
		if err = a.session.WaitReady(ctx, a.cfg.ReadySelector); err == nil {
			return nil
		}
		if sleepErr := a.sleeper.Sleep(ctx, model.NavDelay()); sleepErr != nil {
			return sleepErr
		}
	}
	return err
}

// stopIfRaised re-reads the shared flag between transitions. Either
// producer can raise it while a document loads, and a raise cancels the
// rest of the in-flight step: no further extraction, persistence, or
// navigation until the window expires.
func (a *Agent) stopIfRaised(ctx context.Context, p *state.Progress) (Outcome, bool, error) {
	status, err := a.flag.Status(ctx)
	if err != nil {
		return OutcomeHalted, true, fmt.Errorf("read block flag: %w", err)
	}
	if !status.Blocked {
		return "", false, nil
	}
	a.logger.Info("block flag raised mid-step, abandoning the rest",
		zap.Time("until", status.Until),
		zap.String("source", status.Source))
	a.emit(progress.StagePaused, p, p.CurrentTarget(), status.Source)
	return OutcomeBlocked, true, nil
}

func (a *Agent) raiseAndPause(ctx context.Context, p *state.Progress, source, note string) (Outcome, error) {
	status, err := a.flag.Raise(ctx, source, blockguard.RandomTTL(a.rng))
	if err != nil {
		return OutcomeHalted, fmt.Errorf("raise block flag: %w", err)
	}
	metrics.ObserveBlockRaised(source)
	a.logger.Warn("block detected, walk paused",
		zap.String("source", source),
		zap.String("matched", note),
		zap.Time("until", status.Until))
	a.emit(progress.StagePaused, p, p.CurrentTarget(), note)
	return OutcomeBlocked, nil
}

func (a *Agent) deliver(ctx context.Context, p *state.Progress, status string) {
	payload := result.Payload{
		JobID:   p.JobID,
		Token:   p.Token,
		Status:  status,
		Records: p.Results,
		Metadata: result.Metadata{
			ItemsExtracted: len(p.Results),
			Errors:         p.Errors,
			Timestamp:      a.now().UTC(),
		},
	}
	if err := a.results.Deliver(ctx, payload); err != nil {
		a.logger.Error("result delivery failed",
			zap.String("job_id", p.JobID),
			zap.Error(err))
	}
}

func (a *Agent) emit(stage progress.Stage, p *state.Progress, url, note string) {
	a.emitter.Emit(progress.Event{
		JobID: p.JobID,
		TS:    a.now().UTC(),
		Stage: stage,
		Index: p.Cursor,
		Total: len(p.TargetQueue),
		URL:   url,
		Note:  note,
	})
}

// emitBare emits without a loaded progress record (blocked before load).
func (a *Agent) emitBare(stage progress.Stage, note string) {
	p, err := a.store.Load(context.Background())
	if err != nil {
		return
	}
	a.emit(stage, p, "", note)
}

type discardSink struct{}

func (discardSink) Deliver(context.Context, result.Payload) error { return nil }
