// Package reaper implements the sweep engine: it streams candidate
// resources from the tracker, classifies each against the configured
// policy, and applies the resulting mutations with retry and
// partial-failure isolation.
package reaper

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/stalesweep/stalesweep/internal/policy"
	"github.com/stalesweep/stalesweep/internal/telemetry"
	"github.com/stalesweep/stalesweep/internal/tracker"
)

// Defaults for engine options.
const (
	DefaultConcurrency      = 4
	DefaultOperationTimeout = 30 * time.Second
)

// Options tune one run. The zero value gets sensible defaults from New.
type Options struct {
	// Concurrency bounds in-flight resources across all sweeps. Both
	// kinds share one limit so concurrent sweeps respect a single API
	// budget.
	Concurrency int

	// DryRun classifies and reports but mutates nothing.
	DryRun bool

	// BotLogin is the account this reaper acts as. Its own comments and
	// label events do not count as activity unless
	// BotActivityResetsClock is set.
	BotLogin string

	// BotActivityResetsClock makes bot-authored activity reset the
	// staleness clock. Off by default: with it on, the reaper's own
	// stale comment keeps every marked resource alive.
	BotActivityResetsClock bool

	// OperationTimeout bounds each tracker call.
	OperationTimeout time.Duration

	// OperationsBudget caps how many resources may be mutated per run.
	// Zero means unlimited. Resources past the budget are skipped and
	// picked up by the next run.
	OperationsBudget int
}

// Engine executes one run: a sweep per configured kind.
type Engine struct {
	trk      tracker.Tracker
	policies map[tracker.Kind]policy.Policy
	opts     Options
	log      *slog.Logger
	rec      *telemetry.SweepRecorder
	sem      *semaphore.Weighted
	budget   *opBudget

	// Stubbed in tests: the clock, and the retry schedule (so retry
	// paths run without wall-clock sleeps).
	now        func() time.Time
	newBackoff func() backoff.BackOff
}

// New builds an Engine. policies maps each kind to sweep to its policy;
// kinds without an entry are not swept.
func New(trk tracker.Tracker, policies map[tracker.Kind]policy.Policy, opts Options, log *slog.Logger, rec *telemetry.SweepRecorder) *Engine {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.OperationTimeout <= 0 {
		opts.OperationTimeout = DefaultOperationTimeout
	}
	if log == nil {
		log = slog.Default()
	}

	var budget *opBudget
	if opts.OperationsBudget > 0 {
		budget = &opBudget{remaining: opts.OperationsBudget}
	}

	return &Engine{
		trk:        trk,
		policies:   policies,
		opts:       opts,
		log:        log,
		rec:        rec,
		sem:        semaphore.NewWeighted(int64(opts.Concurrency)),
		budget:     budget,
		now:        time.Now,
		newBackoff: newMutationBackoff,
	}
}

// Run executes one sweep per configured kind. Kinds run concurrently;
// per-resource failures are recorded in the summary and never abort a
// sweep. The returned error is non-nil only for run-level failures
// (listing or enrichment infrastructure completely unavailable).
func (e *Engine) Run(ctx context.Context) (*Summary, error) {
	summary := &Summary{DryRun: e.opts.DryRun}
	start := e.now()

	var g errgroup.Group
	for _, kind := range tracker.Kinds {
		pol, ok := e.policies[kind]
		if !ok {
			continue
		}
		kind, pol := kind, pol
		g.Go(func() error {
			return e.sweep(ctx, kind, pol, summary)
		})
	}

	err := g.Wait()
	summary.Duration = time.Since(start)
	return summary, err
}

// sweep streams one kind's candidates through the classify-then-mutate
// pipeline. Listing is the only fatal failure here; everything
// per-resource lands in the summary.
func (e *Engine) sweep(ctx context.Context, kind tracker.Kind, pol policy.Policy, summary *Summary) (err error) {
	ctx, end := e.rec.StartSweep(ctx, string(kind))
	defer func() { end(err) }()

	log := e.log.With("kind", kind)
	log.Debug("sweep started")

	var wg sync.WaitGroup
	defer wg.Wait()

	page := 1
	for page != 0 {
		if ctx.Err() != nil {
			summary.markTruncated()
			log.Warn("sweep truncated by cancellation")
			return nil
		}

		var resources []tracker.Resource
		var next int
		listErr := e.withRetry(ctx, func(opCtx context.Context) error {
			var lerr error
			resources, next, lerr = e.trk.ListCandidates(opCtx, kind, page)
			return lerr
		})
		if listErr != nil {
			return fmt.Errorf("listing %s candidates (page %d): %w", kind, page, listErr)
		}

		for _, res := range resources {
			if ctx.Err() != nil {
				summary.markTruncated()
				log.Warn("sweep truncated by cancellation")
				return nil
			}
			if acqErr := e.sem.Acquire(ctx, 1); acqErr != nil {
				summary.markTruncated()
				return nil
			}
			wg.Add(1)
			go func(res tracker.Resource) {
				defer wg.Done()
				defer e.sem.Release(1)
				e.process(ctx, res, pol, summary)
			}(res)
		}

		page = next
	}

	log.Debug("sweep finished")
	return nil
}

// process runs classify-then-mutate for a single resource.
func (e *Engine) process(ctx context.Context, res tracker.Resource, pol policy.Policy, summary *Summary) {
	summary.recordInspected()
	e.rec.Inspected(ctx, string(res.Kind))
	log := e.log.With("resource", res.ID)

	if res.HasLabel(pol.StaleLabel) {
		if !e.enrich(ctx, &res, pol, summary, log) {
			return
		}
	}

	action := policy.Classify(res, pol, e.now())
	log.Debug("classified", "action", action.String())
	if action == policy.NoAction {
		return
	}

	if e.opts.DryRun {
		log.Info("dry run, not applying", "action", action.String())
		e.recordAction(ctx, res, action, summary)
		return
	}

	if !e.budget.allow() {
		summary.recordSkipped()
		log.Info("operations budget spent, skipping", "action", action.String())
		return
	}

	if err := e.apply(ctx, res, pol, action); err != nil {
		if tracker.IsNotFound(err) {
			// Deleted or closed concurrently by a human; not an error.
			summary.recordSkipped()
			log.Debug("resource vanished during mutation, skipping")
			return
		}
		summary.recordFailure(res.ID)
		e.rec.Failed(ctx, string(res.Kind))
		log.Error("mutation failed", "action", action.String(), "error", err)
		return
	}

	e.recordAction(ctx, res, action, summary)
	log.Info("applied", "action", action.String())
}

// enrich resolves the stale-mark timestamp and the effective activity
// clock for a resource carrying the stale label. Returns false when the
// resource should not be processed further.
func (e *Engine) enrich(ctx context.Context, res *tracker.Resource, pol policy.Policy, summary *Summary, log *slog.Logger) bool {
	excludeLogin := e.opts.BotLogin
	if e.opts.BotActivityResetsClock {
		excludeLogin = ""
	}

	var details tracker.StaleDetails
	err := e.withRetry(ctx, func(opCtx context.Context) error {
		var derr error
		details, derr = e.trk.StaleDetails(opCtx, *res, pol.StaleLabel, excludeLogin)
		return derr
	})
	if err != nil {
		if tracker.IsNotFound(err) {
			summary.recordSkipped()
			log.Debug("resource vanished before enrichment, skipping")
			return false
		}
		summary.recordFailure(res.ID)
		e.rec.Failed(ctx, string(res.Kind))
		log.Error("stale details lookup failed", "error", err)
		return false
	}

	markedAt := details.MarkedAt
	if markedAt.IsZero() {
		// Label present but its event is unrecoverable; treat the
		// tracker-reported last update as the mark time.
		markedAt = res.LastActivityAt
	}
	res.StaleMarkedAt = &markedAt

	if !details.LastActivityAt.IsZero() {
		res.LastActivityAt = details.LastActivityAt
	} else {
		res.LastActivityAt = markedAt
	}
	return true
}

// apply performs the mutation set for an action. Each tracker call gets
// its own retry envelope.
func (e *Engine) apply(ctx context.Context, res tracker.Resource, pol policy.Policy, action policy.Action) error {
	switch action {
	case policy.MarkStale:
		if err := e.withRetry(ctx, func(opCtx context.Context) error {
			return e.trk.AddLabel(opCtx, res, pol.StaleLabel)
		}); err != nil {
			return err
		}
		if pol.StaleMessage == "" {
			return nil
		}
		return e.withRetry(ctx, func(opCtx context.Context) error {
			return e.trk.PostComment(opCtx, res, pol.StaleMessage)
		})

	case policy.Close:
		if pol.CloseMessage != "" {
			if err := e.withRetry(ctx, func(opCtx context.Context) error {
				return e.trk.PostComment(opCtx, res, pol.CloseMessage)
			}); err != nil {
				return err
			}
		}
		return e.withRetry(ctx, func(opCtx context.Context) error {
			return e.trk.Close(opCtx, res)
		})

	case policy.Reset:
		return e.withRetry(ctx, func(opCtx context.Context) error {
			return e.trk.RemoveLabel(opCtx, res, pol.StaleLabel)
		})

	default:
		return fmt.Errorf("unexpected action %v", action)
	}
}

func (e *Engine) recordAction(ctx context.Context, res tracker.Resource, action policy.Action, summary *Summary) {
	switch action {
	case policy.MarkStale:
		summary.recordMarked()
	case policy.Close:
		summary.recordClosed()
	case policy.Reset:
		summary.recordReset()
	}
	e.rec.Applied(ctx, string(res.Kind), action.String())
}

// opBudget is the shared mutation budget. A nil budget allows everything.
type opBudget struct {
	mu        sync.Mutex
	remaining int
}

func (b *opBudget) allow() bool {
	if b == nil {
		return true
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.remaining <= 0 {
		return false
	}
	b.remaining--
	return true
}
