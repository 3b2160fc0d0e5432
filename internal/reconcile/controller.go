package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"reconciler/internal/annotation"
	"reconciler/internal/logging"
	"reconciler/internal/matching"
	"reconciler/internal/provenance"
	"reconciler/internal/registry"
	"reconciler/internal/scanner"
	"reconciler/internal/services"
	"reconciler/internal/textutil"
)

// BlockScanner yields the next key block.
type BlockScanner interface {
	Next(ctx context.Context, cp scanner.Checkpoint) (scanner.Block, scanner.Checkpoint, error)
}

// RowOpener begins interactive work on a source row.
type RowOpener interface {
	Open(ctx context.Context, row scanner.Row) error
}

// Searcher looks up a key in the registry.
type Searcher interface {
	Search(ctx context.Context, key string) registry.LookupResult
}

// Extractor reads provenance from a selected candidate.
type Extractor interface {
	Extract(ctx context.Context, candidate registry.Candidate) (provenance.Result, error)
}

// Writer commits an outcome onto a record.
type Writer interface {
	Write(ctx context.Context, record scanner.Record, outcome annotation.Outcome) error
}

// SessionSwitcher runs fn with the registry session active and restores the source session.
type SessionSwitcher interface {
	WithRegistry(ctx context.Context, fn func(context.Context) error) error
}

// ReportSink receives each report as soon as its block is advanced past.
type ReportSink interface {
	RecordReport(ctx context.Context, report ResolutionReport) error
}

// Dependencies bundles the controller collaborators. Reports is optional.
type Dependencies struct {
	Scanner   BlockScanner
	Source    RowOpener
	Search    Searcher
	Extractor Extractor
	Writer    Writer
	Sessions  SessionSwitcher
	Reports   ReportSink
	Logger    *slog.Logger
}

// Options tunes the controller.
type Options struct {
	// FailureLimit is the consecutive failure count that stops the run. Defaults to 3.
	FailureLimit int
	// InteractionTimeout bounds the work on one block. Zero disables the bound.
	InteractionTimeout time.Duration
}

const defaultFailureLimit = 3

// Controller drives the scan, resolve, annotate, advance loop. It processes one
// block at a time and is not safe for concurrent Step calls.
type Controller struct {
	deps     Dependencies
	opts     Options
	logger   *slog.Logger
	outcomes map[string]annotation.Outcome
}

// NewController validates the collaborators and returns a controller.
func NewController(deps Dependencies, opts Options) (*Controller, error) {
	switch {
	case deps.Scanner == nil:
		return nil, services.Wrap(services.ErrConfiguration, "controller", "init", "scanner required", nil)
	case deps.Source == nil:
		return nil, services.Wrap(services.ErrConfiguration, "controller", "init", "record source required", nil)
	case deps.Search == nil:
		return nil, services.Wrap(services.ErrConfiguration, "controller", "init", "search client required", nil)
	case deps.Extractor == nil:
		return nil, services.Wrap(services.ErrConfiguration, "controller", "init", "extractor required", nil)
	case deps.Writer == nil:
		return nil, services.Wrap(services.ErrConfiguration, "controller", "init", "annotation writer required", nil)
	case deps.Sessions == nil:
		return nil, services.Wrap(services.ErrConfiguration, "controller", "init", "session multiplexer required", nil)
	}
	if opts.FailureLimit <= 0 {
		opts.FailureLimit = defaultFailureLimit
	}
	return &Controller{
		deps:     deps,
		opts:     opts,
		logger:   logging.NewComponentLogger(deps.Logger, "controller"),
		outcomes: make(map[string]annotation.Outcome),
	}, nil
}

// Run starts from an empty checkpoint and steps until a stop condition.
func (c *Controller) Run(ctx context.Context) RunSummary {
	start := time.Now()
	var (
		state   RunState
		cp      scanner.Checkpoint
		summary RunSummary
	)
	logger := logging.WithContext(ctx, c.logger)
	logger.Info("run started",
		logging.Int("failure_limit", c.opts.FailureLimit),
		logging.String(logging.FieldEventType, "run_started"),
	)
	for {
		step := c.Step(ctx, state, cp)
		state, cp = step.State, step.Checkpoint
		if step.Report != nil {
			if step.Report.Failed {
				summary.TotalFailures++
			}
			if step.Report.Reused {
				summary.Reused++
			}
		}
		if step.Stop != StopNone {
			summary.StopReason = step.Stop
			break
		}
	}
	summary.RecordsProcessed = state.RecordsProcessed
	summary.ConsecutiveFailures = state.ConsecutiveFailures
	summary.Checkpoint = cp
	summary.Duration = time.Since(start)

	attrs := logging.RunStopAttrs(string(summary.StopReason), summary.RecordsProcessed,
		summary.TotalFailures, summary.ConsecutiveFailures, summary.Duration)
	if summary.StopReason == StopFailureLimit {
		logging.ErrorWithContext(logger, "run stopped at failure limit", "run_failure_limit",
			append(attrs, logging.String(logging.FieldErrorHint, "check registry availability and the last failed records"))...)
	} else {
		logger.Info("run stopped", logging.Args(attrs...)...)
	}
	return summary
}

// Step performs one pass of the state machine: scan a block, resolve it,
// annotate the head record, and advance the checkpoint. Stop conditions are
// checked before scanning and after advancing.
func (c *Controller) Step(ctx context.Context, state RunState, cp scanner.Checkpoint) StepResult {
	result := StepResult{State: state, Checkpoint: cp}
	if ctx.Err() != nil {
		result.Stop = StopCanceled
		return result
	}
	if state.ConsecutiveFailures >= c.opts.FailureLimit {
		result.Stop = StopFailureLimit
		return result
	}

	scanCtx := services.WithState(ctx, string(StateScanning))
	block, next, err := c.deps.Scanner.Next(scanCtx, cp)
	if err != nil {
		report := &ResolutionReport{Failed: true, FailedState: StateScanning, Err: err, Key: cp.NextKey, Position: cp.NextPosition}
		logging.WarnWithContext(logging.WithContext(scanCtx, c.logger), "scan failed; counting as record failure", "scan_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorKind, string(services.Kind(err))),
			logging.String(logging.FieldImpact, "checkpoint not advanced"),
		)
		result.State.ConsecutiveFailures++
		result.Report = report
		c.publish(ctx, *report)
		result.Stop = c.stopAfterAdvance(ctx, result.State)
		return result
	}
	if block.Empty() {
		result.Stop = StopExhausted
		return result
	}

	result.State.RecordsProcessed++
	report := c.resolve(ctx, block)

	result.Checkpoint = next
	if report.Failed {
		result.State.ConsecutiveFailures++
	} else {
		result.State.ConsecutiveFailures = 0
	}
	result.Report = &report
	c.publish(ctx, report)
	result.Stop = c.stopAfterAdvance(ctx, result.State)
	return result
}

func (c *Controller) stopAfterAdvance(ctx context.Context, state RunState) StopReason {
	switch {
	case ctx.Err() != nil:
		return StopCanceled
	case state.ConsecutiveFailures >= c.opts.FailureLimit:
		return StopFailureLimit
	default:
		return StopNone
	}
}

// resolve carries one block through searching, disambiguating, extracting,
// and annotating. Failures end the block early and are recorded on the report.
func (c *Controller) resolve(ctx context.Context, block scanner.Block) ResolutionReport {
	start := time.Now()
	head := block.Head()
	report := ResolutionReport{
		Key:      block.Key,
		Position: head.Position,
		Rows:     len(block.Records),
		Tier:     matching.TierNone,
	}

	recordCtx := services.WithRecordKey(ctx, block.Key)
	recordCtx = services.WithPosition(recordCtx, head.Position)
	if c.opts.InteractionTimeout > 0 {
		var cancel context.CancelFunc
		recordCtx, cancel = context.WithTimeout(recordCtx, c.opts.InteractionTimeout)
		defer cancel()
	}

	current := StateSearching
	fail := func(err error) ResolutionReport {
		report.Failed = true
		report.FailedState = current
		report.Err = err
		report.Duration = time.Since(start)
		logger := logging.WithContext(services.WithState(recordCtx, string(current)), c.logger)
		logging.WarnWithContext(logger, "record failed; skipping", "record_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorKind, string(services.Kind(err))),
			logging.Int("rows", report.Rows),
		)
		return report
	}

	if err := c.deps.Source.Open(services.WithState(recordCtx, string(current)), head.Row); err != nil {
		return fail(services.Wrap(services.ErrTransient, "controller", "open", block.Key, err))
	}

	cacheKey := textutil.Normalize(block.Key)
	outcome, reused := c.outcomes[cacheKey]
	if reused {
		report.Reused = true
		logging.WithContext(recordCtx, c.logger).Info("key already resolved this run; reusing outcome",
			logging.String(logging.FieldEventType, "outcome_reused"),
		)
	} else {
		err := c.deps.Sessions.WithRegistry(recordCtx, func(regCtx context.Context) error {
			var lookupErr error
			outcome, lookupErr = c.lookup(regCtx, block.Key, &report, &current)
			return lookupErr
		})
		if err != nil {
			return fail(err)
		}
	}

	current = StateAnnotating
	if err := c.deps.Writer.Write(services.WithState(recordCtx, string(current)), head, outcome); err != nil {
		return fail(err)
	}

	report.Outcome = outcome
	report.Duration = time.Since(start)
	if !reused {
		c.outcomes[cacheKey] = outcome
	}
	return report
}

// lookup runs the registry half of a block while the registry session is active.
func (c *Controller) lookup(ctx context.Context, key string, report *ResolutionReport, current *State) (annotation.Outcome, error) {
	*current = StateSearching
	result := c.deps.Search.Search(services.WithState(ctx, string(StateSearching)), key)
	report.CandidateCount = len(result.Candidates)
	switch result.Status {
	case registry.StatusUnavailable:
		if result.Err == nil {
			return annotation.Outcome{}, services.Wrap(services.ErrLookupUnavailable, "controller", "search", key, nil)
		}
		return annotation.Outcome{}, result.Err
	case registry.StatusNotFound:
		return annotation.NoResults(nil), nil
	}

	*current = StateDisambiguating
	disambigCtx := services.WithState(ctx, string(StateDisambiguating))
	match := matching.Select(logging.WithContext(disambigCtx, c.logger), key, result.Candidates)
	report.Tier = match.Tier
	report.Score = match.Score
	if !match.Matched() {
		return annotation.NoResults(fmt.Errorf("no selectable candidate among %d", len(result.Candidates))), nil
	}

	*current = StateExtracting
	prov, err := c.deps.Extractor.Extract(services.WithState(ctx, string(StateExtracting)), *match.Candidate)
	if errors.Is(err, services.ErrNotFound) {
		return annotation.NoResults(err), nil
	}
	if err != nil {
		return annotation.Outcome{}, err
	}
	return annotation.NewOutcome(match, prov), nil
}

func (c *Controller) publish(ctx context.Context, report ResolutionReport) {
	if c.deps.Reports == nil {
		return
	}
	if err := c.deps.Reports.RecordReport(context.WithoutCancel(ctx), report); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, c.logger), "report journal write failed", "report_journal_failed",
			logging.Error(err),
			logging.String(logging.FieldRecordKey, report.Key),
			logging.String(logging.FieldImpact, "run history misses this record"),
			logging.String(logging.FieldErrorHint, "check the data directory and database permissions"),
		)
	}
}
