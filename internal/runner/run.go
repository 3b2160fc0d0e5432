package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"reconciler/internal/annotation"
	"reconciler/internal/config"
	"reconciler/internal/logging"
	"reconciler/internal/notifications"
	"reconciler/internal/preflight"
	"reconciler/internal/provenance"
	"reconciler/internal/reconcile"
	"reconciler/internal/registry"
	"reconciler/internal/registry/api"
	"reconciler/internal/scanner"
	"reconciler/internal/services"
	"reconciler/internal/session"
	"reconciler/internal/store"
)

// ErrAlreadyRunning is returned when another process holds the run lock.
var ErrAlreadyRunning = errors.New("another reconciler run is already active")

// Options configures one run.
type Options struct {
	// Preflight runs the readiness checks first and refuses to start when any fails.
	Preflight bool
	// Logger receives run output; nil builds one from the config.
	Logger *slog.Logger
	// Notifier overrides the config-driven notification service.
	Notifier notifications.Service
	// HandleSignals cancels the run on SIGINT and SIGTERM.
	HandleSignals bool
}

// Result describes a finished run.
type Result struct {
	RunID      string
	Summary    reconcile.RunSummary
	RunLogPath string
	Preflight  []preflight.Result
	// Warnings and Errors count the log records of those levels emitted by the run.
	Warnings int64
	Errors   int64
}

// Run takes the run lock, wires the record store and registry client into a
// controller, and drives it until it stops. Per-record failures are reported
// in the summary; only setup problems return an error.
func Run(ctx context.Context, cfg *config.Config, opts Options) (Result, error) {
	if cfg == nil {
		return Result{}, fmt.Errorf("config is required")
	}
	if opts.HandleSignals {
		var cancel context.CancelFunc
		ctx, cancel = signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
		defer cancel()
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return Result{}, services.Wrap(services.ErrConfiguration, "runner", "ensure directories", "", err)
	}

	lock := flock.New(cfg.LockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return Result{}, fmt.Errorf("acquire run lock: %w", err)
	}
	if !ok {
		return Result{}, fmt.Errorf("%w (lock %s)", ErrAlreadyRunning, cfg.LockPath())
	}
	defer func() { _ = lock.Unlock() }()

	runID := uuid.NewString()
	result := Result{RunID: runID}
	ctx = services.WithRunID(ctx, runID)

	logger := opts.Logger
	if logger == nil {
		logger, err = logging.NewFromConfig(cfg)
		if err != nil {
			return result, fmt.Errorf("init logger: %w", err)
		}
	}
	runHandler, runLog, runLogErr := logging.OpenRunLog(cfg.RunLogDir(), runID, cfg.Logging.Level)
	if runLogErr == nil {
		defer runLog.Close()
		result.RunLogPath = cfg.RunLogPath(runID)
	}
	logger, tally := logging.NewRunLogger(logger, runHandler)
	if runLogErr != nil {
		logging.WarnWithContext(logger, "run log unavailable", "run_log_unavailable",
			logging.Error(runLogErr),
			logging.String(logging.FieldImpact, "run output only goes to the shared log"),
			logging.String(logging.FieldErrorHint, "check log_dir permissions"),
		)
	}
	logger = logging.NewComponentLogger(logger, "runner")
	if removed := logging.CleanupRunLogs(logger, cfg.RunLogDir(), cfg.Logging.RetentionDays, runID); removed > 0 {
		logger.Debug("pruned run logs", logging.Int("removed", removed))
	}

	notifier := opts.Notifier
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}

	if opts.Preflight {
		result.Preflight = preflight.RunAll(ctx, cfg)
		if failed := preflight.Failed(result.Preflight); len(failed) > 0 {
			names := make([]string, 0, len(failed))
			for _, r := range failed {
				names = append(names, fmt.Sprintf("%s: %s", r.Name, r.Detail))
			}
			err := services.Wrap(services.ErrConfiguration, "runner", "preflight", strings.Join(names, "; "), nil)
			notify(ctx, logger, notifier, notifications.EventError, notifications.Payload{"context": "preflight", "error": err})
			return result, err
		}
	}

	st, err := store.Open(cfg)
	if err != nil {
		return result, fmt.Errorf("open store: %w", err)
	}
	client, err := api.FromConfig(cfg.Registry)
	if err != nil {
		_ = st.Close()
		return result, services.Wrap(services.ErrConfiguration, "runner", "registry client", "", err)
	}
	mux, err := session.NewMultiplexer(st, client, logger)
	if err != nil {
		_ = st.Close()
		return result, err
	}
	defer func() {
		if err := mux.Close(); err != nil {
			logger.Warn("session close failed", logging.Error(err))
		}
	}()

	total, resolved, err := st.Counts(ctx)
	if err != nil {
		return result, err
	}
	started := time.Now()
	if err := st.CreateRun(ctx, runID, started); err != nil {
		return result, err
	}

	journal := newJournal(st, runID)
	ctrl, err := reconcile.NewController(reconcile.Dependencies{
		Scanner:   scanner.New(st, logger),
		Source:    st,
		Search:    registry.NewSearchClient(client, registry.WithRateLimit(cfg.Registry.RateLimit()), registry.WithLogger(logger)),
		Extractor: provenance.NewExtractor(client, logger),
		Writer:    annotation.NewWriter(st, logger),
		Sessions:  mux,
		Reports:   journal,
		Logger:    logger,
	}, reconcile.Options{
		FailureLimit:       cfg.Run.FailureLimit,
		InteractionTimeout: cfg.Run.InteractionTimeoutDuration(),
	})
	if err != nil {
		return result, err
	}

	logger.Info("reconciliation run starting",
		logging.String(logging.FieldEventType, "run_starting"),
		logging.String("database", st.Path()),
		logging.String("registry", cfg.Registry.BaseURL),
		logging.Bool("api_key_present", cfg.Registry.APIKey != ""),
		logging.Int("records_total", total),
		logging.Int("records_pending", total-resolved),
	)
	notify(ctx, logger, notifier, notifications.EventRunStarted, notifications.Payload{"runID": runID, "pending": total - resolved})

	summary := ctrl.Run(ctx)
	result.Summary = summary

	finishCtx := context.WithoutCancel(ctx)
	if err := st.FinishRun(finishCtx, runID, store.RunTotals{
		StopReason:          string(summary.StopReason),
		RecordsProcessed:    summary.RecordsProcessed,
		ConsecutiveFailures: summary.ConsecutiveFailures,
		TotalFailures:       summary.TotalFailures,
	}); err != nil {
		logging.WarnWithContext(logger, "run journal finish failed", "run_journal_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "history shows the run as unfinished"),
		)
	}

	if summary.StopReason == reconcile.StopFailureLimit {
		notify(finishCtx, logger, notifier, notifications.EventFailureLimit, notifications.Payload{
			"runID":     runID,
			"failures":  summary.ConsecutiveFailures,
			"lastError": journal.lastError(),
		})
	}
	notify(finishCtx, logger, notifier, notifications.EventRunCompleted, notifications.Payload{
		"runID":      runID,
		"stopReason": string(summary.StopReason),
		"processed":  summary.RecordsProcessed,
		"failed":     summary.TotalFailures,
		"duration":   summary.Duration,
	})
	result.Warnings = tally.Warnings()
	result.Errors = tally.Errors()
	return result, nil
}

func notify(ctx context.Context, logger *slog.Logger, notifier notifications.Service, event notifications.Event, payload notifications.Payload) {
	if err := notifier.Publish(ctx, event, payload); err != nil {
		logging.WarnWithContext(logger, "notification failed", "notification_failed",
			logging.Error(err),
			logging.String("notification_event", string(event)),
			logging.String(logging.FieldImpact, "run continues without this notification"),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
		)
	}
}
