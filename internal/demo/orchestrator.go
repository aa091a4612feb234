// Package demo reconciles pre-seeded sample entries: when a listing shows a
// demo entry with a finished transcription but no usable cleanup, the
// orchestrator kicks off cleanup and a default analysis so the list fills in
// without manual clicks.
package demo

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"redline/internal/analysis"
	"redline/internal/logging"
	"redline/internal/poll"
	"redline/internal/services"
)

const defaultPollInterval = 2 * time.Second

// Service is the slice of the remote client the orchestrator needs.
type Service interface {
	StartCleanup(ctx context.Context, transcriptionID string) (*services.CleanedEntry, error)
	CleanupResult(ctx context.Context, id string) (*services.CleanedEntry, error)
	TriggerAnalysis(ctx context.Context, cleanupID, profileID string) (*services.AnalysisRecord, error)
}

// Orchestrator owns the triggered-entry set and per-entry poll loops for one
// session. The set is never cleared while the orchestrator lives, so each
// entry is triggered at most once no matter how often the list is
// reconciled.
type Orchestrator struct {
	svc      Service
	catalog  *analysis.Catalog
	prefix   string
	interval time.Duration
	logger   *slog.Logger
	refresh  func()

	mu        sync.Mutex
	closed    bool
	triggered map[string]bool
	inFlight  int
	watchers  map[string]*watcher

	wg sync.WaitGroup
}

// watcher pairs a poll handle with whether its tick already drained the
// in-flight counter. settled is written by the tick and only read after
// handle.Stop, which orders it.
type watcher struct {
	handle  *poll.Handle
	settled bool
}

// Option customizes the orchestrator.
type Option func(*Orchestrator)

// WithPollInterval overrides the artifact polling cadence (used in tests).
func WithPollInterval(interval time.Duration) Option {
	return func(o *Orchestrator) {
		if interval > 0 {
			o.interval = interval
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logging.NewComponentLogger(logger, "demo")
		}
	}
}

// WithRefresh registers a callback fired whenever an entry reaches a
// terminal cleanup outcome, so the caller can re-list.
func WithRefresh(refresh func()) Option {
	return func(o *Orchestrator) {
		o.refresh = refresh
	}
}

// New constructs an orchestrator for entries whose filename carries the
// given demo prefix.
func New(svc Service, catalog *analysis.Catalog, prefix string, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		svc:       svc,
		catalog:   catalog,
		prefix:    prefix,
		interval:  defaultPollInterval,
		logger:    logging.NewNop(),
		refresh:   func() {},
		triggered: make(map[string]bool),
		watchers:  make(map[string]*watcher),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Eligible reports whether an entry should be auto-triggered: a demo
// filename, a finished transcription, and no cleanup that already reached a
// terminal status.
func (o *Orchestrator) Eligible(entry services.EntrySummary) bool {
	if !strings.HasPrefix(entry.OriginalFilename, o.prefix) {
		return false
	}
	if entry.TranscriptionStatus != services.JobCompleted {
		return false
	}
	return entry.CleanupID == "" || !entry.CleanupStatus.Terminal()
}

// Processing reports whether any triggered entry is still in flight.
func (o *Orchestrator) Processing() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.inFlight > 0
}

// Reconcile triggers cleanup for every eligible entry not yet triggered this
// session. Entries are marked as triggered before any network call is
// issued, so overlapping reconciliation passes cannot double-trigger.
func (o *Orchestrator) Reconcile(ctx context.Context, entries []services.EntrySummary) {
	for _, entry := range entries {
		if !o.Eligible(entry) {
			continue
		}
		o.mu.Lock()
		if o.closed || o.triggered[entry.ID] {
			o.mu.Unlock()
			continue
		}
		o.triggered[entry.ID] = true
		o.inFlight++
		o.mu.Unlock()

		o.wg.Add(1)
		go func(entry services.EntrySummary) {
			defer o.wg.Done()
			o.trigger(ctx, entry)
		}(entry)
	}
}

// Close cancels every per-entry poll loop and blocks until the workers
// drain. A loop cancelled before it settled still has its in-flight slot;
// that slot is released here so Processing goes quiet after teardown. The
// orchestrator stays closed; a new session needs a new instance.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	o.closed = true
	watchers := make([]*watcher, 0, len(o.watchers))
	for _, w := range o.watchers {
		watchers = append(watchers, w)
	}
	o.watchers = make(map[string]*watcher)
	o.mu.Unlock()

	for _, w := range watchers {
		w.handle.Stop()
		if !w.settled {
			o.finish()
		}
	}
	o.wg.Wait()
}

func (o *Orchestrator) trigger(ctx context.Context, entry services.EntrySummary) {
	cleanup, err := o.svc.StartCleanup(ctx, entry.TranscriptionID)
	if err != nil {
		o.logger.Warn("demo cleanup trigger failed",
			logging.String(logging.FieldEntryID, entry.ID),
			logging.Error(err))
		o.finish()
		return
	}
	o.logger.Info("demo cleanup triggered",
		logging.String(logging.FieldEntryID, entry.ID),
		logging.String(logging.FieldJobID, cleanup.ID))

	if cleanup.Status.Terminal() {
		o.conclude(ctx, entry.ID, cleanup)
		return
	}
	o.watch(ctx, entry.ID, cleanup.ID)
}

// watch polls one cleanup job until it reaches a terminal status. The
// handle is tracked so Close can cancel it.
func (o *Orchestrator) watch(ctx context.Context, entryID, cleanupID string) {
	w := &watcher{}
	tick := func(ctx context.Context) bool {
		record, err := o.svc.CleanupResult(ctx, cleanupID)
		if err != nil {
			o.logger.Warn("demo cleanup poll failed",
				logging.String(logging.FieldEntryID, entryID),
				logging.Error(err))
			o.forget(entryID)
			w.settled = true
			o.finish()
			return false
		}
		if !record.Status.Terminal() {
			return true
		}
		o.forget(entryID)
		w.settled = true
		o.conclude(ctx, entryID, record)
		return false
	}

	w.handle = poll.Start(ctx, o.interval, tick)
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		w.handle.Stop()
		if !w.settled {
			o.finish()
		}
		return
	}
	o.watchers[entryID] = w
	o.mu.Unlock()

	// The first tick fires immediately and may already have finished the
	// job; don't leave a spent handle in the map.
	select {
	case <-w.handle.Done():
		o.forget(entryID)
	default:
	}
}

// conclude handles a terminal cleanup: a completed one gets a bonus
// default-profile analysis (failures logged, never surfaced), then the
// refresh callback runs either way.
func (o *Orchestrator) conclude(ctx context.Context, entryID string, cleanup *services.CleanedEntry) {
	if cleanup.Status == services.JobCompleted {
		o.analyzeDefault(ctx, entryID, cleanup.ID)
	}
	o.finish()
	o.refresh()
}

func (o *Orchestrator) analyzeDefault(ctx context.Context, entryID, cleanupID string) {
	profile, ok, err := o.catalog.Default(ctx)
	if err != nil || !ok {
		o.logger.Warn("demo analysis skipped, no default profile",
			logging.String(logging.FieldEntryID, entryID),
			logging.Error(err))
		return
	}
	if _, err := o.svc.TriggerAnalysis(ctx, cleanupID, profile.ID); err != nil {
		o.logger.Warn("demo analysis trigger failed",
			logging.String(logging.FieldEntryID, entryID),
			logging.String(logging.FieldProfile, profile.ID),
			logging.Error(err))
	}
}

func (o *Orchestrator) forget(entryID string) {
	o.mu.Lock()
	delete(o.watchers, entryID)
	o.mu.Unlock()
}

func (o *Orchestrator) finish() {
	o.mu.Lock()
	if o.inFlight > 0 {
		o.inFlight--
	}
	o.mu.Unlock()
}
