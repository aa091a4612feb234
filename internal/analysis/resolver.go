package analysis

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"redline/internal/logging"
	"redline/internal/poll"
	"redline/internal/services"
)

const defaultPollInterval = 2 * time.Second

// Resolver answers "give me the analysis for this profile" for one cleaned
// entry, going through three tiers: session cache, existing backend job,
// fresh trigger. Only completed results enter the cache; at most one poll
// loop runs at a time and re-selecting a profile cancels the previous one.
type Resolver struct {
	svc       Service
	catalog   *Catalog
	cleanupID string
	interval  time.Duration
	logger    *slog.Logger

	mu     sync.Mutex
	cache  map[string]*Result
	handle *poll.Handle
}

// ResolverOption customizes a resolver.
type ResolverOption func(*Resolver)

// WithPollInterval overrides the analysis polling cadence (used in tests).
func WithPollInterval(interval time.Duration) ResolverOption {
	return func(r *Resolver) {
		if interval > 0 {
			r.interval = interval
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logging.NewComponentLogger(logger, "analysis")
		}
	}
}

// NewResolver constructs a resolver bound to one cleanup id.
func NewResolver(svc Service, catalog *Catalog, cleanupID string, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		svc:       svc,
		catalog:   catalog,
		cleanupID: cleanupID,
		interval:  defaultPollInterval,
		logger:    logging.NewNop(),
		cache:     make(map[string]*Result),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Cached returns the cached result for a profile without touching the
// network.
func (r *Resolver) Cached(profileID string) (*Result, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result, ok := r.cache[profileID]
	return result, ok
}

// SelectProfile resolves the analysis for a profile and blocks until a
// terminal outcome. A cache hit returns immediately with no network call.
// Otherwise an existing backend job for the profile is reused (completed
// jobs are fetched, in-flight ones polled); only when none exists is a new
// job triggered.
func (r *Resolver) SelectProfile(ctx context.Context, profileID string) (*Result, error) {
	if result, ok := r.Cached(profileID); ok {
		return result, nil
	}
	r.Stop()

	existing, err := r.svc.AnalysesForCleanup(ctx, r.cleanupID)
	if err != nil {
		return nil, err
	}
	for _, record := range existing {
		if record.ProfileID != profileID {
			continue
		}
		switch record.Status {
		case services.JobCompleted:
			// List responses omit the payload; fetch the full record.
			return r.fetchAndCache(ctx, record.ID, profileID)
		case services.JobFailed:
			// A previously failed job does not block a fresh attempt.
		default:
			return r.await(ctx, record.ID, profileID)
		}
	}

	triggered, err := r.svc.TriggerAnalysis(ctx, r.cleanupID, profileID)
	if err != nil {
		return nil, err
	}
	r.logger.Info("analysis triggered",
		logging.String(logging.FieldProfile, profileID),
		logging.String(logging.FieldJobID, triggered.ID))
	if triggered.Status == services.JobCompleted {
		return r.fetchAndCache(ctx, triggered.ID, profileID)
	}
	return r.await(ctx, triggered.ID, profileID)
}

// Seed loads the cache from an entry's pre-existing analyses: the catalog's
// default profile wins when present among them, otherwise the first record.
// A non-terminal seed record is polled to completion in the background. The
// chosen profile id is returned so callers can reflect the selection.
func (r *Resolver) Seed(ctx context.Context, records []services.AnalysisRecord) (string, error) {
	if len(records) == 0 {
		return "", nil
	}
	chosen := records[0]
	if def, ok, err := r.catalog.Default(ctx); err == nil && ok {
		for _, record := range records {
			if record.ProfileID == def.ID {
				chosen = record
				break
			}
		}
	}

	switch chosen.Status {
	case services.JobCompleted:
		if _, err := r.fetchAndCache(ctx, chosen.ID, chosen.ProfileID); err != nil {
			return chosen.ProfileID, err
		}
	case services.JobFailed:
		return chosen.ProfileID, services.Wrap(services.ErrJobFailed, "analysis", jobMessage(&chosen), nil)
	default:
		r.Stop()
		r.startBackgroundPoll(ctx, chosen.ID, chosen.ProfileID)
	}
	return chosen.ProfileID, nil
}

// Stop cancels the in-flight poll loop, if any.
func (r *Resolver) Stop() {
	r.mu.Lock()
	handle := r.handle
	r.handle = nil
	r.mu.Unlock()
	if handle != nil {
		handle.Stop()
	}
}

func (r *Resolver) fetchAndCache(ctx context.Context, analysisID, profileID string) (*Result, error) {
	record, err := r.svc.Analysis(ctx, analysisID)
	if err != nil {
		return nil, err
	}
	return r.cacheRecord(record, profileID)
}

// cacheRecord parses a completed record and stores it under its profile. A
// later completion for the same profile overwrites the earlier one.
func (r *Resolver) cacheRecord(record *services.AnalysisRecord, profileID string) (*Result, error) {
	result, err := ParseResult(record.Result)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.cache[profileID] = result
	r.mu.Unlock()
	return result, nil
}

// await polls one analysis id until it reaches a terminal status, then
// resolves the outcome. It waits on the handle of the loop it started, not
// the published one, so a concurrent selection swapping the handle cannot
// strand it on someone else's loop.
func (r *Resolver) await(ctx context.Context, analysisID, profileID string) (*Result, error) {
	outcome, handle := r.startPoll(ctx, analysisID, profileID)
	<-handle.Done()

	outcome.mu.Lock()
	defer outcome.mu.Unlock()
	return outcome.result, outcome.err
}

func (r *Resolver) startBackgroundPoll(ctx context.Context, analysisID, profileID string) {
	r.startPoll(ctx, analysisID, profileID)
}

type pollOutcome struct {
	mu     sync.Mutex
	result *Result
	err    error
}

func (r *Resolver) startPoll(ctx context.Context, analysisID, profileID string) (*pollOutcome, *poll.Handle) {
	outcome := &pollOutcome{}
	tick := func(ctx context.Context) bool {
		record, err := r.svc.Analysis(ctx, analysisID)
		if err != nil {
			outcome.mu.Lock()
			outcome.err = err
			outcome.mu.Unlock()
			return false
		}
		switch record.Status {
		case services.JobCompleted:
			result, err := r.cacheRecord(record, profileID)
			outcome.mu.Lock()
			outcome.result, outcome.err = result, err
			outcome.mu.Unlock()
			return false
		case services.JobFailed:
			outcome.mu.Lock()
			outcome.err = services.Wrap(services.ErrJobFailed, "analysis", jobMessage(record), nil)
			outcome.mu.Unlock()
			r.logger.Warn("analysis failed",
				logging.String(logging.FieldProfile, profileID),
				logging.String(logging.FieldJobID, analysisID))
			return false
		default:
			return true
		}
	}

	handle := poll.Start(ctx, r.interval, tick)
	r.mu.Lock()
	r.handle = handle
	r.mu.Unlock()
	return outcome, handle
}

func jobMessage(record *services.AnalysisRecord) string {
	if record != nil && record.ErrorMessage != "" {
		return record.ErrorMessage
	}
	return "analysis failed"
}
