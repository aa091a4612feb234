package pipeline

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"redline/internal/logging"
	"redline/internal/poll"
	"redline/internal/services"
	"redline/internal/transcript"
)

const defaultPollInterval = 2 * time.Second

// Service is the slice of the remote client the pipeline needs.
type Service interface {
	SubmitAudio(ctx context.Context, filename string, audio io.Reader, opts services.UploadOptions) (*services.UploadReceipt, error)
	TranscriptionStatus(ctx context.Context, id string) (*services.Transcription, error)
	CleanupResult(ctx context.Context, id string) (*services.CleanedEntry, error)
	Entry(ctx context.Context, id string) (*services.EntryDetails, error)
	SaveUserEdit(ctx context.Context, cleanupID, text string) error
	RevertUserEdit(ctx context.Context, cleanupID string) error
}

// Runner owns exactly one pipeline job at a time. Starting a new upload or
// loading a different entry replaces the previous job and cancels its
// polling.
type Runner struct {
	svc      Service
	logger   *slog.Logger
	interval time.Duration

	mu              sync.Mutex
	status          Status
	errorMessage    string
	entryID         string
	transcriptionID string
	cleanupID       string
	duration        float64
	transcription   *services.Transcription
	segments        []transcript.Segment
	analyses        []services.AnalysisRecord
	// previousEdits holds the value CurrentText had before the last revert,
	// keyed by segment id, so one undo is always possible.
	previousEdits map[string]string
	handle        *poll.Handle

	// persistWG tracks fire-and-forget edit persistence for tests.
	persistWG sync.WaitGroup
}

// Option customizes the runner.
type Option func(*Runner)

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logging.NewComponentLogger(logger, "pipeline")
		}
	}
}

// WithPollInterval overrides the job polling cadence (used in tests).
func WithPollInterval(interval time.Duration) Option {
	return func(r *Runner) {
		if interval > 0 {
			r.interval = interval
		}
	}
}

// NewRunner constructs a pipeline runner.
func NewRunner(svc Service, opts ...Option) *Runner {
	r := &Runner{
		svc:           svc,
		logger:        logging.NewNop(),
		interval:      defaultPollInterval,
		status:        StatusIdle,
		previousEdits: make(map[string]string),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Upload submits audio and polls transcription then cleanup to completion.
// Any previous job is discarded first.
func (r *Runner) Upload(ctx context.Context, filename string, audio io.Reader, opts services.UploadOptions) error {
	r.Reset()

	r.setStatus(StatusUploading)
	receipt, err := r.svc.SubmitAudio(ctx, filename, audio, opts)
	if err != nil {
		r.fail(err)
		return err
	}

	r.mu.Lock()
	r.entryID = receipt.EntryID
	r.transcriptionID = receipt.TranscriptionID
	r.cleanupID = receipt.CleanupID
	r.mu.Unlock()
	r.setStatus(StatusTranscribing)

	r.logger.Info("audio submitted",
		logging.String(logging.FieldEntryID, receipt.EntryID),
		logging.String(logging.FieldJobID, receipt.TranscriptionID))

	r.startPolling(ctx)
	return nil
}

// Wait blocks until the current poll loop exits. It returns immediately when
// no loop is running.
func (r *Runner) Wait() {
	r.mu.Lock()
	handle := r.handle
	r.mu.Unlock()
	if handle != nil {
		<-handle.Done()
	}
}

// LoadEntry fetches an already-processed entry in one shot. When the
// upstream jobs are still running the status reflects that stage but no
// polling starts; callers that want automatic resumption use ResumePolling.
func (r *Runner) LoadEntry(ctx context.Context, entryID string) error {
	r.Reset()
	r.setStatusDirect(StatusLoading)

	details, err := r.svc.Entry(ctx, entryID)
	if err != nil {
		r.fail(err)
		return err
	}

	r.mu.Lock()
	r.entryID = details.ID
	r.duration = details.DurationSeconds
	r.transcription = details.Transcription
	r.analyses = details.Analyses
	if details.Transcription != nil {
		r.transcriptionID = details.Transcription.ID
	}
	if details.Cleanup != nil {
		r.cleanupID = details.Cleanup.ID
	}
	r.mu.Unlock()

	switch {
	case details.Transcription == nil || !details.Transcription.Status.Terminal():
		r.setStatusDirect(StatusTranscribing)
	case details.Transcription.Status == services.JobFailed:
		r.failMessage(jobError(details.Transcription.ErrorMessage, "transcription failed"))
	case details.Cleanup == nil || !details.Cleanup.Status.Terminal():
		r.setStatusDirect(StatusCleaning)
	case details.Cleanup.Status == services.JobFailed:
		r.failMessage(jobError(details.Cleanup.ErrorMessage, "cleanup failed"))
	default:
		r.finish(details.Transcription, details.Cleanup)
	}
	return nil
}

// ResumePolling restarts the poll loop for a job loaded mid-flight. It is a
// no-op unless the job sits in a pollable stage.
func (r *Runner) ResumePolling(ctx context.Context) {
	r.mu.Lock()
	status := r.status
	running := r.handle != nil
	r.mu.Unlock()
	if running || (status != StatusTranscribing && status != StatusCleaning) {
		return
	}
	r.startPolling(ctx)
}

// Reset clears all state and stops any in-flight polling.
func (r *Runner) Reset() {
	r.mu.Lock()
	handle := r.handle
	r.handle = nil
	r.mu.Unlock()
	if handle != nil {
		handle.Stop()
	}

	r.mu.Lock()
	r.status = StatusIdle
	r.errorMessage = ""
	r.entryID = ""
	r.transcriptionID = ""
	r.cleanupID = ""
	r.duration = 0
	r.transcription = nil
	r.segments = nil
	r.analyses = nil
	r.previousEdits = make(map[string]string)
	r.mu.Unlock()
}

// Status returns the current job status.
func (r *Runner) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// ErrorMessage returns the human-readable failure text, if any.
func (r *Runner) ErrorMessage() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.errorMessage
}

// EntryID returns the id of the entry the job belongs to.
func (r *Runner) EntryID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.entryID
}

// CleanupID returns the cleanup record id once known.
func (r *Runner) CleanupID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cleanupID
}

// Analyses returns analysis records loaded with the entry.
func (r *Runner) Analyses() []services.AnalysisRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]services.AnalysisRecord, len(r.analyses))
	copy(out, r.analyses)
	return out
}

// Segments returns a snapshot of the current segment list.
func (r *Runner) Segments() []transcript.Segment {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]transcript.Segment, len(r.segments))
	copy(out, r.segments)
	return out
}

func (r *Runner) startPolling(ctx context.Context) {
	handle := poll.Start(ctx, r.interval, r.pollTick)
	r.mu.Lock()
	r.handle = handle
	r.mu.Unlock()
}

// pollTick advances the job one step. Transcription completion and the first
// cleanup fetch happen within the same tick so a finished backend needs only
// one round.
func (r *Runner) pollTick(ctx context.Context) bool {
	r.mu.Lock()
	status := r.status
	transcriptionID := r.transcriptionID
	r.mu.Unlock()

	if status == StatusTranscribing {
		record, err := r.svc.TranscriptionStatus(ctx, transcriptionID)
		if err != nil {
			r.fail(err)
			return false
		}
		switch record.Status {
		case services.JobFailed:
			r.failMessage(jobError(record.ErrorMessage, "transcription failed"))
			return false
		case services.JobCompleted:
			r.mu.Lock()
			r.transcription = record
			r.mu.Unlock()
			r.setStatus(StatusCleaning)
		default:
			return true
		}
	}

	return r.checkCleanup(ctx)
}

func (r *Runner) checkCleanup(ctx context.Context) bool {
	r.mu.Lock()
	cleanupID := r.cleanupID
	transcription := r.transcription
	r.mu.Unlock()

	record, err := r.svc.CleanupResult(ctx, cleanupID)
	if err != nil {
		r.fail(err)
		return false
	}
	switch record.Status {
	case services.JobFailed:
		r.failMessage(jobError(record.ErrorMessage, "cleanup failed"))
		return false
	case services.JobCompleted:
		r.finish(transcription, record)
		return false
	default:
		return true
	}
}

func (r *Runner) finish(transcription *services.Transcription, cleanup *services.CleanedEntry) {
	r.mu.Lock()
	duration := r.duration
	if duration == 0 && transcription != nil {
		for _, segment := range transcription.Segments {
			if segment.End > duration {
				duration = segment.End
			}
		}
	}
	r.segments = transcript.BuildSegments(transcription, cleanup, duration)
	r.mu.Unlock()
	// Both the upload poll loop and the load flow end here.
	r.setStatusDirect(StatusComplete)

	r.logger.Info("pipeline complete",
		logging.String(logging.FieldEntryID, r.EntryID()),
		logging.Int("segments", len(r.Segments())))
}

func (r *Runner) setStatus(to Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if canAdvance(r.status, to) {
		r.status = to
	}
}

// setStatusDirect bypasses the forward-transition check for load flows,
// which enter mid-pipeline.
func (r *Runner) setStatusDirect(to Status) {
	r.mu.Lock()
	r.status = to
	r.mu.Unlock()
}

func (r *Runner) fail(err error) {
	r.failMessage(services.UserMessage(err))
}

func (r *Runner) failMessage(message string) {
	r.mu.Lock()
	if !r.status.Terminal() {
		r.status = StatusError
		r.errorMessage = message
	}
	r.mu.Unlock()
	r.logger.Warn("pipeline failed",
		logging.String(logging.FieldEntryID, r.EntryID()),
		logging.String("message", message))
}

func jobError(message, fallback string) string {
	if message != "" {
		return message
	}
	return fallback
}
