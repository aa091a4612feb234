package pipeline

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"redline/internal/services"
)

type fakeService struct {
	mu sync.Mutex

	submitErr          error
	transcriptionCalls int
	cleanupCalls       int
	saveCalls          []string
	saveErr            error
	revertCalls        int
	revertErr          error

	transcription services.Transcription
	cleanup       services.CleanedEntry
	entry         *services.EntryDetails
	entryErr      error

	// ready delays job completion until this many status calls happened.
	transcriptionReadyAfter int
	cleanupReadyAfter       int

	onCleanupFetch func()
}

func (f *fakeService) SubmitAudio(ctx context.Context, filename string, audio io.Reader, opts services.UploadOptions) (*services.UploadReceipt, error) {
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	return &services.UploadReceipt{EntryID: "entry-1", TranscriptionID: "tr-1", CleanupID: "cl-1"}, nil
}

func (f *fakeService) TranscriptionStatus(ctx context.Context, id string) (*services.Transcription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transcriptionCalls++
	record := f.transcription
	if f.transcriptionCalls <= f.transcriptionReadyAfter {
		record.Status = services.JobProcessing
	}
	return &record, nil
}

func (f *fakeService) CleanupResult(ctx context.Context, id string) (*services.CleanedEntry, error) {
	f.mu.Lock()
	f.cleanupCalls++
	record := f.cleanup
	if f.cleanupCalls <= f.cleanupReadyAfter {
		record.Status = services.JobPending
	}
	hook := f.onCleanupFetch
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	return &record, nil
}

func (f *fakeService) Entry(ctx context.Context, id string) (*services.EntryDetails, error) {
	if f.entryErr != nil {
		return nil, f.entryErr
	}
	return f.entry, nil
}

func (f *fakeService) SaveUserEdit(ctx context.Context, cleanupID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saveCalls = append(f.saveCalls, text)
	return f.saveErr
}

func (f *fakeService) RevertUserEdit(ctx context.Context, cleanupID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revertCalls++
	return f.revertErr
}

func (f *fakeService) saveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saveCalls)
}

func completedJobs() (services.Transcription, services.CleanedEntry) {
	transcription := services.Transcription{
		ID:     "tr-1",
		Status: services.JobCompleted,
		Segments: []services.RawSegment{
			{ID: "raw-1", Start: 0, End: 4, Text: "um hello world"},
			{ID: "raw-2", Start: 4, End: 8, Text: "uh goodbye now"},
		},
	}
	cleanup := services.CleanedEntry{
		ID:     "cl-1",
		Status: services.JobCompleted,
		Segments: []services.CleanedSegment{
			{ID: "cl-seg-1", Start: 0, End: 4, Text: "Hello world.", RawSegmentID: "raw-1"},
			{ID: "cl-seg-2", Start: 4, End: 8, Text: "Goodbye now.", RawSegmentID: "raw-2"},
		},
	}
	return transcription, cleanup
}

func newTestRunner(svc Service) *Runner {
	return NewRunner(svc, WithPollInterval(time.Millisecond))
}

func TestUploadRunsToCompletion(t *testing.T) {
	transcription, cleanup := completedJobs()
	svc := &fakeService{
		transcription:           transcription,
		cleanup:                 cleanup,
		transcriptionReadyAfter: 1,
		cleanupReadyAfter:       1,
	}
	runner := newTestRunner(svc)

	var cleaningObserved bool
	svc.onCleanupFetch = func() {
		if runner.Status() == StatusCleaning {
			cleaningObserved = true
		}
	}

	if err := runner.Upload(context.Background(), "audio.wav", strings.NewReader("data"), services.UploadOptions{}); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if got := runner.Status(); got != StatusTranscribing {
		t.Fatalf("status after submit = %q, want transcribing", got)
	}
	runner.Wait()

	if got := runner.Status(); got != StatusComplete {
		t.Fatalf("final status = %q (%s)", got, runner.ErrorMessage())
	}
	if !cleaningObserved {
		t.Fatal("cleaning stage never observed")
	}
	if got := len(runner.Segments()); got != len(cleanup.Segments) {
		t.Fatalf("segment count = %d, want %d", got, len(cleanup.Segments))
	}
	if seg := runner.Segments()[0]; seg.OriginalText != "um hello world" || seg.CurrentText != "Hello world." {
		t.Fatalf("segment pairing wrong: %+v", seg)
	}
}

func TestUploadTranscriptionFailure(t *testing.T) {
	svc := &fakeService{
		transcription: services.Transcription{ID: "tr-1", Status: services.JobFailed, ErrorMessage: "audio unreadable"},
	}
	runner := newTestRunner(svc)

	if err := runner.Upload(context.Background(), "audio.wav", strings.NewReader("data"), services.UploadOptions{}); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	runner.Wait()

	if runner.Status() != StatusError {
		t.Fatalf("status = %q, want error", runner.Status())
	}
	if runner.ErrorMessage() != "audio unreadable" {
		t.Fatalf("error message = %q", runner.ErrorMessage())
	}
}

func TestUploadRateLimitSurfaced(t *testing.T) {
	svc := &fakeService{
		submitErr: &services.RateLimitError{LimitType: "hour", RetryAfterSeconds: 900, Message: "Hourly limit reached"},
	}
	runner := newTestRunner(svc)

	err := runner.Upload(context.Background(), "audio.wav", strings.NewReader("data"), services.UploadOptions{})
	if !errors.Is(err, services.ErrRateLimited) {
		t.Fatalf("expected rate limit error, got %v", err)
	}
	if runner.Status() != StatusError {
		t.Fatalf("status = %q, want error", runner.Status())
	}
	if !strings.Contains(runner.ErrorMessage(), "Hourly limit reached") {
		t.Fatalf("error message %q lost rate limit detail", runner.ErrorMessage())
	}
}

func TestLoadEntryTerminal(t *testing.T) {
	transcription, cleanup := completedJobs()
	svc := &fakeService{
		entry: &services.EntryDetails{
			ID:              "entry-1",
			DurationSeconds: 8,
			Transcription:   &transcription,
			Cleanup:         &cleanup,
			Analyses:        []services.AnalysisRecord{{ID: "an-1", ProfileID: "generic-conversation-summary", Status: services.JobCompleted}},
		},
	}
	runner := newTestRunner(svc)

	if err := runner.LoadEntry(context.Background(), "entry-1"); err != nil {
		t.Fatalf("LoadEntry: %v", err)
	}
	if runner.Status() != StatusComplete {
		t.Fatalf("status = %q", runner.Status())
	}
	if len(runner.Segments()) != 2 {
		t.Fatalf("segments = %d", len(runner.Segments()))
	}
	if len(runner.Analyses()) != 1 {
		t.Fatalf("analyses = %d", len(runner.Analyses()))
	}
}

func TestLoadEntryNonTerminalDoesNotPoll(t *testing.T) {
	transcription, _ := completedJobs()
	transcription.Status = services.JobProcessing
	svc := &fakeService{
		entry: &services.EntryDetails{ID: "entry-1", Transcription: &transcription},
	}
	runner := newTestRunner(svc)

	if err := runner.LoadEntry(context.Background(), "entry-1"); err != nil {
		t.Fatalf("LoadEntry: %v", err)
	}
	if runner.Status() != StatusTranscribing {
		t.Fatalf("status = %q, want transcribing", runner.Status())
	}

	time.Sleep(20 * time.Millisecond)
	if calls := svc.transcriptionCalls; calls != 0 {
		t.Fatalf("load must not start polling, saw %d status calls", calls)
	}
}

func TestResumePollingAfterLoad(t *testing.T) {
	transcription, cleanup := completedJobs()
	loaded := transcription
	loaded.Status = services.JobProcessing
	svc := &fakeService{
		entry:         &services.EntryDetails{ID: "entry-1", Transcription: &loaded, Cleanup: &services.CleanedEntry{ID: "cl-1", Status: services.JobPending}},
		transcription: transcription,
		cleanup:       cleanup,
	}
	runner := newTestRunner(svc)

	if err := runner.LoadEntry(context.Background(), "entry-1"); err != nil {
		t.Fatalf("LoadEntry: %v", err)
	}
	runner.ResumePolling(context.Background())
	runner.Wait()

	if runner.Status() != StatusComplete {
		t.Fatalf("status = %q (%s)", runner.Status(), runner.ErrorMessage())
	}
}

func TestResetStopsPollingAndClears(t *testing.T) {
	transcription, cleanup := completedJobs()
	svc := &fakeService{
		transcription:           transcription,
		cleanup:                 cleanup,
		transcriptionReadyAfter: 1000,
	}
	runner := newTestRunner(svc)

	if err := runner.Upload(context.Background(), "audio.wav", strings.NewReader("data"), services.UploadOptions{}); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	runner.Reset()

	if runner.Status() != StatusIdle {
		t.Fatalf("status after reset = %q", runner.Status())
	}
	if runner.EntryID() != "" || len(runner.Segments()) != 0 {
		t.Fatal("reset did not clear state")
	}

	svc.mu.Lock()
	before := svc.transcriptionCalls
	svc.mu.Unlock()
	time.Sleep(20 * time.Millisecond)
	svc.mu.Lock()
	after := svc.transcriptionCalls
	svc.mu.Unlock()
	if before != after {
		t.Fatalf("polling continued after reset: %d -> %d", before, after)
	}
}
