package pipeline

import (
	"context"
	"errors"
	"strings"

	"redline/internal/logging"
	"redline/internal/transcript"
)

var errSegmentNotFound = errors.New("segment not found")

// UpdateSegmentText applies an edit to a segment's current text. The local
// mutation is authoritative for the session; persistence is fired off in the
// background and a failure is logged, never surfaced.
func (r *Runner) UpdateSegmentText(ctx context.Context, segmentID, text string) error {
	if err := r.applyText(segmentID, text); err != nil {
		return err
	}
	r.persistEdits(ctx, segmentID)
	return nil
}

// RevertSegment swaps a segment's current text back to the raw transcription
// and returns the text it replaced so a single undo is possible.
func (r *Runner) RevertSegment(ctx context.Context, segmentID string) (string, error) {
	r.mu.Lock()
	segment := r.findSegmentLocked(segmentID)
	if segment == nil {
		r.mu.Unlock()
		return "", errSegmentNotFound
	}
	previous := segment.CurrentText
	r.previousEdits[segmentID] = previous
	segment.CurrentText = segment.OriginalText
	segment.PendingSync = true
	r.mu.Unlock()

	r.persistEdits(ctx, segmentID)
	return previous, nil
}

// UndoRevert restores the text captured by the last RevertSegment call.
func (r *Runner) UndoRevert(ctx context.Context, segmentID, previousText string) error {
	r.mu.Lock()
	segment := r.findSegmentLocked(segmentID)
	if segment == nil {
		r.mu.Unlock()
		return errSegmentNotFound
	}
	segment.CurrentText = previousText
	segment.PendingSync = true
	delete(r.previousEdits, segmentID)
	r.mu.Unlock()

	r.persistEdits(ctx, segmentID)
	return nil
}

// DiscardEdits deletes the persisted user edit and restores every segment to
// the service-generated cleaned text. Unlike per-segment reverts this is
// synchronous: the local state is rebuilt from the service response, so a
// failure leaves the current edits untouched.
func (r *Runner) DiscardEdits(ctx context.Context) error {
	r.mu.Lock()
	cleanupID := r.cleanupID
	transcription := r.transcription
	status := r.status
	r.mu.Unlock()

	if status != StatusComplete || cleanupID == "" {
		return errors.New("no completed cleanup to discard edits for")
	}
	if err := r.svc.RevertUserEdit(ctx, cleanupID); err != nil {
		return err
	}
	cleanup, err := r.svc.CleanupResult(ctx, cleanupID)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.previousEdits = make(map[string]string)
	r.mu.Unlock()
	r.finish(transcription, cleanup)
	return nil
}

// LastRevertedText returns the value recorded by the most recent revert of
// the segment, if one is still undoable.
func (r *Runner) LastRevertedText(segmentID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	text, ok := r.previousEdits[segmentID]
	return text, ok
}

// WaitForSync blocks until all in-flight persistence calls finish. Tests use
// it to assert persistence was attempted without racing the goroutine.
func (r *Runner) WaitForSync() {
	r.persistWG.Wait()
}

func (r *Runner) applyText(segmentID, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	segment := r.findSegmentLocked(segmentID)
	if segment == nil {
		return errSegmentNotFound
	}
	segment.CurrentText = text
	segment.PendingSync = true
	return nil
}

// findSegmentLocked returns a pointer into the live segment slice. Callers
// hold r.mu.
func (r *Runner) findSegmentLocked(segmentID string) *transcript.Segment {
	for i := range r.segments {
		if r.segments[i].ID == segmentID {
			return &r.segments[i]
		}
	}
	return nil
}

// persistEdits pushes the full edited text to the service without blocking
// the caller. Local state stays authoritative whether or not the call lands.
func (r *Runner) persistEdits(ctx context.Context, segmentID string) {
	r.mu.Lock()
	cleanupID := r.cleanupID
	texts := make([]string, 0, len(r.segments))
	for _, segment := range r.segments {
		texts = append(texts, segment.CurrentText)
	}
	r.mu.Unlock()

	if cleanupID == "" {
		return
	}
	edited := strings.Join(texts, "\n")

	r.persistWG.Add(1)
	go func() {
		defer r.persistWG.Done()
		if err := r.svc.SaveUserEdit(ctx, cleanupID, edited); err != nil {
			r.logger.Warn("failed to persist segment edit",
				logging.String("segment_id", segmentID),
				logging.Error(err))
			return
		}
		r.mu.Lock()
		if segment := r.findSegmentLocked(segmentID); segment != nil {
			segment.PendingSync = false
		}
		r.mu.Unlock()
	}()
}
