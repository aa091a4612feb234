package transcript

import (
	"testing"

	"redline/internal/services"
)

func speaker(n int) *int { return &n }

func TestBuildSegmentsPairsByBackReference(t *testing.T) {
	transcription := &services.Transcription{
		Segments: []services.RawSegment{
			{ID: "raw-b", Start: 5, End: 9, Text: "um second part", Speaker: speaker(1)},
			{ID: "raw-a", Start: 0, End: 5, Text: "uh first part", Speaker: speaker(0)},
		},
	}
	cleanup := &services.CleanedEntry{
		Segments: []services.CleanedSegment{
			{ID: "cl-a", Start: 0, End: 5, Text: "First part.", RawSegmentID: "raw-a"},
			{ID: "cl-b", Start: 5, End: 9, Text: "Second part.", RawSegmentID: "raw-b"},
		},
	}

	segments := BuildSegments(transcription, cleanup, 9)
	if len(segments) != 2 {
		t.Fatalf("got %d segments", len(segments))
	}
	if segments[0].OriginalText != "uh first part" || segments[0].CurrentText != "First part." {
		t.Fatalf("back-reference pairing failed: %+v", segments[0])
	}
	if segments[0].SpeakerIndex != 0 || segments[1].SpeakerIndex != 1 {
		t.Fatalf("speaker indices %d, %d", segments[0].SpeakerIndex, segments[1].SpeakerIndex)
	}
}

func TestBuildSegmentsFallsBackToPosition(t *testing.T) {
	transcription := &services.Transcription{
		Segments: []services.RawSegment{
			{ID: "raw-1", Text: "hello there um"},
			{ID: "raw-2", Text: "goodbye now"},
		},
	}
	cleanup := &services.CleanedEntry{
		Segments: []services.CleanedSegment{
			{ID: "cl-1", Text: "Hello there."},
			{ID: "cl-2", Text: "Goodbye now."},
		},
	}

	segments := BuildSegments(transcription, cleanup, 10)
	if segments[0].OriginalText != "hello there um" {
		t.Fatalf("positional pairing failed: %+v", segments[0])
	}
	if segments[1].OriginalText != "goodbye now" {
		t.Fatalf("positional pairing failed: %+v", segments[1])
	}
}

func TestBuildSegmentsSynthesizesFlatTranscript(t *testing.T) {
	transcription := &services.Transcription{Text: "raw flat transcript"}
	cleanup := &services.CleanedEntry{CleanedText: "clean flat transcript"}

	segments := BuildSegments(transcription, cleanup, 42.5)
	if len(segments) != 1 {
		t.Fatalf("got %d segments, want 1", len(segments))
	}
	seg := segments[0]
	if seg.Start != 0 || seg.End != 42.5 {
		t.Fatalf("span [%v, %v]", seg.Start, seg.End)
	}
	if seg.OriginalText != "raw flat transcript" || seg.CurrentText != "clean flat transcript" {
		t.Fatalf("texts %+v", seg)
	}
}

func TestBuildSegmentsEmptyInputs(t *testing.T) {
	if got := BuildSegments(nil, nil, 0); got != nil {
		t.Fatalf("expected nil for empty inputs, got %v", got)
	}
}

func TestBuildSegmentsRawOnly(t *testing.T) {
	transcription := &services.Transcription{
		Segments: []services.RawSegment{{ID: "raw-1", Text: "only raw"}},
	}
	segments := BuildSegments(transcription, nil, 3)
	if len(segments) != 1 || segments[0].CurrentText != "only raw" {
		t.Fatalf("raw-only fallback: %+v", segments)
	}
}
