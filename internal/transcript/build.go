package transcript

import (
	"strings"

	"redline/internal/services"
)

// BuildSegments pairs cleaned segments with their raw counterparts. Pairing
// prefers the explicit raw_segment_id back-reference, falling back to
// position. When the service produced no segments at all (diarization
// unavailable) but a flat transcript exists, a single segment spanning the
// whole duration is synthesized so the transcript view is never empty.
func BuildSegments(transcription *services.Transcription, cleanup *services.CleanedEntry, durationSeconds float64) []Segment {
	var raw []services.RawSegment
	var flatText string
	if transcription != nil {
		raw = transcription.Segments
		flatText = transcription.Text
	}
	var cleaned []services.CleanedSegment
	var flatCleaned string
	if cleanup != nil {
		cleaned = cleanup.Segments
		flatCleaned = cleanup.CleanedText
	}

	if len(cleaned) == 0 && len(raw) == 0 {
		return synthesizeFlat(flatText, flatCleaned, durationSeconds)
	}

	if len(cleaned) == 0 {
		// Cleanup produced no segmentation; show raw segments unedited.
		segments := make([]Segment, 0, len(raw))
		for _, r := range raw {
			segments = append(segments, Segment{
				ID:           r.ID,
				SpeakerIndex: speakerIndex(r.Speaker),
				Start:        r.Start,
				End:          r.End,
				OriginalText: r.Text,
				CurrentText:  r.Text,
				Words:        r.Words,
			})
		}
		return segments
	}

	rawByID := make(map[string]*services.RawSegment, len(raw))
	for i := range raw {
		rawByID[raw[i].ID] = &raw[i]
	}

	segments := make([]Segment, 0, len(cleaned))
	for i, c := range cleaned {
		var source *services.RawSegment
		if c.RawSegmentID != "" {
			source = rawByID[c.RawSegmentID]
		}
		if source == nil && i < len(raw) {
			source = &raw[i]
		}

		segment := Segment{
			ID:           c.ID,
			SpeakerIndex: speakerIndex(c.Speaker),
			Start:        c.Start,
			End:          c.End,
			CurrentText:  c.Text,
		}
		if source != nil {
			segment.OriginalText = source.Text
			segment.Words = source.Words
			if c.Speaker == nil {
				segment.SpeakerIndex = speakerIndex(source.Speaker)
			}
		} else {
			segment.OriginalText = c.Text
		}
		segments = append(segments, segment)
	}
	return segments
}

func synthesizeFlat(flatText, flatCleaned string, durationSeconds float64) []Segment {
	original := strings.TrimSpace(flatText)
	current := strings.TrimSpace(flatCleaned)
	if original == "" && current == "" {
		return nil
	}
	if current == "" {
		current = original
	}
	if original == "" {
		original = current
	}
	return []Segment{{
		ID:           "full-transcript",
		Start:        0,
		End:          durationSeconds,
		OriginalText: original,
		CurrentText:  current,
	}}
}

func speakerIndex(speaker *int) int {
	if speaker == nil {
		return 0
	}
	return *speaker
}
