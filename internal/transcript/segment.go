// Package transcript models the reviewed transcript: segments paired from
// raw and cleaned service output, plus playback-position lookup.
package transcript

import "redline/internal/services"

// Segment is one span of the transcript under review. OriginalText is the
// raw transcription and never changes after construction; CurrentText starts
// as the cleaned text and tracks user edits.
type Segment struct {
	ID           string          `json:"id"`
	SpeakerIndex int             `json:"speaker_index"`
	Start        float64         `json:"start"`
	End          float64         `json:"end"`
	OriginalText string          `json:"original_text"`
	CurrentText  string          `json:"current_text"`
	Words        []services.Word `json:"words,omitempty"`

	// PendingSync is set while an edit has been applied locally but its
	// persistence call has not yet been confirmed.
	PendingSync bool `json:"pending_sync,omitempty"`
}
