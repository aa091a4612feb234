package services

import "encoding/json"

// JobStatus is the lifecycle state the service reports for transcription,
// cleanup, and analysis jobs.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// Terminal reports whether no further automatic transition will occur.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// Word is word-level timing data attached to a transcription.
type Word struct {
	Text      string  `json:"text"`
	Start     float64 `json:"start"`
	End       float64 `json:"end"`
	Type      string  `json:"type,omitempty"`
	SpeakerID *int    `json:"speaker_id,omitempty"`
}

// RawSegment is one diarized span of the uncleaned transcript.
type RawSegment struct {
	ID      string  `json:"id"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Text    string  `json:"text"`
	Speaker *int    `json:"speaker,omitempty"`
	Words   []Word  `json:"words,omitempty"`
}

// CleanedSegment is one span of the cleaned transcript. RawSegmentID is the
// back-reference to the raw segment it was produced from, when the service
// provides one.
type CleanedSegment struct {
	ID           string  `json:"id"`
	Start        float64 `json:"start"`
	End          float64 `json:"end"`
	Text         string  `json:"text"`
	Speaker      *int    `json:"speaker,omitempty"`
	RawSegmentID string  `json:"raw_segment_id,omitempty"`
}

// UploadReceipt identifies the jobs created for one audio submission.
type UploadReceipt struct {
	EntryID         string `json:"entry_id"`
	TranscriptionID string `json:"transcription_id"`
	CleanupID       string `json:"cleaned_entry_id"`
}

// Transcription is the transcription job record.
type Transcription struct {
	ID           string       `json:"id"`
	Status       JobStatus    `json:"status"`
	Text         string       `json:"transcribed_text,omitempty"`
	Segments     []RawSegment `json:"segments,omitempty"`
	Words        []Word       `json:"words,omitempty"`
	ErrorMessage string       `json:"error_message,omitempty"`
}

// CleanedEntry is the cleanup job record.
type CleanedEntry struct {
	ID           string           `json:"id"`
	Status       JobStatus        `json:"status"`
	CleanedText  string           `json:"cleaned_text,omitempty"`
	Segments     []CleanedSegment `json:"cleaned_segments,omitempty"`
	ErrorMessage string           `json:"error_message,omitempty"`
}

// AnalysisProfile is a static catalog entry describing one analysis flavor.
type AnalysisProfile struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	Intent    string `json:"intent,omitempty"`
	IsDefault bool   `json:"is_default,omitempty"`
}

// AnalysisRecord is an analysis job. List responses omit Result; fetch the
// record by ID for the full payload.
type AnalysisRecord struct {
	ID           string          `json:"id"`
	ProfileID    string          `json:"profile_id"`
	ProfileLabel string          `json:"profile_label,omitempty"`
	Status       JobStatus       `json:"status"`
	Result       json.RawMessage `json:"result,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
}

// EntrySummary describes one entry in a list response.
type EntrySummary struct {
	ID                  string    `json:"id"`
	OriginalFilename    string    `json:"original_filename"`
	TranscriptionID     string    `json:"transcription_id,omitempty"`
	TranscriptionStatus JobStatus `json:"transcription_status"`
	CleanupID           string    `json:"cleaned_entry_id,omitempty"`
	CleanupStatus       JobStatus `json:"cleanup_status,omitempty"`
	UploadedAt          string    `json:"uploaded_at,omitempty"`
}

// EntryDetails is the composed entry record returned by the entry endpoint.
type EntryDetails struct {
	ID               string           `json:"id"`
	OriginalFilename string           `json:"original_filename"`
	DurationSeconds  float64          `json:"duration_seconds"`
	Transcription    *Transcription   `json:"primary_transcription,omitempty"`
	Cleanup          *CleanedEntry    `json:"primary_cleanup,omitempty"`
	Analyses         []AnalysisRecord `json:"analyses,omitempty"`
	UploadedAt       string           `json:"uploaded_at,omitempty"`
}

// LimitInfo describes one rate-limit tier.
type LimitInfo struct {
	Limit     int   `json:"limit"`
	Remaining int   `json:"remaining"`
	Reset     int64 `json:"reset"`
}

// RateLimitStatus is the read-only rate-limit probe response.
type RateLimitStatus struct {
	Hour LimitInfo `json:"hour"`
	Day  LimitInfo `json:"day"`
}

// FeedbackKind names the part of the pipeline a rating applies to.
type FeedbackKind string

const (
	FeedbackTranscription FeedbackKind = "transcription"
	FeedbackCleanup       FeedbackKind = "cleanup"
	FeedbackAnalysis      FeedbackKind = "analysis"
)

// UploadOptions carries per-submission parameters.
type UploadOptions struct {
	Language          string
	SpeakerCount      int
	EnableDiarization bool
	AnalysisProfile   string
}
