// Package pipeline drives one audio entry through upload, transcription, and
// cleanup, exposing a consistent segment list plus status.
package pipeline

// Status is the lifecycle of a pipeline job.
type Status string

const (
	StatusIdle         Status = "idle"
	StatusLoading      Status = "loading"
	StatusUploading    Status = "uploading"
	StatusTranscribing Status = "transcribing"
	StatusCleaning     Status = "cleaning"
	StatusComplete     Status = "complete"
	StatusError        Status = "error"
)

// Terminal reports whether the job needs an explicit reset or reload before
// it can transition again.
func (s Status) Terminal() bool {
	return s == StatusComplete || s == StatusError
}

// forwardTransitions is the only legal forward path; error is reachable from
// every non-terminal state.
var forwardTransitions = map[Status]Status{
	StatusIdle:         StatusUploading,
	StatusUploading:    StatusTranscribing,
	StatusTranscribing: StatusCleaning,
	StatusCleaning:     StatusComplete,
}

func canAdvance(from, to Status) bool {
	if to == StatusError {
		return !from.Terminal()
	}
	return forwardTransitions[from] == to
}
