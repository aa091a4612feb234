package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNetwork        = errors.New("network error")
	ErrRateLimited    = errors.New("rate limited")
	ErrSessionExpired = errors.New("session expired")
	ErrNotFound       = errors.New("not found")
	ErrValidation     = errors.New("validation error")
	ErrServer         = errors.New("server error")
	ErrJobFailed      = errors.New("job failed")
)

// RateLimitError carries the structured body of a 429 response so callers
// can build accurate backoff messaging.
type RateLimitError struct {
	LimitType         string `json:"exceeded_type"`
	RetryAfterSeconds int    `json:"retry_after"`
	Message           string `json:"message"`
}

func (e *RateLimitError) Error() string {
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		msg = "rate limit exceeded"
	}
	if e.RetryAfterSeconds > 0 {
		return fmt.Sprintf("%s (retry after %ds)", msg, e.RetryAfterSeconds)
	}
	return msg
}

func (e *RateLimitError) Unwrap() error { return ErrRateLimited }

// Wrap builds an error message that includes call-site context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, operation, message string, err error) error {
	detail := buildDetail(operation, message)
	if marker == nil {
		marker = ErrServer
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// UserMessage maps an error to the short human-readable text surfaced in
// status fields. Wrapped detail is preserved; sentinel-only errors get a
// generic phrase.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return rl.Error()
	}
	switch {
	case errors.Is(err, ErrSessionExpired):
		return "session expired, please reload"
	case errors.Is(err, ErrNetwork):
		return "network error"
	}
	return err.Error()
}

func buildDetail(operation, message string) string {
	parts := make([]string, 0, 2)
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
