package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"redline/internal/logging"
)

const defaultHTTPTimeout = 60 * time.Second

// HTTPDoer abstracts http.Client.Do for testing.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the transcription service wrapper. The session rides on a
// cookie, so the default HTTP client carries a jar.
type Client struct {
	baseURL string
	http    HTTPDoer
	logger  *slog.Logger

	// resetSession clears local session state before the single 401 retry.
	resetSession func()
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *Client) {
		if doer != nil {
			c.http = doer
		}
	}
}

// WithLogger attaches a logger for request diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logging.NewComponentLogger(logger, "services")
		}
	}
}

// WithSessionReset installs the hook invoked before the single 401 retry.
func WithSessionReset(fn func()) Option {
	return func(c *Client) {
		c.resetSession = fn
	}
}

// NewClient constructs a service client for the given base URL.
func NewClient(baseURL string, opts ...Option) *Client {
	client := &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.http == nil {
		jar, _ := cookiejar.New(nil)
		client.http = &http.Client{Timeout: defaultHTTPTimeout, Jar: jar}
	}
	return client
}

// SubmitAudio uploads an audio file and starts transcription and cleanup.
func (c *Client) SubmitAudio(ctx context.Context, filename string, audio io.Reader, opts UploadOptions) (*UploadReceipt, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("build upload form: %w", err)
	}
	if _, err := io.Copy(part, audio); err != nil {
		return nil, fmt.Errorf("read audio: %w", err)
	}
	fields := map[string]string{
		"language":           opts.Language,
		"enable_diarization": strconv.FormatBool(opts.EnableDiarization),
		"speaker_count":      strconv.Itoa(opts.SpeakerCount),
	}
	if strings.TrimSpace(opts.AnalysisProfile) != "" {
		fields["analysis_profile"] = opts.AnalysisProfile
	}
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return nil, fmt.Errorf("write form field %s: %w", key, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("finalize upload form: %w", err)
	}

	var receipt UploadReceipt
	err = c.do(ctx, request{
		method:      http.MethodPost,
		path:        "/api/transcribe",
		body:        buf.Bytes(),
		contentType: writer.FormDataContentType(),
		operation:   "submit audio",
	}, &receipt)
	if err != nil {
		return nil, err
	}
	return &receipt, nil
}

// TranscriptionStatus fetches the transcription job record.
func (c *Client) TranscriptionStatus(ctx context.Context, id string) (*Transcription, error) {
	var out Transcription
	err := c.do(ctx, request{
		method:          http.MethodGet,
		path:            "/api/transcriptions/" + url.PathEscape(id),
		operation:       "transcription status",
		notFoundMessage: "transcription not found",
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// CleanupResult fetches the cleanup job record.
func (c *Client) CleanupResult(ctx context.Context, id string) (*CleanedEntry, error) {
	var out CleanedEntry
	err := c.do(ctx, request{
		method:          http.MethodGet,
		path:            "/api/cleaned-entries/" + url.PathEscape(id),
		operation:       "cleanup result",
		notFoundMessage: "cleanup not found",
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// StartCleanup kicks off text cleanup for a completed transcription. The
// call is idempotent server-side: re-requesting cleanup for a transcription
// that already has one returns the existing record.
func (c *Client) StartCleanup(ctx context.Context, transcriptionID string) (*CleanedEntry, error) {
	var out CleanedEntry
	err := c.do(ctx, request{
		method:          http.MethodPost,
		path:            "/api/transcriptions/" + url.PathEscape(transcriptionID) + "/cleanup",
		operation:       "start cleanup",
		notFoundMessage: "transcription not found",
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// SaveUserEdit persists an edited cleaned text for the cleanup record.
func (c *Client) SaveUserEdit(ctx context.Context, cleanupID, text string) error {
	return c.do(ctx, request{
		method:          http.MethodPut,
		path:            "/api/cleaned-entries/" + url.PathEscape(cleanupID) + "/user-edit",
		json:            map[string]string{"edited_text": text},
		operation:       "save user edit",
		notFoundMessage: "cleanup not found",
	}, nil)
}

// RevertUserEdit discards the user edit, restoring the service-generated text.
func (c *Client) RevertUserEdit(ctx context.Context, cleanupID string) error {
	return c.do(ctx, request{
		method:          http.MethodDelete,
		path:            "/api/cleaned-entries/" + url.PathEscape(cleanupID) + "/user-edit",
		operation:       "revert user edit",
		notFoundMessage: "cleanup not found",
	}, nil)
}

// Entry fetches the composed entry record.
func (c *Client) Entry(ctx context.Context, id string) (*EntryDetails, error) {
	var out EntryDetails
	err := c.do(ctx, request{
		method:          http.MethodGet,
		path:            "/api/entries/" + url.PathEscape(id),
		operation:       "load entry",
		notFoundMessage: "entry not found",
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListEntries returns entry summaries for the current session.
func (c *Client) ListEntries(ctx context.Context, limit, offset int) ([]EntrySummary, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		query.Set("offset", strconv.Itoa(offset))
	}
	path := "/api/entries"
	if encoded := query.Encode(); encoded != "" {
		path += "?" + encoded
	}
	var out struct {
		Entries []EntrySummary `json:"entries"`
	}
	if err := c.do(ctx, request{method: http.MethodGet, path: path, operation: "list entries"}, &out); err != nil {
		return nil, err
	}
	return out.Entries, nil
}

// DeleteEntry removes an entry and all associated data.
func (c *Client) DeleteEntry(ctx context.Context, id string) error {
	return c.do(ctx, request{
		method:          http.MethodDelete,
		path:            "/api/entries/" + url.PathEscape(id),
		operation:       "delete entry",
		notFoundMessage: "entry not found",
	}, nil)
}

// AnalysisProfiles fetches the static profile catalog.
func (c *Client) AnalysisProfiles(ctx context.Context) ([]AnalysisProfile, error) {
	var out struct {
		Profiles []AnalysisProfile `json:"profiles"`
	}
	if err := c.do(ctx, request{method: http.MethodGet, path: "/api/analysis-profiles", operation: "list analysis profiles"}, &out); err != nil {
		return nil, err
	}
	return out.Profiles, nil
}

// TriggerAnalysis starts a new analysis job for the cleanup record.
func (c *Client) TriggerAnalysis(ctx context.Context, cleanupID, profileID string) (*AnalysisRecord, error) {
	var out AnalysisRecord
	err := c.do(ctx, request{
		method:          http.MethodPost,
		path:            "/api/cleaned-entries/" + url.PathEscape(cleanupID) + "/analyze",
		json:            map[string]string{"profile_id": profileID},
		operation:       "trigger analysis",
		notFoundMessage: "cleanup not found",
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Analysis fetches one analysis job with its full result payload.
func (c *Client) Analysis(ctx context.Context, id string) (*AnalysisRecord, error) {
	var out AnalysisRecord
	err := c.do(ctx, request{
		method:          http.MethodGet,
		path:            "/api/analyses/" + url.PathEscape(id),
		operation:       "analysis status",
		notFoundMessage: "analysis not found",
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// AnalysesForCleanup lists analysis jobs for a cleanup record. Result
// payloads are omitted from list responses.
func (c *Client) AnalysesForCleanup(ctx context.Context, cleanupID string) ([]AnalysisRecord, error) {
	var out struct {
		Analyses []AnalysisRecord `json:"analyses"`
	}
	err := c.do(ctx, request{
		method:          http.MethodGet,
		path:            "/api/cleaned-entries/" + url.PathEscape(cleanupID) + "/analyses",
		operation:       "list analyses",
		notFoundMessage: "cleanup not found",
	}, &out)
	if err != nil {
		return nil, err
	}
	return out.Analyses, nil
}

// RateLimits probes the current rate-limit status without consuming a request.
func (c *Client) RateLimits(ctx context.Context) (*RateLimitStatus, error) {
	var out RateLimitStatus
	if err := c.do(ctx, request{method: http.MethodGet, path: "/api/rate-limits", operation: "rate limits"}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SubmitFeedback records a rating for one stage of an entry's pipeline.
func (c *Client) SubmitFeedback(ctx context.Context, entryID string, kind FeedbackKind, rating int, text string) error {
	payload := map[string]any{
		"feedback_type": string(kind),
		"rating":        rating,
	}
	if strings.TrimSpace(text) != "" {
		payload["feedback_text"] = text
	}
	return c.do(ctx, request{
		method:          http.MethodPost,
		path:            "/api/entries/" + url.PathEscape(entryID) + "/feedback",
		json:            payload,
		operation:       "submit feedback",
		notFoundMessage: "entry not found",
	}, nil)
}

type request struct {
	method string
	path   string
	// json is marshaled as the request body when set.
	json any
	// body is sent verbatim when set (multipart uploads).
	body        []byte
	contentType string
	operation   string
	// notFoundMessage replaces the generic 404 text for this call site.
	notFoundMessage string
}

func (c *Client) do(ctx context.Context, req request, out any) error {
	err := c.doOnce(ctx, req, out)
	if err == nil || !isUnauthorized(err) {
		return err
	}
	// One silent retry after clearing session state; a second 401 surfaces.
	if c.resetSession != nil {
		c.resetSession()
	}
	c.logger.Debug("retrying after unauthorized response",
		logging.String("path", req.path))
	retryErr := c.doOnce(ctx, req, out)
	if retryErr != nil && isUnauthorized(retryErr) {
		return Wrap(ErrSessionExpired, req.operation, "session rejected twice", nil)
	}
	return retryErr
}

// errUnauthorized marks a 401 internally so do can retry exactly once.
var errUnauthorized = errors.New("unauthorized")

func isUnauthorized(err error) bool {
	return errors.Is(err, errUnauthorized)
}

func (c *Client) doOnce(ctx context.Context, req request, out any) error {
	var reader io.Reader
	contentType := req.contentType
	switch {
	case req.body != nil:
		reader = bytes.NewReader(req.body)
	case req.json != nil:
		data, err := json.Marshal(req.json)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
		contentType = "application/json"
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.baseURL+req.path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", uuid.NewString())
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return Wrap(ErrNetwork, req.operation, "", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return c.classifyFailure(req, resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return Wrap(ErrServer, req.operation, "decode response", err)
	}
	return nil
}

func (c *Client) classifyFailure(req request, resp *http.Response) error {
	bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return fmt.Errorf("%s %s: %w", req.method, req.path, errUnauthorized)
	case http.StatusNotFound:
		message := req.notFoundMessage
		if message == "" {
			message = "resource not found"
		}
		return Wrap(ErrNotFound, req.operation, message, nil)
	case http.StatusTooManyRequests:
		rl := &RateLimitError{}
		if err := json.Unmarshal(bodyBytes, rl); err != nil || rl.LimitType == "" {
			rl.Message = bodyMessage(bodyBytes)
		}
		if retryAfter := resp.Header.Get("Retry-After"); rl.RetryAfterSeconds == 0 && retryAfter != "" {
			if seconds, err := strconv.Atoi(retryAfter); err == nil {
				rl.RetryAfterSeconds = seconds
			}
		}
		return fmt.Errorf("%s: %w", req.operation, rl)
	}

	message := bodyMessage(bodyBytes)
	if message == "" {
		message = fmt.Sprintf("request failed with status %d", resp.StatusCode)
	}
	marker := ErrServer
	if resp.StatusCode < 500 {
		marker = ErrValidation
	}
	return Wrap(marker, req.operation, message, nil)
}

// bodyMessage pulls a human-readable message out of an error body, trying the
// structured field names the service uses before falling back to raw text.
func bodyMessage(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return ""
	}
	var envelope struct {
		Detail  string `json:"detail"`
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		for _, candidate := range []string{envelope.Detail, envelope.Message, envelope.Error} {
			if strings.TrimSpace(candidate) != "" {
				return strings.TrimSpace(candidate)
			}
		}
	}
	if len(trimmed) > 200 {
		trimmed = trimmed[:200]
	}
	return trimmed
}
