package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSubmitAudioSendsMultipartForm(t *testing.T) {
	var gotProfile, gotLanguage, gotSpeakers string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/transcribe" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		gotLanguage = r.FormValue("language")
		gotSpeakers = r.FormValue("speaker_count")
		gotProfile = r.FormValue("analysis_profile")
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		defer file.Close()
		if header.Filename != "meeting.wav" {
			t.Fatalf("filename %q", header.Filename)
		}
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"entry_id":         "entry-1",
			"transcription_id": "tr-1",
			"cleaned_entry_id": "cl-1",
		})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	receipt, err := client.SubmitAudio(context.Background(), "meeting.wav", strings.NewReader("RIFFdata"), UploadOptions{
		Language:          "sl",
		SpeakerCount:      2,
		EnableDiarization: true,
		AnalysisProfile:   "generic-conversation-summary",
	})
	if err != nil {
		t.Fatalf("SubmitAudio: %v", err)
	}
	if receipt.EntryID != "entry-1" || receipt.TranscriptionID != "tr-1" || receipt.CleanupID != "cl-1" {
		t.Fatalf("unexpected receipt %+v", receipt)
	}
	if gotLanguage != "sl" || gotSpeakers != "2" || gotProfile != "generic-conversation-summary" {
		t.Fatalf("form fields language=%q speakers=%q profile=%q", gotLanguage, gotSpeakers, gotProfile)
	}
}

func TestUnauthorizedRetriesExactlyOnce(t *testing.T) {
	var calls, resets int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(Transcription{ID: "tr-1", Status: JobCompleted})
	}))
	defer server.Close()

	client := NewClient(server.URL, WithSessionReset(func() { resets++ }))
	record, err := client.TranscriptionStatus(context.Background(), "tr-1")
	if err != nil {
		t.Fatalf("expected silent retry to succeed, got %v", err)
	}
	if record.Status != JobCompleted {
		t.Fatalf("status %q", record.Status)
	}
	if calls != 2 || resets != 1 {
		t.Fatalf("calls=%d resets=%d", calls, resets)
	}
}

func TestUnauthorizedTwiceSurfacesSessionExpired(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.TranscriptionStatus(context.Background(), "tr-1")
	if !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
}

func TestRateLimitBodySurfaced(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"exceeded_type": "hour",
			"retry_after":   1800,
			"message":       "Hourly limit reached",
		})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.TriggerAnalysis(context.Background(), "cl-1", "generic-conversation-summary")
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	var rl *RateLimitError
	if !errors.As(err, &rl) {
		t.Fatalf("expected RateLimitError in chain, got %v", err)
	}
	if rl.LimitType != "hour" || rl.RetryAfterSeconds != 1800 {
		t.Fatalf("rate limit metadata %+v", rl)
	}
}

func TestNotFoundCarriesCallSiteMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.Entry(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if !strings.Contains(err.Error(), "entry not found") {
		t.Fatalf("expected friendly message, got %q", err.Error())
	}
}

func TestValidationErrorUsesBodyDetail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"detail": "file too small"})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.SubmitAudio(context.Background(), "a.wav", strings.NewReader("x"), UploadOptions{Language: "sl", SpeakerCount: 1})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if !strings.Contains(err.Error(), "file too small") {
		t.Fatalf("expected body detail in message, got %q", err.Error())
	}
}

func TestNetworkErrorClassified(t *testing.T) {
	client := NewClient("http://127.0.0.1:1")
	_, err := client.RateLimits(context.Background())
	if !errors.Is(err, ErrNetwork) {
		t.Fatalf("expected ErrNetwork, got %v", err)
	}
}

func TestAnalysesForCleanupDecodesEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/cleaned-entries/cl-1/analyses" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"analyses": []map[string]any{
				{"id": "an-1", "profile_id": "generic-conversation-summary", "status": "completed"},
				{"id": "an-2", "profile_id": "action-items", "status": "processing"},
			},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	records, err := client.AnalysesForCleanup(context.Background(), "cl-1")
	if err != nil {
		t.Fatalf("AnalysesForCleanup: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records", len(records))
	}
	if records[0].Result != nil {
		t.Fatal("list responses must not carry payloads")
	}
}

func TestUserMessage(t *testing.T) {
	if got := UserMessage(nil); got != "" {
		t.Fatalf("nil error message %q", got)
	}
	rl := &RateLimitError{Message: "Hourly limit reached", RetryAfterSeconds: 60}
	if got := UserMessage(rl); !strings.Contains(got, "retry after 60s") {
		t.Fatalf("rate limit message %q", got)
	}
	if got := UserMessage(Wrap(ErrSessionExpired, "x", "", nil)); got != "session expired, please reload" {
		t.Fatalf("session message %q", got)
	}
}
