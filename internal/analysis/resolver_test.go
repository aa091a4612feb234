package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"redline/internal/services"
)

type fakeAnalysisService struct {
	mu sync.Mutex

	profiles []services.AnalysisProfile
	existing []services.AnalysisRecord
	records  map[string]*services.AnalysisRecord

	// readyAfter delays completion until this many Analysis calls per id.
	readyAfter map[string]int

	profileCalls int
	listCalls    int
	triggerCalls int
	fetchCalls   int
	fetchByID    map[string]int

	triggerErr error
}

func newFakeAnalysisService() *fakeAnalysisService {
	return &fakeAnalysisService{
		profiles: []services.AnalysisProfile{
			{ID: "generic-summary", Label: "Summary", IsDefault: true},
			{ID: "action-items", Label: "Action items"},
		},
		records:    make(map[string]*services.AnalysisRecord),
		readyAfter: make(map[string]int),
		fetchByID:  make(map[string]int),
	}
}

func (f *fakeAnalysisService) AnalysisProfiles(ctx context.Context) ([]services.AnalysisProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profileCalls++
	return f.profiles, nil
}

func (f *fakeAnalysisService) AnalysesForCleanup(ctx context.Context, cleanupID string) ([]services.AnalysisRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	return f.existing, nil
}

func (f *fakeAnalysisService) TriggerAnalysis(ctx context.Context, cleanupID, profileID string) (*services.AnalysisRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.triggerCalls++
	if f.triggerErr != nil {
		return nil, f.triggerErr
	}
	id := "an-" + profileID
	record := &services.AnalysisRecord{ID: id, ProfileID: profileID, Status: services.JobProcessing}
	if _, ok := f.records[id]; !ok {
		f.records[id] = &services.AnalysisRecord{
			ID:        id,
			ProfileID: profileID,
			Status:    services.JobCompleted,
			Result:    json.RawMessage(`{"summary":"ok","topics":["a"],"key_points":["b"]}`),
		}
	}
	return record, nil
}

func (f *fakeAnalysisService) Analysis(ctx context.Context, id string) (*services.AnalysisRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchCalls++
	f.fetchByID[id]++
	record, ok := f.records[id]
	if !ok {
		return nil, services.Wrap(services.ErrNotFound, "analysis", "analysis not found", nil)
	}
	out := *record
	if f.fetchByID[id] <= f.readyAfter[id] {
		out.Status = services.JobProcessing
		out.Result = nil
	}
	return &out, nil
}

func (f *fakeAnalysisService) counts() (profiles, list, trigger, fetch int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.profileCalls, f.listCalls, f.triggerCalls, f.fetchCalls
}

func newTestResolver(svc *fakeAnalysisService) *Resolver {
	return NewResolver(svc, NewCatalog(svc), "cl-1", WithPollInterval(time.Millisecond))
}

func TestSelectProfileTriggersThenCaches(t *testing.T) {
	svc := newFakeAnalysisService()
	svc.readyAfter["an-generic-summary"] = 2
	resolver := newTestResolver(svc)

	result, err := resolver.SelectProfile(context.Background(), "generic-summary")
	if err != nil {
		t.Fatalf("SelectProfile: %v", err)
	}
	if result.Summary != "ok" || len(result.Topics) != 1 || len(result.KeyPoints) != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	_, _, trigger, _ := svc.counts()
	if trigger != 1 {
		t.Fatalf("trigger calls = %d", trigger)
	}

	// Second selection must be answered from cache with no network at all.
	_, listBefore, triggerBefore, fetchBefore := svc.counts()
	again, err := resolver.SelectProfile(context.Background(), "generic-summary")
	if err != nil {
		t.Fatalf("SelectProfile (cached): %v", err)
	}
	if again != result {
		t.Fatal("cached selection returned a different result value")
	}
	_, listAfter, triggerAfter, fetchAfter := svc.counts()
	if listAfter != listBefore || triggerAfter != triggerBefore || fetchAfter != fetchBefore {
		t.Fatalf("cache hit issued network calls: list %d->%d trigger %d->%d fetch %d->%d",
			listBefore, listAfter, triggerBefore, triggerAfter, fetchBefore, fetchAfter)
	}
}

func TestSelectProfileReusesCompletedJob(t *testing.T) {
	svc := newFakeAnalysisService()
	svc.existing = []services.AnalysisRecord{
		// List responses carry no payload.
		{ID: "an-1", ProfileID: "action-items", Status: services.JobCompleted},
	}
	svc.records["an-1"] = &services.AnalysisRecord{
		ID:        "an-1",
		ProfileID: "action-items",
		Status:    services.JobCompleted,
		Result:    json.RawMessage(`{"summary":"existing"}`),
	}
	resolver := newTestResolver(svc)

	result, err := resolver.SelectProfile(context.Background(), "action-items")
	if err != nil {
		t.Fatalf("SelectProfile: %v", err)
	}
	if result.Summary != "existing" {
		t.Fatalf("result = %+v", result)
	}
	_, _, trigger, _ := svc.counts()
	if trigger != 0 {
		t.Fatalf("completed job must not be re-triggered, trigger calls = %d", trigger)
	}
}

func TestSelectProfileJoinsInFlightJob(t *testing.T) {
	svc := newFakeAnalysisService()
	svc.existing = []services.AnalysisRecord{
		{ID: "an-2", ProfileID: "generic-summary", Status: services.JobProcessing},
	}
	svc.records["an-2"] = &services.AnalysisRecord{
		ID:        "an-2",
		ProfileID: "generic-summary",
		Status:    services.JobCompleted,
		Result:    json.RawMessage(`{"summary":"joined"}`),
	}
	svc.readyAfter["an-2"] = 1
	resolver := newTestResolver(svc)

	result, err := resolver.SelectProfile(context.Background(), "generic-summary")
	if err != nil {
		t.Fatalf("SelectProfile: %v", err)
	}
	if result.Summary != "joined" {
		t.Fatalf("result = %+v", result)
	}
	_, _, trigger, _ := svc.counts()
	if trigger != 0 {
		t.Fatalf("in-flight job must be joined, trigger calls = %d", trigger)
	}
}

func TestSelectProfileIgnoresFailedJob(t *testing.T) {
	svc := newFakeAnalysisService()
	svc.existing = []services.AnalysisRecord{
		{ID: "an-old", ProfileID: "generic-summary", Status: services.JobFailed},
	}
	resolver := newTestResolver(svc)

	if _, err := resolver.SelectProfile(context.Background(), "generic-summary"); err != nil {
		t.Fatalf("SelectProfile: %v", err)
	}
	_, _, trigger, _ := svc.counts()
	if trigger != 1 {
		t.Fatalf("failed prior job must not block a retrigger, trigger calls = %d", trigger)
	}
}

func TestSelectProfileSurfacesFailure(t *testing.T) {
	svc := newFakeAnalysisService()
	resolver := newTestResolver(svc)
	svc.mu.Lock()
	svc.records["an-generic-summary"] = &services.AnalysisRecord{
		ID:           "an-generic-summary",
		ProfileID:    "generic-summary",
		Status:       services.JobFailed,
		ErrorMessage: "model unavailable",
	}
	svc.mu.Unlock()

	_, err := resolver.SelectProfile(context.Background(), "generic-summary")
	if !errors.Is(err, services.ErrJobFailed) {
		t.Fatalf("expected job failure, got %v", err)
	}
	if got := err.Error(); !strings.Contains(got, "model unavailable") {
		t.Fatalf("error %q lost backend message", got)
	}
	if _, ok := resolver.Cached("generic-summary"); ok {
		t.Fatal("failed analysis must not enter the cache")
	}
}

func TestSelectProfileEmptyPayloadIsFailure(t *testing.T) {
	svc := newFakeAnalysisService()
	resolver := newTestResolver(svc)
	svc.mu.Lock()
	svc.records["an-generic-summary"] = &services.AnalysisRecord{
		ID:        "an-generic-summary",
		ProfileID: "generic-summary",
		Status:    services.JobCompleted,
		Result:    json.RawMessage(`{"summary":"","topics":[],"key_points":null}`),
	}
	svc.mu.Unlock()

	_, err := resolver.SelectProfile(context.Background(), "generic-summary")
	if !errors.Is(err, ErrEmptyResult) {
		t.Fatalf("expected empty-result failure, got %v", err)
	}
	if _, ok := resolver.Cached("generic-summary"); ok {
		t.Fatal("empty payload must not enter the cache")
	}
}

func TestSelectProfileNotBlockedByConcurrentSeed(t *testing.T) {
	svc := newFakeAnalysisService()
	svc.readyAfter["an-action-items"] = 3
	// The seeded record never completes, so waiting on its poll loop would
	// block forever.
	svc.records["an-bg"] = &services.AnalysisRecord{
		ID:        "an-bg",
		ProfileID: "generic-summary",
		Status:    services.JobProcessing,
	}
	svc.readyAfter["an-bg"] = 1 << 30
	resolver := newTestResolver(svc)
	defer resolver.Stop()

	done := make(chan error, 1)
	go func() {
		_, err := resolver.SelectProfile(context.Background(), "action-items")
		done <- err
	}()

	seed := []services.AnalysisRecord{
		{ID: "an-bg", ProfileID: "generic-summary", Status: services.JobProcessing},
	}
	for i := 0; i < 20; i++ {
		if _, err := resolver.Seed(context.Background(), seed); err != nil {
			t.Fatalf("Seed: %v", err)
		}
		time.Sleep(time.Millisecond)
	}

	// The selection may have been superseded by a seed swap, but it must
	// terminate either way rather than wait on the seed's endless loop.
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("SelectProfile still blocked after concurrent seeds")
	}
}

func TestSeedPrefersDefaultProfile(t *testing.T) {
	svc := newFakeAnalysisService()
	svc.records["an-def"] = &services.AnalysisRecord{
		ID:        "an-def",
		ProfileID: "generic-summary",
		Status:    services.JobCompleted,
		Result:    json.RawMessage(`{"summary":"default wins"}`),
	}
	resolver := newTestResolver(svc)

	profileID, err := resolver.Seed(context.Background(), []services.AnalysisRecord{
		{ID: "an-other", ProfileID: "action-items", Status: services.JobCompleted},
		{ID: "an-def", ProfileID: "generic-summary", Status: services.JobCompleted},
	})
	if err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if profileID != "generic-summary" {
		t.Fatalf("seeded profile = %q", profileID)
	}
	result, ok := resolver.Cached("generic-summary")
	if !ok || result.Summary != "default wins" {
		t.Fatalf("cache after seed: %+v, %v", result, ok)
	}
}

func TestSeedPollsNonTerminalRecord(t *testing.T) {
	svc := newFakeAnalysisService()
	svc.records["an-live"] = &services.AnalysisRecord{
		ID:        "an-live",
		ProfileID: "generic-summary",
		Status:    services.JobCompleted,
		Result:    json.RawMessage(`{"summary":"late"}`),
	}
	svc.readyAfter["an-live"] = 2
	resolver := newTestResolver(svc)

	profileID, err := resolver.Seed(context.Background(), []services.AnalysisRecord{
		{ID: "an-live", ProfileID: "generic-summary", Status: services.JobProcessing},
	})
	if err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if profileID != "generic-summary" {
		t.Fatalf("seeded profile = %q", profileID)
	}

	deadline := time.Now().Add(time.Second)
	for {
		if result, ok := resolver.Cached("generic-summary"); ok {
			if result.Summary != "late" {
				t.Fatalf("result = %+v", result)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("background poll never cached the result")
		}
		time.Sleep(time.Millisecond)
	}
	resolver.Stop()
}

func TestCatalogFetchesOnce(t *testing.T) {
	svc := newFakeAnalysisService()
	catalog := NewCatalog(svc)

	for i := 0; i < 3; i++ {
		if _, err := catalog.Profiles(context.Background()); err != nil {
			t.Fatalf("Profiles: %v", err)
		}
	}
	def, ok, err := catalog.Default(context.Background())
	if err != nil || !ok || def.ID != "generic-summary" {
		t.Fatalf("Default = %+v, %v, %v", def, ok, err)
	}
	if calls, _, _, _ := svc.counts(); calls != 1 {
		t.Fatalf("profile fetches = %d", calls)
	}
	if got := catalog.Label(context.Background(), "action-items"); got != "Action items" {
		t.Fatalf("Label = %q", got)
	}
	if got := catalog.Label(context.Background(), "unknown"); got != "unknown" {
		t.Fatalf("Label fallback = %q", got)
	}
}
