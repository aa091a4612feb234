// Package analysis resolves profile-scoped analysis results for a cleaned
// entry, caching completed payloads so repeated profile selection never
// re-triggers the expensive backend job.
package analysis

import (
	"context"
	"sync"

	"redline/internal/services"
)

// Service is the slice of the remote client the analysis layer needs.
type Service interface {
	AnalysisProfiles(ctx context.Context) ([]services.AnalysisProfile, error)
	TriggerAnalysis(ctx context.Context, cleanupID, profileID string) (*services.AnalysisRecord, error)
	Analysis(ctx context.Context, id string) (*services.AnalysisRecord, error)
	AnalysesForCleanup(ctx context.Context, cleanupID string) ([]services.AnalysisRecord, error)
}

// Catalog holds the static profile list, fetched at most once per session.
type Catalog struct {
	svc Service

	mu       sync.Mutex
	fetched  bool
	profiles []services.AnalysisProfile
}

// NewCatalog constructs an empty catalog backed by the service.
func NewCatalog(svc Service) *Catalog {
	return &Catalog{svc: svc}
}

// Profiles returns the profile list, fetching it on first use.
func (c *Catalog) Profiles(ctx context.Context) ([]services.AnalysisProfile, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.fetched {
		profiles, err := c.svc.AnalysisProfiles(ctx)
		if err != nil {
			return nil, err
		}
		c.profiles = profiles
		c.fetched = true
	}
	out := make([]services.AnalysisProfile, len(c.profiles))
	copy(out, c.profiles)
	return out, nil
}

// Default returns the profile flagged as default, falling back to the first
// profile when none is flagged.
func (c *Catalog) Default(ctx context.Context) (services.AnalysisProfile, bool, error) {
	profiles, err := c.Profiles(ctx)
	if err != nil {
		return services.AnalysisProfile{}, false, err
	}
	for _, profile := range profiles {
		if profile.IsDefault {
			return profile, true, nil
		}
	}
	if len(profiles) > 0 {
		return profiles[0], true, nil
	}
	return services.AnalysisProfile{}, false, nil
}

// Label resolves a profile id to its display label, returning the id itself
// when the catalog does not know it.
func (c *Catalog) Label(ctx context.Context, profileID string) string {
	profiles, err := c.Profiles(ctx)
	if err != nil {
		return profileID
	}
	for _, profile := range profiles {
		if profile.ID == profileID {
			return profile.Label
		}
	}
	return profileID
}
