// Package store holds the policy profiles bound to corridors.
//
// A corridor is bound to a profile the first time it is loaded and keeps that
// profile for the lifetime of the store. A bound profile is never edited or
// removed; it can only be superseded by a successor that is at least as
// strict, and every profile a corridor was ever bound to stays in its history.
package store

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"mercator-hq/warden/pkg/profile"
)

// Binding is the profile history of one corridor.
type Binding struct {
	CorridorID string
	Active     *profile.Profile
	History    []*profile.Profile // oldest first, Active last
}

// Candidate is a catalog profile that could supersede a corridor's active profile.
type Candidate struct {
	CorridorID string
	Current    *profile.Profile
	Next       *profile.Profile
}

// Config contains store options.
type Config struct {
	// DefaultProfile is used for corridors whose jurisdictions match no profile.
	// Empty means such corridors cannot be loaded.
	DefaultProfile string
}

// Store resolves, binds and supersedes corridor profiles.
type Store struct {
	mu       sync.RWMutex
	catalog  *Catalog
	bindings map[string]*Binding
	config   Config
	logger   *slog.Logger
}

// New creates a store backed by catalog.
func New(catalog *Catalog, cfg Config) *Store {
	if catalog == nil {
		catalog = NewCatalog()
	}
	return &Store{
		catalog:  catalog,
		bindings: make(map[string]*Binding),
		config:   cfg,
		logger:   slog.Default().With("component", "profile.store"),
	}
}

// Catalog returns the store's catalog.
func (s *Store) Catalog() *Catalog {
	return s.catalog
}

// Load returns the active profile of a corridor, binding one from the catalog
// on first use. Binding requires a profile matching the jurisdiction tags (or
// the configured default) whose required credentials were all presented.
func (s *Store) Load(corridorID string, jurisdictions, credentials []string) (*profile.Profile, error) {
	if corridorID == "" {
		return nil, profile.NewProfileValidationError("", nil, "corridor id is required")
	}

	s.mu.RLock()
	b, ok := s.bindings[corridorID]
	s.mu.RUnlock()
	if ok {
		return b.Active, nil
	}

	p, ok := s.catalog.Match(jurisdictions)
	if !ok && s.config.DefaultProfile != "" {
		p, ok = s.catalog.Get(s.config.DefaultProfile)
	}
	if !ok {
		return nil, &profile.ProfileValidationError{
			Problems: []string{fmt.Sprintf("corridor %q jurisdictions %v", corridorID, jurisdictions)},
			Cause:    profile.ErrNoMatchingProfile,
		}
	}

	if missing := missingCredentials(p.RequiredCredentials, credentials); len(missing) > 0 {
		return nil, &profile.ProfileValidationError{
			Profile:  p.Name,
			Problems: []string{fmt.Sprintf("missing credentials %v", missing)},
			Cause:    profile.ErrMissingCredentials,
		}
	}
	if err := profile.Validate(p); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Another caller may have bound the corridor meanwhile.
	if b, ok := s.bindings[corridorID]; ok {
		return b.Active, nil
	}
	s.bindings[corridorID] = &Binding{
		CorridorID: corridorID,
		Active:     p,
		History:    []*profile.Profile{p},
	}

	s.logger.Info("Corridor bound to profile",
		"corridor", corridorID,
		"profile", p.Ref(),
		"source", p.Source,
	)
	return p, nil
}

// Active returns the active profile of a bound corridor.
func (s *Store) Active(corridorID string) (*profile.Profile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.bindings[corridorID]
	if !ok {
		return nil, false
	}
	return b.Active, true
}

// History returns every profile the corridor was bound to, oldest first.
func (s *Store) History(corridorID string) []*profile.Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.bindings[corridorID]
	if !ok {
		return nil
	}
	return append([]*profile.Profile(nil), b.History...)
}

// Bindings returns a snapshot of all corridor bindings sorted by corridor.
func (s *Store) Bindings() []Binding {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Binding, 0, len(s.bindings))
	for _, b := range s.bindings {
		out = append(out, Binding{
			CorridorID: b.CorridorID,
			Active:     b.Active,
			History:    append([]*profile.Profile(nil), b.History...),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CorridorID < out[j].CorridorID })
	return out
}

// Supersede replaces the corridor's active profile old with next. It fails
// with profile.ErrNotActive when old is no longer active, and with a
// *profile.PolicyDowngradeError when next relaxes any constraint of old.
// The swap is atomic: readers observe either old or next.
func (s *Store) Supersede(corridorID string, old, next *profile.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bindings[corridorID]
	if !ok {
		return fmt.Errorf("supersede corridor %q: %w", corridorID, profile.ErrNotActive)
	}
	if old == nil || b.Active.Digest != old.Digest {
		return fmt.Errorf("supersede corridor %q: %w", corridorID, profile.ErrNotActive)
	}

	if err := profile.CheckSupersede(old, next); err != nil {
		s.logger.Warn("Profile supersession rejected",
			"corridor", corridorID,
			"active", old.Ref(),
			"candidate", next.Ref(),
			"error", err,
		)
		return err
	}

	b.Active = next
	b.History = append(b.History, next)

	s.logger.Info("Profile superseded",
		"corridor", corridorID,
		"previous", old.Ref(),
		"active", next.Ref(),
	)
	return nil
}

// UpdateCatalog replaces the catalog and returns, for every bound corridor
// whose active profile has a newer catalog version, the supersession candidate.
// Bound profiles are not touched.
func (s *Store) UpdateCatalog(profiles []*profile.Profile) []Candidate {
	s.catalog.Replace(profiles)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Candidate
	for id, b := range s.bindings {
		next, ok := s.catalog.Get(b.Active.Name)
		if !ok || next.Digest == b.Active.Digest || !newer(next, b.Active) {
			continue
		}
		out = append(out, Candidate{CorridorID: id, Current: b.Active, Next: next})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CorridorID < out[j].CorridorID })

	s.logger.Info("Profile catalog updated",
		"profiles", s.catalog.Count(),
		"catalog_version", s.catalog.Version(),
		"candidates", len(out),
	)
	return out
}

func missingCredentials(required, presented []string) []string {
	have := make(map[string]bool, len(presented))
	for _, c := range presented {
		have[c] = true
	}

	var missing []string
	for _, r := range required {
		if !have[r] {
			missing = append(missing, r)
		}
	}
	return missing
}
