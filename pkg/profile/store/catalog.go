package store

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"sync"
	"time"

	"mercator-hq/warden/pkg/profile"
)

// Catalog is the thread-safe set of candidate profiles that corridors may be
// bound to. It holds the newest version of each profile name. Replacing the
// catalog never affects profiles already bound to a corridor.
type Catalog struct {
	mu       sync.RWMutex
	profiles map[string]*profile.Profile
	version  string
	loadTime time.Time
}

// NewCatalog creates a catalog holding the given profiles.
func NewCatalog(profiles ...*profile.Profile) *Catalog {
	c := &Catalog{
		profiles: make(map[string]*profile.Profile),
		loadTime: time.Now(),
	}
	for _, p := range profiles {
		c.put(p)
	}
	c.updateVersion()
	return c
}

// Register adds a profile, keeping the newer version when the name exists.
func (c *Catalog) Register(p *profile.Profile) error {
	if p == nil || p.Name == "" {
		return profile.NewProfileValidationError("", nil, "catalog entries require a named profile")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.put(p)
	c.updateVersion()
	return nil
}

// Replace atomically replaces the catalog contents.
func (c *Catalog) Replace(profiles []*profile.Profile) {
	next := make(map[string]*profile.Profile, len(profiles))
	for _, p := range profiles {
		if p == nil || p.Name == "" {
			continue
		}
		if cur, ok := next[p.Name]; ok && !newer(p, cur) {
			continue
		}
		next[p.Name] = p
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.profiles = next
	c.loadTime = time.Now()
	c.updateVersion()
}

// Get returns the catalog entry for name.
func (c *Catalog) Get(name string) (*profile.Profile, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.profiles[name]
	return p, ok
}

// All returns the catalog entries sorted by name.
func (c *Catalog) All() []*profile.Profile {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.profiles))
	for name := range c.profiles {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]*profile.Profile, 0, len(names))
	for _, name := range names {
		out = append(out, c.profiles[name])
	}
	return out
}

// Count returns the number of catalog entries.
func (c *Catalog) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.profiles)
}

// Version returns a digest of the catalog contents.
func (c *Catalog) Version() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

// LoadTime returns when the catalog was last replaced.
func (c *Catalog) LoadTime() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loadTime
}

// Match returns the profile covering the most of the given jurisdiction tags.
// Ties are broken by profile name. Profiles covering none are not returned.
func (c *Catalog) Match(jurisdictions []string) (*profile.Profile, bool) {
	tags := make(map[string]bool, len(jurisdictions))
	for _, j := range jurisdictions {
		tags[j] = true
	}

	var best *profile.Profile
	bestScore := 0
	for _, p := range c.All() {
		score := 0
		for _, j := range p.Jurisdictions {
			if tags[j] {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = p, score
		}
	}
	return best, best != nil
}

func (c *Catalog) put(p *profile.Profile) {
	if cur, ok := c.profiles[p.Name]; ok && !newer(p, cur) {
		return
	}
	c.profiles[p.Name] = p
}

// updateVersion must be called with the write lock held.
func (c *Catalog) updateVersion() {
	names := make([]string, 0, len(c.profiles))
	for name := range c.profiles {
		names = append(names, name)
	}
	sort.Strings(names)

	h := sha256.New()
	for _, name := range names {
		fmt.Fprintf(h, "%s:%s:%s\n", name, c.profiles[name].Version, c.profiles[name].Digest)
	}
	c.version = fmt.Sprintf("%x", h.Sum(nil))[:16]
}

// newer reports whether a has a greater version than b.
func newer(a, b *profile.Profile) bool {
	cmp, err := profile.CompareVersions(a.Version, b.Version)
	return err == nil && cmp > 0
}
