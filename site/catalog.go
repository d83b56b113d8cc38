package site

import (
	"fmt"
	"math/rand"
	"os"

	"github.com/go-gl/mathgl/mgl64"
	"gopkg.in/yaml.v3"
)

// Entry mirrors one row of data.initialParticleLocations: link, location
// and normal in the link's own frame.
type Entry struct {
	Link     string     `yaml:"link"`
	Location [3]float64 `yaml:"location"`
	Normal   [3]float64 `yaml:"normal"`
}

type fileFormat struct {
	Mu    float64 `yaml:"mu"`
	Sites []Entry `yaml:"sites"`
}

// Catalog is the set of all candidate sites known to the filter, loaded
// once at startup and never mutated (see spec.md 4.1).
type Catalog struct {
	sites  []CandidateSite
	byLink map[string][]int
}

// Load reads a site-list file (YAML: mu, sites:[{link,location,normal}])
// and precomputes each site's cone rotation and force-moment transform.
func Load(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("site: opening catalog file: %w", err)
	}
	defer f.Close()

	var ff fileFormat
	dec := yaml.NewDecoder(f)
	if err := dec.Decode(&ff); err != nil {
		return nil, fmt.Errorf("site: decoding catalog file: %w", err)
	}
	mu := ff.Mu
	if mu <= 0 {
		mu = DefaultMu
	}
	return FromEntries(ff.Sites, mu)
}

// FromEntries builds a Catalog directly from in-memory entries, used by
// Load, by the config package's LoadContactCells for the cell entries
// of a standalone data.contactCells file, by example/replay, and by tests.
func FromEntries(entries []Entry, mu float64) (*Catalog, error) {
	c := &Catalog{
		sites:  make([]CandidateSite, 0, len(entries)),
		byLink: make(map[string][]int),
	}
	for i, e := range entries {
		pos := mgl64.Vec3{e.Location[0], e.Location[1], e.Location[2]}
		nrm := mgl64.Vec3{e.Normal[0], e.Normal[1], e.Normal[2]}
		cs, err := New(i, e.Link, pos, nrm, mu)
		if err != nil {
			return nil, fmt.Errorf("site: loading site %d: %w", i, err)
		}
		c.sites = append(c.sites, *cs)
		c.byLink[e.Link] = append(c.byLink[e.Link], i)
	}
	return c, nil
}

// ByLink returns the candidate sites belonging to the named link.
func (c *Catalog) ByLink(link string) []*CandidateSite {
	idx := c.byLink[link]
	out := make([]*CandidateSite, len(idx))
	for i, j := range idx {
		out[i] = &c.sites[j]
	}
	return out
}

// All returns every candidate site in the catalog, flat.
func (c *Catalog) All() []*CandidateSite {
	out := make([]*CandidateSite, len(c.sites))
	for i := range c.sites {
		out[i] = &c.sites[i]
	}
	return out
}

// Links returns the distinct link names present in the catalog.
func (c *Catalog) Links() []string {
	out := make([]string, 0, len(c.byLink))
	for l := range c.byLink {
		out = append(out, l)
	}
	return out
}

// Len is the number of candidate sites in the catalog.
func (c *Catalog) Len() int { return len(c.sites) }

// Sample draws n candidate sites uniformly at random, with replacement.
func (c *Catalog) Sample(rng *rand.Rand, n int) []*CandidateSite {
	out := make([]*CandidateSite, n)
	for i := 0; i < n; i++ {
		out[i] = &c.sites[rng.Intn(len(c.sites))]
	}
	return out
}

// SampleExcludingLinks draws n candidate sites uniformly at random from
// only those sites whose link is not in excluded. Used by the
// hypothesis manager to seed a new hypothesis away from links already
// claimed by an existing set's current best (spec.md 4.6).
func (c *Catalog) SampleExcludingLinks(rng *rand.Rand, n int, excluded map[string]bool) []*CandidateSite {
	pool := make([]*CandidateSite, 0, len(c.sites))
	for i := range c.sites {
		if !excluded[c.sites[i].Link] {
			pool = append(pool, &c.sites[i])
		}
	}
	if len(pool) == 0 {
		pool = c.All()
	}
	out := make([]*CandidateSite, n)
	for i := 0; i < n; i++ {
		out[i] = pool[rng.Intn(len(pool))]
	}
	return out
}
