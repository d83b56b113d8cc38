package cpf

import (
	"math/rand"

	"github.com/mathrgo/cpf/likelihood"
	"github.com/mathrgo/cpf/site"
)

// palette is the small fixed sequence of display colors assigned to
// newly-born sets in rotation, the way the teacher's psokit/psolist.go
// cycles a fixed palette across runs.
var palette = [][3]float64{
	{0.8, 0.1, 0.1},
	{0.1, 0.6, 0.8},
	{0.2, 0.7, 0.2},
	{0.8, 0.6, 0.1},
	{0.6, 0.2, 0.8},
	{0.1, 0.1, 0.1},
}

// HypothesisManager is C6: owns the hypothesis list and decides when to
// birth or kill a particle set.
type HypothesisManager struct {
	Sets []*ParticleSet

	lastAdded           float64
	lastRemoved         float64
	aboveThresholdSince float64 // -1 when not currently above AddThreshold
	haveStepped         bool
	nextColor           int
}

// NewHypothesisManager returns an empty manager. lastAdded/lastRemoved
// start at -infinity-equivalent so the very first birth is never
// blocked by a cooldown that hasn't had a chance to elapse.
func NewHypothesisManager() *HypothesisManager {
	return &HypothesisManager{
		lastAdded:           -1e18,
		lastRemoved:         -1e18,
		aboveThresholdSince: -1,
	}
}

// errorMeasure reports the squared error used by the birth check:
// spec.md 4.6(i)'s "current best squared error" is, with one or more
// sets already active, the smallest current-best error among them —
// the residual is considered unexplained only if even the
// best-fitting existing hypothesis still leaves a large error.
func (m *HypothesisManager) errorMeasure(noContactSquaredError float64) float64 {
	if len(m.Sets) == 0 {
		return noContactSquaredError
	}
	best := noContactSquaredError
	first := true
	for _, s := range m.Sets {
		if s.Current == nil {
			continue
		}
		if first || s.Current.SquaredError < best {
			best = s.Current.SquaredError
			first = false
		}
	}
	return best
}

// MaybeBirth implements spec.md 4.6's birth condition and, if it fires,
// seeds and returns the new set (already appended to m.Sets); the
// caller is responsible for running the warm-start cycles before the
// set rejoins ordinary peer-coupled stepping. Conflict resolution (add
// wins over remove in the same step) is the caller's responsibility:
// skip MaybeKill when MaybeBirth fires.
func (m *HypothesisManager) MaybeBirth(
	t float64,
	cfg Heuristics,
	noContactSquaredError float64,
	rng *rand.Rand,
	catalog *site.Catalog,
) *ParticleSet {
	e := m.errorMeasure(noContactSquaredError)

	if e <= cfg.AddThreshold {
		m.aboveThresholdSince = -1
		return nil
	}
	if m.aboveThresholdSince < 0 {
		m.aboveThresholdSince = t
	}
	if t-m.aboveThresholdSince < cfg.PersistenceWindow {
		return nil
	}
	if t-m.lastAdded < cfg.AddCooldown {
		return nil
	}
	if len(m.Sets) >= cfg.MaxParticleSets {
		return nil
	}

	claimed := make(map[string]bool, len(m.Sets))
	for _, s := range m.Sets {
		if s.Current != nil {
			claimed[s.Current.Sites[0].Link] = true
		}
	}

	color := palette[m.nextColor%len(palette)]
	m.nextColor++
	newSet := NewParticleSet(color, cfg.WindowSeconds)
	for _, cs := range catalog.SampleExcludingLinks(rng, cfg.NumParticles, claimed) {
		newSet.Add(&Particle{Site: cs, Weight: 1})
	}

	m.Sets = append(m.Sets, newSet)
	m.lastAdded = t
	m.aboveThresholdSince = -1
	return newSet
}

// MaybeKill implements spec.md 4.6's death condition: for each set,
// if ErrorWithout reports, for any contributing site, an error below
// RemoveThreshold, and the remove cooldown has elapsed, that set is
// deleted. At most one death per step.
func (m *HypothesisManager) MaybeKill(t float64, cfg Heuristics) *ParticleSet {
	if t-m.lastRemoved < cfg.RemoveCooldown {
		return nil
	}
	for i, s := range m.Sets {
		if s.Current == nil {
			continue
		}
		for _, cs := range s.Current.Sites {
			if e, ok := s.ErrorWithout(cs.ID); ok && e < cfg.RemoveThreshold {
				m.Sets = append(m.Sets[:i], m.Sets[i+1:]...)
				m.lastRemoved = t
				return s
			}
		}
	}
	return nil
}

// WarmStart runs cfg.WarmStartCycles synchronous propose/evaluate/
// resample cycles on newSet alone, peers pinned to their historical
// bests, then resets every other set to its own historical most-likely
// so peer interactions aren't corrupted by the transient (spec.md 4.6).
func (m *HypothesisManager) WarmStart(
	t float64,
	cfg Heuristics,
	newSet *ParticleSet,
	step func(s *ParticleSet, peers []*likelihood.SolutionRecord) error,
) error {
	peers := make([]*likelihood.SolutionRecord, 0, len(m.Sets)-1)
	for _, s := range m.Sets {
		if s == newSet || s.Historical == nil {
			continue
		}
		peers = append(peers, s.Historical)
	}
	for i := 0; i < cfg.WarmStartCycles; i++ {
		if err := step(newSet, peers); err != nil {
			return err
		}
	}
	for _, s := range m.Sets {
		if s != newSet {
			s.ResetToHistorical(cfg.NumParticles)
		}
	}
	return nil
}
