package cpf

import (
	"fmt"
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"github.com/mathrgo/cpf/kinematics"
	"github.com/mathrgo/cpf/likelihood"
	"github.com/mathrgo/cpf/locator"
	"github.com/mathrgo/cpf/site"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// windowEntry is one (time, solution) pair kept in a set's bounded
// history, per spec.md 4.3.
type windowEntry struct {
	Time     float64
	Solution *likelihood.SolutionRecord
}

// ParticleSet is C3: a population of particles tracking one contact
// hypothesis. Per spec.md's arena-plus-index design note, the set owns
// its particle slice outright and rebuilds it from scratch at every
// resample; particles never back-reference the set.
type ParticleSet struct {
	// ID is a stable identity that survives resampling, used by the
	// hypothesis manager and the visualization payload.
	ID uuid.UUID
	// Color is the set's RGB display triple.
	Color [3]float64

	Particles []*Particle

	// Current is the current most-likely solution, nil until the first
	// measurement update (spec.md 3's particle-set invariant).
	Current *likelihood.SolutionRecord
	// Historical is the historical most-likely solution within Window.
	Historical *likelihood.SolutionRecord

	window         []windowEntry
	windowDuration float64

	errorWithout map[int]float64
}

// NewParticleSet creates an empty set with the given display color and
// solution-history window duration (seconds of simulated time).
func NewParticleSet(color [3]float64, windowDuration float64) *ParticleSet {
	return &ParticleSet{
		ID:             uuid.New(),
		Color:          color,
		windowDuration: windowDuration,
	}
}

// Add appends a particle to the set.
func (s *ParticleSet) Add(p *Particle) {
	s.Particles = append(s.Particles, p)
}

// Number is the set's current population size.
func (s *ParticleSet) Number() int { return len(s.Particles) }

// Resample performs importance resampling (spec.md 4.3): n new
// particles are drawn with replacement from a categorical distribution
// over the current population, weighted by likelihood*proposal-weight,
// falling back to reciprocal-error weighting when the weight sum is
// degenerate (spec.md 7(vi)).
func (s *ParticleSet) Resample(rng *rand.Rand, n int) {
	if len(s.Particles) == 0 || n <= 0 {
		s.Particles = nil
		return
	}

	weights := make([]float64, len(s.Particles))
	for i, p := range s.Particles {
		weights[i] = p.Likelihood() * p.Weight
	}
	sum := floats.Sum(weights)
	if sum < 1e-6 {
		sum = 0
		for i, p := range s.Particles {
			e := p.SquaredError()
			if e <= 1e-12 {
				e = 1e-12
			}
			weights[i] = p.Weight / e
			sum += weights[i]
		}
	}
	if sum <= 0 {
		for i := range weights {
			weights[i] = 1
		}
		sum = float64(len(weights))
	}

	resampled := make([]*Particle, n)
	for i := 0; i < n; i++ {
		target := rng.Float64() * sum
		cum := 0.0
		chosen := s.Particles[len(s.Particles)-1]
		for j, w := range weights {
			cum += w
			if target <= cum {
				chosen = s.Particles[j]
				break
			}
		}
		resampled[i] = &Particle{Site: chosen.Site, Solution: chosen.Solution, Weight: 1}
	}
	s.Particles = resampled
}

// SetBest forces the current most-likely solution directly, bypassing
// recomputation from the population. Used when resetting a peer set to
// its own historical most-likely during a new set's warm-start
// (spec.md 4.6).
func (s *ParticleSet) SetBest(t float64, rec *likelihood.SolutionRecord) {
	s.Current = rec
	s.pushWindow(t, rec)
}

// UpdateBest recomputes the current most-likely particle from the
// population by one of two policies (spec.md 4.3), appends it to the
// solution-history window, prunes expired entries, and recomputes the
// historical most-likely as the minimum-error entry remaining.
func (s *ParticleSet) UpdateBest(
	t float64,
	cfg Heuristics,
	eval *likelihood.Evaluator,
	residual []float64,
	jacobians map[string]*mat.Dense,
	model kinematics.Model,
	loc *locator.Adapter,
	peers []*site.CandidateSite,
) error {
	if len(s.Particles) == 0 {
		return fmt.Errorf("cpf: update_best on empty particle set")
	}

	var chosen *Particle
	if cfg.BestParticlePolicy == PolicyAverage {
		cluster := make([]*Particle, 0, len(s.Particles))
		for _, p := range s.Particles {
			if p.SquaredError() < cfg.SquaredErrorBoundForAveraging {
				cluster = append(cluster, p)
			}
		}
		if len(cluster) > 0 {
			mean, err := averageWorldPosition(cluster, model)
			if err == nil {
				if cs, err := loc.Locate(mean); err == nil {
					chosen = &Particle{Site: cs, Weight: 1}
				}
			}
		}
	}
	if chosen == nil {
		chosen = minErrorParticle(s.Particles)
	}

	if _, ok := jacobians[chosen.Site.Link]; !ok {
		j, err := model.Jacobian(chosen.Site.Link)
		if err != nil {
			return fmt.Errorf("cpf: jacobian for chosen site's link: %w", err)
		}
		jacobians[chosen.Site.Link] = j
	}

	sites := append([]*site.CandidateSite{chosen.Site}, peers...)
	rec, err := eval.Evaluate(t, residual, jacobians, sites...)
	if err != nil {
		return fmt.Errorf("cpf: update_best evaluate: %w", err)
	}
	chosen.Solution = rec
	s.Current = rec
	s.pushWindow(t, rec)
	return nil
}

func (s *ParticleSet) pushWindow(t float64, rec *likelihood.SolutionRecord) {
	s.window = append(s.window, windowEntry{Time: t, Solution: rec})
	cutoff := t - s.windowDuration
	kept := s.window[:0]
	for _, e := range s.window {
		if e.Time >= cutoff {
			kept = append(kept, e)
		}
	}
	s.window = kept

	best := s.window[0]
	for _, e := range s.window[1:] {
		if e.Solution.SquaredError < best.Solution.SquaredError {
			best = e
		}
	}
	s.Historical = best.Solution
}

// PopulateErrorWithoutCache computes, for every site in the current
// best's solution (this set's own site plus the fixed peer sites it
// was jointly evaluated against), the squared error that results from
// dropping that site and re-solving over the remainder (spec.md 4.3's
// per-peer accounting, used by the hypothesis manager's death check).
// Keyed by candidate-site stable ID.
func (s *ParticleSet) PopulateErrorWithoutCache(
	t float64,
	eval *likelihood.Evaluator,
	residual []float64,
	jacobians map[string]*mat.Dense,
) error {
	if s.Current == nil {
		s.errorWithout = nil
		return nil
	}
	s.errorWithout = make(map[int]float64, len(s.Current.Sites))
	for i, dropped := range s.Current.Sites {
		remaining := make([]*site.CandidateSite, 0, len(s.Current.Sites)-1)
		for j, cs := range s.Current.Sites {
			if j != i {
				remaining = append(remaining, cs)
			}
		}
		if len(remaining) == 0 {
			s.errorWithout[dropped.ID] = eval.NoContactSquaredError(residual)
			continue
		}
		rec, err := eval.Evaluate(t, residual, jacobians, remaining...)
		if err != nil {
			return fmt.Errorf("cpf: squared_error_without site %d: %w", dropped.ID, err)
		}
		s.errorWithout[dropped.ID] = rec.SquaredError
	}
	return nil
}

// ErrorWithout returns the cached squared error with the named
// candidate site dropped, populated by PopulateErrorWithoutCache.
func (s *ParticleSet) ErrorWithout(csID int) (float64, bool) {
	e, ok := s.errorWithout[csID]
	return e, ok
}

// ResetToHistorical replaces the set's particle list with copies of its
// own historical most-likely site, used when a peer set is reset during
// another set's warm-start birth (spec.md 4.6).
func (s *ParticleSet) ResetToHistorical(n int) {
	if s.Historical == nil || n <= 0 {
		return
	}
	site0 := s.Historical.Sites[0]
	parts := make([]*Particle, n)
	for i := range parts {
		parts[i] = &Particle{Site: site0, Weight: 1}
	}
	s.Particles = parts
}

func minErrorParticle(parts []*Particle) *Particle {
	best := parts[0]
	for _, p := range parts[1:] {
		if p.SquaredError() < best.SquaredError() {
			best = p
		}
	}
	return best
}

func averageWorldPosition(cluster []*Particle, model kinematics.Model) (mgl64.Vec3, error) {
	var sum mgl64.Vec3
	for _, p := range cluster {
		w, err := locator.WorldPosition(model, p.Site)
		if err != nil {
			return mgl64.Vec3{}, err
		}
		sum = sum.Add(w)
	}
	return sum.Mul(1.0 / float64(len(cluster))), nil
}
