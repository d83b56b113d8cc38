package proposal

import (
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/mathrgo/cpf/kinematics"
	"github.com/mathrgo/cpf/likelihood"
	"github.com/mathrgo/cpf/locator"
	"github.com/mathrgo/cpf/particle"
	"github.com/mathrgo/cpf/site"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
)

// Advance implements C4 for one particle set, returning a fresh base
// population of exactly n particles built from parts (the set's
// previous particle list) ahead of evaluation and importance
// resampling. Reseed and historical-duplicate particles are NOT
// produced here: spec.md 4.4 groups 1 and 2 sum to the base population,
// while the reseed group and the fixed historical duplicates are
// appended by the caller after resampling, so that the post-resample
// size invariant (spec.md P2) is exactly n + duplicates + reseed(if
// triggered). See Reseeded and Duplicates below for those two groups.
//
// currentBest/historicalBest may both be nil (no measurement processed
// yet), in which case every particle is advanced by a pure
// motion-model step with weight 1, per spec.md 4.4.
//
// By convention, the first entry of a SolutionRecord's Sites (and
// Alpha/Force) is always the evaluating particle set's own candidate;
// any further entries are fixed peer contributions.
func Advance(
	rng *rand.Rand,
	cfg Config,
	n int,
	parts []*particle.Particle,
	currentBest, historicalBest *likelihood.SolutionRecord,
	model kinematics.Model,
	loc *locator.Adapter,
	catalog *site.Catalog,
) []*particle.Particle {
	if len(parts) == 0 {
		parts = catalogSeedAsParticles(rng, catalog, max(n, 1))
	}
	if currentBest == nil && historicalBest == nil {
		out := make([]*particle.Particle, 0, n)
		for i := 0; i < n; i++ {
			out = append(out, pureMotionStep(rng, cfg, parts[i%len(parts)], model, loc, catalog, cfg.VarMax))
		}
		return out
	}

	eStar := 0.0
	if currentBest != nil {
		eStar = currentBest.SquaredError
	} else {
		eStar = historicalBest.SquaredError
	}
	alpha := eStar / cfg.VarMaxSquaredErrorCutoff
	if alpha > 1 {
		alpha = 1
	}
	if alpha < 0 {
		alpha = 0
	}
	sigma2m := alpha*cfg.VarMax + (1-alpha)*cfg.VarMin

	nMotion := int(math.Round(cfg.NormalFraction * float64(n)))
	if nMotion > n {
		nMotion = n
	}
	if nMotion < 0 {
		nMotion = 0
	}

	out := make([]*particle.Particle, 0, n)
	for i := 0; i < nMotion; i++ {
		out = append(out, motionStep(rng, cfg, parts[i%len(parts)], model, loc, catalog, sigma2m))
	}
	for i := nMotion; i < n; i++ {
		p := historicalStep(rng, cfg, currentBest, historicalBest, model, loc, catalog, sigma2m)
		if p == nil {
			p = pureMotionStep(rng, cfg, parts[i%len(parts)], model, loc, catalog, sigma2m)
		}
		out = append(out, p)
	}
	return out
}

// Reseeded reports whether the current best squared error exceeds
// tau_seed, per spec.md 4.4 group 3, and if so draws the configured
// reseed population uniformly from the catalog.
func Reseeded(rng *rand.Rand, cfg Config, currentBestSquaredError float64, catalog *site.Catalog) []*particle.Particle {
	if currentBestSquaredError <= cfg.SeedSquaredErrorThreshold {
		return nil
	}
	out := make([]*particle.Particle, 0, cfg.SeedNumParticles)
	for _, s := range catalog.Sample(rng, cfg.SeedNumParticles) {
		out = append(out, &particle.Particle{Site: s, Weight: 1})
	}
	return out
}

// Duplicates returns the fixed number of exact duplicates of the
// historical most-likely particle injected every step so a good
// hypothesis is never lost to sampling noise (spec.md 4.4).
func Duplicates(cfg Config, historicalBest *likelihood.SolutionRecord) []*particle.Particle {
	if historicalBest == nil || cfg.NumParticlesAtActual <= 0 {
		return nil
	}
	out := make([]*particle.Particle, cfg.NumParticlesAtActual)
	for i := range out {
		out[i] = &particle.Particle{Site: historicalBest.Sites[0], Weight: 1}
	}
	return out
}

func catalogSeedAsParticles(rng *rand.Rand, catalog *site.Catalog, n int) []*particle.Particle {
	out := make([]*particle.Particle, n)
	for i, s := range catalog.Sample(rng, n) {
		out[i] = &particle.Particle{Site: s, Weight: 1}
	}
	return out
}

// pureMotionStep advances one particle by the surface-local motion
// model alone, used before any measurement has been processed.
func pureMotionStep(rng *rand.Rand, cfg Config, p *particle.Particle, model kinematics.Model, loc *locator.Adapter, catalog *site.Catalog, sigma2 float64) *particle.Particle {
	if cfg.MotionModel == MotionWithinLink {
		return withinLinkStep(rng, p.Site, catalog, sigma2)
	}
	next, err := worldSpaceStep(rng, p.Site, model, loc, sigma2)
	if err != nil {
		return withinLinkStep(rng, p.Site, catalog, sigma2)
	}
	return next
}

// motionStep advances p about its OWN current candidate-site world
// position (spec.md 4.4 group 1) — sigma2m is shared across the set,
// scheduled from the current best's squared error.
func motionStep(rng *rand.Rand, cfg Config, p *particle.Particle, model kinematics.Model, loc *locator.Adapter, catalog *site.Catalog, sigma2m float64) *particle.Particle {
	if cfg.MotionModel == MotionWithinLink {
		return withinLinkStep(rng, p.Site, catalog, sigma2m)
	}
	next, err := worldSpaceStep(rng, p.Site, model, loc, sigma2m)
	if err != nil {
		return withinLinkStep(rng, p.Site, catalog, sigma2m)
	}
	return next
}

// historicalStep draws a sample around the historical most-likely
// point with variance sigma2_h, weighting it by the ratio of the
// motion-model density (centered on the current best) to the
// historical-anchor proposal density actually used to draw it — this
// importance re-weighting keeps the target distribution the motion
// model while sampling from the historical-centered proposal (spec.md
// 4.4, group 2).
func historicalStep(rng *rand.Rand, cfg Config, currentBest, historicalBest *likelihood.SolutionRecord, model kinematics.Model, loc *locator.Adapter, catalog *site.Catalog, sigma2m float64) *particle.Particle {
	if historicalBest == nil {
		return nil
	}
	histSite := historicalBest.Sites[0]
	if cfg.MotionModel == MotionWithinLink {
		return withinLinkStep(rng, histSite, catalog, cfg.HistoricalVariance)
	}

	histWorld, err := locator.WorldPosition(model, histSite)
	if err != nil {
		return withinLinkStep(rng, histSite, catalog, cfg.HistoricalVariance)
	}
	motionMean := histWorld
	if currentBest != nil {
		if w, err := locator.WorldPosition(model, currentBest.Sites[0]); err == nil {
			motionMean = w
		}
	}

	proposalNormal, ok1 := isotropicNormal(rng, histWorld, cfg.HistoricalVariance)
	motionNormal, ok2 := isotropicNormal(rng, motionMean, sigma2m)
	if !ok1 || !ok2 {
		return withinLinkStep(rng, histSite, catalog, cfg.HistoricalVariance)
	}

	sample := proposalNormal.Rand(nil)
	x := mgl64.Vec3{sample[0], sample[1], sample[2]}

	cs, err := loc.Locate(x)
	if err != nil {
		return withinLinkStep(rng, histSite, catalog, cfg.HistoricalVariance)
	}

	pMotion := motionNormal.Prob(sample)
	pProposal := proposalNormal.Prob(sample)
	weight := 1.0
	if pProposal > 1e-300 {
		weight = pMotion / pProposal
	}
	return &particle.Particle{Site: cs, Weight: weight}
}

func worldSpaceStep(rng *rand.Rand, cs *site.CandidateSite, model kinematics.Model, loc *locator.Adapter, sigma2 float64) (*particle.Particle, error) {
	world, err := locator.WorldPosition(model, cs)
	if err != nil {
		return nil, err
	}
	normal, ok := isotropicNormal(rng, world, sigma2)
	if !ok {
		return nil, err
	}
	sample := normal.Rand(nil)
	x := mgl64.Vec3{sample[0], sample[1], sample[2]}
	next, err := loc.Locate(x)
	if err != nil {
		return nil, err
	}
	return &particle.Particle{Site: next, Weight: 1}, nil
}

// withinLinkStep draws a Gaussian-perturbed point in link-frame
// coordinates about cs's contact position and snaps to the nearest
// catalog site on the same link, never leaving the link.
func withinLinkStep(rng *rand.Rand, cs *site.CandidateSite, catalog *site.Catalog, sigma2 float64) *particle.Particle {
	stddev := math.Sqrt(sigma2)
	perturbed := mgl64.Vec3{
		cs.Position[0] + stddev*rng.NormFloat64(),
		cs.Position[1] + stddev*rng.NormFloat64(),
		cs.Position[2] + stddev*rng.NormFloat64(),
	}
	candidates := catalog.ByLink(cs.Link)
	if len(candidates) == 0 {
		return &particle.Particle{Site: cs, Weight: 1}
	}
	best := candidates[0]
	bestDist := perturbed.Sub(best.Position).Dot(perturbed.Sub(best.Position))
	for _, c := range candidates[1:] {
		d := perturbed.Sub(c.Position).Dot(perturbed.Sub(c.Position))
		if d < bestDist {
			best, bestDist = c, d
		}
	}
	return &particle.Particle{Site: best, Weight: 1}
}

// randSource adapts *rand.Rand (math/rand) to the golang.org/x/exp/rand.Source
// interface distmv.NewNormal requires (Uint64/Seed(uint64) rather than
// math/rand's Seed(int64)).
type randSource struct{ r *rand.Rand }

func (s randSource) Uint64() uint64   { return s.r.Uint64() }
func (s randSource) Seed(seed uint64) { s.r.Seed(int64(seed)) }

func isotropicNormal(rng *rand.Rand, mean mgl64.Vec3, sigma2 float64) (*distmv.Normal, bool) {
	if sigma2 <= 0 {
		sigma2 = 1e-9
	}
	cov := mat.NewSymDense(3, []float64{
		sigma2, 0, 0,
		0, sigma2, 0,
		0, 0, sigma2,
	})
	return distmv.NewNormal([]float64{mean[0], mean[1], mean[2]}, cov, randSource{rng})
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
