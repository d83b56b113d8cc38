package cpf

import "github.com/mathrgo/cpf/proposal"

// BestParticlePolicy selects how a particle set's current most-likely
// particle is computed from the population, per spec.md 4.3 and the
// Open Question of design note 9.
type BestParticlePolicy int

const (
	// PolicyAverage averages the world positions of every particle with
	// squared error below SquaredErrorBoundForAveraging, re-projects the
	// mean to the surface, and re-evaluates it; falls back to
	// PolicyMinError when no particle qualifies. This is the default.
	PolicyAverage BestParticlePolicy = iota
	// PolicyMinError always takes the particle with the smallest squared
	// error, ignoring the averaging bound.
	PolicyMinError
)

// Heuristics is the full set of configuration knobs enumerated in
// spec.md section 6, grouped by the subsystem they drive.
type Heuristics struct {
	// NumParticles is the configured per-set population size (typically
	// 100-500).
	NumParticles int
	// WindowSeconds is the bounded time-window of recent best solutions
	// (default 1s) a set keeps to compute its historical most-likely.
	WindowSeconds float64
	// SquaredErrorBoundForAveraging is theta_avg
	// (thresholds.squaredErrorBoundForMostLikelyParticleAveraging).
	SquaredErrorBoundForAveraging float64
	// BestParticlePolicy selects which of the two kept policies computes
	// the current most-likely particle.
	BestParticlePolicy BestParticlePolicy

	// Proposal configures C4 (see the proposal package).
	Proposal proposal.Config

	// AddThreshold is tau_add (thresholds.addContactPointSquaredError).
	AddThreshold float64
	// RemoveThreshold is tau_remove
	// (thresholds.removeContactPointSquaredError).
	RemoveThreshold float64
	// AddCooldown is thresholds.addContactPointTimeout, seconds of
	// simulated time that must elapse between births.
	AddCooldown float64
	// RemoveCooldown is thresholds.removeContactPointTimeout.
	RemoveCooldown float64
	// PersistenceWindow is thresholds.timeAboveThresholdToAddParticleSet:
	// the error must stay continuously above AddThreshold for at least
	// this long before a birth is allowed.
	PersistenceWindow float64
	// MaxParticleSets bounds hypothesis-list cardinality
	// (debug.maxNumParticleSets, default 4).
	MaxParticleSets int
	// WarmStartCycles is N_init, the number of synchronous
	// propose/evaluate/resample cycles run on a newly-born set alone
	// before it rejoins normal peer-coupled stepping (default 4).
	WarmStartCycles int

	// Sigma2 is the measurement-noise variance (measurementModel.var).
	Sigma2 float64

	// AddNoise and NoiseStdDev configure the optional additive Gaussian
	// residual noise of spec.md 4.7 (noise.addNoise, noise.stddev).
	AddNoise    bool
	NoiseStdDev float64

	// RNGSeed seeds the filter's single explicit PRNG, for
	// bit-identical replay (spec.md P8, design note 9's "RNG").
	RNGSeed int64
}

// DefaultHeuristics returns the values used in spec.md's scenario
// walk-throughs where given, and otherwise reasonable defaults.
func DefaultHeuristics() Heuristics {
	return Heuristics{
		NumParticles:                  200,
		WindowSeconds:                 1.0,
		SquaredErrorBoundForAveraging: 0.05,
		BestParticlePolicy:            PolicyAverage,
		Proposal:                      proposal.Default(),
		AddThreshold:                  1.0,
		RemoveThreshold:               1.0,
		AddCooldown:                   0.5,
		RemoveCooldown:                0.5,
		PersistenceWindow:             0.2,
		MaxParticleSets:               4,
		WarmStartCycles:               4,
		Sigma2:                        0.01,
		RNGSeed:                       1,
	}
}
