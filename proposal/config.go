package proposal

// MotionModelKind selects between the two motion-model variants kept
// per spec.md design note 9's Open Question: the default cross-link
// world-space Gaussian proposal, and a within-link-only alternative
// that never leaves the particle's current link.
type MotionModelKind int

const (
	// MotionWorldSpace is the default: displacements are drawn in world
	// coordinates and re-projected to the surface via the locator,
	// which can move a particle from one link to a neighboring one.
	MotionWorldSpace MotionModelKind = iota
	// MotionWithinLink restricts perturbation to candidate sites on the
	// particle's current link.
	MotionWithinLink
)

// Config is the subset of spec.md section 6's configuration keys that
// drive the proposal/motion model.
type Config struct {
	// NormalFraction is phi_n, the fraction of particles advanced by
	// the motion model rather than the historical-anchor proposal.
	NormalFraction float64
	// VarMin/VarMax/VarMaxSquaredErrorCutoff schedule sigma^2_m from
	// the current best squared error (motionModel.var{Min,Max,
	// MaxSquaredErrorCutoff}).
	VarMin                    float64
	VarMax                    float64
	VarMaxSquaredErrorCutoff  float64
	// HistoricalVariance is sigma^2_h (proposal.historical.variance).
	HistoricalVariance float64
	// NumParticlesAtActual is the fixed number of exact duplicates of
	// the historical most-likely particle injected every step
	// (proposal.historical.numParticlesAtActual).
	NumParticlesAtActual int
	// SeedNumParticles is R, the reseed count
	// (proposal.seedDistribution.numParticles).
	SeedNumParticles int
	// SeedSquaredErrorThreshold is tau_seed
	// (proposal.seedDistribution.squaredErrorThreshold).
	SeedSquaredErrorThreshold float64
	// MotionModel selects which of the two kept motion-model variants
	// to use.
	MotionModel MotionModelKind
}

// Default returns heuristically reasonable defaults, the values named
// in spec.md's scenario walk-throughs where given.
func Default() Config {
	return Config{
		NormalFraction:            0.7,
		VarMin:                    0.0005,
		VarMax:                    0.02,
		VarMaxSquaredErrorCutoff:  1.0,
		HistoricalVariance:        0.001,
		NumParticlesAtActual:      2,
		SeedNumParticles:          20,
		SeedSquaredErrorThreshold: 5.0,
		MotionModel:               MotionWorldSpace,
	}
}
