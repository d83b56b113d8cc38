/*
Package particle holds the Particle type shared by the proposal model
(C4) and the particle set (C3), kept in its own package so neither
depends on the other: the proposal model produces new particles, the
particle set owns and resamples them.
*/
package particle

import (
	"math"

	"github.com/mathrgo/cpf/likelihood"
	"github.com/mathrgo/cpf/site"
)

// Particle is one hypothesis about where a single contact is: a
// reference to a candidate site, an optional solution record filled by
// the most recent likelihood evaluation, and a proposal weight (motion
// density / proposal density; 1 when sampled from the motion model
// itself). Per spec.md's arena-plus-index design note, a Particle does
// not back-reference its owning set; ParticleSet owns a flat slice and
// particles are looked up by index, never by owning pointer.
type Particle struct {
	Site     *site.CandidateSite
	Solution *likelihood.SolutionRecord
	Weight   float64
}

// SquaredError returns the particle's most recent squared error, or
// +Inf if it has never been evaluated.
func (p *Particle) SquaredError() float64 {
	if p.Solution == nil {
		return math.Inf(1)
	}
	return p.Solution.SquaredError
}

// Likelihood returns the particle's most recent raw likelihood, or 0 if
// it has never been evaluated.
func (p *Particle) Likelihood() float64 {
	if p.Solution == nil {
		return 0
	}
	return p.Solution.Likelihood
}
