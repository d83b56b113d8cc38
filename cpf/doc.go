/*
Package cpf is the Contact Particle Filter engine: the root package ties
together the surface catalog (site), the measurement-likelihood evaluator
(likelihood), the proposal/motion model (proposal) and the geometry
collaborators (kinematics, locator) into the three pieces spec.md calls
out as the core loop:

  - ParticleSet (C3) — one population of particles tracking a single
    contact hypothesis, its current and historical most-likely solutions.
  - HypothesisManager (C6) — owns the list of active particle sets,
    births and kills them based on residual energy and cooldowns.
  - Driver (C7) — the per-residual pipeline: propose, evaluate jointly
    with peers, resample, update bests, publish, manage hypotheses.

See DESIGN.md for the grounding of each piece and SPEC_FULL.md for the
full requirements this package implements.
*/
package cpf
