package cpf

import (
	"fmt"
	"math/rand"

	"github.com/mathrgo/cpf/kinematics"
	"github.com/mathrgo/cpf/likelihood"
	"github.com/mathrgo/cpf/locator"
	"github.com/mathrgo/cpf/proposal"
	"github.com/mathrgo/cpf/site"
	"gonum.org/v1/gonum/mat"
)

// Driver is C7: the per-residual filter pipeline. It owns the filter
// state, the hypothesis list (through Manager) and the single explicit
// PRNG (design note 9); no other task reads or writes them (spec.md 5).
type Driver struct {
	Manager    *HypothesisManager
	Evaluator  *likelihood.Evaluator
	Catalog    *site.Catalog
	Kinematics kinematics.Model
	Locator    *locator.Adapter
	Heuristics Heuristics
	RNG        *rand.Rand

	State FilterState
}

// NewDriver wires the pieces together and seeds the single explicit
// PRNG from Heuristics.RNGSeed (design note 9: no hidden global RNG).
func NewDriver(
	evaluator *likelihood.Evaluator,
	catalog *site.Catalog,
	model kinematics.Model,
	loc *locator.Adapter,
	hu Heuristics,
) *Driver {
	return &Driver{
		Manager:    NewHypothesisManager(),
		Evaluator:  evaluator,
		Catalog:    catalog,
		Kinematics: model,
		Locator:    loc,
		Heuristics: hu,
		RNG:        rand.New(rand.NewSource(hu.RNGSeed)),
	}
}

// Step runs one full pass of spec.md 4.7 over one residual message.
func (d *Driver) Step(msg ResidualMessage) (Estimate, error) {
	t := float64(msg.Utime) / 1e6
	d.State.Time = t

	if msg.JointPositions != nil {
		if err := d.Kinematics.SetJointPositions(msg.JointPositions); err != nil {
			return Estimate{}, fmt.Errorf("cpf: setting joint positions: %w", err)
		}
	}

	residual := reorderResidual(msg, d.Kinematics.JointNames())
	if d.Heuristics.AddNoise {
		for i := range residual {
			residual[i] += d.Heuristics.NoiseStdDev * d.RNG.NormFloat64()
		}
	}
	d.State.LastResidual = residual

	noContact := d.Evaluator.NoContactSquaredError(residual)

	for _, s := range d.Manager.Sets {
		peerSites := d.peerSitesExcluding(s)
		if err := d.processSet(s, peerSites, residual, t); err != nil {
			return Estimate{}, err
		}
	}

	for _, s := range d.Manager.Sets {
		if s.Current == nil {
			continue
		}
		links := make(map[string]bool, len(s.Current.Sites))
		for _, cs := range s.Current.Sites {
			links[cs.Link] = true
		}
		jacobians, err := d.jacobiansForLinks(links)
		if err != nil {
			return Estimate{}, err
		}
		if err := s.PopulateErrorWithoutCache(t, d.Evaluator, residual, jacobians); err != nil {
			return Estimate{}, err
		}
	}

	// Conflict resolution (spec.md 4.6): add wins over remove.
	born := d.Manager.MaybeBirth(t, d.Heuristics, noContact, d.RNG, d.Catalog)
	if born != nil {
		err := d.Manager.WarmStart(t, d.Heuristics, born, func(s *ParticleSet, peers []*likelihood.SolutionRecord) error {
			peerSites := make([]*site.CandidateSite, len(peers))
			for i, p := range peers {
				peerSites[i] = p.Sites[0]
			}
			return d.processSet(s, peerSites, residual, t)
		})
		if err != nil {
			return Estimate{}, err
		}
	} else {
		d.Manager.MaybeKill(t, d.Heuristics)
	}

	return d.assembleEstimate(msg, residual, noContact), nil
}

// SweepStep implements the supplemented full-sweep likelihood mode
// (spec.md 12, SPEC_FULL.md 12): rather than driving the particle-filter
// path, it evaluates every candidate site on State.ExpectedContactLinks
// individually and returns the one with the smallest squared error.
// Used by the external force-torque hint input instead of normal Step.
func (d *Driver) SweepStep(residual []float64) (*likelihood.SolutionRecord, error) {
	links := d.State.ExpectedContactLinks
	if len(links) == 0 {
		links = d.Catalog.Links()
	}
	linkSet := make(map[string]bool, len(links))
	for _, l := range links {
		linkSet[l] = true
	}
	jacobians, err := d.jacobiansForLinks(linkSet)
	if err != nil {
		return nil, err
	}
	recs, err := d.Evaluator.SweepLinks(d.State.Time, residual, jacobians, d.Catalog, links)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("cpf: sweep produced no candidate records")
	}
	best := recs[0]
	for _, r := range recs[1:] {
		if r.SquaredError < best.SquaredError {
			best = r
		}
	}
	return best, nil
}

func (d *Driver) peerSitesExcluding(self *ParticleSet) []*site.CandidateSite {
	out := make([]*site.CandidateSite, 0, len(d.Manager.Sets))
	for _, s := range d.Manager.Sets {
		if s == self || s.Historical == nil {
			continue
		}
		out = append(out, s.Historical.Sites[0])
	}
	return out
}

func (d *Driver) processSet(s *ParticleSet, peerSites []*site.CandidateSite, residual []float64, t float64) error {
	pool := proposal.Advance(d.RNG, d.Heuristics.Proposal, d.Heuristics.NumParticles, s.Particles, s.Current, s.Historical, d.Kinematics, d.Locator, d.Catalog)

	links := make(map[string]bool, len(pool)+len(peerSites))
	for _, p := range pool {
		links[p.Site.Link] = true
	}
	for _, cs := range peerSites {
		links[cs.Link] = true
	}
	jacobians, err := d.jacobiansForLinks(links)
	if err != nil {
		return err
	}

	cache := make(map[int]*likelihood.SolutionRecord, len(pool))
	for _, p := range pool {
		if err := d.evaluateParticle(p, peerSites, jacobians, residual, t, cache); err != nil {
			return err
		}
	}

	s.Particles = pool
	s.Resample(d.RNG, d.Heuristics.NumParticles)
	if err := s.UpdateBest(t, d.Heuristics, d.Evaluator, residual, jacobians, d.Kinematics, d.Locator, peerSites); err != nil {
		return err
	}

	dup := proposal.Duplicates(d.Heuristics.Proposal, s.Historical)
	errVal := 0.0
	if s.Current != nil {
		errVal = s.Current.SquaredError
	}
	seed := proposal.Reseeded(d.RNG, d.Heuristics.Proposal, errVal, d.Catalog)
	s.Particles = append(s.Particles, dup...)
	s.Particles = append(s.Particles, seed...)
	return nil
}

// evaluateParticle evaluates p jointly with peerSites, sharing the
// solution record by reference with any other particle in this pass
// that resolves to the same candidate site (spec.md 4.2's caching note).
func (d *Driver) evaluateParticle(
	p *Particle,
	peerSites []*site.CandidateSite,
	jacobians map[string]*mat.Dense,
	residual []float64,
	t float64,
	cache map[int]*likelihood.SolutionRecord,
) error {
	if rec, ok := cache[p.Site.ID]; ok {
		p.Solution = rec
		return nil
	}
	sites := make([]*site.CandidateSite, 0, 1+len(peerSites))
	sites = append(sites, p.Site)
	sites = append(sites, peerSites...)
	rec, err := d.Evaluator.Evaluate(t, residual, jacobians, sites...)
	if err != nil {
		return fmt.Errorf("cpf: evaluating particle: %w", err)
	}
	p.Solution = rec
	cache[p.Site.ID] = rec
	return nil
}

func (d *Driver) jacobiansForLinks(links map[string]bool) (map[string]*mat.Dense, error) {
	out := make(map[string]*mat.Dense, len(links))
	for link := range links {
		j, err := d.Kinematics.Jacobian(link)
		if err != nil {
			return nil, fmt.Errorf("cpf: jacobian for link %q: %w", link, err)
		}
		out[link] = j
	}
	return out, nil
}

// buildContact turns site idx of a solution record into the published
// SingleContact shape, resolving the owning link's frame to give both
// link-local and world-frame force/normal/position.
func (d *Driver) buildContact(rec *likelihood.SolutionRecord, idx int) (SingleContact, error) {
	cs := rec.Sites[idx]
	force := rec.Force[idx]
	worldPos, err := locator.WorldPosition(d.Kinematics, cs)
	if err != nil {
		return SingleContact{}, err
	}
	frame, err := d.Kinematics.LinkFrame(cs.Link)
	if err != nil {
		return SingleContact{}, err
	}
	rot := frame.Mat3()
	return SingleContact{
		LinkName:        cs.Link,
		ContactForce:    force,
		ContactNormal:   cs.Normal,
		ContactPosition: cs.Position,
		WorldForce:      rot.Mul3x1(force),
		WorldNormal:     rot.Mul3x1(cs.Normal),
		WorldPosition:   worldPos,
	}, nil
}

// SweepEstimate runs the full-sweep likelihood mode (SweepStep) over
// msg's residual and assembles an Estimate from the single best-fit
// site, in place of the particle-filter Step. Used by the external
// force-torque hint input (spec.md 6, 12).
func (d *Driver) SweepEstimate(msg ResidualMessage) (Estimate, error) {
	t := float64(msg.Utime) / 1e6
	d.State.Time = t

	if msg.JointPositions != nil {
		if err := d.Kinematics.SetJointPositions(msg.JointPositions); err != nil {
			return Estimate{}, fmt.Errorf("cpf: setting joint positions: %w", err)
		}
	}

	residual := reorderResidual(msg, d.Kinematics.JointNames())
	d.State.LastResidual = residual

	rec, err := d.SweepStep(residual)
	if err != nil {
		return Estimate{}, err
	}
	contact, err := d.buildContact(rec, 0)
	if err != nil {
		return Estimate{}, fmt.Errorf("cpf: assembling sweep estimate: %w", err)
	}
	return Estimate{
		Utime:            msg.Utime,
		NumContactPoints: 1,
		NumVelocities:    len(residual),
		VelocityNames:    d.Kinematics.JointNames(),
		ImpliedResidual:  rec.ImpliedResidual,
		LogLikelihood:    rec.SquaredError,
		Contacts:         []SingleContact{contact},
	}, nil
}

func (d *Driver) assembleEstimate(msg ResidualMessage, residual []float64, noContact float64) Estimate {
	names := d.Kinematics.JointNames()
	if len(d.Manager.Sets) == 0 {
		return EmptyEstimate(msg.Utime, names, noContact)
	}

	contacts := make([]SingleContact, 0, len(d.Manager.Sets))
	for _, s := range d.Manager.Sets {
		if s.Current == nil {
			continue
		}
		contact, err := d.buildContact(s.Current, 0)
		if err != nil {
			continue
		}
		contacts = append(contacts, contact)
	}

	est := Estimate{
		Utime:            msg.Utime,
		NumContactPoints: len(contacts),
		NumVelocities:    len(residual),
		VelocityNames:    names,
		Contacts:         contacts,
		LogLikelihood:    noContact,
	}
	if rep := d.Manager.Sets[0].Current; rep != nil {
		est.LogLikelihood = rep.SquaredError
		est.ImpliedResidual = rep.ImpliedResidual
	}
	return est
}
