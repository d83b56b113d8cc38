package likelihood

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/mathrgo/cpf/qp"
	"github.com/mathrgo/cpf/site"
	"gonum.org/v1/gonum/mat"
)

// SolutionRecord is the outcome of evaluating one k-contact tuple
// against a residual: per-site coefficients and forces, the summed
// implied generalized force, the weighted squared error and Gaussian
// log-likelihood of the fit, and the logical timestamp of evaluation.
// Once built a SolutionRecord is immutable and may be shared by
// reference between particles evaluated against the same tuple within
// one measurement pass (spec.md 4.2's caching note).
type SolutionRecord struct {
	Sites           []*site.CandidateSite
	Alpha           [][]float64
	Force           []mgl64.Vec3
	ImpliedResidual []float64
	SquaredError    float64
	LogLikelihood   float64
	Likelihood      float64
	Time            float64
}

// Evaluator is C2: the measurement-likelihood evaluator.
type Evaluator struct {
	// Sigma2 is the measurement-noise variance (measurementModel.var);
	// Sigma = Sigma2 * I.
	Sigma2 float64
	// W is the weighting matrix for the squared-error term; identity by
	// default.
	W      *mat.Dense
	Solver qp.Solver
}

// New builds an Evaluator. If w is nil, an n x n identity is used.
func New(sigma2 float64, n int, w *mat.Dense, solver qp.Solver) *Evaluator {
	if w == nil {
		w = mat.NewDense(n, n, nil)
		for i := 0; i < n; i++ {
			w.Set(i, i, 1)
		}
	}
	return &Evaluator{Sigma2: sigma2, W: w, Solver: solver}
}

// Evaluate solves the bounded QP for the given residual and candidate
// sites jointly (a k-contact tuple, k = len(sites)), given each
// involved link's current geometric Jacobian. Requires the rigid-body
// model be at the current joint configuration (caller's responsibility,
// spec.md 4.2).
func (e *Evaluator) Evaluate(t float64, residual []float64, jacobians map[string]*mat.Dense, sites ...*site.CandidateSite) (*SolutionRecord, error) {
	if len(sites) == 0 {
		return nil, fmt.Errorf("likelihood: evaluate called with no sites")
	}
	n := len(residual)
	k := len(sites)
	H := mat.NewDense(n, k*site.ConeEdges, nil)
	for i, s := range sites {
		J, ok := jacobians[s.Link]
		if !ok {
			return nil, fmt.Errorf("likelihood: missing Jacobian for link %q", s.Link)
		}
		hi := s.Halpha(J)
		H.Slice(0, n, i*site.ConeEdges, (i+1)*site.ConeEdges).(*mat.Dense).Copy(hi)
	}

	r := mat.NewVecDense(n, residual)
	alpha, _, err := e.Solver.Solve(H, e.W, r)
	if err != nil {
		return nil, fmt.Errorf("likelihood: QP solve: %w", err)
	}

	rec := &SolutionRecord{
		Sites: append([]*site.CandidateSite(nil), sites...),
		Alpha: make([][]float64, k),
		Force: make([]mgl64.Vec3, k),
		Time:  t,
	}
	implied := mat.NewVecDense(n, nil)
	implied.MulVec(H, alpha)
	for i, s := range sites {
		a := make([]float64, site.ConeEdges)
		for c := 0; c < site.ConeEdges; c++ {
			a[c] = alpha.AtVec(i*site.ConeEdges + c)
		}
		rec.Alpha[i] = a
		rec.Force[i] = s.Force(a)
	}
	rec.ImpliedResidual = make([]float64, n)
	for i := 0; i < n; i++ {
		rec.ImpliedResidual[i] = implied.AtVec(i)
	}

	var diff mat.VecDense
	diff.SubVec(r, implied)
	var wd mat.VecDense
	wd.MulVec(e.W, &diff)
	rec.SquaredError = mat.Dot(&diff, &wd)

	sigma2 := e.Sigma2
	if sigma2 <= 0 {
		sigma2 = 1
	}
	unweighted := mat.Dot(&diff, &diff)
	rec.LogLikelihood = -0.5 * unweighted / sigma2
	rec.Likelihood = math.Exp(rec.LogLikelihood)

	return rec, nil
}

// NoContactSquaredError is the squared weighted norm of the residual
// alone, used for the empty-estimate log-likelihood and as the birth
// trigger when no hypothesis yet exists (spec.md 12's supplemented
// "no-contact squared error baseline").
func (e *Evaluator) NoContactSquaredError(residual []float64) float64 {
	n := len(residual)
	r := mat.NewVecDense(n, residual)
	var wr mat.VecDense
	wr.MulVec(e.W, r)
	return mat.Dot(r, &wr)
}

// SweepLinks is the supplemented full-sweep mode (spec.md 12): evaluate
// every candidate site on the named links individually, used by the
// external force-torque hint input instead of the particle-filter path.
func (e *Evaluator) SweepLinks(t float64, residual []float64, jacobians map[string]*mat.Dense, catalog *site.Catalog, links []string) ([]*SolutionRecord, error) {
	out := make([]*SolutionRecord, 0)
	for _, link := range links {
		for _, s := range catalog.ByLink(link) {
			rec, err := e.Evaluate(t, residual, jacobians, s)
			if err != nil {
				return nil, err
			}
			out = append(out, rec)
		}
	}
	return out, nil
}
