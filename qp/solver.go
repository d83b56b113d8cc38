package qp

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Solver solves the bounded QP of k contacts: given the stacked
// regressor H (n x kK, one K-column block per contact) and residual r
// (n), find alpha (kK) minimizing ||r-H*alpha||^2_W subject to alpha>=0,
// and report the resulting weighted objective.
//
// The QP is always feasible (alpha=0 is feasible); a Solver returns an
// error only for a malformed problem (dimension mismatch), never for
// infeasibility (spec.md 4.2).
type Solver interface {
	Solve(H *mat.Dense, W *mat.Dense, r *mat.VecDense) (alpha *mat.VecDense, objective float64, err error)
}

// New builds the Solver named by configuration (solver.solverType).
func New(name string) (Solver, error) {
	switch name {
	case "", "nnls":
		return &NNLS{MaxIters: 500, Tol: 1e-10}, nil
	case "projgrad":
		return &ProjGrad{MaxIters: 2000, Step: 0.0, Tol: 1e-10}, nil
	default:
		return nil, fmt.Errorf("qp: unknown solver type %q", name)
	}
}

// weightedSystem forms the normal-equation matrices A^T W A and A^T W r
// for the weighted least-squares problem, used by both solvers.
func weightedSystem(H, W *mat.Dense, r *mat.VecDense) (ata *mat.Dense, atb *mat.VecDense) {
	_, k := H.Dims()
	var wh mat.Dense
	wh.Mul(W, H) // n x k
	ata = mat.NewDense(k, k, nil)
	ata.Mul(H.T(), &wh)

	var wr mat.VecDense
	wr.MulVec(W, r)
	atb = mat.NewVecDense(k, nil)
	atb.MulVec(H.T(), &wr)
	return
}

func weightedObjective(H, W *mat.Dense, r, alpha *mat.VecDense) float64 {
	n, _ := H.Dims()
	implied := mat.NewVecDense(n, nil)
	implied.MulVec(H, alpha)
	var diff mat.VecDense
	diff.SubVec(r, implied)
	var wd mat.VecDense
	wd.MulVec(W, &diff)
	return mat.Dot(&diff, &wd)
}
