package qp

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ProjGrad solves the same weighted NNLS problem as NNLS but by
// projected gradient descent on the normal equations, which is cheaper
// per iteration than a full Gauss-Seidel sweep when k (the number of
// simultaneous contacts times ConeEdges) is large, at the cost of a
// slower convergence rate. Step, when zero, is chosen automatically
// from the normal matrix's diagonal dominance.
type ProjGrad struct {
	MaxIters int
	Step     float64
	Tol      float64
}

func (s *ProjGrad) Solve(H, W *mat.Dense, r *mat.VecDense) (*mat.VecDense, float64, error) {
	nh, k := H.Dims()
	nw, wc := W.Dims()
	nr, _ := r.Dims()
	if nh != nw || nh != wc || nh != nr {
		return nil, 0, fmt.Errorf("qp: dimension mismatch H=%dx%d W=%dx%d r=%d", nh, k, nw, wc, nr)
	}
	ata, atb := weightedSystem(H, W, r)

	step := s.Step
	if step <= 0 {
		// Lipschitz-safe step: reciprocal of the largest row-sum of |A^T W A|.
		maxRowSum := 0.0
		for i := 0; i < k; i++ {
			sum := 0.0
			for j := 0; j < k; j++ {
				sum += math.Abs(ata.At(i, j))
			}
			if sum > maxRowSum {
				maxRowSum = sum
			}
		}
		if maxRowSum <= 0 {
			maxRowSum = 1
		}
		step = 1.0 / maxRowSum
	}
	maxIters := s.MaxIters
	if maxIters <= 0 {
		maxIters = 2000
	}
	tol := s.Tol
	if tol <= 0 {
		tol = 1e-10
	}

	alpha := mat.NewVecDense(k, nil)
	grad := mat.NewVecDense(k, nil)
	for iter := 0; iter < maxIters; iter++ {
		grad.MulVec(ata, alpha)
		grad.SubVec(grad, atb)
		maxChange := 0.0
		for j := 0; j < k; j++ {
			next := alpha.AtVec(j) - step*grad.AtVec(j)
			if next < 0 {
				next = 0
			}
			change := math.Abs(next - alpha.AtVec(j))
			if change > maxChange {
				maxChange = change
			}
			alpha.SetVec(j, next)
		}
		if maxChange < tol {
			break
		}
	}
	obj := weightedObjective(H, W, r, alpha)
	return alpha, obj, nil
}
