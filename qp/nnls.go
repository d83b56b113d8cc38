package qp

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// NNLS solves the weighted non-negative least squares problem by
// projected coordinate descent (Gauss-Seidel) on the normal equations:
// for the convex quadratic 1/2 alpha^T(A^T W A)alpha - alpha^T(A^T W r),
// sweeping one coordinate at a time to its closed-form non-negative
// minimizer converges monotonically to the global optimum, since the
// quadratic form is convex and each sweep can only decrease the
// objective (Hildreth's method for box/nonnegativity constraints).
type NNLS struct {
	MaxIters int
	Tol      float64
}

func (s *NNLS) Solve(H, W *mat.Dense, r *mat.VecDense) (*mat.VecDense, float64, error) {
	nh, k := H.Dims()
	nw, wc := W.Dims()
	nr, _ := r.Dims()
	if nh != nw || nh != wc || nh != nr {
		return nil, 0, fmt.Errorf("qp: dimension mismatch H=%dx%d W=%dx%d r=%d", nh, k, nw, wc, nr)
	}
	ata, atb := weightedSystem(H, W, r)

	alpha := mat.NewVecDense(k, nil)
	maxIters := s.MaxIters
	if maxIters <= 0 {
		maxIters = 500
	}
	tol := s.Tol
	if tol <= 0 {
		tol = 1e-10
	}
	for iter := 0; iter < maxIters; iter++ {
		maxChange := 0.0
		for j := 0; j < k; j++ {
			diag := ata.At(j, j)
			if diag <= 0 {
				continue
			}
			sum := atb.AtVec(j)
			for l := 0; l < k; l++ {
				if l == j {
					continue
				}
				sum -= ata.At(j, l) * alpha.AtVec(l)
			}
			next := sum / diag
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
