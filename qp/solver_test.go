package qp

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func identity(n int) *mat.Dense {
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1)
	}
	return m
}

func TestNNLSZeroResidualGivesZeroAlpha(t *testing.T) {
	H := mat.NewDense(3, 4, []float64{
		1, 0, -1, 0.5,
		0, 1, 0, -0.5,
		0, 0, 1, 1,
	})
	W := identity(3)
	r := mat.NewVecDense(3, []float64{0, 0, 0})

	solver := &NNLS{MaxIters: 200, Tol: 1e-12}
	alpha, obj, err := solver.Solve(H, W, r)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	for i := 0; i < alpha.Len(); i++ {
		if math.Abs(alpha.AtVec(i)) > 1e-9 {
			t.Errorf("alpha[%d] = %v, want 0", i, alpha.AtVec(i))
		}
	}
	if obj > 1e-12 {
		t.Errorf("objective = %v, want ~0", obj)
	}
}

func TestNNLSRecoversKnownNonnegativeAlpha(t *testing.T) {
	H := mat.NewDense(3, 4, []float64{
		1, 0, 0.2, 0.3,
		0, 1, 0.1, 0,
		0.1, 0.2, 1, 0.4,
	})
	want := []float64{0.3, 0, 0.3, 0}
	wantVec := mat.NewVecDense(4, want)
	r := mat.NewVecDense(3, nil)
	r.MulVec(H, wantVec)

	W := identity(3)
	solver := &NNLS{MaxIters: 2000, Tol: 1e-14}
	alpha, obj, err := solver.Solve(H, W, r)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if obj > 1e-8 {
		t.Errorf("objective = %v, want ~0", obj)
	}
	for i, w := range want {
		if math.Abs(alpha.AtVec(i)-w) > 1e-3 {
			t.Errorf("alpha[%d] = %v, want %v", i, alpha.AtVec(i), w)
		}
	}
}

func TestProjGradAgreesWithNNLS(t *testing.T) {
	// H has full column rank, so the minimizer is unique and both
	// solvers must reach the same alpha, not just the same objective.
	H := mat.NewDense(3, 3, []float64{
		1, 0, 0.4,
		0, 1, 0.6,
		0.3, 0.2, 1,
	})
	r := mat.NewVecDense(3, []float64{0.5, 0.2, 0.1})
	W := identity(3)

	nnls := &NNLS{MaxIters: 500, Tol: 1e-12}
	pg := &ProjGrad{MaxIters: 5000, Tol: 1e-12}

	a1, o1, err := nnls.Solve(H, W, r)
	if err != nil {
		t.Fatalf("nnls: %v", err)
	}
	a2, o2, err := pg.Solve(H, W, r)
	if err != nil {
		t.Fatalf("projgrad: %v", err)
	}
	if math.Abs(o1-o2) > 1e-4 {
		t.Errorf("objective mismatch: nnls=%v projgrad=%v", o1, o2)
	}
	for i := 0; i < a1.Len(); i++ {
		if math.Abs(a1.AtVec(i)-a2.AtVec(i)) > 1e-2 {
			t.Errorf("alpha[%d] mismatch: nnls=%v projgrad=%v", i, a1.AtVec(i), a2.AtVec(i))
		}
	}
}
