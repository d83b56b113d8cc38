package likelihood

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/mathrgo/cpf/qp"
	"github.com/mathrgo/cpf/site"
	"gonum.org/v1/gonum/mat"
)

func identityJacobian(n int) *mat.Dense {
	j := mat.NewDense(6, n, nil)
	for i := 0; i < 6 && i < n; i++ {
		j.Set(i, i, 1)
	}
	return j
}

func TestEvaluateZeroResidualGivesZeroEverything(t *testing.T) {
	cs, err := site.New(0, "l_uarm", mgl64.Vec3{0.1, 0, 0}, mgl64.Vec3{1, 0, 0}, site.DefaultMu)
	if err != nil {
		t.Fatal(err)
	}
	solver := &qp.NNLS{MaxIters: 200, Tol: 1e-12}
	eval := New(0.01, 6, nil, solver)

	jac := map[string]*mat.Dense{"l_uarm": identityJacobian(6)}
	rec, err := eval.Evaluate(0, make([]float64, 6), jac, cs)
	if err != nil {
		t.Fatal(err)
	}
	for _, a := range rec.Alpha[0] {
		if math.Abs(a) > 1e-9 {
			t.Errorf("alpha = %v, want 0", a)
		}
	}
	if rec.SquaredError > 1e-9 {
		t.Errorf("squared error = %v, want 0", rec.SquaredError)
	}
	if math.Abs(rec.Likelihood-1) > 1e-9 {
		t.Errorf("likelihood = %v, want 1", rec.Likelihood)
	}
}

func TestEvaluateRecoversSingleSiteAlpha(t *testing.T) {
	cs, err := site.New(0, "l_uarm", mgl64.Vec3{0.1, 0, 0}, mgl64.Vec3{1, 0, 0}, site.DefaultMu)
	if err != nil {
		t.Fatal(err)
	}
	n := 6
	jac := map[string]*mat.Dense{"l_uarm": identityJacobian(n)}
	H := cs.Halpha(jac["l_uarm"])

	// opposite cone edges sum to the same force (e0+e2 == e1+e3), so
	// only coefficients on adjacent edges are uniquely recoverable.
	wantAlpha := []float64{0.3, 0.3, 0, 0}
	alphaVec := mat.NewVecDense(site.ConeEdges, wantAlpha)
	residual := mat.NewVecDense(n, nil)
	residual.MulVec(H, alphaVec)

	solver := &qp.NNLS{MaxIters: 2000, Tol: 1e-14}
	eval := New(0.01, n, nil, solver)

	r := make([]float64, n)
	for i := 0; i < n; i++ {
		r[i] = residual.AtVec(i)
	}
	rec, err := eval.Evaluate(0, r, jac, cs)
	if err != nil {
		t.Fatal(err)
	}
	if rec.SquaredError > 1e-6 {
		t.Errorf("squared error = %v, want ~0", rec.SquaredError)
	}
	for i, want := range wantAlpha {
		if math.Abs(rec.Alpha[0][i]-want) > 1e-3 {
			t.Errorf("alpha[%d] = %v, want %v", i, rec.Alpha[0][i], want)
		}
	}
}

func TestSweepLinksEvaluatesEverySiteOnEachNamedLink(t *testing.T) {
	cat, err := site.FromEntries([]site.Entry{
		{Link: "l_uarm", Location: [3]float64{0.1, 0, 0}, Normal: [3]float64{1, 0, 0}},
		{Link: "l_uarm", Location: [3]float64{0.2, 0, 0}, Normal: [3]float64{1, 0, 0}},
		{Link: "l_larm", Location: [3]float64{0.1, 0, 0}, Normal: [3]float64{0, 1, 0}},
	}, site.DefaultMu)
	if err != nil {
		t.Fatal(err)
	}
	n := 6
	jac := map[string]*mat.Dense{
		"l_uarm": identityJacobian(n),
		"l_larm": identityJacobian(n),
	}
	solver := &qp.NNLS{MaxIters: 200, Tol: 1e-12}
	eval := New(0.01, n, nil, solver)

	recs, err := eval.SweepLinks(0, make([]float64, n), jac, cat, []string{"l_uarm", "l_larm"})
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 3 {
		t.Fatalf("len(recs) = %d, want 3 (one per site across both links)", len(recs))
	}
	for _, rec := range recs {
		if rec.SquaredError > 1e-9 {
			t.Errorf("squared error = %v, want ~0 for a zero residual", rec.SquaredError)
		}
	}
}

func TestSweepLinksOmitsSitesOnLinksNotNamed(t *testing.T) {
	cat, err := site.FromEntries([]site.Entry{
		{Link: "l_uarm", Location: [3]float64{0.1, 0, 0}, Normal: [3]float64{1, 0, 0}},
		{Link: "l_larm", Location: [3]float64{0.1, 0, 0}, Normal: [3]float64{0, 1, 0}},
	}, site.DefaultMu)
	if err != nil {
		t.Fatal(err)
	}
	n := 6
	jac := map[string]*mat.Dense{"l_uarm": identityJacobian(n)}
	solver := &qp.NNLS{MaxIters: 200, Tol: 1e-12}
	eval := New(0.01, n, nil, solver)

	recs, err := eval.SweepLinks(0, make([]float64, n), jac, cat, []string{"l_uarm"})
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 {
		t.Fatalf("len(recs) = %d, want 1 (only l_uarm's site)", len(recs))
	}
	if recs[0].Sites[0].Link != "l_uarm" {
		t.Errorf("Sites[0].Link = %q, want l_uarm", recs[0].Sites[0].Link)
	}
}
