package run

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/mathrgo/cpf/cpf"
	"github.com/mathrgo/cpf/kinematics"
	"github.com/mathrgo/cpf/likelihood"
	"github.com/mathrgo/cpf/locator"
	"github.com/mathrgo/cpf/qp"
	"github.com/mathrgo/cpf/site"
)

type stubLocator struct{}

func (stubLocator) Nearest(p mgl64.Vec3) (locator.Hit, error) {
	return locator.Hit{Point: p, Normal: mgl64.Vec3{0, 0, 1}, Link: "link1"}, nil
}

func testMan(t *testing.T) *ManCPF {
	model := kinematics.New([]kinematics.JointSpec{
		{Name: "joint1", Link: "link1", Offset: [3]float64{0, 0, 0}, Axis: [3]float64{0, 0, 1}},
	})
	cat, err := site.FromEntries([]site.Entry{
		{Link: "link1", Location: [3]float64{0.1, 0, 0}, Normal: [3]float64{1, 0, 0}},
	}, site.DefaultMu)
	if err != nil {
		t.Fatalf("FromEntries: %v", err)
	}
	solver := &qp.NNLS{MaxIters: 200, Tol: 1e-12}
	eval := likelihood.New(0.01, len(model.JointNames()), nil, solver)
	loc := locator.New(stubLocator{}, model, site.DefaultMu)
	return NewMan(eval, cat, model, loc)
}

func TestSelectHeuristicsRejectsUnknownName(t *testing.T) {
	man := testMan(t)
	if err := man.SelectHeuristics("not-a-real-variant"); err == nil {
		t.Fatalf("expected an error for an unknown heuristics variant")
	}
}

func TestSelectSourceRejectsUnknownName(t *testing.T) {
	man := testMan(t)
	if err := man.SelectSource("not-a-real-source"); err == nil {
		t.Fatalf("expected an error for an unknown residual source")
	}
}

func TestInitBuildsDriverFromSelectedHeuristics(t *testing.T) {
	man := testMan(t)
	if err := man.SelectHeuristics("min-error-particle"); err != nil {
		t.Fatalf("SelectHeuristics: %v", err)
	}
	man.Init()
	if man.Driver() == nil {
		t.Fatalf("Driver() is nil after Init")
	}
	if man.Driver().Heuristics.BestParticlePolicy != cpf.PolicyMinError {
		t.Errorf("BestParticlePolicy = %v, want PolicyMinError", man.Driver().Heuristics.BestParticlePolicy)
	}
}

func TestRunWithZeroSourceNeverBirthsAHypothesis(t *testing.T) {
	man := testMan(t)
	man.SetNdata(20)
	man.SetNthink(1)
	man.Run()
	if len(man.Estimates()) == 0 {
		t.Fatalf("Run produced no estimates")
	}
	for _, e := range man.Estimates() {
		if e.NumContactPoints != 0 {
			t.Fatalf("zero-source run reported %d contact points, want 0", e.NumContactPoints)
		}
	}
}

func TestRunStopsWhenSourceIsExhausted(t *testing.T) {
	man := testMan(t)
	msgs := []cpf.ResidualMessage{
		{Utime: 0, JointNames: []string{"joint1"}, Residual: []float64{0}},
		{Utime: 1000, JointNames: []string{"joint1"}, Residual: []float64{0}},
	}
	if err := man.AddSource("two-messages", "exactly two zero residuals", fixedCreator{msgs}); err != nil {
		t.Fatalf("AddSource: %v", err)
	}
	if err := man.SelectSource("two-messages"); err != nil {
		t.Fatalf("SelectSource: %v", err)
	}
	man.SetNdata(100)
	man.SetNthink(1)
	man.Run()
	if len(man.Estimates()) != 2 {
		t.Fatalf("len(Estimates()) = %d, want 2 (source exhausted early)", len(man.Estimates()))
	}
}

type fixedCreator struct{ msgs []cpf.ResidualMessage }

func (f fixedCreator) Create(sd int64) ResidualSource { return NewFixedSource(f.msgs) }

func TestAddHeuristicsRejectsDuplicateName(t *testing.T) {
	man := testMan(t)
	c := builtinHeuristicsCreator{}
	if err := man.AddHeuristics("custom", "a custom variant", c); err != nil {
		t.Fatalf("AddHeuristics: %v", err)
	}
	if err := man.AddHeuristics("custom", "again", c); err == nil {
		t.Fatalf("expected an error registering a duplicate heuristics name")
	}
}

type builtinHeuristicsCreator struct{}

func (builtinHeuristicsCreator) Create(sd int64) cpf.Heuristics { return cpf.DefaultHeuristics() }
