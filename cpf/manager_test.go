package cpf

import (
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/mathrgo/cpf/likelihood"
	"github.com/mathrgo/cpf/qp"
	"github.com/mathrgo/cpf/site"
	"gonum.org/v1/gonum/mat"
)

func testCatalog(t *testing.T) *site.Catalog {
	cat, err := site.FromEntries([]site.Entry{
		{Link: "l_uarm", Location: [3]float64{0.1, 0, 0}, Normal: [3]float64{1, 0, 0}},
		{Link: "l_larm", Location: [3]float64{0, 0.1, 0}, Normal: [3]float64{0, 1, 0}},
	}, site.DefaultMu)
	if err != nil {
		t.Fatalf("FromEntries: %v", err)
	}
	return cat
}

func TestMaybeBirthRequiresErrorAboveThreshold(t *testing.T) {
	m := NewHypothesisManager()
	cfg := DefaultHeuristics()
	cfg.AddThreshold = 1.0
	rng := rand.New(rand.NewSource(1))
	if s := m.MaybeBirth(0, cfg, 0.1, rng, testCatalog(t)); s != nil {
		t.Fatalf("MaybeBirth fired with error below threshold")
	}
}

func TestMaybeBirthRequiresPersistence(t *testing.T) {
	m := NewHypothesisManager()
	cfg := DefaultHeuristics()
	cfg.AddThreshold = 1.0
	cfg.PersistenceWindow = 0.2
	rng := rand.New(rand.NewSource(1))
	if s := m.MaybeBirth(0.0, cfg, 5.0, rng, testCatalog(t)); s != nil {
		t.Fatalf("MaybeBirth fired before the persistence window elapsed")
	}
	if s := m.MaybeBirth(0.1, cfg, 5.0, rng, testCatalog(t)); s != nil {
		t.Fatalf("MaybeBirth fired before the persistence window elapsed")
	}
	s := m.MaybeBirth(0.3, cfg, 5.0, rng, testCatalog(t))
	if s == nil {
		t.Fatalf("MaybeBirth did not fire once the persistence window elapsed")
	}
	if len(m.Sets) != 1 {
		t.Fatalf("len(Sets) = %d, want 1", len(m.Sets))
	}
}

func TestMaybeBirthRespectsCooldownAndMaxSets(t *testing.T) {
	m := NewHypothesisManager()
	cfg := DefaultHeuristics()
	cfg.AddThreshold = 1.0
	cfg.PersistenceWindow = 0
	cfg.AddCooldown = 10.0
	cfg.MaxParticleSets = 1
	rng := rand.New(rand.NewSource(1))

	first := m.MaybeBirth(0.0, cfg, 5.0, rng, testCatalog(t))
	if first == nil {
		t.Fatalf("expected the first birth to fire")
	}
	if s := m.MaybeBirth(0.01, cfg, 5.0, rng, testCatalog(t)); s != nil {
		t.Fatalf("MaybeBirth fired again within the cooldown")
	}
}

func TestMaybeKillRemovesSetBelowRemoveThreshold(t *testing.T) {
	m := NewHypothesisManager()
	cfg := DefaultHeuristics()
	cfg.RemoveThreshold = 1.0
	cfg.RemoveCooldown = 0

	cs := mustSite(t, 0, "l_uarm")
	s := NewParticleSet([3]float64{1, 0, 0}, 1.0)
	s.SetBest(0.0, &likelihood.SolutionRecord{Sites: []*site.CandidateSite{cs}, SquaredError: 5.0})
	m.Sets = []*ParticleSet{s}

	eval := likelihood.New(0.01, 6, nil, &qp.NNLS{MaxIters: 200, Tol: 1e-12})
	residual := make([]float64, 6)
	if err := s.PopulateErrorWithoutCache(0.0, eval, residual, map[string]*mat.Dense{}); err != nil {
		t.Fatalf("PopulateErrorWithoutCache: %v", err)
	}
	// dropping the set's only contributing site leaves zero contacts; a
	// zero residual's no-contact squared error is 0, well under RemoveThreshold.
	killed := m.MaybeKill(1.0, cfg)
	if killed != s {
		t.Fatalf("MaybeKill did not remove the set with a below-threshold remaining error")
	}
	if len(m.Sets) != 0 {
		t.Fatalf("len(Sets) = %d, want 0 after MaybeKill", len(m.Sets))
	}
}

func mustSite(t *testing.T, id int, link string) *site.CandidateSite {
	cs, err := site.New(id, link, mgl64.Vec3{0.1, 0, 0}, mgl64.Vec3{1, 0, 0}, site.DefaultMu)
	if err != nil {
		t.Fatalf("site.New: %v", err)
	}
	return cs
}
