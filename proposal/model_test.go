package proposal

import (
	"math/rand"
	"testing"

	"github.com/mathrgo/cpf/likelihood"
	"github.com/mathrgo/cpf/particle"
	"github.com/mathrgo/cpf/site"
)

func testCatalog(t *testing.T) *site.Catalog {
	cat, err := site.FromEntries([]site.Entry{
		{Link: "l_uarm", Location: [3]float64{0.1, 0, 0}, Normal: [3]float64{1, 0, 0}},
		{Link: "l_uarm", Location: [3]float64{-0.1, 0, 0}, Normal: [3]float64{-1, 0, 0}},
		{Link: "l_uarm", Location: [3]float64{0, 0.1, 0}, Normal: [3]float64{0, 1, 0}},
	}, site.DefaultMu)
	if err != nil {
		t.Fatalf("FromEntries: %v", err)
	}
	return cat
}

func TestAdvanceWithoutBestUsesPureMotion(t *testing.T) {
	cat := testCatalog(t)
	cfg := Default()
	cfg.MotionModel = MotionWithinLink
	rng := rand.New(rand.NewSource(1))

	seed := cat.All()[0]
	parts := []*particle.Particle{{Site: seed, Weight: 1}}

	out := Advance(rng, cfg, 10, parts, nil, nil, nil, nil, cat)
	if len(out) != 10 {
		t.Fatalf("Advance returned %d particles, want 10", len(out))
	}
	for _, p := range out {
		if p.Site.Link != "l_uarm" {
			t.Errorf("particle landed on link %q, want l_uarm (within-link motion)", p.Site.Link)
		}
	}
}

func TestAdvancePreservesRequestedCount(t *testing.T) {
	cat := testCatalog(t)
	cfg := Default()
	cfg.MotionModel = MotionWithinLink
	rng := rand.New(rand.NewSource(2))

	sites := cat.All()
	parts := []*particle.Particle{{Site: sites[0], Weight: 1}, {Site: sites[1], Weight: 1}}
	current := &likelihood.SolutionRecord{Sites: []*site.CandidateSite{sites[0]}, SquaredError: 0.1}
	historical := &likelihood.SolutionRecord{Sites: []*site.CandidateSite{sites[1]}, SquaredError: 0.1}

	out := Advance(rng, cfg, 25, parts, current, historical, nil, nil, cat)
	if len(out) != 25 {
		t.Fatalf("Advance returned %d particles, want 25", len(out))
	}
}

func TestDuplicatesInjectsHistoricalSite(t *testing.T) {
	cat := testCatalog(t)
	cfg := Default()
	cfg.NumParticlesAtActual = 3
	hist := &likelihood.SolutionRecord{Sites: []*site.CandidateSite{cat.All()[0]}}

	out := Duplicates(cfg, hist)
	if len(out) != 3 {
		t.Fatalf("Duplicates returned %d particles, want 3", len(out))
	}
	for _, p := range out {
		if p.Site != hist.Sites[0] {
			t.Errorf("duplicate does not reference the historical site")
		}
	}
}

func TestDuplicatesNilWithoutHistoricalBest(t *testing.T) {
	cfg := Default()
	if out := Duplicates(cfg, nil); out != nil {
		t.Errorf("Duplicates(nil) = %v, want nil", out)
	}
}

func TestReseededRespectsThreshold(t *testing.T) {
	cat := testCatalog(t)
	cfg := Default()
	cfg.SeedSquaredErrorThreshold = 1.0
	cfg.SeedNumParticles = 5
	rng := rand.New(rand.NewSource(3))

	if out := Reseeded(rng, cfg, 0.1, cat); out != nil {
		t.Errorf("Reseeded below threshold = %v, want nil", out)
	}
	out := Reseeded(rng, cfg, 10.0, cat)
	if len(out) != 5 {
		t.Fatalf("Reseeded above threshold returned %d particles, want 5", len(out))
	}
}
