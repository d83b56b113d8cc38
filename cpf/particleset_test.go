package cpf

import (
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/mathrgo/cpf/likelihood"
	"github.com/mathrgo/cpf/site"
)

func testSite(t *testing.T, id int, link string) *site.CandidateSite {
	cs, err := site.New(id, link, mgl64.Vec3{0.1, 0, 0}, mgl64.Vec3{1, 0, 0}, site.DefaultMu)
	if err != nil {
		t.Fatalf("site.New: %v", err)
	}
	return cs
}

func TestResamplePreservesRequestedCount(t *testing.T) {
	s := NewParticleSet([3]float64{1, 0, 0}, 1.0)
	cs := testSite(t, 0, "l_uarm")
	for i := 0; i < 5; i++ {
		s.Add(&Particle{Site: cs, Weight: 1, Solution: &likelihood.SolutionRecord{SquaredError: 0, Likelihood: 1}})
	}
	rng := rand.New(rand.NewSource(1))
	s.Resample(rng, 20)
	if s.Number() != 20 {
		t.Fatalf("Number() = %d, want 20", s.Number())
	}
}

func TestResampleEmptySetStaysEmpty(t *testing.T) {
	s := NewParticleSet([3]float64{0, 1, 0}, 1.0)
	rng := rand.New(rand.NewSource(1))
	s.Resample(rng, 10)
	if s.Number() != 0 {
		t.Fatalf("Number() = %d, want 0", s.Number())
	}
}

func TestResampleFallsBackToReciprocalErrorWeighting(t *testing.T) {
	s := NewParticleSet([3]float64{0, 0, 1}, 1.0)
	csGood := testSite(t, 0, "l_uarm")
	csBad := testSite(t, 1, "l_uarm")
	// both particles have zero likelihood (degenerate weight sum), so
	// Resample must fall back to 1/squared-error weighting and still
	// strongly prefer the lower-error particle.
	s.Add(&Particle{Site: csGood, Weight: 1, Solution: &likelihood.SolutionRecord{SquaredError: 0.001, Likelihood: 0}})
	s.Add(&Particle{Site: csBad, Weight: 1, Solution: &likelihood.SolutionRecord{SquaredError: 100, Likelihood: 0}})

	rng := rand.New(rand.NewSource(7))
	s.Resample(rng, 200)
	good := 0
	for _, p := range s.Particles {
		if p.Site == csGood {
			good++
		}
	}
	if good < 150 {
		t.Errorf("resampled %d/200 toward the lower-error site, want a strong majority", good)
	}
}

func TestPushWindowTracksHistoricalMinimum(t *testing.T) {
	s := NewParticleSet([3]float64{1, 1, 0}, 1.0)
	s.SetBest(0.0, &likelihood.SolutionRecord{SquaredError: 5.0})
	s.SetBest(0.1, &likelihood.SolutionRecord{SquaredError: 0.5})
	s.SetBest(0.2, &likelihood.SolutionRecord{SquaredError: 2.0})
	if s.Historical.SquaredError != 0.5 {
		t.Fatalf("Historical.SquaredError = %v, want 0.5", s.Historical.SquaredError)
	}
}

func TestPushWindowExpiresOldEntries(t *testing.T) {
	s := NewParticleSet([3]float64{1, 1, 0}, 0.05)
	s.SetBest(0.0, &likelihood.SolutionRecord{SquaredError: 0.1})
	s.SetBest(1.0, &likelihood.SolutionRecord{SquaredError: 9.0})
	// the first entry (SquaredError 0.1) is now outside the 0.05s window.
	if s.Historical.SquaredError != 9.0 {
		t.Fatalf("Historical.SquaredError = %v, want 9.0 after the early low-error entry expired", s.Historical.SquaredError)
	}
}

func TestResetToHistoricalRebuildsPopulationFromHistoricalSite(t *testing.T) {
	s := NewParticleSet([3]float64{1, 0, 1}, 1.0)
	cs := testSite(t, 0, "l_uarm")
	s.SetBest(0.0, &likelihood.SolutionRecord{Sites: []*site.CandidateSite{cs}, SquaredError: 0.1})
	s.ResetToHistorical(4)
	if s.Number() != 4 {
		t.Fatalf("Number() = %d, want 4", s.Number())
	}
	for _, p := range s.Particles {
		if p.Site != cs {
			t.Errorf("particle does not reference the historical site")
		}
	}
}

func TestErrorWithoutReportsMissingUntilPopulated(t *testing.T) {
	s := NewParticleSet([3]float64{0, 0, 0}, 1.0)
	if _, ok := s.ErrorWithout(0); ok {
		t.Errorf("ErrorWithout reported a value before PopulateErrorWithoutCache ran")
	}
}
