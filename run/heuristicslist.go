package run

import (
	"fmt"
	"log"
	"sort"

	"github.com/mathrgo/cpf/cpf"
	"github.com/mathrgo/cpf/proposal"
)

// SelectHeuristics primes man to use the named cpf.Heuristics variant
// for subsequent runs, the analogue of psokit.ManPso.SelectPso.
func (man *ManCPF) SelectHeuristics(name string) error {
	if man.heuristicsd[name] == "" && man.addedHeu[name] == nil {
		if _, ok := builtinHeuristics[name]; !ok {
			return fmt.Errorf("run: heuristics variant %s could not be found", name)
		}
	}
	man.heuristicsCase = name
	return nil
}

// builtinHeuristics are the named variants exercising spec.md 9's two
// coexisting Open Question toggles, built from cpf.DefaultHeuristics.
var builtinHeuristics = map[string]func() cpf.Heuristics{
	"default": cpf.DefaultHeuristics,
	"min-error-particle": func() cpf.Heuristics {
		hu := cpf.DefaultHeuristics()
		hu.BestParticlePolicy = cpf.PolicyMinError
		return hu
	},
	"within-link-motion": func() cpf.Heuristics {
		hu := cpf.DefaultHeuristics()
		hu.Proposal.MotionModel = proposal.MotionWithinLink
		return hu
	},
}

// CreateHeuristics builds the named heuristics variant, seeds its RNG
// with sd0 + sd1*RunID() from HeuristicsSeed() for replay, and builds the driver
// against it over man's shared collaborators. It is called by Run at
// the start of each run; SelectHeuristics is enough to prime man
// beforehand.
func (man *ManCPF) CreateHeuristics(name string) cpf.Heuristics {
	sd := man.heuSeed1*int64(man.runid) + man.heuSeed0
	var hu cpf.Heuristics
	if build, ok := builtinHeuristics[name]; ok {
		hu = build()
	} else if c := man.addedHeu[name]; c != nil {
		hu = c.Create(sd)
	} else {
		log.Printf("run: heuristics variant %s not found", name)
		return cpf.Heuristics{}
	}
	hu.RNGSeed = sd
	man.heuristicsCase = name
	man.driver = cpf.NewDriver(man.evaluator, man.catalog, man.model, man.loc, hu)
	return hu
}

// AddHeuristics registers a named heuristics variant creator, the
// analogue of psokit.ManPso.AddPso.
func (man *ManCPF) AddHeuristics(name, desc string, c CreateHeuristics) error {
	if man.heuristicsd[name] != "" {
		return fmt.Errorf("run: heuristics variant %s already exists", name)
	}
	man.heuristicsd[name] = desc
	man.addedHeu[name] = c
	return nil
}

func (man *ManCPF) loadHeuristicsDescription() {
	man.heuristicsd = map[string]string{
		"default":             "average-then-project best particle, world-space cross-link motion model (spec.md defaults)",
		"min-error-particle":  "smallest-error particle as current best, instead of averaging the low-error cluster",
		"within-link-motion":  "motion/proposal steps stay within the particle's current link instead of crossing links in world space",
	}
}

// HeuristicsDescription describes every available heuristics variant by name.
func (man *ManCPF) HeuristicsDescription() string {
	keys := make([]string, 0, len(man.heuristicsd))
	for k := range man.heuristicsd {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	s := fmt.Sprintln("Heuristics variant descriptions:")
	for _, k := range keys {
		s += fmt.Sprintf("%s :\n  %s\n", k, man.heuristicsd[k])
	}
	return s
}
