package run

import (
	"fmt"
	"log"

	"github.com/mathrgo/cpf/cpf"
	"github.com/mathrgo/cpf/kinematics"
	"github.com/mathrgo/cpf/likelihood"
	"github.com/mathrgo/cpf/locator"
	"github.com/mathrgo/cpf/site"
)

// DefaultHeuristics and DefaultSource name the built-in variants used
// when ManCPF is otherwise unconfigured, mirroring
// psokit.DefaultFun/DefaultPso.
const (
	DefaultHeuristics = "default"
	DefaultSource     = "zero"
)

// ResidualSource supplies one residual message at a time to a run,
// playing the role the teacher's Fun cost-function instance plays for
// a PSO run: the thing a run is driven against. Next returns ok=false
// once the source is exhausted.
type ResidualSource interface {
	Next() (cpf.ResidualMessage, bool)
}

// CreateHeuristics is the interface for creating a named
// cpf.Heuristics variant, the analogue of psokit.CreatePso.
type CreateHeuristics interface{ Create(sd int64) cpf.Heuristics }

// CreateSource is the interface for creating a named ResidualSource
// instance, the analogue of psokit.CreateFun.
type CreateSource interface{ Create(sd int64) ResidualSource }

// CreateAct is the interface for creating a named Action instance.
type CreateAct interface{ Create(sd int64) Act }

// Act is the marker interface for an arbitrary run Action; the
// interfaces below are checked by SelectActs to slot it into the run
// sequence (see psokit.Act/ActInit/... for the pattern this mirrors).
type Act interface{}

// ActInit runs once, before any run in the sequence starts.
type ActInit interface{ Init(man *ManCPF) }

// ActRunInit runs at the start of each individual run.
type ActRunInit interface{ RunInit(man *ManCPF) }

// ActStep runs after every driver.Step call, the per-residual analogue
// of psokit's ActUpdate (which runs after every p.Update()).
type ActStep interface{ Step(man *ManCPF) }

// ActData runs every Nthink() residuals, the analogue of psokit's
// ActData: used for bandwidth-limited logging/plotting actions.
type ActData interface{ DataUpdate(man *ManCPF) }

// ActResult runs once at the end of each run.
type ActResult interface{ Result(man *ManCPF) }

// ActSummary runs once after every run in the sequence has finished.
type ActSummary interface{ Summary(man *ManCPF) }

// ManCPF manages one or more replay runs of the filter driver against
// a residual source, the direct structural analogue of psokit.ManPso:
// the cost-function/SPSO pair there becomes a residual-source/driver
// pair here, and the same named, pluggable Action slots drive
// progress reporting, plotting and command-line configuration.
type ManCPF struct {
	// collaborators shared across every run and every heuristics variant.
	evaluator *likelihood.Evaluator
	catalog   *site.Catalog
	model     kinematics.Model
	loc       *locator.Adapter

	driver *cpf.Driver

	heuristicsCase string
	heuristicsd    map[string]string
	addedHeu       map[string]CreateHeuristics

	source     ResidualSource
	sourceCase string
	sourced    map[string]string
	addedSrc   map[string]CreateSource

	actd     map[string]string
	addedAct map[string]CreateAct

	actInit    []ActInit
	actRunInit []ActRunInit
	actStep    []ActStep
	actData    []ActData
	actResult  []ActResult
	actSummary []ActSummary

	// iteration counts during a run, named to match psokit.ManPso.
	iter   int
	diter  int
	ndata  int
	nthink int

	runid int
	nrun  int

	heuSeed0, heuSeed1 int64
	srcSeed0, srcSeed1 int64

	lastEstimate cpf.Estimate
	estimates    []cpf.Estimate
}

// NewMan builds a ManCPF over the given (fixed across runs) filter
// collaborators: the likelihood evaluator, surface catalog, rigid-body
// model and surface locator adapter.
func NewMan(eval *likelihood.Evaluator, catalog *site.Catalog, model kinematics.Model, loc *locator.Adapter) *ManCPF {
	man := &ManCPF{
		evaluator: eval,
		catalog:   catalog,
		model:     model,
		loc:       loc,
	}
	man.heuristicsCase = DefaultHeuristics
	man.heuristicsd = make(map[string]string)
	man.addedHeu = make(map[string]CreateHeuristics)
	man.loadHeuristicsDescription()

	man.sourceCase = DefaultSource
	man.sourced = make(map[string]string)
	man.addedSrc = make(map[string]CreateSource)
	man.loadSourceDescription()

	man.actd = make(map[string]string)
	man.addedAct = make(map[string]CreateAct)
	man.actInit = make([]ActInit, 0, 10)
	man.actRunInit = make([]ActRunInit, 0, 10)
	man.actStep = make([]ActStep, 0, 10)
	man.actData = make([]ActData, 0, 10)
	man.actResult = make([]ActResult, 0, 10)
	man.actSummary = make([]ActSummary, 0, 10)
	man.loadActDescription()

	man.ndata = 1000
	man.nthink = 1
	man.nrun = 1
	man.heuSeed0 = 1
	man.heuSeed1 = 0
	man.srcSeed0 = 1
	man.srcSeed1 = 0
	return man
}

// Init builds the heuristics variant and residual source for the
// current run, the analogue of ManPso.Init's CreateFun/CreatePso pair.
// Automatically called at the beginning of each Run(); exported for
// callers (tests) that need a driver without running a full sequence.
func (man *ManCPF) Init() {
	man.CreateHeuristics(man.heuristicsCase)
	man.CreateSource(man.sourceCase)
}

// Driver returns the filter driver instance in use for Actions during a run.
func (man *ManCPF) Driver() *cpf.Driver { return man.driver }

// Source returns the residual source instance in use for Actions during a run.
func (man *ManCPF) Source() ResidualSource { return man.source }

// String describes man's settings, mirroring ManPso.String.
func (man *ManCPF) String() string {
	s := "ManCPF Settings:\n"
	s += fmt.Sprintf("heuristics = %s\t", man.heuristicsCase)
	s += fmt.Sprintf("source = %s\n", man.sourceCase)
	s += fmt.Sprintf("Number of Runs = %d\n", man.nrun)
	s += fmt.Sprintf("Max data events per run = %d\n", man.ndata)
	s += fmt.Sprintf("Residuals between data events = %d\n", man.nthink)
	return s
}

func (man *ManCPF) HeuristicsCase() string       { return man.heuristicsCase }
func (man *ManCPF) SetHeuristicsCase(name string) { man.heuristicsCase = name }
func (man *ManCPF) SourceCase() string           { return man.sourceCase }
func (man *ManCPF) SetSourceCase(name string)    { man.sourceCase = name }
func (man *ManCPF) Iter() int                    { return man.iter }
func (man *ManCPF) Diter() int                   { return man.diter }
func (man *ManCPF) Ndata() int                   { return man.ndata }
func (man *ManCPF) SetNdata(n int)               { man.ndata = n }
func (man *ManCPF) Nthink() int                  { return man.nthink }
func (man *ManCPF) SetNthink(n int)              { man.nthink = n }
func (man *ManCPF) RunID() int                   { return man.runid }
func (man *ManCPF) Nrun() int                    { return man.nrun }
func (man *ManCPF) SetNrun(n int)                { man.nrun = n }
func (man *ManCPF) LastEstimate() cpf.Estimate   { return man.lastEstimate }
func (man *ManCPF) Estimates() []cpf.Estimate    { return man.estimates }

// HeuristicsSeed returns the random generator seed components for the
// heuristics variant, where seed = sd0 + sd1*RunID(), mirroring
// ManPso.PsoSeed.
func (man *ManCPF) HeuristicsSeed() (sd0, sd1 int64) { return man.heuSeed0, man.heuSeed1 }

// SetHeuristicsSeed sets the heuristics seed components.
func (man *ManCPF) SetHeuristicsSeed(sd0, sd1 int64) {
	man.heuSeed0, man.heuSeed1 = sd0, sd1
}

// SourceSeed returns the random generator seed components for the
// residual source, mirroring ManPso.FunSeed.
func (man *ManCPF) SourceSeed() (sd0, sd1 int64) { return man.srcSeed0, man.srcSeed1 }

// SetSourceSeed sets the source seed components.
func (man *ManCPF) SetSourceSeed(sd0, sd1 int64) {
	man.srcSeed0, man.srcSeed1 = sd0, sd1
}

// AddAct registers a named Action creator, mirroring ManPso.AddAct.
func (man *ManCPF) AddAct(name, desc string, a CreateAct) error {
	if man.actd[name] != "" {
		return fmt.Errorf("run: action %s already exists", name)
	}
	man.actd[name] = desc
	man.addedAct[name] = a
	return nil
}

// Run drives the chosen residual source through the chosen heuristics
// variant for Nrun() runs, activating Actions at their slotted points,
// the direct analogue of ManPso.Run.
func (man *ManCPF) Run() {
	for _, a := range man.actInit {
		a.Init(man)
	}
	for man.runid = 0; man.runid < man.nrun; man.runid++ {
		man.iter = 0
		man.estimates = man.estimates[:0]
		man.Init()
		for _, a := range man.actRunInit {
			a.RunInit(man)
		}
	runLoop:
		for man.diter = 0; man.diter < man.ndata; man.diter++ {
			for t := 0; t < man.nthink; t++ {
				msg, ok := man.source.Next()
				if !ok {
					break runLoop
				}
				est, err := man.driver.Step(msg)
				if err != nil {
					log.Fatalf("run: driver step: %v", err)
				}
				man.lastEstimate = est
				man.estimates = append(man.estimates, est)
				for _, a := range man.actStep {
					a.Step(man)
				}
				man.iter++
			}
			for _, a := range man.actData {
				a.DataUpdate(man)
			}
		}
		for _, a := range man.actResult {
			a.Result(man)
		}
	}
	for _, a := range man.actSummary {
		a.Summary(man)
	}
}
