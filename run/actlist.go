package run

import (
	"flag"
	"fmt"
	"os"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// SelectActs selects a list of Actions by name for man to use, the
// direct analogue of psokit.ManPso.SelectActs: each Action is slotted
// into every run phase where it implements a matching interface.
func (man *ManCPF) SelectActs(ac ...string) error {
	for _, name := range ac {
		var a Act
		switch name {
		case "print-result":
			a = new(Printresult)
		case "print-headings":
			a = new(Printheading)
		case "plot-squared-error":
			a = new(PlotSquaredError)
		case "use-cmd-options":
			a = new(CmdOptions)
		case "run-progress":
			a = new(RunProgress)
		default:
			a = man.addedAct[name]
			if a == nil {
				return fmt.Errorf("run: action %s not found", name)
			}
		}
		if ai, ok := a.(ActInit); ok {
			man.actInit = append(man.actInit, ai)
		}
		if ari, ok := a.(ActRunInit); ok {
			man.actRunInit = append(man.actRunInit, ari)
		}
		if as, ok := a.(ActStep); ok {
			man.actStep = append(man.actStep, as)
		}
		if ad, ok := a.(ActData); ok {
			man.actData = append(man.actData, ad)
		}
		if ar, ok := a.(ActResult); ok {
			man.actResult = append(man.actResult, ar)
		}
		if asum, ok := a.(ActSummary); ok {
			man.actSummary = append(man.actSummary, asum)
		}
	}
	return nil
}

func (man *ManCPF) loadActDescription() {
	man.actd = map[string]string{
		"print-result":       "Print the final estimate at the end of a run; using Printresult",
		"print-headings":     "Print man's settings and the source description; using Printheading",
		"plot-squared-error": "Plot the current-best squared error across a run; using PlotSquaredError",
		"use-cmd-options":    "Use command-line options to configure man; using CmdOptions",
		"run-progress":       "Print run progress as it advances; using RunProgress",
	}
}

// ActDescription describes every available Action by name.
func (man *ManCPF) ActDescription() string {
	keys := make([]string, 0, len(man.actd))
	for k := range man.actd {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	s := fmt.Sprintln("Action descriptions:")
	for _, k := range keys {
		s += fmt.Sprintf("%s :\n  %s\n", k, man.actd[k])
	}
	return s
}

// Printresult implements the print-result Action: prints the run's
// final estimate.
type Printresult struct{}

// Result prints the final estimate's contact count and squared error.
func (a *Printresult) Result(man *ManCPF) {
	e := man.LastEstimate()
	fmt.Printf("RUN %d: %d contacts, log_likelihood=%g\n", man.RunID(), e.NumContactPoints, e.LogLikelihood)
}

// Printheading implements the print-headings Action.
type Printheading struct{}

// Init prints man's settings once, before any run starts.
func (a *Printheading) Init(man *ManCPF) {
	fmt.Println(man)
}

// RunInit prints the chosen residual source's description at the start
// of the first run (or every run if the source seed varies between runs).
func (a *Printheading) RunInit(man *ManCPF) {
	_, sd1 := man.SourceSeed()
	if man.RunID() == 0 || sd1 != 0 {
		fmt.Println(man.SourceDescription())
	}
}

// RunProgress implements the run-progress Action: prints a decile
// marker each time a run advances another tenth of the way to Ndata().
type RunProgress struct {
	progress int
}

// RunInit resets the progress counter.
func (a *RunProgress) RunInit(man *ManCPF) {
	a.progress = 0
}

// DataUpdate checks progress and prints a decile marker on advance.
func (a *RunProgress) DataUpdate(man *ManCPF) {
	if man.Ndata() == 0 {
		return
	}
	current := 10 * man.Diter() / man.Ndata()
	if current > a.progress {
		a.progress = current
		if a.progress < 9 {
			fmt.Printf("%d", a.progress)
		} else {
			fmt.Println(a.progress)
		}
	}
}

// PlotSquaredError implements the plot-squared-error Action: plots the
// representative current-best squared error at every data event across
// the run, the direct analogue of psokit.PlotPersonalBest plotting a
// particle's personal-best cost — here there is one curve per run,
// taken from the published estimate's log_likelihood field, rather
// than one curve per particle set.
type PlotSquaredError struct {
	points plotter.XYs
}

// RunInit allocates the per-run points buffer.
func (pl *PlotSquaredError) RunInit(man *ManCPF) {
	pl.points = make(plotter.XYs, 0, man.Ndata())
}

// DataUpdate appends the current estimate's squared error.
func (pl *PlotSquaredError) DataUpdate(man *ManCPF) {
	e := man.LastEstimate()
	pl.points = append(pl.points, plotter.XY{X: float64(man.Iter()), Y: e.LogLikelihood})
}

// Result saves the plot to "plotSquaredError<runID>.pdf".
func (pl *PlotSquaredError) Result(man *ManCPF) {
	p := plot.New()
	p.Add(plotter.NewGrid())
	line, _, err := plotter.NewLinePoints(pl.points)
	if err != nil {
		panic(err)
	}
	p.Add(line)
	p.Title.Text = fmt.Sprintf("Squared error: Run %d", man.RunID())
	p.X.Label.Text = "residual"
	p.Y.Label.Text = "squared error"
	filename := fmt.Sprintf("plotSquaredError%d.pdf", man.RunID())
	if err := p.Save(6*vg.Inch, 4*vg.Inch, filename); err != nil {
		panic(err)
	}
}

// CmdOptions implements the use-cmd-options Action: provides a
// command-line interface for man's settings, the direct analogue of
// psokit.CmdOptions.Init.
type CmdOptions struct{}

// Init reads command-line flags and applies them to man.
func (cmd *CmdOptions) Init(man *ManCPF) {
	var heuCase, srcCase string
	var nrun, ndata, nthink int
	var listHeu, listSrc, listAct bool
	flag.StringVar(&heuCase, "heuristics", man.HeuristicsCase(), "name of heuristics variant")
	flag.StringVar(&srcCase, "source", man.SourceCase(), "name of residual source")
	flag.IntVar(&nrun, "nrun", man.Nrun(), "number of independent runs")
	flag.IntVar(&ndata, "ndata", man.Ndata(), "max data events per run")
	flag.IntVar(&nthink, "nthink", man.Nthink(), "residuals between data events")
	flag.BoolVar(&listHeu, "listheu", false, "list available heuristics variants")
	flag.BoolVar(&listSrc, "listsrc", false, "list available residual sources")
	flag.BoolVar(&listAct, "listact", false, "list available actions")
	flag.Parse()

	if flag.NFlag() == 0 {
		flag.PrintDefaults()
		fmt.Printf("\n=====================\n%s", man.ActDescription())
		os.Exit(1)
	}
	if err := man.SelectHeuristics(heuCase); err != nil {
		fmt.Println(err)
		fmt.Print(man.HeuristicsDescription())
		os.Exit(1)
	}
	if err := man.SelectSource(srcCase); err != nil {
		fmt.Println(err)
		fmt.Print(man.SourceDescription())
		os.Exit(1)
	}
	man.SetNrun(nrun)
	man.SetNdata(ndata)
	man.SetNthink(nthink)

	done := false
	if listHeu {
		fmt.Println(man.HeuristicsDescription())
		done = true
	}
	if listSrc {
		fmt.Println(man.SourceDescription())
		done = true
	}
	if listAct {
		fmt.Println(man.ActDescription())
		done = true
	}
	if done {
		os.Exit(0)
	}
}
