/*main gives an example of how to use run.ManCPF to replay a fixed
sequence of residuals against a small single-link arm with a four-site
catalog, the direct analogue of runkit1.go's psokit.ManPso usage.
To run it for say 2 runs type
	go run replay.go -nrun 2
at the command line
*/
package main

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/mathrgo/cpf/cpf"
	"github.com/mathrgo/cpf/kinematics"
	"github.com/mathrgo/cpf/likelihood"
	"github.com/mathrgo/cpf/locator"
	"github.com/mathrgo/cpf/qp"
	"github.com/mathrgo/cpf/run"
	"github.com/mathrgo/cpf/site"
)

// stubLocator answers every Nearest query with the single link's tip
// face, just enough geometry for the replay to run end to end without
// a real triangulated mesh.
type stubLocator struct{}

func (stubLocator) Nearest(p mgl64.Vec3) (locator.Hit, error) {
	return locator.Hit{Point: p, Normal: mgl64.Vec3{0, 0, 1}, Link: "link1"}, nil
}

func buildModel() kinematics.Model {
	return kinematics.New([]kinematics.JointSpec{
		{Name: "joint1", Link: "link1", Offset: [3]float64{0, 0, 0}, Axis: [3]float64{0, 0, 1}},
	})
}

func buildCatalog() *site.Catalog {
	cat, err := site.FromEntries([]site.Entry{
		{Link: "link1", Location: [3]float64{0.1, 0, 0}, Normal: [3]float64{1, 0, 0}},
		{Link: "link1", Location: [3]float64{-0.1, 0, 0}, Normal: [3]float64{-1, 0, 0}},
		{Link: "link1", Location: [3]float64{0, 0.1, 0}, Normal: [3]float64{0, 1, 0}},
		{Link: "link1", Location: [3]float64{0, -0.1, 0}, Normal: [3]float64{0, -1, 0}},
	}, site.DefaultMu)
	if err != nil {
		panic(err)
	}
	return cat
}

// fixedLog is a short hand-written residual log: idle, then a step
// onto one joint consistent with a contact pressing on link1, then
// idle again, exercising spec.md's birth/death thresholds end to end.
func fixedLog() []cpf.ResidualMessage {
	names := []string{"joint1"}
	msgs := make([]cpf.ResidualMessage, 0, 40)
	for i := 0; i < 10; i++ {
		msgs = append(msgs, cpf.ResidualMessage{Utime: uint64(i) * 1000, JointNames: names, Residual: []float64{0}})
	}
	for i := 10; i < 30; i++ {
		msgs = append(msgs, cpf.ResidualMessage{Utime: uint64(i) * 1000, JointNames: names, Residual: []float64{0.8}})
	}
	for i := 30; i < 40; i++ {
		msgs = append(msgs, cpf.ResidualMessage{Utime: uint64(i) * 1000, JointNames: names, Residual: []float64{0}})
	}
	return msgs
}

// fixedLogCreator adapts fixedLog into a run.CreateSource, the
// analogue of simplefactor.NewCreator in runkit2.go.
type fixedLogCreator struct{}

func (fixedLogCreator) Create(sd int64) run.ResidualSource {
	return run.NewFixedSource(fixedLog())
}

func main() {
	model := buildModel()
	catalog := buildCatalog()
	solver, err := qp.New("nnls")
	if err != nil {
		panic(err)
	}
	eval := likelihood.New(0.01, len(model.JointNames()), nil, solver)
	loc := locator.New(stubLocator{}, model, site.DefaultMu)

	man := run.NewMan(eval, catalog, model, loc)
	man.SetNthink(1)
	man.SetNdata(40)
	man.SetHeuristicsSeed(578+3*34, 34)
	man.SetSourceCase("press-and-release")
	if err := man.AddSource("press-and-release", "10 idle, 20 pressed, 10 idle residuals on joint1", fixedLogCreator{}); err != nil {
		fmt.Println(err)
	}
	if err := man.SelectActs(
		"use-cmd-options",
		"print-headings",
		"print-result",
		"run-progress"); err != nil {
		fmt.Println(err)
	}
	man.Run()
}
