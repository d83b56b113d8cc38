// Command cpf wires configuration, transport and the filter driver
// together: it loads the enumerated configuration keys of spec.md
// section 6, builds the surface catalog, kinematic model, likelihood
// evaluator and locator adapter, and either replays a fixed residual
// log through run.ManCPF or serves them from a transport.Server.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/mathrgo/cpf/config"
	"github.com/mathrgo/cpf/likelihood"
	"github.com/mathrgo/cpf/locator"
	"github.com/mathrgo/cpf/locator/mesh"
	"github.com/mathrgo/cpf/qp"
	"github.com/mathrgo/cpf/run"
	"github.com/mathrgo/cpf/site"
	"github.com/mathrgo/cpf/transport"
)

func main() {
	var cfgPath, addr, meshPath string
	var serve bool
	flag.StringVar(&cfgPath, "config", "", "path to the YAML configuration file")
	flag.StringVar(&addr, "addr", ":8765", "address transport.Server listens on when -serve is set")
	flag.StringVar(&meshPath, "mesh", "", "path to the YAML reference mesh file used by the locator adapter")
	flag.BoolVar(&serve, "serve", false, "serve residuals over a transport.Server websocket boundary instead of exiting after a replay")
	flag.Parse()

	if flag.NFlag() == 0 {
		flag.PrintDefaults()
		os.Exit(1)
	}
	if cfgPath == "" {
		log.Fatal("cpf: -config is required")
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("cpf: %v", err)
	}
	catalog, err := cfg.LoadCatalog()
	if err != nil {
		log.Fatalf("cpf: %v", err)
	}
	model, err := cfg.LoadKinematics()
	if err != nil {
		log.Fatalf("cpf: %v", err)
	}
	solver, err := qp.New(cfg.Solver.SolverType)
	if err != nil {
		log.Fatalf("cpf: %v", err)
	}
	eval := likelihood.New(cfg.MeasurementModel.Var, len(model.JointNames()), nil, solver)

	svc, err := loadMeshService(meshPath)
	if err != nil {
		log.Fatalf("cpf: %v", err)
	}
	locAdapter := locator.New(svc, model, site.DefaultMu)

	man := run.NewMan(eval, catalog, model, locAdapter)
	man.SetHeuristicsSeed(1, 0)
	if err := man.SelectActs("print-headings", "run-progress", "print-result"); err != nil {
		log.Fatalf("cpf: %v", err)
	}

	if serve {
		srv := transport.NewServer(addr)
		srv.Start()
		defer srv.Close()
		man.Init()
		driver := man.Driver()
		fmt.Printf("cpf: serving on %s\n", addr)
		go func() {
			if err := srv.ListenAndServe(); err != nil {
				log.Fatalf("cpf: %v", err)
			}
		}()
		hints := srv.Hints()
		residuals := srv.Residuals()
		sweeping := false
		for residuals != nil {
			select {
			case hint, ok := <-hints:
				if !ok {
					hints = nil
					continue
				}
				driver.State.ExpectedContactLinks = hint.BodyNames
				sweeping = len(hint.BodyNames) > 0
			case msg, ok := <-residuals:
				if !ok {
					residuals = nil
					continue
				}
				stepFn := driver.Step
				if sweeping {
					stepFn = driver.SweepEstimate
				}
				est, err := stepFn(msg)
				if err != nil {
					log.Fatalf("cpf: step: %v", err)
				}
				srv.PublishEstimate(est)
				srv.PublishVis(driver.BuildVisPayload(msg.Utime))
			}
		}
		return
	}

	man.Run()
}

func loadMeshService(path string) (locator.Service, error) {
	if path == "" {
		return nil, fmt.Errorf("cpf: -mesh is required")
	}
	return mesh.LoadYAML(path)
}
