package config

import (
	"os"
	"path/filepath"
	"testing"
)

const testConfigYAML = `
robot:
  urdf: chain.yaml
  floating_base_type: fixed
measurementModel:
  var: 0.02
motionModel:
  var: 0.01
  varMin: 0.0005
  varMax: 0.02
  varMaxSquaredErrorCutoff: 1.0
  withinLinkOnly: false
proposal:
  normalFraction: 0.7
  historical:
    variance: 0.001
    numParticlesAtActual: 2
  seedDistribution:
    numParticles: 20
    squaredErrorThreshold: 5.0
thresholds:
  addContactPointSquaredError: 1.0
  removeContactPointSquaredError: 1.0
  addContactPointTimeout: 0.5
  removeContactPointTimeout: 0.5
  timeAboveThresholdToAddParticleSet: 0.2
  squaredErrorBoundForMostLikelyParticleAveraging: 0.05
numParticles: 150
noise:
  addNoise: false
  stddev: 0.0
solver:
  solverType: nnls
debug:
  maxNumParticleSets: 4
data:
  initialParticleLocations: sites.yaml
`

const testChainYAML = `
joints:
  - name: joint1
    link: link1
    offset: [0, 0, 0]
    axis: [0, 0, 1]
`

const testSitesYAML = `
mu: 0.4
sites:
  - link: link1
    location: [0.1, 0, 0]
    normal: [1, 0, 0]
`

func writeTestConfig(t *testing.T) string {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte(testConfigYAML), 0o644); err != nil {
		t.Fatalf("writing config.yaml: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "chain.yaml"), []byte(testChainYAML), 0o644); err != nil {
		t.Fatalf("writing chain.yaml: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "sites.yaml"), []byte(testSitesYAML), 0o644); err != nil {
		t.Fatalf("writing sites.yaml: %v", err)
	}
	return cfgPath
}

func TestLoadDecodesEveryKey(t *testing.T) {
	cfg, err := Load(writeTestConfig(t))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.NumParticles != 150 {
		t.Errorf("NumParticles = %d, want 150", cfg.NumParticles)
	}
	if cfg.Thresholds.AddContactPointSquaredError != 1.0 {
		t.Errorf("Thresholds.AddContactPointSquaredError = %v, want 1.0", cfg.Thresholds.AddContactPointSquaredError)
	}
	if cfg.Solver.SolverType != "nnls" {
		t.Errorf("Solver.SolverType = %q, want nnls", cfg.Solver.SolverType)
	}
}

func TestHeuristicsConvertsConfig(t *testing.T) {
	cfg, err := Load(writeTestConfig(t))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	hu := cfg.Heuristics()
	if hu.NumParticles != 150 {
		t.Errorf("Heuristics().NumParticles = %d, want 150", hu.NumParticles)
	}
	if hu.AddThreshold != 1.0 {
		t.Errorf("Heuristics().AddThreshold = %v, want 1.0", hu.AddThreshold)
	}
	if hu.Proposal.NormalFraction != 0.7 {
		t.Errorf("Heuristics().Proposal.NormalFraction = %v, want 0.7", hu.Proposal.NormalFraction)
	}
}

func TestLoadCatalogReadsSiteFile(t *testing.T) {
	cfgPath := writeTestConfig(t)
	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg.Data.InitialParticleLocations = filepath.Join(filepath.Dir(cfgPath), "sites.yaml")
	cat, err := cfg.LoadCatalog()
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	if cat.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", cat.Len())
	}
}

func TestLoadKinematicsReadsChainFile(t *testing.T) {
	cfgPath := writeTestConfig(t)
	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg.Robot.URDF = filepath.Join(filepath.Dir(cfgPath), "chain.yaml")
	model, err := cfg.LoadKinematics()
	if err != nil {
		t.Fatalf("LoadKinematics: %v", err)
	}
	if got := model.JointNames(); len(got) != 1 || got[0] != "joint1" {
		t.Fatalf("JointNames() = %v", got)
	}
}

func TestLoadKinematicsRequiresURDFKey(t *testing.T) {
	cfg := &Config{}
	if _, err := cfg.LoadKinematics(); err == nil {
		t.Fatalf("expected an error when robot.urdf is unset")
	}
}
