package config

import (
	"fmt"
	"path/filepath"

	"github.com/mathrgo/cpf/cpf"
	"github.com/mathrgo/cpf/kinematics"
	"github.com/mathrgo/cpf/proposal"
	"github.com/mathrgo/cpf/site"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Robot holds the robot-description keys (spec.md 6: `robot.urdf`,
// `robot.floating_base_type`). Path points at the YAML joint-chain file
// consumed by the kinematics package in place of a real URDF loader.
type Robot struct {
	URDF              string `mapstructure:"urdf"`
	FloatingBaseType  string `mapstructure:"floating_base_type"`
}

type measurementModel struct {
	Var float64 `mapstructure:"var"`
}

type motionModel struct {
	Var                   float64 `mapstructure:"var"`
	VarMin                float64 `mapstructure:"varMin"`
	VarMax                float64 `mapstructure:"varMax"`
	VarMaxSquaredErrorCutoff float64 `mapstructure:"varMaxSquaredErrorCutoff"`
	WithinLinkOnly        bool    `mapstructure:"withinLinkOnly"`
}

type historicalProposal struct {
	Variance              float64 `mapstructure:"variance"`
	NumParticlesAtActual  int     `mapstructure:"numParticlesAtActual"`
}

type seedDistribution struct {
	NumParticles          int     `mapstructure:"numParticles"`
	SquaredErrorThreshold float64 `mapstructure:"squaredErrorThreshold"`
}

type proposalConfig struct {
	NormalFraction   float64            `mapstructure:"normalFraction"`
	Historical       historicalProposal `mapstructure:"historical"`
	SeedDistribution seedDistribution   `mapstructure:"seedDistribution"`
}

type thresholds struct {
	AddContactPointSquaredError                   float64 `mapstructure:"addContactPointSquaredError"`
	RemoveContactPointSquaredError                float64 `mapstructure:"removeContactPointSquaredError"`
	AddContactPointTimeout                        float64 `mapstructure:"addContactPointTimeout"`
	RemoveContactPointTimeout                     float64 `mapstructure:"removeContactPointTimeout"`
	TimeAboveThresholdToAddParticleSet             float64 `mapstructure:"timeAboveThresholdToAddParticleSet"`
	SquaredErrorBoundForMostLikelyParticleAveraging float64 `mapstructure:"squaredErrorBoundForMostLikelyParticleAveraging"`
}

type noise struct {
	AddNoise bool    `mapstructure:"addNoise"`
	Stddev   float64 `mapstructure:"stddev"`
}

type solver struct {
	SolverType string `mapstructure:"solverType"`
}

type debug struct {
	MaxNumParticleSets int `mapstructure:"maxNumParticleSets"`
}

type vis struct {
	Draw                      bool `mapstructure:"draw"`
	PublishVisualizationData  bool `mapstructure:"publishVisualizationData"`
}

type data struct {
	InitialParticleLocations string `mapstructure:"initialParticleLocations"`
	ContactCells             string `mapstructure:"contactCells"`
}

// Config is the raw, viper-decoded mirror of every key enumerated in
// spec.md section 6.
type Config struct {
	Robot            Robot            `mapstructure:"robot"`
	MeasurementModel measurementModel `mapstructure:"measurementModel"`
	MotionModel      motionModel      `mapstructure:"motionModel"`
	Proposal         proposalConfig   `mapstructure:"proposal"`
	Thresholds       thresholds       `mapstructure:"thresholds"`
	NumParticles     int              `mapstructure:"numParticles"`
	Noise            noise            `mapstructure:"noise"`
	Solver           solver           `mapstructure:"solver"`
	Debug            debug            `mapstructure:"debug"`
	Data             data             `mapstructure:"data"`
	Vis              vis              `mapstructure:"vis"`
}

// Load reads path with viper (environment overrides apply automatically
// via viper.AutomaticEnv), the same vp.SetConfigFile/SetConfigType/
// AddConfigPath/ReadInConfig/Unmarshal pipeline as
// niceyeti-tabular/tabular/reinforcement/learning.go's FromYaml.
func Load(path string) (*Config, error) {
	vp := viper.New()
	vp.SetConfigFile(path)
	vp.SetConfigType("yaml")
	vp.AddConfigPath(filepath.Dir(path))
	vp.AutomaticEnv()

	if err := vp.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	cfg := &Config{}
	if err := vp.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshalling %s: %w", path, err)
	}
	return cfg, nil
}

// Heuristics converts the raw configuration into cpf.Heuristics.
func (c *Config) Heuristics() cpf.Heuristics {
	hu := cpf.DefaultHeuristics()
	hu.NumParticles = c.NumParticles
	hu.SquaredErrorBoundForAveraging = c.Thresholds.SquaredErrorBoundForMostLikelyParticleAveraging
	hu.AddThreshold = c.Thresholds.AddContactPointSquaredError
	hu.RemoveThreshold = c.Thresholds.RemoveContactPointSquaredError
	hu.AddCooldown = c.Thresholds.AddContactPointTimeout
	hu.RemoveCooldown = c.Thresholds.RemoveContactPointTimeout
	hu.PersistenceWindow = c.Thresholds.TimeAboveThresholdToAddParticleSet
	hu.MaxParticleSets = c.Debug.MaxNumParticleSets
	hu.Sigma2 = c.MeasurementModel.Var
	hu.AddNoise = c.Noise.AddNoise
	hu.NoiseStdDev = c.Noise.Stddev

	prop := proposal.Default()
	prop.NormalFraction = c.Proposal.NormalFraction
	prop.VarMin = c.MotionModel.VarMin
	prop.VarMax = c.MotionModel.VarMax
	prop.VarMaxSquaredErrorCutoff = c.MotionModel.VarMaxSquaredErrorCutoff
	prop.HistoricalVariance = c.Proposal.Historical.Variance
	prop.NumParticlesAtActual = c.Proposal.Historical.NumParticlesAtActual
	prop.SeedNumParticles = c.Proposal.SeedDistribution.NumParticles
	prop.SeedSquaredErrorThreshold = c.Proposal.SeedDistribution.SquaredErrorThreshold
	if c.MotionModel.WithinLinkOnly {
		prop.MotionModel = proposal.MotionWithinLink
	}
	hu.Proposal = prop

	return hu
}

// LoadCatalog reads data.initialParticleLocations (a standalone YAML
// site list, site.Load's format) into a site.Catalog.
func (c *Config) LoadCatalog() (*site.Catalog, error) {
	if c.Data.InitialParticleLocations == "" {
		return nil, fmt.Errorf("config: data.initialParticleLocations not set")
	}
	return site.Load(c.Data.InitialParticleLocations)
}

// LoadKinematics reads robot.urdf (standing in for a real URDF loader,
// per SPEC_FULL.md 10.2: a small YAML link/joint chain) into a
// kinematics.Chain.
func (c *Config) LoadKinematics() (*kinematics.Chain, error) {
	if c.Robot.URDF == "" {
		return nil, fmt.Errorf("config: robot.urdf not set")
	}
	return kinematics.Load(c.Robot.URDF)
}

// contactCellsFile mirrors data.contactCells: a standalone YAML file of
// discretization cells used to seed the catalog directly, an
// alternative to data.initialParticleLocations for generating dense
// surface coverage.
type contactCellsFile struct {
	Mu    float64      `yaml:"mu"`
	Cells []site.Entry `yaml:"cells"`
}

// LoadContactCells reads data.contactCells and builds a Catalog from
// its cell entries, an alternative seeding path to LoadCatalog.
func (c *Config) LoadContactCells() (*site.Catalog, error) {
	if c.Data.ContactCells == "" {
		return nil, fmt.Errorf("config: data.contactCells not set")
	}
	raw, err := yamlReadFile(c.Data.ContactCells)
	if err != nil {
		return nil, fmt.Errorf("config: reading contact cells: %w", err)
	}
	var cf contactCellsFile
	if err := yaml.Unmarshal(raw, &cf); err != nil {
		return nil, fmt.Errorf("config: decoding contact cells: %w", err)
	}
	mu := cf.Mu
	if mu <= 0 {
		mu = site.DefaultMu
	}
	return site.FromEntries(cf.Cells, mu)
}
