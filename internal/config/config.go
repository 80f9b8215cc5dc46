// Package config defines the data structures related to configuration and
// includes functions for loading, validating and converting the config.
package config

import (
	"fmt"
	"io"
	"strings"

	"github.com/iwvelando/adaptive-trial/internal/trial"
	"github.com/iwvelando/adaptive-trial/pkg/configprocessor"
	"github.com/iwvelando/adaptive-trial/pkg/constants"
	"github.com/iwvelando/adaptive-trial/pkg/validation"
	"github.com/spf13/viper"
)

// Configuration holds all configuration for adaptive-trial.
type Configuration struct {
	Design     DesignConfig     `yaml:"design"`
	Simulation SimulationConfig `yaml:"simulation"`
	Scenarios  []Scenario       `yaml:"scenarios"`
	Sweep      *SweepConfig     `yaml:"sweep,omitempty"`
	Logging    LoggingConfig    `yaml:"logging,omitempty"`
	Output     OutputConfig     `yaml:"output,omitempty"`
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `yaml:"level,omitempty"`      // debug, info, warn, error
	Format     string `yaml:"format,omitempty"`     // json, console
	OutputFile string `yaml:"outputFile,omitempty"` // optional file output
}

// OutputConfig holds output format configuration options
type OutputConfig struct {
	Format string `yaml:"format,omitempty"` // pretty, csv, json, markdown, xlsx
	File   string `yaml:"file,omitempty"`   // required for xlsx
}

// DesignConfig holds the constants of the two-stage design.
type DesignConfig struct {
	NInitial               int                 `yaml:"nInitial"`
	InterimFraction        float64             `yaml:"interimFraction"`
	ZAlphaInterim          float64             `yaml:"zAlphaInterim"`
	ZAlphaFinal            float64             `yaml:"zAlphaFinal"`
	PromisingZone          PromisingZoneConfig `yaml:"promisingZone"`
	TargetConditionalPower float64             `yaml:"targetConditionalPower"`
	Alpha                  float64             `yaml:"alpha"`
	NMaxCap                int                 `yaml:"nMaxCap"`
}

// PromisingZoneConfig holds the observed-RRR bounds of the promising zone.
type PromisingZoneConfig struct {
	Lower float64 `yaml:"lower"`
	Upper float64 `yaml:"upper"`
}

// SimulationConfig controls the Monte Carlo run.
type SimulationConfig struct {
	Replications int    `yaml:"replications"`
	Seed         uint64 `yaml:"seed"`
	Workers      int    `yaml:"workers"` // 0 uses every CPU
}

// Scenario holds the true event rates of one simulated population.
type Scenario struct {
	Name     string  `yaml:"name"`
	Active   bool    `yaml:"active"`
	PControl float64 `yaml:"pControl"`
	TrueRRR  float64 `yaml:"trueRRR"`
}

// SweepConfig expands into one active scenario per (pControl, trueRRR) pair.
type SweepConfig struct {
	PControl []float64 `yaml:"pControl"`
	TrueRRR  []float64 `yaml:"trueRRR"`
}

// LoadConfiguration takes a file path as input and loads the YAML-formatted
// configuration there.
func LoadConfiguration(configPath string) (*Configuration, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file, %s", err)
	}
	return decode(v)
}

// LoadConfigurationFromReader loads YAML configuration from r.
func LoadConfigurationFromReader(r io.Reader) (*Configuration, error) {
	v := newViper()
	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("error reading config data, %s", err)
	}
	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yml")
	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("design.nInitial", constants.ReferenceNInitial)
	v.SetDefault("design.interimFraction", constants.ReferenceInterimFraction)
	v.SetDefault("design.zAlphaInterim", constants.ReferenceZAlphaInterim)
	v.SetDefault("design.zAlphaFinal", constants.ReferenceZAlphaFinal)
	v.SetDefault("design.promisingZone.lower", constants.ReferenceRRRLower)
	v.SetDefault("design.promisingZone.upper", constants.ReferenceRRRUpper)
	v.SetDefault("design.targetConditionalPower", constants.ReferenceTargetCP)
	v.SetDefault("design.alpha", constants.ReferenceAlpha)
	v.SetDefault("design.nMaxCap", constants.ReferenceNMaxCap)
	v.SetDefault("simulation.replications", constants.DefaultReplications)
	v.SetDefault("simulation.seed", constants.DefaultSeed)
	v.SetDefault("simulation.workers", 0)
	return v
}

func decode(v *viper.Viper) (*Configuration, error) {
	var configuration Configuration
	if err := v.Unmarshal(&configuration); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %s", err)
	}
	return &configuration, nil
}

// TrialDesign converts the design block into the simulator's Design.
func (c *Configuration) TrialDesign() trial.Design {
	return trial.Design{
		NInitial:        float64(c.Design.NInitial),
		InterimFraction: c.Design.InterimFraction,
		ZAlphaInterim:   c.Design.ZAlphaInterim,
		ZAlphaFinal:     c.Design.ZAlphaFinal,
		RRRLower:        c.Design.PromisingZone.Lower,
		RRRUpper:        c.Design.PromisingZone.Upper,
		TargetCP:        c.Design.TargetConditionalPower,
		Alpha:           c.Design.Alpha,
		NMaxCap:         float64(c.Design.NMaxCap),
	}
}

// ActiveScenarios returns the active scenarios followed by any sweep
// expansion, in configuration order.
func (c *Configuration) ActiveScenarios() []trial.Scenario {
	var scenarios []trial.Scenario
	for _, scenario := range c.Scenarios {
		if !scenario.Active {
			continue
		}
		scenarios = append(scenarios, trial.Scenario{
			Name:     scenario.Name,
			PControl: scenario.PControl,
			TrueRRR:  scenario.TrueRRR,
		})
	}
	if c.Sweep != nil {
		scenarios = append(scenarios, c.Sweep.Expand()...)
	}
	return scenarios
}

// Expand builds one scenario per (pControl, trueRRR) pair, pControl-major.
func (s SweepConfig) Expand() []trial.Scenario {
	scenarios := make([]trial.Scenario, 0, len(s.PControl)*len(s.TrueRRR))
	for _, p := range s.PControl {
		for _, rrr := range s.TrueRRR {
			scenarios = append(scenarios, trial.Scenario{
				Name:     fmt.Sprintf("pControl=%g trueRRR=%g", p, rrr),
				PControl: p,
				TrueRRR:  rrr,
			})
		}
	}
	return scenarios
}

// Validate rejects configurations that must not reach the simulator. It is
// called once, before any replication runs.
func (c *Configuration) Validate() error {
	if err := c.TrialDesign().Validate(); err != nil {
		return err
	}
	if c.Simulation.Replications < 1 {
		return fmt.Errorf("%w: simulation.replications must be at least 1, got %d", trial.ErrInvalidConfig, c.Simulation.Replications)
	}
	if c.Simulation.Workers < 0 {
		return fmt.Errorf("%w: simulation.workers cannot be negative, got %d", trial.ErrInvalidConfig, c.Simulation.Workers)
	}
	scenarios := c.ActiveScenarios()
	if len(scenarios) == 0 {
		return fmt.Errorf("%w: no active scenarios", trial.ErrInvalidConfig)
	}
	for _, scenario := range scenarios {
		if err := scenario.Validate(); err != nil {
			return err
		}
	}
	if c.Output.Format != "" {
		if err := validation.ValidateOutputFormat(c.Output.Format); err != nil {
			return fmt.Errorf("%w: %v", trial.ErrInvalidConfig, err)
		}
		if err := validation.ValidateOutputFile(c.Output.Format, c.Output.File); err != nil {
			return fmt.Errorf("%w: %v", trial.ErrInvalidConfig, err)
		}
	}
	return nil
}

// ValidateConfiguration performs general validation of the configuration and returns warnings
func (c *Configuration) ValidateConfiguration() []string {
	var scenarios []configprocessor.ScenarioInfo
	for _, scenario := range c.Scenarios {
		scenarios = append(scenarios, configprocessor.ScenarioInfo{
			Name:   scenario.Name,
			Active: scenario.Active,
		})
	}
	if c.Sweep != nil {
		for _, scenario := range c.Sweep.Expand() {
			scenarios = append(scenarios, configprocessor.ScenarioInfo{Name: scenario.Name, Active: true})
		}
	}

	design := configprocessor.DesignInfo{
		NInitial:        c.Design.NInitial,
		InterimFraction: c.Design.InterimFraction,
		ZAlphaInterim:   c.Design.ZAlphaInterim,
		ZAlphaFinal:     c.Design.ZAlphaFinal,
	}

	processor := configprocessor.NewProcessor()
	return processor.ValidateConfiguration(design, c.Simulation.Replications, scenarios)
}
