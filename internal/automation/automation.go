// Package automation runs scripted batches of path-follow runs: YAML
// scenarios and Monte Carlo trials over the start pose.
package automation

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/pathloop/internal/config"
	"github.com/san-kum/pathloop/internal/path"
	"github.com/san-kum/pathloop/internal/sim"
)

// Scenario defines a scripted sequence of runs
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep is one run. It starts from Preset, or from Config when set,
// then applies Params by name and replaces the waypoints if any are given.
type ScenarioStep struct {
	Preset    string             `yaml:"preset"`
	Config    string             `yaml:"config"`
	Params    map[string]float64 `yaml:"params"`
	Waypoints []path.Waypoint    `yaml:"waypoints"`
	SaveAs    string             `yaml:"save_as"`
}

// StepResult pairs a step's resolved config with its outcome.
type StepResult struct {
	Name   string
	Config *config.Config
	Result *sim.Result
}

// LoadScenario loads a scenario from a YAML file
func LoadScenario(file string) (*Scenario, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, err
	}
	if len(scenario.Steps) == 0 {
		return nil, fmt.Errorf("scenario %s has no steps", file)
	}
	return &scenario, nil
}

// Resolve builds the config a step describes.
func (s ScenarioStep) Resolve() (*config.Config, error) {
	var cfg *config.Config
	switch {
	case s.Config != "":
		var err error
		if cfg, err = config.Load(s.Config); err != nil {
			return nil, err
		}
	case s.Preset != "":
		if cfg = config.GetPreset(s.Preset); cfg == nil {
			return nil, fmt.Errorf("unknown preset %q", s.Preset)
		}
	default:
		cfg = config.DefaultConfig()
	}
	if err := cfg.SetParams(s.Params); err != nil {
		return nil, err
	}
	if len(s.Waypoints) > 0 {
		cfg.Waypoints = s.Waypoints
	}
	if s.SaveAs != "" {
		cfg.Name = s.SaveAs
	}
	return cfg, cfg.Validate()
}

// RunScenario executes all steps in order and stops at the first step that
// cannot be built or run.
func RunScenario(ctx context.Context, logger *zap.Logger, scenario *Scenario) ([]StepResult, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	results := make([]StepResult, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		cfg, err := step.Resolve()
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}
		logger.Info("running scenario step",
			zap.String("scenario", scenario.Name),
			zap.Int("step", i+1),
			zap.Int("of", len(scenario.Steps)),
			zap.String("path", cfg.Name))

		res, err := sim.Run(ctx, logger, cfg)
		if err != nil {
			return results, fmt.Errorf("step %d run: %w", i+1, err)
		}
		results = append(results, StepResult{Name: cfg.Name, Config: cfg, Result: res})
	}
	return results, nil
}

// MonteCarloConfig perturbs the start pose of Base uniformly by up to
// Offset meters on each axis and HeadingOffset degrees.
type MonteCarloConfig struct {
	Base          *config.Config
	Offset        float64
	HeadingOffset float64
	NumTrials     int
	Seed          int64
}

// MonteCarloResult is one trial.
type MonteCarloResult struct {
	TrialID   int
	Start     config.StartConfig
	Completed bool
	Elapsed   time.Duration
	CrossRMS  float64
}

// RunMonteCarlo executes the trials one after another.
func RunMonteCarlo(ctx context.Context, logger *zap.Logger, cfg *MonteCarloConfig) ([]MonteCarloResult, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	results := make([]MonteCarloResult, 0, cfg.NumTrials)

	rng := rand.New(rand.NewSource(cfg.Seed))
	if cfg.Seed == 0 {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	perturb := func(v, by float64) float64 { return v + (rng.Float64()-0.5)*2*by }

	for trial := 0; trial < cfg.NumTrials; trial++ {
		run := cfg.Base.Clone()
		run.Follower.LogCSV = false
		run.Start = config.StartConfig{
			X:       perturb(run.Start.X, cfg.Offset),
			Y:       perturb(run.Start.Y, cfg.Offset),
			Heading: perturb(run.Start.Heading, cfg.HeadingOffset),
		}

		res, err := sim.Run(ctx, zap.NewNop(), run)
		if err != nil {
			return results, fmt.Errorf("trial %d: %w", trial, err)
		}
		results = append(results, MonteCarloResult{
			TrialID:   trial,
			Start:     run.Start,
			Completed: res.Completed(),
			Elapsed:   res.Elapsed,
			CrossRMS:  res.Metrics["cross_track_rms"],
		})

		if (trial+1)%10 == 0 {
			logger.Info("monte carlo progress", zap.Int("done", trial+1), zap.Int("trials", cfg.NumTrials))
		}
	}
	return results, nil
}

// MonteCarloStats counts trials that did and did not finish the path.
func MonteCarloStats(results []MonteCarloResult) (completed int, failed int) {
	for _, r := range results {
		if r.Completed {
			completed++
		} else {
			failed++
		}
	}
	return
}
