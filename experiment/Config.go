package experiment

import (
	"fmt"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/samuelfneumann/goppo/agent/nonlinear/discrete/ppo"
	"github.com/samuelfneumann/goppo/environment/envconfig"
	"github.com/samuelfneumann/goppo/experiment/checkpointer"
	"github.com/samuelfneumann/goppo/initwfn"
	"github.com/samuelfneumann/goppo/network"
	"github.com/samuelfneumann/goppo/solver"
	"github.com/spf13/viper"
)

// Config represents a configuration of a training run
type Config struct {
	// Environment settings
	Environment   string `mapstructure:"environment"`
	EpisodeCutoff uint   `mapstructure:"episode_cutoff"`

	// Training loop settings
	MaxEpisodes  int     `mapstructure:"max_episodes"`
	MaxSteps     int     `mapstructure:"max_steps"`
	UpdatePeriod int     `mapstructure:"update_period"`
	SolvedReward float64 `mapstructure:"solved_reward"`
	LogInterval  int     `mapstructure:"log_interval"`
	Seed         uint64  `mapstructure:"seed"`

	// Agent settings. The clip range and step size decay linearly to 0
	// over all episodes.
	Gamma        float64 `mapstructure:"gamma"`
	ClipRange    float64 `mapstructure:"clip_range"`
	StepSize     float64 `mapstructure:"step_size"`
	HiddenLayers []int   `mapstructure:"hidden_layers"`
	Activation   string  `mapstructure:"activation"`
	Solver       string  `mapstructure:"solver"`
	WeightInit   string  `mapstructure:"weight_init"`

	// Output settings
	OutputDir       string `mapstructure:"output_dir"`
	CheckpointEvery int    `mapstructure:"checkpoint_every"`

	// CheckpointNaming is either "enumerate", which numbers checkpoint
	// files consecutively, or "time", which suffixes checkpoint files
	// with the time they were written
	CheckpointNaming string `mapstructure:"checkpoint_naming"`
}

// Default returns the default Config, which trains on the native
// LunarLander environment
func Default() Config {
	return Config{
		Environment:   envconfig.LunarLander,
		EpisodeCutoff: 0,

		MaxEpisodes:  5000,
		MaxSteps:     1000,
		UpdatePeriod: 2000,
		SolvedReward: 230,
		LogInterval:  20,
		Seed:         0,

		Gamma:        0.999,
		ClipRange:    0.1,
		StepSize:     2e-3,
		HiddenLayers: []int{64, 64},
		Activation:   "tanh",
		Solver:       string(solver.Adam),
		WeightInit:   string(initwfn.GlorotU),

		OutputDir:        ".",
		CheckpointEvery:  0,
		CheckpointNaming: "enumerate",
	}
}

// SetDefaults registers the default Config with v
func SetDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("environment", d.Environment)
	v.SetDefault("episode_cutoff", d.EpisodeCutoff)
	v.SetDefault("max_episodes", d.MaxEpisodes)
	v.SetDefault("max_steps", d.MaxSteps)
	v.SetDefault("update_period", d.UpdatePeriod)
	v.SetDefault("solved_reward", d.SolvedReward)
	v.SetDefault("log_interval", d.LogInterval)
	v.SetDefault("seed", d.Seed)
	v.SetDefault("gamma", d.Gamma)
	v.SetDefault("clip_range", d.ClipRange)
	v.SetDefault("step_size", d.StepSize)
	v.SetDefault("hidden_layers", d.HiddenLayers)
	v.SetDefault("activation", d.Activation)
	v.SetDefault("solver", d.Solver)
	v.SetDefault("weight_init", d.WeightInit)
	v.SetDefault("output_dir", d.OutputDir)
	v.SetDefault("checkpoint_every", d.CheckpointEvery)
	v.SetDefault("checkpoint_naming", d.CheckpointNaming)
}

// LoadConfig reads and validates a Config from v
func LoadConfig(v *viper.Viper) (Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("loadConfig: %v", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, fmt.Errorf("loadConfig: %v", err)
	}
	return c, nil
}

// Validate checks a Config to ensure it is a valid configuration
func (c Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("validate: no environment specified")
	}
	if c.MaxEpisodes < 1 {
		return fmt.Errorf("validate: max episodes must be positive but "+
			"got %v", c.MaxEpisodes)
	}
	if c.MaxSteps < 1 {
		return fmt.Errorf("validate: max steps must be positive but got %v",
			c.MaxSteps)
	}
	if c.UpdatePeriod < 1 {
		return fmt.Errorf("validate: update period must be positive but "+
			"got %v", c.UpdatePeriod)
	}
	if c.LogInterval < 1 {
		return fmt.Errorf("validate: log interval must be positive but "+
			"got %v", c.LogInterval)
	}
	if c.Gamma <= 0 || c.Gamma >= 1 {
		return fmt.Errorf("validate: gamma must be in (0, 1) but got %v",
			c.Gamma)
	}
	if c.ClipRange < 0 || c.StepSize < 0 {
		return fmt.Errorf("validate: clip range (%v) and step size (%v) "+
			"must be non-negative", c.ClipRange, c.StepSize)
	}
	if c.CheckpointEvery < 0 {
		return fmt.Errorf("validate: checkpoint interval must be "+
			"non-negative but got %v", c.CheckpointEvery)
	}
	if c.CheckpointNaming != "enumerate" && c.CheckpointNaming != "time" {
		return fmt.Errorf("validate: checkpoint naming must be enumerate "+
			"or time but got %q", c.CheckpointNaming)
	}
	if _, err := network.ActivationFromString(c.Activation); err != nil {
		return fmt.Errorf("validate: %v", err)
	}
	if _, err := initwfn.FromString(c.WeightInit, 1.0); err != nil {
		return fmt.Errorf("validate: %v", err)
	}
	return nil
}

// CheckpointFilenames returns a function which returns the filename
// of each successive checkpoint of run runID
func (c Config) CheckpointFilenames(runID uuid.UUID) func() string {
	prefix := filepath.Join(c.OutputDir, fmt.Sprintf("checkpoint-%v", runID))
	if c.CheckpointNaming == "time" {
		return checkpointer.FileTimer(prefix, ".bin")
	}
	return checkpointer.FilenameEnumerator(0, prefix+"-", ".bin")
}

// EnvConfig returns the configuration of the environment to train on
func (c Config) EnvConfig() envconfig.Config {
	return envconfig.NewConfig(c.Environment, c.EpisodeCutoff, c.Gamma)
}

// AgentConfig returns the configuration of the PPO agent to train
func (c Config) AgentConfig() (ppo.Config, error) {
	act, err := network.ActivationFromString(c.Activation)
	if err != nil {
		return ppo.Config{}, fmt.Errorf("agentConfig: %v", err)
	}
	biases := make([]bool, len(c.HiddenLayers))
	acts := make([]*network.Activation, len(c.HiddenLayers))
	for i := range c.HiddenLayers {
		biases[i] = true
		acts[i] = act
	}

	init, err := initwfn.FromString(c.WeightInit, 1.0)
	if err != nil {
		return ppo.Config{}, fmt.Errorf("agentConfig: %v", err)
	}

	var s *solver.Solver
	switch solver.Type(c.Solver) {
	case solver.Adam:
		s, err = solver.NewDefaultAdam(c.StepSize, 1)
	case solver.RMSProp:
		s, err = solver.NewDefaultRMSProp(c.StepSize, 1)
	case solver.Vanilla:
		s, err = solver.NewVanilla(c.StepSize, 1, -1)
	default:
		err = fmt.Errorf("unknown solver %v", c.Solver)
	}
	if err != nil {
		return ppo.Config{}, fmt.Errorf("agentConfig: %v", err)
	}

	return ppo.Config{
		PolicyLayers:       append([]int{}, c.HiddenLayers...),
		PolicyBiases:       biases,
		PolicyActivations:  acts,
		ValueFnLayers:      append([]int{}, c.HiddenLayers...),
		ValueFnBiases:      append([]bool{}, biases...),
		ValueFnActivations: append([]*network.Activation{}, acts...),
		InitWFn:            init,
		Solver:             s,
		Gamma:              c.Gamma,
	}, nil
}
