package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/samuelfneumann/goppo/agent/nonlinear/discrete/ppo"
	env "github.com/samuelfneumann/goppo/environment"
	"github.com/samuelfneumann/goppo/experiment"
	"github.com/samuelfneumann/goppo/experiment/checkpointer"
	"github.com/samuelfneumann/goppo/experiment/trackers"
	"github.com/samuelfneumann/goppo/report"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Smoothing of the reward curve
const (
	maWindow = 50
	sgWindow = 21
	sgOrder  = 3
)

// plotFile is the name of the reward curve image in the output
// directory
const plotFile = "rewards per episode.jpg"

var (
	v = viper.New()

	configFile string
	logLevel   string
	logFormat  string
	progress   bool
	render     bool

	returnsFile string
	plotOut     string
	plotTitle   string
)

var rootCmd = &cobra.Command{
	Use:   "goppo",
	Short: "Proximal Policy Optimization for discrete action environments",
	Long: `goppo trains softmax policies with the clipped surrogate objective
of Proximal Policy Optimization.

Settings are read from flags, GOPPO_* environment variables and an
optional YAML or JSON configuration file, in that order of priority.`,
	SilenceUsage: true,
}

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train an agent",
	RunE:  runTrain,
}

var plotCmd = &cobra.Command{
	Use:   "plot",
	Short: "Plot the smoothed episode returns of a training run",
	RunE:  runPlot,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "console",
		"Log format (console, json)")

	d := experiment.Default()
	f := trainCmd.Flags()
	f.StringVar(&configFile, "config", "", "Configuration file")
	f.BoolVar(&progress, "progress", false, "Display a progress bar")
	f.BoolVar(&render, "render-final", false,
		"Save an image of the environment after the last episode")
	f.String("environment", d.Environment,
		"Environment to train on (Cartpole, LunarLander or, in gym "+
			"builds, a Gym environment name)")
	f.Uint("episode-cutoff", d.EpisodeCutoff,
		"Step limit of the environment (0 for none)")
	f.Int("max-episodes", d.MaxEpisodes, "Maximum number of episodes")
	f.Int("max-steps", d.MaxSteps, "Maximum number of steps per episode")
	f.Int("update-period", d.UpdatePeriod, "Steps between updates")
	f.Float64("solved-reward", d.SolvedReward,
		"Average return at which training stops")
	f.Int("log-interval", d.LogInterval, "Episodes between reports")
	f.Uint64("seed", d.Seed, "Random seed")
	f.Float64("gamma", d.Gamma, "Discount factor")
	f.Float64("clip-range", d.ClipRange, "Initial clip range")
	f.Float64("step-size", d.StepSize, "Initial learning rate")
	f.IntSlice("hidden-layers", d.HiddenLayers, "Hidden layer sizes")
	f.String("activation", d.Activation, "Hidden layer activation")
	f.String("solver", d.Solver, "Solver (Adam, RMSProp, Vanilla)")
	f.String("weight-init", d.WeightInit,
		"Weight initializer (GlorotU, GlorotN, HeU, HeN)")
	f.String("output-dir", d.OutputDir, "Directory to save data to")
	f.Int("checkpoint-every", d.CheckpointEvery,
		"Updates between checkpoints (0 for none)")
	f.String("checkpoint-naming", d.CheckpointNaming,
		"Checkpoint file naming (enumerate, time)")

	experiment.SetDefaults(v)
	for _, key := range v.AllKeys() {
		flag := f.Lookup(flagName(key))
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			panic(fmt.Sprintf("init: could not bind flag %v: %v", key, err))
		}
	}
	v.SetEnvPrefix("GOPPO")
	v.AutomaticEnv()

	plotCmd.Flags().StringVar(&returnsFile, "returns", "",
		"Returns file saved by a training run")
	plotCmd.Flags().StringVar(&plotOut, "out", plotFile, "Output image")
	plotCmd.Flags().StringVar(&plotTitle, "title", "", "Plot title")
	plotCmd.MarkFlagRequired("returns")

	rootCmd.AddCommand(trainCmd, plotCmd)
}

// flagName returns the name of the flag of a configuration key
func flagName(key string) string {
	return strings.ReplaceAll(key, "_", "-")
}

// newLogger returns a logger writing to stderr
func newLogger() (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("newLogger: %v", err)
	}

	var out io.Writer
	switch logFormat {
	case "console":
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	case "json":
		out = os.Stderr
	default:
		return zerolog.Logger{}, fmt.Errorf("newLogger: unknown log format %q",
			logFormat)
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger(), nil
}

func runTrain(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("train: could not read config: %v", err)
		}
	}
	cfg, err := experiment.LoadConfig(v)
	if err != nil {
		return fmt.Errorf("train: %v", err)
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("train: could not create output directory: %v",
			err)
	}

	e, _, err := cfg.EnvConfig().Create(cfg.Seed)
	if err != nil {
		return fmt.Errorf("train: %v", err)
	}
	if closer, ok := e.(env.Closer); ok {
		defer closer.Close()
	}

	agentConfig, err := cfg.AgentConfig()
	if err != nil {
		return fmt.Errorf("train: %v", err)
	}
	agent, err := ppo.New(e, agentConfig, cfg.Seed)
	if err != nil {
		return fmt.Errorf("train: %v", err)
	}
	defer agent.Close()

	trainer, err := experiment.NewTrainer(e, agent, cfg, logger)
	if err != nil {
		return fmt.Errorf("train: %v", err)
	}
	if cfg.CheckpointEvery > 0 {
		check, err := checkpointer.NewNStep(cfg.CheckpointEvery,
			func() checkpointer.Serializable { return agent.Target() },
			cfg.CheckpointFilenames(trainer.RunID()))
		if err != nil {
			return fmt.Errorf("train: %v", err)
		}
		trainer.AddCheckpointer(check)
	}
	if progress {
		trainer.ShowProgress(os.Stdout)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt,
		syscall.SIGTERM)
	defer stop()

	result, runErr := trainer.Run(ctx)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return fmt.Errorf("train: %v", runErr)
	}
	if runErr != nil {
		logger.Warn().Int("episodes", result.Episodes).
			Msg("Training interrupted")
	}

	if err := trainer.Save(); err != nil {
		return fmt.Errorf("train: %v", err)
	}
	if render {
		if _, err := trainer.RenderFinal(); err != nil {
			logger.Warn().Err(err).Msg("Could not render final frame")
		}
	}
	if len(result.Returns) == 0 {
		return nil
	}

	path := filepath.Join(cfg.OutputDir, plotFile)
	smoothed := report.Smooth(result.Returns, maWindow, sgWindow, sgOrder)
	if err := report.PlotRewards(smoothed, cfg.Environment, path); err != nil {
		return fmt.Errorf("train: %v", err)
	}
	logger.Info().Str("path", path).Bool("solved", result.Solved).
		Int("episodes", result.Episodes).Msg("Saved reward curve")
	return nil
}

func runPlot(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}

	returns, err := trackers.LoadData(returnsFile)
	if err != nil {
		return fmt.Errorf("plot: %v", err)
	}

	title := plotTitle
	if title == "" {
		title = filepath.Base(returnsFile)
	}
	smoothed := report.Smooth(returns, maWindow, sgWindow, sgOrder)
	if err := report.PlotRewards(smoothed, title, plotOut); err != nil {
		return fmt.Errorf("plot: %v", err)
	}
	logger.Info().Str("path", plotOut).Int("episodes", len(returns)).
		Msg("Saved reward curve")
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
