package experiment

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/samuelfneumann/goppo/agent"
	"github.com/samuelfneumann/goppo/buffer/rollout"
	env "github.com/samuelfneumann/goppo/environment"
	"github.com/samuelfneumann/goppo/experiment/checkpointer"
	"github.com/samuelfneumann/goppo/experiment/trackers"
	ts "github.com/samuelfneumann/goppo/timestep"
	"github.com/samuelfneumann/goppo/utils/progressbar"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Trainer is an Experiment which trains an on-policy agent online.
//
// On each step, the agent selects an action, which is recorded in a
// rollout buffer together with its outcome. Every UpdatePeriod steps,
// counted across episodes, the agent is updated with all data in the
// buffer and the buffer is cleared. The clip range and step size of
// each update decay linearly over episodes, reaching 0 in the final
// episode.
type Trainer struct {
	env    env.Environment
	agent  agent.OnPolicyLearner
	buffer *rollout.Buffer
	config Config
	logger zerolog.Logger
	runID  uuid.UUID

	limit         *env.StepLimit
	returns       *trackers.Return
	lengths       *trackers.EpisodeLength
	trackers      []trackers.Tracker
	checkpointers []checkpointer.Checkpointer
	progress      *progressbar.ManualProgressBar

	steps   int
	updates int
}

// NewTrainer creates and returns a new Trainer which trains agent a in
// environment e. Episode returns and lengths are tracked and saved to
// the output directory of c.
func NewTrainer(e env.Environment, a agent.OnPolicyLearner, c Config,
	logger zerolog.Logger, check ...checkpointer.Checkpointer) (*Trainer,
	error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("newTrainer: %v", err)
	}

	runID := uuid.New()
	t := &Trainer{
		env:           e,
		agent:         a,
		buffer:        rollout.New(e.ObservationSpec().Features()),
		config:        c,
		logger:        logger.With().Str("run_id", runID.String()).Logger(),
		runID:         runID,
		limit:         env.NewStepLimit(c.MaxSteps),
		returns:       trackers.NewReturn(c.ReturnsPath(runID)),
		lengths:       trackers.NewEpisodeLength(c.LengthsPath(runID)),
		checkpointers: check,
	}
	t.trackers = []trackers.Tracker{t.returns, t.lengths}

	return t, nil
}

// ReturnsPath returns the file in which episode returns of run runID
// are saved
func (c Config) ReturnsPath(runID uuid.UUID) string {
	return filepath.Join(c.OutputDir, fmt.Sprintf("returns-%v.bin", runID))
}

// LengthsPath returns the file in which episode lengths of run runID
// are saved
func (c Config) LengthsPath(runID uuid.UUID) string {
	return filepath.Join(c.OutputDir, fmt.Sprintf("lengths-%v.bin", runID))
}

// RunID returns the unique identifier of the training run
func (t *Trainer) RunID() uuid.UUID {
	return t.runID
}

// Register registers a new Tracker with the Trainer
func (t *Trainer) Register(tracker trackers.Tracker) {
	t.trackers = append(t.trackers, tracker)
}

// AddCheckpointer adds a Checkpointer which is called after each
// update of the agent
func (t *Trainer) AddCheckpointer(c checkpointer.Checkpointer) {
	t.checkpointers = append(t.checkpointers, c)
}

// ShowProgress displays a progress bar of completed episodes on out
func (t *Trainer) ShowProgress(out io.Writer) {
	t.progress = progressbar.NewManualProgressBar(out, 50,
		t.config.MaxEpisodes)
}

// Run trains the agent until the maximum number of episodes is reached
// or the environment is solved. Run returns early with the context's
// error if the context is cancelled.
func (t *Trainer) Run(ctx context.Context) (Result, error) {
	c := t.config
	solveWindow := c.MaxEpisodes / 10
	if solveWindow < 1 {
		solveWindow = 1
	}

	t.logger.Info().
		Str("environment", c.Environment).
		Int("max_episodes", c.MaxEpisodes).
		Int("max_steps", c.MaxSteps).
		Int("update_period", c.UpdatePeriod).
		Float64("gamma", c.Gamma).
		Msg("Starting training")

	var (
		intervalReturn float64
		intervalLength int
		lastReport     int
		solved         bool
	)
	for i := 0; i < c.MaxEpisodes && !solved; i++ {
		alpha := 1 - float64(i+1)/float64(c.MaxEpisodes)
		clipRange, stepSize := c.ClipRange*alpha, c.StepSize*alpha

		episodeReturn, length, err := t.runEpisode(ctx, clipRange, stepSize)
		if err != nil {
			return t.result(false), fmt.Errorf("run: episode %v: %w", i, err)
		}
		intervalReturn += episodeReturn
		intervalLength += length

		if t.progress != nil {
			t.progress.Increment()
			if err := t.progress.Display(); err != nil {
				return t.result(false), fmt.Errorf("run: %v", err)
			}
		}

		solved = t.solved(solveWindow)
		if solved || (i+1)%c.LogInterval == 0 {
			episodes := float64(i + 1 - lastReport)
			event := t.logger.Info()
			msg := "Episode report"
			if solved {
				msg = "Solved"
			}
			event.
				Int("episode", i+1).
				Float64("avg_length", float64(intervalLength)/episodes).
				Float64("avg_return", intervalReturn/episodes).
				Int("steps", t.steps).
				Int("updates", t.updates).
				Msg(msg)

			intervalReturn, intervalLength = 0, 0
			lastReport = i + 1
		}
	}

	return t.result(solved), nil
}

// runEpisode runs a single episode, returning its return and length
func (t *Trainer) runEpisode(ctx context.Context, clipRange,
	stepSize float64) (float64, int, error) {
	step, err := t.env.Reset()
	if err != nil {
		return 0, 0, fmt.Errorf("runEpisode: could not reset: %v", err)
	}
	if err := t.track(step); err != nil {
		return 0, 0, fmt.Errorf("runEpisode: %v", err)
	}

	episodeReturn := 0.0
	for done := false; !done; {
		if err := ctx.Err(); err != nil {
			return 0, 0, err
		}

		action, err := t.agent.Act(step.ObservationSlice(), t.buffer)
		if err != nil {
			return 0, 0, fmt.Errorf("runEpisode: %v", err)
		}

		a := mat.NewVecDense(1, []float64{float64(action)})
		step, done, err = t.env.Step(a)
		if err != nil {
			return 0, 0, fmt.Errorf("runEpisode: could not step: %v", err)
		}
		if !done {
			done = t.limit.End(&step)
		}

		if err := t.buffer.AppendOutcome(step.Reward, done); err != nil {
			return 0, 0, fmt.Errorf("runEpisode: %v", err)
		}
		if err := t.track(step); err != nil {
			return 0, 0, fmt.Errorf("runEpisode: %v", err)
		}
		episodeReturn += step.Reward
		t.steps++

		if t.steps%t.config.UpdatePeriod == 0 {
			if err := t.update(clipRange, stepSize); err != nil {
				return 0, 0, fmt.Errorf("runEpisode: %v", err)
			}
		}
	}

	return episodeReturn, step.Number, nil
}

// update updates the agent with all data in the buffer, then clears
// the buffer
func (t *Trainer) update(clipRange, stepSize float64) error {
	stats, err := t.agent.Update(t.buffer, clipRange, stepSize)
	if err != nil {
		return fmt.Errorf("update: %v", err)
	}
	t.buffer.Clear()
	t.updates++

	event := t.logger.Debug()
	msg := "Updated agent"
	if !stats.Finite() {
		event = t.logger.Warn()
		msg = "Non-finite loss"
	}
	event.
		Int("update", t.updates).
		Int("samples", stats.Samples).
		Floats64("losses", stats.Losses).
		Float64("policy_loss", stats.PolicyLoss).
		Float64("value_loss", stats.ValueLoss).
		Float64("clip_fraction", stats.ClipFraction).
		Float64("approx_kl", stats.ApproxKL).
		Float64("clip_range", clipRange).
		Float64("step_size", stepSize).
		Msg(msg)

	for _, c := range t.checkpointers {
		file, err := c.Checkpoint(t.updates)
		if err != nil {
			return fmt.Errorf("update: %v", err)
		}
		if file != "" {
			t.logger.Info().Int("update", t.updates).Str("file", file).
				Msg("Saved checkpoint")
		}
	}
	return nil
}

// track sends a timestep to each Tracker
func (t *Trainer) track(step ts.TimeStep) error {
	for _, tracker := range t.trackers {
		if err := tracker.Track(step); err != nil {
			return fmt.Errorf("track: %v", err)
		}
	}
	return nil
}

// solved returns whether the sum of the returns of the last window
// episodes, divided by window, reaches the solved threshold
func (t *Trainer) solved(window int) bool {
	returns := t.returns.Returns()
	if len(returns) > window {
		returns = returns[len(returns)-window:]
	}

	return floats.Sum(returns)/float64(window) >= t.config.SolvedReward
}

// result returns the Result of the experiment so far
func (t *Trainer) result(solved bool) Result {
	returns := t.returns.Returns()
	return Result{
		RunID:    t.runID,
		Episodes: len(returns),
		Steps:    t.steps,
		Updates:  t.updates,
		Solved:   solved,
		Returns:  returns,
		Lengths:  t.lengths.Lengths(),
	}
}

// FramePath returns the file in which the final frame of run runID is
// rendered
func (c Config) FramePath(runID uuid.UUID) string {
	return filepath.Join(c.OutputDir, fmt.Sprintf("final-%v.png", runID))
}

// RenderFinal draws the current state of the environment to
// FramePath. The environment must implement environment.Renderer.
func (t *Trainer) RenderFinal() (string, error) {
	r, ok := t.env.(env.Renderer)
	if !ok {
		return "", fmt.Errorf("renderFinal: environment %v cannot be "+
			"rendered", t.config.Environment)
	}

	path := t.config.FramePath(t.runID)
	if err := r.Render(path); err != nil {
		return "", fmt.Errorf("renderFinal: %v", err)
	}
	t.logger.Info().Str("path", path).Msg("Rendered final frame")
	return path, nil
}

// Save saves the data of all Trackers to disk
func (t *Trainer) Save() error {
	for _, tracker := range t.trackers {
		if err := tracker.Save(); err != nil {
			return fmt.Errorf("save: %v", err)
		}
	}
	t.logger.Info().
		Str("returns", t.config.ReturnsPath(t.runID)).
		Str("lengths", t.config.LengthsPath(t.runID)).
		Msg("Saved episode data")
	return nil
}

var _ Experiment = &Trainer{}
