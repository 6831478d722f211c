package experiment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/samuelfneumann/goppo/agent"
	"github.com/samuelfneumann/goppo/agent/nonlinear/discrete/actorcritic"
	"github.com/samuelfneumann/goppo/agent/nonlinear/discrete/ppo"
	"github.com/samuelfneumann/goppo/buffer/rollout"
	env "github.com/samuelfneumann/goppo/environment"
	"github.com/samuelfneumann/goppo/environment/envconfig"
	"github.com/samuelfneumann/goppo/experiment/checkpointer"
	"github.com/samuelfneumann/goppo/experiment/trackers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) Config {
	t.Helper()

	c := Default()
	c.Environment = envconfig.Cartpole
	c.MaxEpisodes = 6
	c.MaxSteps = 30
	c.UpdatePeriod = 25
	c.LogInterval = 2
	c.SolvedReward = 1e6
	c.Gamma = 0.99
	c.HiddenLayers = []int{8}
	c.OutputDir = t.TempDir()
	return c
}

func newTestTrainer(t *testing.T, c Config, logs *bytes.Buffer,
	check ...checkpointer.Checkpointer) (*Trainer, *ppo.PPO) {
	t.Helper()

	e, _, err := envconfig.CreateCartpole(int(c.EpisodeCutoff), c.Seed,
		c.Gamma)
	require.NoError(t, err)

	agentConfig, err := c.AgentConfig()
	require.NoError(t, err)
	p, err := ppo.New(e, agentConfig, c.Seed)
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })

	logger := zerolog.New(logs).Level(zerolog.DebugLevel)
	trainer, err := NewTrainer(e, p, c, logger, check...)
	require.NoError(t, err)
	return trainer, p
}

// logMessages returns the messages of all JSON log lines
func logMessages(t *testing.T, logs *bytes.Buffer) []string {
	t.Helper()

	var msgs []string
	for _, line := range strings.Split(strings.TrimSpace(logs.String()), "\n") {
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		msgs = append(msgs, entry["message"].(string))
	}
	return msgs
}

func count(items []string, item string) int {
	n := 0
	for _, i := range items {
		if i == item {
			n++
		}
	}
	return n
}

func TestTrainerRun(t *testing.T) {
	c := testConfig(t)
	var logs bytes.Buffer
	trainer, _ := newTestTrainer(t, c, &logs)

	result, err := trainer.Run(context.Background())
	require.NoError(t, err)

	assert.False(t, result.Solved)
	assert.Equal(t, trainer.RunID(), result.RunID)
	assert.Equal(t, c.MaxEpisodes, result.Episodes)
	require.Len(t, result.Returns, c.MaxEpisodes)
	require.Len(t, result.Lengths, c.MaxEpisodes)

	steps := 0
	for i, length := range result.Lengths {
		assert.LessOrEqual(t, length, c.MaxSteps)
		assert.Greater(t, length, 0)

		// Cartpole gives a reward of 1 on each step
		assert.Equal(t, float64(length), result.Returns[i])
		steps += length
	}
	assert.Equal(t, steps, result.Steps)
	assert.Equal(t, steps/c.UpdatePeriod, result.Updates)

	msgs := logMessages(t, &logs)
	assert.Equal(t, "Starting training", msgs[0])
	assert.Equal(t, c.MaxEpisodes/c.LogInterval, count(msgs, "Episode report"))
	assert.Equal(t, result.Updates, count(msgs, "Updated agent"))
	assert.Zero(t, count(msgs, "Non-finite loss"))
}

func TestTrainerSolved(t *testing.T) {
	c := testConfig(t)
	c.SolvedReward = 1
	var logs bytes.Buffer
	trainer, _ := newTestTrainer(t, c, &logs)

	result, err := trainer.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, result.Solved)
	assert.Equal(t, 1, result.Episodes)
	assert.Equal(t, 1, count(logMessages(t, &logs), "Solved"))
}

func TestTrainerCancel(t *testing.T) {
	c := testConfig(t)
	var logs bytes.Buffer
	trainer, _ := newTestTrainer(t, c, &logs)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := trainer.Run(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Zero(t, result.Episodes)
}

func TestTrainerSaveAndCheckpoint(t *testing.T) {
	c := testConfig(t)
	c.CheckpointEvery = 2
	var logs bytes.Buffer

	var p *ppo.PPO
	var runID string
	check, err := checkpointer.NewNStep(c.CheckpointEvery,
		func() checkpointer.Serializable { return p.Target() },
		func() string {
			return filepath.Join(c.OutputDir, "checkpoint-"+runID+".bin")
		})
	require.NoError(t, err)

	trainer, agent := newTestTrainer(t, c, &logs, check)
	p = agent
	runID = trainer.RunID().String()

	result, err := trainer.Run(context.Background())
	require.NoError(t, err)
	require.NoError(t, trainer.Save())

	returns, err := trackers.LoadData(c.ReturnsPath(trainer.RunID()))
	require.NoError(t, err)
	assert.Equal(t, result.Returns, returns)

	lengths, err := trackers.LoadLengths(c.LengthsPath(trainer.RunID()))
	require.NoError(t, err)
	assert.Equal(t, result.Lengths, lengths)

	assert.Equal(t, result.Updates/c.CheckpointEvery,
		count(logMessages(t, &logs), "Saved checkpoint"))

	if result.Updates >= c.CheckpointEvery {
		path := filepath.Join(c.OutputDir, "checkpoint-"+runID+".bin")
		_, err := os.Stat(path)
		require.NoError(t, err)

		loaded := &actorcritic.ActorCritic{}
		require.NoError(t, checkpointer.Load(path, loaded))
		defer loaded.Close()
		assert.Equal(t, p.Target().Features(), loaded.Features())
		assert.Equal(t, p.Target().Actions(), loaded.Actions())
	}
}

func TestNewTrainerInvalidConfig(t *testing.T) {
	c := testConfig(t)
	var logs bytes.Buffer
	trainer, p := newTestTrainer(t, c, &logs)
	require.NotNil(t, trainer)

	c.MaxSteps = 0
	e, _, err := envconfig.CreateCartpole(0, 0, 0.99)
	require.NoError(t, err)
	_, err = NewTrainer(e, p, c, zerolog.Nop())
	assert.Error(t, err)
}

// recordingLearner selects action 0 in every state and records the
// hyperparameters of each update
type recordingLearner struct {
	clipRanges []float64
	stepSizes  []float64
}

func (r *recordingLearner) Act(state []float64,
	buffer *rollout.Buffer) (int, error) {
	return 0, buffer.AppendStep(state, 0, 0)
}

func (r *recordingLearner) Update(buffer *rollout.Buffer, clipRange,
	stepSize float64) (agent.UpdateStats, error) {
	r.clipRanges = append(r.clipRanges, clipRange)
	r.stepSizes = append(r.stepSizes, stepSize)
	return agent.UpdateStats{Samples: buffer.Len()}, nil
}

func (r *recordingLearner) Close() error { return nil }

func TestTrainerLinearDecay(t *testing.T) {
	c := testConfig(t)
	c.MaxEpisodes = 4
	c.MaxSteps = 1
	c.UpdatePeriod = 1
	c.ClipRange = 0.1
	c.StepSize = 0.02

	e, _, err := envconfig.CreateCartpole(0, c.Seed, c.Gamma)
	require.NoError(t, err)
	learner := &recordingLearner{}
	trainer, err := NewTrainer(e, learner, c, zerolog.Nop())
	require.NoError(t, err)

	result, err := trainer.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 4, result.Updates)

	// One single-step episode per update, decayed by 1 - (i+1)/N
	wantClip := []float64{0.075, 0.05, 0.025, 0}
	wantStep := []float64{0.015, 0.01, 0.005, 0}
	require.Len(t, learner.clipRanges, len(wantClip))
	for i := range wantClip {
		assert.InDelta(t, wantClip[i], learner.clipRanges[i], 1e-12,
			"clip range of update %v", i)
		assert.InDelta(t, wantStep[i], learner.stepSizes[i], 1e-12,
			"step size of update %v", i)
	}
}

// plainEnv hides all methods of its Environment other than those of
// the environment.Environment interface
type plainEnv struct {
	env.Environment
}

func TestTrainerRenderFinal(t *testing.T) {
	c := testConfig(t)
	c.MaxEpisodes = 2
	trainer, _ := newTestTrainer(t, c, &bytes.Buffer{})

	_, err := trainer.Run(context.Background())
	require.NoError(t, err)

	path, err := trainer.RenderFinal()
	require.NoError(t, err)
	assert.Equal(t, c.FramePath(trainer.RunID()), path)
	assert.FileExists(t, path)

	e, _, err := envconfig.CreateCartpole(0, c.Seed, c.Gamma)
	require.NoError(t, err)
	plain, err := NewTrainer(plainEnv{e}, &recordingLearner{}, c,
		zerolog.Nop())
	require.NoError(t, err)
	_, err = plain.RenderFinal()
	assert.Error(t, err)
}
