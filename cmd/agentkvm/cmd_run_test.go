package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentkvm/agentkvm/internal/agent"
	"github.com/agentkvm/agentkvm/internal/history"
	"github.com/agentkvm/agentkvm/internal/projectconfig"
)

func TestResolveRunSettings_FlagsWinOverConfig(t *testing.T) {
	cfg := projectconfig.New()
	cfg.Backend.Name = "claude"
	cfg.Backend.Host = "config-host"
	cfg.Agent.MaxIterations = 20

	cmd := newRunCommand()
	require.NoError(t, cmd.Flags().Set("backend", "ollama"))
	require.NoError(t, cmd.Flags().Set("max-iter", "7"))

	s, err := resolveRunSettings(cmd, cfg)
	require.NoError(t, err)

	assert.Equal(t, "ollama", s.Backend.Name)
	// Unset flags keep the config values.
	assert.Equal(t, "config-host", s.Backend.Host)
	assert.Equal(t, 7, s.MaxIterations)
	assert.Equal(t, projectconfig.DefaultWorkdir, s.Workdir)
	assert.False(t, s.Reset)
}

func TestResolveRunSettings_DefaultsOnly(t *testing.T) {
	s, err := resolveRunSettings(newRunCommand(), projectconfig.New())
	require.NoError(t, err)

	assert.Equal(t, projectconfig.DefaultBackend, s.Backend.Name)
	assert.Equal(t, projectconfig.DefaultMaxIterations, s.MaxIterations)
	assert.True(t, s.SessionLog)
}

func TestResolveRunSettings_RejectsNonPositiveBudget(t *testing.T) {
	cmd := newRunCommand()
	require.NoError(t, cmd.Flags().Set("max-iter", "0"))

	_, err := resolveRunSettings(cmd, projectconfig.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be positive")
}

func TestReportOutcome(t *testing.T) {
	ledger := &history.Ledger{Iterations: 5}

	t.Run("goal achieved exits clean", func(t *testing.T) {
		cmd := newRunCommand()
		var out bytes.Buffer
		cmd.SetOut(&out)

		err := reportOutcome(cmd, agent.OutcomeGoalAchieved, nil, ledger)
		require.NoError(t, err)
		assert.Contains(t, out.String(), "Goal achieved after 5 iteration(s)")
	})

	t.Run("max iterations maps to goal-not-achieved", func(t *testing.T) {
		cmd := newRunCommand()
		var out bytes.Buffer
		cmd.SetOut(&out)

		err := reportOutcome(cmd, agent.OutcomeMaxIterations, nil, ledger)
		var goalErr *GoalNotAchievedError
		require.ErrorAs(t, err, &goalErr)
		assert.Contains(t, out.String(), "resume")
	})

	t.Run("aborted propagates the runtime error", func(t *testing.T) {
		cmd := newRunCommand()
		cmd.SetOut(&bytes.Buffer{})

		err := reportOutcome(cmd, agent.OutcomeAborted, assert.AnError, ledger)
		require.ErrorIs(t, err, assert.AnError)
	})
}
