package executor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestExecutor(run runCommand) *Executor {
	return &Executor{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		delay:  0,
		run:    run,
	}
}

func TestRun_AllSucceed(t *testing.T) {
	var ran []string
	e := newTestExecutor(func(_ context.Context, command string) ([]byte, error) {
		ran = append(ran, command)
		return []byte("ok"), nil
	})

	outcomes, all, err := e.Run(context.Background(), 1, []string{"cliclick c:1,1", "cliclick c:2,2"})
	require.NoError(t, err)
	assert.True(t, all)
	assert.Equal(t, []string{"cliclick c:1,1", "cliclick c:2,2"}, ran)

	require.Len(t, outcomes, 2)
	for _, o := range outcomes {
		assert.True(t, o.Executed)
		assert.True(t, o.Success)
		assert.Equal(t, "ok", o.Output)
	}
}

func TestRun_FailFast(t *testing.T) {
	var ran []string
	e := newTestExecutor(func(_ context.Context, command string) ([]byte, error) {
		ran = append(ran, command)
		if command == "cliclick c:2,2" {
			return []byte("no such element"), errors.New("exit status 1")
		}
		return nil, nil
	})

	outcomes, all, err := e.Run(context.Background(), 1, []string{
		"cliclick c:1,1",
		"cliclick c:2,2",
		"cliclick c:3,3",
	})
	require.NoError(t, err)
	assert.False(t, all)

	// The third command is never invoked.
	assert.Equal(t, []string{"cliclick c:1,1", "cliclick c:2,2"}, ran)

	require.Len(t, outcomes, 3)
	assert.True(t, outcomes[0].Executed)
	assert.True(t, outcomes[0].Success)
	assert.True(t, outcomes[1].Executed)
	assert.False(t, outcomes[1].Success)
	assert.Equal(t, "no such element", outcomes[1].Output)
	assert.False(t, outcomes[2].Executed)
	assert.False(t, outcomes[2].Success)
}

func TestRun_OutputTruncated(t *testing.T) {
	long := make([]byte, 5000)
	for i := range long {
		long[i] = 'x'
	}
	e := newTestExecutor(func(_ context.Context, _ string) ([]byte, error) {
		return long, nil
	})

	outcomes, _, err := e.Run(context.Background(), 1, []string{"wmctrl -l"})
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.LessOrEqual(t, len(outcomes[0].Output), OutputHeadBytes+len("..."))
}

func TestRun_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := newTestExecutor(func(_ context.Context, _ string) ([]byte, error) {
		t.Fatal("command must not run after cancellation")
		return nil, nil
	})

	outcomes, all, err := e.Run(ctx, 1, []string{"cliclick c:1,1"})
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, all)
	require.Len(t, outcomes, 1)
	assert.False(t, outcomes[0].Executed)
}

func TestWriteLog_FullOutput(t *testing.T) {
	dir := t.TempDir()
	e := newTestExecutor(func(_ context.Context, _ string) ([]byte, error) {
		return []byte("full output that should be kept verbatim"), nil
	})
	e.logsDir = dir

	_, _, err := e.Run(context.Background(), 7, []string{"wmctrl -l"})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "iter-007-cmd-1.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "command: wmctrl -l")
	assert.Contains(t, string(data), "full output that should be kept verbatim")
}

func TestRun_SettleDelayBetweenCommands(t *testing.T) {
	e := newTestExecutor(func(_ context.Context, _ string) ([]byte, error) {
		return nil, nil
	})
	e.delay = 10 * time.Millisecond

	start := time.Now()
	_, all, err := e.Run(context.Background(), 1, []string{"cliclick c:1,1", "cliclick c:2,2"})
	require.NoError(t, err)
	assert.True(t, all)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}
