// Package executor runs validated desktop-automation commands sequentially
// with fail-fast semantics. Commands reach this package only after the
// policy gate accepted every one of them.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/agentkvm/agentkvm/internal/utils"
)

const (
	// CommandTimeout bounds a single command. Input-synthesis tools finish in
	// milliseconds; anything near this limit is hung.
	CommandTimeout = 30 * time.Second

	// SettleDelay is the pause after each command so the UI can catch up
	// before the next input event or the next screenshot.
	SettleDelay = 300 * time.Millisecond

	// OutputHeadBytes is how much combined output is kept in the ledger.
	// Full output goes to the logs directory.
	OutputHeadBytes = 200
)

// Outcome records how a single command fared.
type Outcome struct {
	Command  string
	Executed bool
	Success  bool
	Output   string
}

// runCommand executes one shell command and returns its combined output.
// Injectable for tests.
type runCommand func(ctx context.Context, command string) ([]byte, error)

// Executor runs command batches on the local desktop.
type Executor struct {
	logger  *slog.Logger
	logsDir string
	delay   time.Duration
	run     runCommand
}

// New creates an executor that writes full command output under logsDir.
// An empty logsDir disables output logging.
func New(logger *slog.Logger, logsDir string) *Executor {
	return &Executor{
		logger:  logger,
		logsDir: logsDir,
		delay:   SettleDelay,
		run:     runShell,
	}
}

// Run executes commands in order, stopping at the first failure. The
// returned slice always has one Outcome per input command; commands after a
// failure are marked not executed. allSucceeded is true only when every
// command ran and exited zero.
func (e *Executor) Run(ctx context.Context, iteration int, commands []string) (outcomes []Outcome, allSucceeded bool, err error) {
	outcomes = make([]Outcome, len(commands))
	for i, cmd := range commands {
		outcomes[i] = Outcome{Command: cmd}
	}

	for i, cmd := range commands {
		if err := ctx.Err(); err != nil {
			return outcomes, false, err
		}

		e.logger.Debug("executing command", "iteration", iteration, "index", i+1, "command", cmd)

		cmdCtx, cancel := context.WithTimeout(ctx, CommandTimeout)
		output, runErr := e.run(cmdCtx, cmd)
		cancel()

		e.writeLog(iteration, i+1, cmd, output, runErr)

		outcomes[i].Executed = true
		outcomes[i].Output = utils.Truncate(string(output), OutputHeadBytes)

		if runErr != nil {
			outcomes[i].Success = false
			e.logger.Warn("command failed",
				"iteration", iteration,
				"index", i+1,
				"command", cmd,
				"error", runErr,
				"output", outcomes[i].Output)
			return outcomes, false, nil
		}

		outcomes[i].Success = true
		e.sleep(ctx)
	}

	return outcomes, true, nil
}

func (e *Executor) sleep(ctx context.Context) {
	if e.delay <= 0 {
		return
	}
	select {
	case <-time.After(e.delay):
	case <-ctx.Done():
	}
}

// writeLog stores the complete command output for post-mortem inspection.
// Logging failures are reported but never fail the command itself.
func (e *Executor) writeLog(iteration, index int, command string, output []byte, runErr error) {
	if e.logsDir == "" {
		return
	}
	if err := os.MkdirAll(e.logsDir, 0o755); err != nil {
		e.logger.Warn("creating command logs directory", "error", err)
		return
	}

	name := fmt.Sprintf("iter-%03d-cmd-%d.log", iteration, index)
	status := "ok"
	if runErr != nil {
		status = fmt.Sprintf("error: %v", runErr)
	}
	body := fmt.Sprintf("command: %s\nstatus: %s\n\n%s", command, status, output)
	if err := os.WriteFile(filepath.Join(e.logsDir, name), []byte(body), 0o644); err != nil {
		e.logger.Warn("writing command log", "file", name, "error", err)
	}
}

func runShell(ctx context.Context, command string) ([]byte, error) {
	return exec.CommandContext(ctx, "sh", "-c", command).CombinedOutput()
}
