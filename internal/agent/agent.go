// Package agent runs the perception-decision-action loop: capture the
// screen, ask the reasoning backend what to do, validate, execute, record.
// The loop is strictly sequential; one iteration must be fully persisted
// before the next begins.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/agentkvm/agentkvm/internal/backend"
	"github.com/agentkvm/agentkvm/internal/executor"
	"github.com/agentkvm/agentkvm/internal/history"
	"github.com/agentkvm/agentkvm/internal/notes"
	"github.com/agentkvm/agentkvm/internal/parser"
	"github.com/agentkvm/agentkvm/internal/platform"
	"github.com/agentkvm/agentkvm/internal/policy"
	"github.com/agentkvm/agentkvm/internal/prompt"
	"github.com/agentkvm/agentkvm/internal/session"
)

// Outcome is how a loop run ended.
type Outcome string

const (
	// OutcomeGoalAchieved means the backend reported completion and the
	// ledger was marked completed.
	OutcomeGoalAchieved Outcome = "goal_achieved"

	// OutcomeMaxIterations means the iteration budget ran out. The ledger
	// stays in_progress so a later run can resume.
	OutcomeMaxIterations Outcome = "max_iterations_reached"

	// OutcomeAborted means a fatal error or a policy rejection stopped the
	// loop early.
	OutcomeAborted Outcome = "aborted"
)

// Capturer takes a screenshot of the full screen.
type Capturer interface {
	Capture(ctx context.Context, destPath string) error
}

// CommandRunner executes a validated command batch.
type CommandRunner interface {
	Run(ctx context.Context, iteration int, commands []string) ([]executor.Outcome, bool, error)
}

// Workspace manages the current and archived session artifacts.
type Workspace interface {
	ScreenshotPath() string
	SaveReply(raw string) error
	ArchiveScreenshot(iteration int) error
	ArchiveReply(iteration int) error
}

// Config carries the per-session loop parameters.
type Config struct {
	Goal             string
	MaxIterations    int
	Rules            platform.Rules
	CommandReference string
	ScreenWidth      int
	ScreenHeight     int
}

// Loop is the loop controller. All collaborators are injected.
type Loop struct {
	cfg      Config
	backend  backend.Backend
	capturer Capturer
	runner   CommandRunner
	history  history.Store
	notes    notes.Store
	work     Workspace
	events   session.Logger
	logger   *slog.Logger
}

// New wires a loop from its collaborators.
func New(cfg Config, b backend.Backend, capt Capturer, run CommandRunner,
	hist history.Store, n notes.Store, work Workspace, events session.Logger, logger *slog.Logger) *Loop {
	if events == nil {
		events = session.NopLogger{}
	}
	return &Loop{
		cfg:      cfg,
		backend:  b,
		capturer: capt,
		runner:   run,
		history:  hist,
		notes:    n,
		work:     work,
		events:   events,
		logger:   logger,
	}
}

// Run executes iterations until the goal is achieved, the budget runs out,
// or a fatal error occurs. A non-nil error always accompanies
// OutcomeAborted and explains why.
func (l *Loop) Run(ctx context.Context) (Outcome, error) {
	start := time.Now()
	outcome, err := l.run(ctx)

	ledger := l.history.Ledger()
	l.events.Log(session.NewEvent(session.EventSessionEnd, session.SessionEnd{
		Outcome:    string(outcome),
		Iterations: ledger.Iterations,
		DurationMs: time.Since(start).Milliseconds(),
	}))
	return outcome, err
}

func (l *Loop) run(ctx context.Context) (Outcome, error) {
	for {
		iteration := l.history.Ledger().Iterations + 1

		if err := ctx.Err(); err != nil {
			return OutcomeAborted, err
		}
		if iteration > l.cfg.MaxIterations {
			l.logger.Info("iteration budget exhausted", "max_iterations", l.cfg.MaxIterations)
			return OutcomeMaxIterations, nil
		}

		outcome, done, err := l.iterate(ctx, iteration)
		if done || err != nil {
			return outcome, err
		}
	}
}

// iterate runs one full iteration. done is true when the loop must stop.
func (l *Loop) iterate(ctx context.Context, iteration int) (Outcome, bool, error) {
	l.logger.Info("iteration starting", "iteration", iteration, "max_iterations", l.cfg.MaxIterations)

	shot := l.work.ScreenshotPath()
	if err := l.capturer.Capture(ctx, shot); err != nil {
		l.logError("screenshot capture failed", err)
		return OutcomeAborted, true, err
	}
	if err := l.work.ArchiveScreenshot(iteration); err != nil {
		l.logger.Warn("archiving screenshot", "error", err)
	}
	l.events.Log(session.NewEvent(session.EventIterationStart, session.IterationStart{
		Iteration:  iteration,
		Screenshot: shot,
	}))

	text, err := prompt.Build(prompt.Input{
		Goal:             l.cfg.Goal,
		CommandReference: l.cfg.CommandReference,
		ScreenWidth:      l.cfg.ScreenWidth,
		ScreenHeight:     l.cfg.ScreenHeight,
		Recent:           l.history.RecentWindow(prompt.HistoryWindow),
		Notes:            l.notes.Snapshot(),
		MaxCommands:      parser.MaxCommands,
	})
	if err != nil {
		return OutcomeAborted, true, err
	}

	raw, err := l.backend.Invoke(ctx, text, shot)
	if err != nil {
		l.logError("backend invocation failed", err)
		return OutcomeAborted, true, err
	}
	if err := l.work.SaveReply(raw); err != nil {
		l.logger.Warn("saving backend reply", "error", err)
	}
	if err := l.work.ArchiveReply(iteration); err != nil {
		l.logger.Warn("archiving backend reply", "error", err)
	}

	parsed, err := parser.Parse(raw)
	if err != nil {
		// The archived reply keeps the malformed text for diagnosis.
		l.logError("backend reply unparseable", err)
		return OutcomeAborted, true, err
	}

	l.events.Log(session.NewEvent(session.EventBackendReply, session.BackendReply{
		Iteration:    iteration,
		ReplyBytes:   len(raw),
		CommandCount: len(parsed.Commands),
		GoalAchieved: parsed.GoalAchieved(),
	}))
	l.logger.Debug("backend replied",
		"iteration", iteration,
		"commands", len(parsed.Commands),
		"goal_achieved", parsed.GoalAchieved())

	if parsed.GoalAchieved() {
		return l.finish(iteration, parsed)
	}

	if rej := policy.ValidateAll(parsed.Commands, l.cfg.Rules); rej != nil {
		return l.abortOnRejection(iteration, parsed, rej)
	}

	outcomes, allSucceeded, err := l.runner.Run(ctx, iteration, parsed.Commands)
	if err != nil {
		// Cancellation mid-batch: commands that already ran changed the
		// desktop, so they must reach the ledger before the loop stops or a
		// resumed session would misstate what happened.
		if executedCount(outcomes) > 0 {
			rec := buildRecord(iteration, parsed, outcomes, false)
			rec.Result = fmt.Sprintf("interrupted after %d of %d commands: %v", rec.ExecutedCount, rec.CommandsCount, err)
			if perr := l.persist(rec, parsed.Notes); perr != nil {
				return OutcomeAborted, true, perr
			}
		}
		l.logError("command execution interrupted", err)
		return OutcomeAborted, true, err
	}

	rec := buildRecord(iteration, parsed, outcomes, allSucceeded)
	if err := l.persist(rec, parsed.Notes); err != nil {
		return OutcomeAborted, true, err
	}

	l.events.Log(session.NewEvent(session.EventCommandsExecuted, session.CommandsExecuted{
		Iteration:    iteration,
		Executed:     rec.ExecutedCount,
		Total:        rec.CommandsCount,
		AllSucceeded: allSucceeded,
	}))
	if !allSucceeded {
		l.logger.Warn("command batch failed, reporting back to the model",
			"iteration", iteration, "result", rec.Result)
	}
	return "", false, nil
}

// finish writes the final record and marks the session completed.
func (l *Loop) finish(iteration int, parsed *parser.ParsedResponse) (Outcome, bool, error) {
	rec := history.Record{
		Iteration:    iteration,
		Timestamp:    time.Now().UTC(),
		Observation:  parsed.Observation,
		Reasoning:    parsed.Reasoning,
		Commands:     []string{},
		AllSucceeded: true,
		Result:       "goal achieved",
	}
	if err := l.persist(rec, parsed.Notes); err != nil {
		return OutcomeAborted, true, err
	}
	if err := l.history.MarkCompleted(); err != nil {
		return OutcomeAborted, true, err
	}
	l.logger.Info("goal achieved", "iteration", iteration, "observation", parsed.Observation)
	return OutcomeGoalAchieved, true, nil
}

// abortOnRejection records the refused batch and stops the loop. Nothing
// from a rejected batch executes.
func (l *Loop) abortOnRejection(iteration int, parsed *parser.ParsedResponse, rej *policy.Rejection) (Outcome, bool, error) {
	rec := history.Record{
		Iteration:     iteration,
		Timestamp:     time.Now().UTC(),
		Observation:   parsed.Observation,
		Reasoning:     parsed.Reasoning,
		Commands:      parsed.Commands,
		CommandsCount: len(parsed.Commands),
		Result:        rej.Error(),
	}
	if err := l.persist(rec, parsed.Notes); err != nil {
		return OutcomeAborted, true, err
	}

	l.events.Log(session.NewEvent(session.EventCommandsRejected, session.CommandsRejected{
		Iteration: iteration,
		Index:     rej.Index,
		Command:   rej.Command,
		Reason:    rej.Reason,
	}))
	l.logError("command batch rejected", rej)
	return OutcomeAborted, true, rej
}

// persist appends the record and applies its notes to the scratchpad.
func (l *Loop) persist(rec history.Record, pairs []parser.Note) error {
	if len(pairs) > 0 {
		rec.Notes = map[string]string{}
		for _, p := range pairs {
			rec.Notes[p.Key] = p.Value
		}
	}
	if err := l.history.Append(rec); err != nil {
		var perr *history.PersistenceError
		if errors.As(err, &perr) {
			l.logError("ledger write failed", err)
		}
		return err
	}

	for _, p := range pairs {
		if err := l.notes.Upsert(p.Key, p.Value); err != nil {
			return fmt.Errorf("updating notes: %w", err)
		}
	}
	return nil
}

func (l *Loop) logError(msg string, err error) {
	l.logger.Error(msg, "error", err)
	l.events.Log(session.NewEvent(session.EventError, session.Failure{Message: msg, Error: err.Error()}))
}

func executedCount(outcomes []executor.Outcome) int {
	n := 0
	for _, o := range outcomes {
		if o.Executed {
			n++
		}
	}
	return n
}

// buildRecord summarizes one executed batch for the ledger.
func buildRecord(iteration int, parsed *parser.ParsedResponse, outcomes []executor.Outcome, allSucceeded bool) history.Record {
	executed := 0
	result := "all commands succeeded"
	for i, o := range outcomes {
		if !o.Executed {
			break
		}
		executed++
		if !o.Success {
			result = fmt.Sprintf("command %d failed: %s", i+1, o.Output)
		}
	}

	return history.Record{
		Iteration:     iteration,
		Timestamp:     time.Now().UTC(),
		Observation:   parsed.Observation,
		Reasoning:     parsed.Reasoning,
		Commands:      parsed.Commands,
		CommandsCount: len(parsed.Commands),
		ExecutedCount: executed,
		AllSucceeded:  allSucceeded,
		Result:        result,
	}
}
