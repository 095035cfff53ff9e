package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/agentkvm/agentkvm/internal/agent"
	"github.com/agentkvm/agentkvm/internal/backend"
	"github.com/agentkvm/agentkvm/internal/capture"
	"github.com/agentkvm/agentkvm/internal/executor"
	"github.com/agentkvm/agentkvm/internal/history"
	"github.com/agentkvm/agentkvm/internal/notes"
	"github.com/agentkvm/agentkvm/internal/platform"
	"github.com/agentkvm/agentkvm/internal/projectconfig"
	"github.com/agentkvm/agentkvm/internal/session"
)

func newRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <goal>",
		Short: "Drive the desktop toward a goal",
		Long: `Run the automation loop until the goal is achieved, the iteration
budget runs out, or a fatal error occurs.

The goal is a natural-language instruction, for example:
  agentkvm run "open firefox and search for the weather in Berlin"

An existing session in the working directory is resumed; pass --reset to
start over from scratch.`,
		Args:          cobra.ExactArgs(1),
		RunE:          runRun,
		SilenceErrors: true,
	}

	cmd.Flags().StringP("backend", "b", "", "Reasoning backend: ollama | codex | claude")
	cmd.Flags().String("host", "", "Backend host (ollama server or SSH machine for claude)")
	cmd.Flags().Int("port", 0, "Backend port")
	cmd.Flags().String("model", "", "Model name (ollama only; picked interactively when unset)")
	cmd.Flags().IntP("max-iter", "m", 0, "Maximum loop iterations")
	cmd.Flags().BoolP("reset", "r", false, "Discard the previous session state")
	cmd.Flags().BoolP("verbose", "v", false, "Verbose output")
	cmd.Flags().String("workdir", "", "Session working directory")

	return cmd
}

// runSettings is the fully-resolved configuration for one run: project file
// defaults overlaid with whatever flags were set explicitly.
type runSettings struct {
	Backend       backend.Options
	MaxIterations int
	Workdir       string
	Reset         bool
	Verbose       bool
	SessionLog    bool
}

// resolveRunSettings merges flag values over the project configuration.
// A flag only wins when the user actually set it.
func resolveRunSettings(cmd *cobra.Command, cfg *projectconfig.ProjectConfig) (runSettings, error) {
	s := runSettings{
		Backend: backend.Options{
			Name:  cfg.Backend.Name,
			Host:  cfg.Backend.Host,
			Port:  cfg.Backend.Port,
			Model: cfg.Backend.Model,
		},
		MaxIterations: cfg.Agent.MaxIterations,
		Workdir:       cfg.Agent.Workdir,
		Verbose:       cfg.Logging.Verbose != nil && *cfg.Logging.Verbose,
		SessionLog:    cfg.Logging.SessionLog != nil && *cfg.Logging.SessionLog,
	}

	flags := cmd.Flags()
	if flags.Changed("backend") {
		s.Backend.Name, _ = flags.GetString("backend")
	}
	if flags.Changed("host") {
		s.Backend.Host, _ = flags.GetString("host")
	}
	if flags.Changed("port") {
		s.Backend.Port, _ = flags.GetInt("port")
	}
	if flags.Changed("model") {
		s.Backend.Model, _ = flags.GetString("model")
	}
	if flags.Changed("max-iter") {
		s.MaxIterations, _ = flags.GetInt("max-iter")
	}
	if flags.Changed("workdir") {
		s.Workdir, _ = flags.GetString("workdir")
	}
	if flags.Changed("verbose") {
		s.Verbose, _ = flags.GetBool("verbose")
	}
	s.Reset, _ = flags.GetBool("reset")

	if s.MaxIterations <= 0 {
		return runSettings{}, fmt.Errorf("max iterations must be positive, got %d", s.MaxIterations)
	}
	return s, nil
}

func runRun(cmd *cobra.Command, args []string) error {
	goal := strings.TrimSpace(args[0])
	if goal == "" {
		return fmt.Errorf("goal must not be empty")
	}

	cfg, err := projectconfig.Load(".")
	if err != nil {
		return err
	}
	settings, err := resolveRunSettings(cmd, cfg)
	if err != nil {
		return err
	}
	if settings.Verbose {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	info, err := platform.Detect()
	if err != nil {
		return err
	}
	rules, err := platform.RulesFor(info)
	if err != nil {
		return err
	}
	if missing := platform.MissingRequired(platform.CheckDependencies(info, settings.Backend.Name)); len(missing) > 0 {
		var lines []string
		for _, d := range missing {
			lines = append(lines, fmt.Sprintf("  %s: %s (install: %s)", d.Name, d.Description, d.Install))
		}
		return fmt.Errorf("missing required tools:\n%s\n\nrun 'agentkvm check' for the full report", strings.Join(lines, "\n"))
	}

	work, err := session.OpenWorkdir(settings.Workdir, settings.Reset)
	if err != nil {
		return err
	}
	hist, err := history.Load(settings.Workdir, goal, settings.Reset)
	if err != nil {
		return err
	}
	pad, err := notes.Open(settings.Workdir, settings.Reset)
	if err != nil {
		return err
	}

	b, err := backend.New(settings.Backend)
	if err != nil {
		return err
	}
	if o, ok := b.(*backend.Ollama); ok {
		model, err := backend.PickModel(ctx, o, cmd.InOrStdin(), cmd.OutOrStdout())
		if err != nil {
			return err
		}
		o.SetModel(model)
		settings.Backend.Model = model
	}
	if err := b.CheckConnection(ctx); err != nil {
		return err
	}

	var events session.Logger = session.NopLogger{}
	if settings.SessionLog {
		jl, err := session.NewJSONLogger(session.DefaultLogPath(filepath.Join(settings.Workdir, session.LogsDir)))
		if err != nil {
			return err
		}
		defer jl.Close()
		events = jl
	}

	width, height := platform.ScreenResolution(ctx, info)
	ledger := hist.Ledger()
	slog.Info("session starting",
		"session_id", ledger.SessionID,
		"goal", goal,
		"backend", b.Name(),
		"model", settings.Backend.Model,
		"platform", info.OS,
		"resolution", fmt.Sprintf("%dx%d", width, height),
		"resumed_iterations", ledger.Iterations)
	events.Log(session.NewEvent(session.EventSessionStart, session.SessionStart{
		SessionID:     ledger.SessionID,
		Goal:          goal,
		Backend:       b.Name(),
		Model:         settings.Backend.Model,
		MaxIterations: settings.MaxIterations,
	}))

	loop := agent.New(
		agent.Config{
			Goal:             goal,
			MaxIterations:    settings.MaxIterations,
			Rules:            rules,
			CommandReference: platform.CommandReference(info),
			ScreenWidth:      width,
			ScreenHeight:     height,
		},
		b,
		capture.New(info),
		executor.New(slog.Default(), work.CommandLogsDir()),
		hist,
		pad,
		work,
		events,
		slog.Default(),
	)

	outcome, err := loop.Run(ctx)
	return reportOutcome(cmd, outcome, err, hist.Ledger())
}

func reportOutcome(cmd *cobra.Command, outcome agent.Outcome, runErr error, ledger *history.Ledger) error {
	w := cmd.OutOrStdout()

	switch outcome {
	case agent.OutcomeGoalAchieved:
		fmt.Fprintf(w, "\n✅ Goal achieved after %d iteration(s).\n", ledger.Iterations) //nolint:errcheck
		return nil
	case agent.OutcomeMaxIterations:
		fmt.Fprintf(w, "\n⚠️  Iteration budget exhausted after %d iteration(s); session left in progress.\n", ledger.Iterations) //nolint:errcheck
		fmt.Fprintf(w, "Re-run the same command to resume, or pass --reset to start over.\n")                                   //nolint:errcheck
		return &GoalNotAchievedError{Message: fmt.Sprintf("goal not achieved within %d iterations", ledger.Iterations)}
	default:
		if runErr != nil {
			return runErr
		}
		return fmt.Errorf("session aborted")
	}
}
