package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentkvm/agentkvm/internal/history"
	"github.com/agentkvm/agentkvm/internal/notes"
	"github.com/agentkvm/agentkvm/internal/projectconfig"
	"github.com/agentkvm/agentkvm/internal/utils"
)

func newSessionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Show the state of the current session",
		Long: `Show the session ledger: goal, status, and the most recent actions,
plus the notes the model has accumulated.`,
		Args:          cobra.NoArgs,
		RunE:          runSession,
		SilenceErrors: true,
	}
	cmd.Flags().String("workdir", "", "Session working directory")
	cmd.Flags().IntP("last", "n", 10, "How many recent actions to show")
	return cmd
}

//nolint:errcheck // display function — fmt.Fprintf errors to stdout are not actionable
func runSession(cmd *cobra.Command, _ []string) error {
	workdir, _ := cmd.Flags().GetString("workdir")
	last, _ := cmd.Flags().GetInt("last")
	if workdir == "" {
		cfg, err := projectconfig.Load(".")
		if err != nil {
			return err
		}
		workdir = cfg.Agent.Workdir
	}

	if _, err := os.Stat(filepath.Join(workdir, history.LedgerFile)); errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("no session found in %s (start one with 'agentkvm run')", workdir)
	}

	store, err := history.Load(workdir, "", false)
	if err != nil {
		return err
	}
	ledger := store.Ledger()
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "\nSession %s\n", ledger.SessionID)
	fmt.Fprintf(w, "%s\n", strings.Repeat("━", 46))
	fmt.Fprintf(w, "Goal:       %s\n", ledger.Goal)
	fmt.Fprintf(w, "Status:     %s\n", ledger.Status)
	fmt.Fprintf(w, "Started:    %s\n", ledger.StartedAt.Local().Format(time.RFC1123))
	if ledger.CompletedAt != nil {
		fmt.Fprintf(w, "Completed:  %s\n", ledger.CompletedAt.Local().Format(time.RFC1123))
	}
	fmt.Fprintf(w, "Iterations: %d\n", ledger.Iterations)

	recent := store.RecentWindow(last)
	if len(recent) > 0 {
		fmt.Fprintf(w, "\nRecent actions:\n")
		for _, rec := range recent {
			status := "✅"
			if !rec.AllSucceeded {
				status = "❌"
			}
			fmt.Fprintf(w, "  [%d] %s %s\n", rec.Iteration, status, utils.Truncate(rec.Reasoning, 80))
			for _, c := range rec.Commands {
				fmt.Fprintf(w, "        $ %s\n", c)
			}
		}
	}

	pad, err := notes.Open(workdir, false)
	if err != nil {
		return err
	}
	if pairs := pad.Snapshot(); len(pairs) > 0 {
		fmt.Fprintf(w, "\nNotes:\n")
		for _, p := range pairs {
			fmt.Fprintf(w, "  %s: %s\n", p.Key, p.Value)
		}
	}
	fmt.Fprintf(w, "\n")
	return nil
}
