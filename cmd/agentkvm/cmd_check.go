package main

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/agentkvm/agentkvm/internal/platform"
)

func newCheckCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check that the environment is ready for automation",
		Long: `Check the detected platform and the install status of every external
tool the agent relies on: input synthesis, screenshots, window management,
and the selected backend's CLI.`,
		Args:          cobra.NoArgs,
		RunE:          runCheckCmd,
		SilenceErrors: true,
	}
	cmd.Flags().StringP("backend", "b", "ollama", "Backend whose dependencies to include")
	return cmd
}

//nolint:errcheck // display function — fmt.Fprintf errors to stdout are not actionable
func runCheckCmd(cmd *cobra.Command, _ []string) error {
	backendName, _ := cmd.Flags().GetString("backend")
	w := cmd.OutOrStdout()

	info, err := platform.Detect()
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "\n🔍 Environment Check\n")
	fmt.Fprintf(w, "%s\n\n", strings.Repeat("━", 46))
	fmt.Fprintf(w, "Platform:       %s\n", info.OS)
	if info.DisplayServer != "" {
		fmt.Fprintf(w, "Display server: %s\n", info.DisplayServer)
	}
	if info.InputTool != "" {
		fmt.Fprintf(w, "Input tool:     %s\n", info.InputTool)
	}
	fmt.Fprintf(w, "\n")

	deps := platform.CheckDependencies(info, backendName)
	printDependencyTable(w, deps)

	missing := platform.MissingRequired(deps)
	if len(missing) > 0 {
		fmt.Fprintf(w, "\n❌ %d required tool(s) missing.\n", len(missing))
		return fmt.Errorf("environment not ready")
	}
	fmt.Fprintf(w, "\n✅ Environment is ready.\n")
	return nil
}

//nolint:errcheck
func printDependencyTable(w writer, deps []platform.Dependency) {
	nameWidth := len("Tool")
	for _, d := range deps {
		if n := runewidth.StringWidth(d.Name); n > nameWidth {
			nameWidth = n
		}
	}

	const colStatus = 10
	fmt.Fprintf(w, "%s  %s  %s\n", padRight("Tool", nameWidth), padRight("Status", colStatus), "Notes")
	fmt.Fprintf(w, "%s\n", strings.Repeat("─", nameWidth+colStatus+30))

	for _, d := range deps {
		status := "✅ found"
		notes := d.Description
		if !d.Present {
			if d.Required {
				status = "❌ missing"
			} else {
				status = "⚠️ missing"
			}
			notes = fmt.Sprintf("%s — install: %s", d.Description, d.Install)
		}
		fmt.Fprintf(w, "%s  %s  %s\n", padRight(d.Name, nameWidth), padRight(status, colStatus), notes)
	}
}

type writer = interface{ Write([]byte) (int, error) }

// padRight pads s with spaces so its terminal display width reaches width.
func padRight(s string, width int) string {
	sw := runewidth.StringWidth(s)
	if sw >= width {
		return s
	}
	return s + strings.Repeat(" ", width-sw)
}
