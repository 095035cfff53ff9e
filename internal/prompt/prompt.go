// Package prompt renders the instruction text sent to the reasoning backend
// on every iteration. Building is pure: the same input always yields the
// same prompt, which keeps backend calls reproducible from the ledger.
package prompt

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/agentkvm/agentkvm/internal/history"
	"github.com/agentkvm/agentkvm/internal/notes"
	"github.com/agentkvm/agentkvm/internal/utils"
)

// HistoryWindow is how many recent actions are included in the prompt.
const HistoryWindow = 10

// reasoningHead bounds how much of each past reasoning is replayed.
const reasoningHead = 150

// Input carries everything the template needs.
type Input struct {
	Goal             string
	CommandReference string
	ScreenWidth      int
	ScreenHeight     int
	Recent           []history.Record
	Notes            []notes.Pair
	MaxCommands      int
}

var promptTemplate = template.Must(template.New("prompt").Parse(`You are a desktop automation agent. You see the screen through the attached screenshot and act by emitting commands.

GOAL: {{.Goal}}

Screen resolution: {{.ScreenWidth}}x{{.ScreenHeight}}. All coordinates you emit must fall inside this area.

{{.CommandReference}}

PREVIOUS ACTIONS:
{{.History}}

{{- if .Notes}}

YOUR NOTES (persistent memory, survives across iterations):
{{.Notes}}
{{- end}}

RESPOND IN EXACTLY THIS FORMAT:

###OBS
What you see on the screen right now, in one or two sentences.

###THINK
Your reasoning about the next step toward the goal.

###NOTE
key: value pairs worth remembering for later iterations (optional).

###CMD
One command per line, at most {{.MaxCommands}}. No shell operators, no pipes, no redirection.

RULES:
- Only use the commands documented above. One command per line.
- If the screenshot shows the goal is fully achieved, start the ###OBS block with GOAL ACHIEVED and omit the ###CMD block.
- Do not repeat an action that already failed; try a different approach.
- Never include anything outside the marked blocks.
`))

// Build renders the prompt for one iteration.
func Build(in Input) (string, error) {
	data := struct {
		Goal             string
		CommandReference string
		ScreenWidth      int
		ScreenHeight     int
		History          string
		Notes            string
		MaxCommands      int
	}{
		Goal:             in.Goal,
		CommandReference: strings.TrimSpace(in.CommandReference),
		ScreenWidth:      in.ScreenWidth,
		ScreenHeight:     in.ScreenHeight,
		History:          renderHistory(in.Recent),
		Notes:            renderNotes(in.Notes),
		MaxCommands:      in.MaxCommands,
	}

	var sb strings.Builder
	if err := promptTemplate.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("rendering prompt: %w", err)
	}
	return sb.String(), nil
}

func renderHistory(recent []history.Record) string {
	if len(recent) == 0 {
		return "No actions taken yet."
	}

	var sb strings.Builder
	for _, rec := range recent {
		result := "all commands succeeded"
		if !rec.AllSucceeded {
			result = "FAILED: " + utils.FirstLine(rec.Result)
		}
		fmt.Fprintf(&sb, "[%d] %s\n", rec.Iteration, utils.Truncate(rec.Reasoning, reasoningHead))
		for _, cmd := range rec.Commands {
			fmt.Fprintf(&sb, "    $ %s\n", cmd)
		}
		fmt.Fprintf(&sb, "    -> %s\n", result)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func renderNotes(pairs []notes.Pair) string {
	var sb strings.Builder
	for _, p := range pairs {
		fmt.Fprintf(&sb, "- %s: %s\n", p.Key, p.Value)
	}
	return strings.TrimRight(sb.String(), "\n")
}
