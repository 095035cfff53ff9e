// Package parser extracts the structured fields the agent needs from the
// free-text reply of a reasoning backend. The reply must follow a fixed
// marker grammar; anything else is a typed parse failure, never a guess.
package parser

import (
	"fmt"
	"strings"

	"github.com/agentkvm/agentkvm/internal/utils"
)

// Block markers. A marker is a line beginning with the prefix immediately
// followed by the block name; content runs until the next marker or EOF.
const (
	markerPrefix = "###"

	blockObservation = "OBS"
	blockReasoning   = "THINK"
	blockNotes       = "NOTE"
	blockCommands    = "CMD"
)

// MaxCommands is the most commands a single reply may propose.
const MaxCommands = 5

// GoalAchievedToken signals goal completion when it appears at the start of
// the observation text, compared case-insensitively. Prefix matching (rather
// than substring) avoids false positives from observations like "the goal is
// not yet achieved".
const GoalAchievedToken = "GOAL ACHIEVED"

// Note is one key-value pair from a ###NOTE block.
type Note struct {
	Key   string
	Value string
}

// ParsedResponse is the typed result of parsing a backend reply.
type ParsedResponse struct {
	Observation string
	Reasoning   string
	Notes       []Note
	Commands    []string
}

// GoalAchieved reports whether the observation signals completion.
func (p *ParsedResponse) GoalAchieved() bool {
	obs := strings.TrimSpace(p.Observation)
	return len(obs) >= len(GoalAchievedToken) &&
		strings.EqualFold(obs[:len(GoalAchievedToken)], GoalAchievedToken)
}

// ParseError indicates the reply does not conform to the output contract.
// Fatal for the session; Raw holds the offending reply for diagnosis.
type ParseError struct {
	Reason string
	Raw    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("backend reply does not follow the output contract: %s (reply starts: %q)", e.Reason, utils.Truncate(e.Raw, 120))
}

// Parse extracts the observation, reasoning, notes, and command blocks from
// raw backend output.
func Parse(raw string) (*ParsedResponse, error) {
	blocks := splitBlocks(raw)

	obs, ok := blocks[blockObservation]
	if !ok || strings.TrimSpace(obs) == "" {
		return nil, &ParseError{Reason: "missing " + markerPrefix + blockObservation + " block", Raw: raw}
	}

	resp := &ParsedResponse{
		Observation: strings.TrimSpace(obs),
		Reasoning:   strings.TrimSpace(blocks[blockReasoning]),
		Notes:       parseNotes(blocks[blockNotes]),
	}

	cmdBlock, ok := blocks[blockCommands]
	if !ok {
		if resp.GoalAchieved() {
			return resp, nil
		}
		return nil, &ParseError{Reason: "missing " + markerPrefix + blockCommands + " block", Raw: raw}
	}

	commands := nonBlankLines(cmdBlock)
	if len(commands) > MaxCommands {
		return nil, &ParseError{
			Reason: fmt.Sprintf("%d commands proposed, limit is %d", len(commands), MaxCommands),
			Raw:    raw,
		}
	}
	if len(commands) == 0 && !resp.GoalAchieved() {
		return nil, &ParseError{Reason: "empty " + markerPrefix + blockCommands + " block", Raw: raw}
	}

	resp.Commands = commands
	return resp, nil
}

// splitBlocks scans raw line by line and collects the content of each marked
// block. Only the first occurrence of a block name is kept.
func splitBlocks(raw string) map[string]string {
	blocks := map[string]string{}

	var current string
	var content strings.Builder

	flush := func() {
		if current == "" {
			return
		}
		if _, seen := blocks[current]; !seen {
			blocks[current] = content.String()
		}
		current = ""
		content.Reset()
	}

	for line := range strings.SplitSeq(raw, "\n") {
		if name, ok := markerName(line); ok {
			flush()
			current = name
			continue
		}
		if current != "" {
			content.WriteString(line)
			content.WriteString("\n")
		}
	}
	flush()

	return blocks
}

// markerName reports whether line is a block marker and returns its name.
func markerName(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, markerPrefix) {
		return "", false
	}
	name := strings.TrimSpace(strings.TrimPrefix(trimmed, markerPrefix))
	switch name {
	case blockObservation, blockReasoning, blockNotes, blockCommands:
		return name, true
	default:
		return "", false
	}
}

// parseNotes extracts "key: value" pairs, preserving order. Lines without a
// colon or with an empty key carry no usable pair and are skipped.
func parseNotes(block string) []Note {
	var out []Note
	for _, line := range nonBlankLines(block) {
		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		out = append(out, Note{Key: key, Value: strings.TrimSpace(value)})
	}
	return out
}

func nonBlankLines(block string) []string {
	var lines []string
	for line := range strings.SplitSeq(block, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return lines
}
