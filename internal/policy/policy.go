// Package policy is the safety gate between the reasoning backend and the
// input devices. The executor hands accepted strings to a shell, so the
// metacharacter rule below is load-bearing: an allowed leading token must
// not be able to smuggle a second command through chaining or redirection.
package policy

import (
	"fmt"
	"strings"

	"github.com/agentkvm/agentkvm/internal/platform"
)

// Result is the accept/reject outcome for one command.
type Result struct {
	Accepted bool
	Reason   string
}

// Rejection pairs a rejected command with its position in the batch.
type Rejection struct {
	Index   int
	Command string
	Reason  string
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("command %d rejected: %s (command: %q)", r.Index+1, r.Reason, r.Command)
}

// metacharacters used for chaining, redirection, substitution, or
// backgrounding. Any occurrence rejects the command regardless of context.
// Bare $ is included so variable expansion is caught even without parens.
var metacharacters = []string{";", "|", "&", ">", "<", "`", "$", "(", ")"}

// Validate checks a single command against the platform rules. Pure: no
// state, no I/O.
func Validate(command string, rules platform.Rules) Result {
	trimmed := strings.TrimSpace(command)
	if trimmed == "" {
		return reject("empty command")
	}

	token := leadingToken(trimmed)
	if !allowed(token, rules.AllowedPrefixes) {
		return reject(fmt.Sprintf("leading token %q is not in the allow-list %v", token, rules.AllowedPrefixes))
	}

	for _, meta := range metacharacters {
		if strings.Contains(command, meta) {
			return reject(fmt.Sprintf("contains shell metacharacter %q", meta))
		}
	}

	lower := strings.ToLower(command)
	for _, denied := range rules.DeniedTokens {
		if strings.Contains(lower, strings.ToLower(denied)) {
			return reject(fmt.Sprintf("contains forbidden token %q", strings.TrimSpace(denied)))
		}
	}

	return Result{Accepted: true}
}

// ValidateAll validates a batch in order and returns the first rejection, or
// nil when every command is accepted. Nothing from a batch with any
// rejection may execute.
func ValidateAll(commands []string, rules platform.Rules) *Rejection {
	if len(commands) == 0 {
		return &Rejection{Index: 0, Command: "", Reason: "no commands provided"}
	}
	for i, cmd := range commands {
		if res := Validate(cmd, rules); !res.Accepted {
			return &Rejection{Index: i, Command: cmd, Reason: res.Reason}
		}
	}
	return nil
}

func reject(reason string) Result {
	return Result{Accepted: false, Reason: reason}
}

func leadingToken(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func allowed(token string, prefixes []string) bool {
	for _, p := range prefixes {
		if token == p {
			return true
		}
	}
	return false
}
