// Package backend abstracts the vision-capable reasoning engines the agent
// can delegate to. Every backend takes a prompt plus a screenshot and
// returns the raw reply text; interpreting that text is the parser's job.
package backend

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"
)

// Backend names form a closed set. Anything else is a configuration error.
const (
	NameOllama = "ollama"
	NameCodex  = "codex"
	NameClaude = "claude"
)

// Backend is a vision-capable reasoning engine.
type Backend interface {
	// Name returns the backend's configured name.
	Name() string

	// Invoke sends the prompt and the screenshot at screenshotPath and
	// returns the raw reply. An empty reply is an error, never "".
	Invoke(ctx context.Context, prompt string, screenshotPath string) (string, error)

	// CheckConnection verifies the backend is reachable before the loop
	// starts, so misconfiguration fails up front instead of on iteration 1.
	CheckConnection(ctx context.Context) error
}

// Error is a failed backend invocation. Fatal for the session: the loop does
// not retry, the operator fixes the backend and resumes.
type Error struct {
	Backend string
	Detail  string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("backend %s: %s: %v", e.Backend, e.Detail, e.Err)
	}
	return fmt.Sprintf("backend %s: %s", e.Backend, e.Detail)
}

func (e *Error) Unwrap() error { return e.Err }

// Options selects and configures a backend. Decoded from the merged
// project-file and flag configuration.
type Options struct {
	Name  string `mapstructure:"backend"`
	Host  string `mapstructure:"host"`
	Port  int    `mapstructure:"port"`
	Model string `mapstructure:"model"`
}

// DecodeOptions builds Options from a loosely-typed configuration map.
func DecodeOptions(raw map[string]any) (Options, error) {
	var opts Options
	if err := mapstructure.Decode(raw, &opts); err != nil {
		return Options{}, fmt.Errorf("decoding backend options: %w", err)
	}
	return opts, nil
}

// New constructs the backend named in opts.
func New(opts Options) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Name)) {
	case NameOllama:
		return NewOllama(opts), nil
	case NameCodex:
		return NewCodex(), nil
	case NameClaude:
		return NewClaude(opts)
	default:
		return nil, fmt.Errorf("unknown backend %q (valid: %s, %s, %s)",
			opts.Name, NameOllama, NameCodex, NameClaude)
	}
}
