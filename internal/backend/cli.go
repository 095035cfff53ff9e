package backend

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// cliTimeout bounds one CLI-backed generation.
const cliTimeout = 120 * time.Second

// runCLI executes a local command and returns its stdout. Injectable for
// tests.
type runCLI func(ctx context.Context, name string, args ...string) ([]byte, error)

func runExec(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// Codex shells out to the codex CLI, which reads the screenshot directly
// from the local filesystem.
type Codex struct {
	run runCLI
}

// NewCodex builds the codex CLI backend.
func NewCodex() *Codex {
	return &Codex{run: runExec}
}

func (c *Codex) Name() string { return NameCodex }

func (c *Codex) Invoke(ctx context.Context, prompt string, screenshotPath string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, cliTimeout)
	defer cancel()

	out, err := c.run(ctx, "codex", "exec", "--image", screenshotPath, prompt)
	if err != nil {
		return "", &Error{Backend: c.Name(), Detail: "running codex", Err: err}
	}
	reply := strings.TrimSpace(string(out))
	if reply == "" {
		return "", &Error{Backend: c.Name(), Detail: "empty reply"}
	}
	return reply, nil
}

func (c *Codex) CheckConnection(ctx context.Context) error {
	if _, err := c.run(ctx, "codex", "--version"); err != nil {
		return &Error{Backend: c.Name(), Detail: "codex CLI not available", Err: err}
	}
	return nil
}

// Claude tunnels the claude CLI over SSH to a host that has it installed,
// copying the screenshot over first. The host is required: there is no
// sensible default machine to run it on.
type Claude struct {
	host string
	port int
	run  runCLI
}

// remoteScreenshot is where the screenshot lands on the remote host.
const remoteScreenshot = "/tmp/agentkvm_screen.png"

// NewClaude builds the SSH-tunneled backend. opts.Host must be set.
func NewClaude(opts Options) (*Claude, error) {
	if strings.TrimSpace(opts.Host) == "" {
		return nil, fmt.Errorf("backend %s requires --host (the SSH machine running the claude CLI)", NameClaude)
	}
	port := opts.Port
	if port == 0 {
		port = 22
	}
	return &Claude{host: opts.Host, port: port, run: runExec}, nil
}

func (c *Claude) Name() string { return NameClaude }

func (c *Claude) Invoke(ctx context.Context, prompt string, screenshotPath string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, cliTimeout)
	defer cancel()

	scpTarget := fmt.Sprintf("%s:%s", c.host, remoteScreenshot)
	if _, err := c.run(ctx, "scp", "-P", strconv.Itoa(c.port), screenshotPath, scpTarget); err != nil {
		return "", &Error{Backend: c.Name(), Detail: "copying screenshot to " + c.host, Err: err}
	}

	remoteCmd := fmt.Sprintf("claude -p %s %s", shellQuote(prompt), remoteScreenshot)
	out, err := c.run(ctx, "ssh", "-p", strconv.Itoa(c.port), c.host, remoteCmd)
	if err != nil {
		return "", &Error{Backend: c.Name(), Detail: "running claude on " + c.host, Err: err}
	}
	reply := strings.TrimSpace(string(out))
	if reply == "" {
		return "", &Error{Backend: c.Name(), Detail: "empty reply"}
	}
	return reply, nil
}

func (c *Claude) CheckConnection(ctx context.Context) error {
	if _, err := c.run(ctx, "ssh", "-p", strconv.Itoa(c.port), c.host, "claude --version"); err != nil {
		return &Error{Backend: c.Name(), Detail: "cannot run claude over SSH on " + c.host, Err: err}
	}
	return nil
}

// shellQuote wraps s in single quotes for the remote shell, escaping any
// embedded single quotes.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
