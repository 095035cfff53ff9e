// Package capture invokes the platform screenshot utility. The agent core
// treats the capture tool as an external collaborator: it picks the right
// tool for the environment, runs it, and reports failure as a typed error.
package capture

import (
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/agentkvm/agentkvm/internal/platform"
)

const captureTimeout = 30 * time.Second

// Error indicates the screenshot tool failed. It is fatal for the session.
type Error struct {
	Tool   string
	Output string
	Err    error
}

func (e *Error) Error() string {
	if e.Output != "" {
		return fmt.Sprintf("screenshot capture with %s failed: %v: %s", e.Tool, e.Err, e.Output)
	}
	return fmt.Sprintf("screenshot capture with %s failed: %v", e.Tool, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// runCommand is the process runner, injectable for tests.
type runCommand func(ctx context.Context, name string, args ...string) ([]byte, error)

// Capturer takes screenshots using the platform-appropriate tool.
type Capturer struct {
	info *platform.Info
	run  runCommand
}

// New creates a Capturer for the detected environment.
func New(info *platform.Info) *Capturer {
	return &Capturer{
		info: info,
		run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, name, args...).CombinedOutput()
		},
	}
}

// Capture writes a screenshot of the full screen to destPath.
func (c *Capturer) Capture(ctx context.Context, destPath string) error {
	ctx, cancel := context.WithTimeout(ctx, captureTimeout)
	defer cancel()

	tool, args, err := c.selectTool(destPath)
	if err != nil {
		return err
	}

	out, err := c.run(ctx, tool, args...)
	if err != nil {
		return &Error{Tool: tool, Output: string(out), Err: err}
	}
	return nil
}

// selectTool picks the screenshot command for the environment, in order of
// preference for the display server.
func (c *Capturer) selectTool(destPath string) (string, []string, error) {
	switch c.info.OS {
	case platform.MacOS:
		return "screencapture", []string{destPath}, nil
	case platform.Linux:
		if c.info.DisplayServer == platform.Wayland {
			if commandExists("grim") {
				return "grim", []string{destPath}, nil
			}
			if commandExists("gnome-screenshot") {
				return "gnome-screenshot", []string{"-f", destPath}, nil
			}
			return "", nil, &Error{Tool: "grim", Err: fmt.Errorf("no Wayland screenshot tool available (install grim)")}
		}
		if commandExists("scrot") {
			return "scrot", []string{destPath}, nil
		}
		if commandExists("gnome-screenshot") {
			return "gnome-screenshot", []string{"-f", destPath}, nil
		}
		if commandExists("import") {
			return "import", []string{"-window", "root", destPath}, nil
		}
		return "", nil, &Error{Tool: "scrot", Err: fmt.Errorf("no screenshot tool available")}
	default:
		return "", nil, &Error{Tool: "", Err: fmt.Errorf("unsupported platform: %s", c.info.OS)}
	}
}

func commandExists(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
