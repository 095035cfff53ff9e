// Package platform detects the host operating system, display server, and
// input-automation tooling, and owns the per-platform command policy that
// both the prompt builder and the command validator consume.
package platform

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
)

// OS identifies a supported operating system.
type OS string

const (
	MacOS   OS = "macos"
	Linux   OS = "linux"
	Unknown OS = "unknown"
)

// DisplayServer identifies the Linux display server in use.
type DisplayServer string

const (
	X11            DisplayServer = "x11"
	Wayland        DisplayServer = "wayland"
	DisplayUnknown DisplayServer = "unknown"
)

// Info describes the detected host environment. It is resolved once at
// session start and treated as immutable for the session's lifetime.
type Info struct {
	OS            OS
	DisplayServer DisplayServer // only meaningful on Linux
	InputTool     string        // "cliclick" on macOS, "ydotool" or "xdotool" on Linux
}

// Detect resolves the host OS, display server, and input tool.
// Returns an error for unsupported operating systems.
func Detect() (*Info, error) {
	info := &Info{OS: detectOS()}

	switch info.OS {
	case MacOS:
		info.InputTool = "cliclick"
	case Linux:
		info.DisplayServer = detectDisplayServer()
		info.InputTool = detectInputTool()
	default:
		return nil, fmt.Errorf("unsupported platform: %s (supported: macOS, Linux)", runtime.GOOS)
	}

	return info, nil
}

func detectOS() OS {
	switch runtime.GOOS {
	case "darwin":
		return MacOS
	case "linux":
		return Linux
	default:
		return Unknown
	}
}

// detectDisplayServer checks the standard environment variables. Wayland
// wins when both are set, matching compositors that also export DISPLAY
// through XWayland.
func detectDisplayServer() DisplayServer {
	if os.Getenv("WAYLAND_DISPLAY") != "" {
		return Wayland
	}
	if os.Getenv("DISPLAY") != "" {
		return X11
	}
	return DisplayUnknown
}

// detectInputTool prefers ydotool (works on Wayland) over xdotool.
func detectInputTool() string {
	if commandExists("ydotool") {
		return "ydotool"
	}
	if commandExists("xdotool") {
		return "xdotool"
	}
	return ""
}

func commandExists(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
