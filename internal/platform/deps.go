package platform

// Dependency describes one external tool the agent relies on.
type Dependency struct {
	Name        string
	Description string
	Install     string
	Required    bool
	Present     bool
}

// CheckDependencies reports the install status of every tool relevant to the
// detected environment and selected backend. Aggregate requirements (at
// least one input tool, at least one screenshot tool on Linux) are expressed
// as synthetic entries when unmet.
func CheckDependencies(info *Info, backendName string) []Dependency {
	var deps []Dependency

	switch info.OS {
	case MacOS:
		deps = append(deps,
			check("cliclick", "Mouse/keyboard automation tool", "brew install cliclick", true),
			check("screencapture", "Screenshot utility", "Built-in on macOS", true),
		)
	case Linux:
		deps = append(deps,
			check("ydotool", "Mouse/keyboard automation tool (Wayland)", "sudo apt install ydotool && sudo systemctl enable --now ydotool", false),
			check("xdotool", "Mouse/keyboard automation tool (X11)", "sudo apt install xdotool", false),
		)
		if info.DisplayServer == Wayland {
			deps = append(deps, check("grim", "Screenshot utility (Wayland)", "sudo apt install grim", false))
		}
		deps = append(deps,
			check("scrot", "Screenshot utility (X11)", "sudo apt install scrot", false),
			check("gnome-screenshot", "GNOME screenshot utility", "sudo apt install gnome-screenshot", false),
			check("wmctrl", "Window management tool", "sudo apt install wmctrl", false),
			check("wl-copy", "Clipboard utility (Wayland)", "sudo apt install wl-clipboard", false),
			check("xclip", "Clipboard utility (X11)", "sudo apt install xclip", false),
		)

		if !commandExists("ydotool") && !commandExists("xdotool") {
			deps = append(deps, Dependency{
				Name:        "input tool",
				Description: "At least one of ydotool or xdotool is required",
				Install:     "sudo apt install ydotool (Wayland) or xdotool (X11)",
				Required:    true,
			})
		}
		if !anyExists("grim", "scrot", "gnome-screenshot", "import") {
			deps = append(deps, Dependency{
				Name:        "screenshot tool",
				Description: "At least one screenshot tool is required",
				Install:     "sudo apt install grim (Wayland), scrot, or gnome-screenshot",
				Required:    true,
			})
		}
	}

	switch backendName {
	case "codex":
		deps = append(deps, check("codex", "OpenAI Codex CLI", "npm install -g @openai/codex", true))
	case "claude":
		deps = append(deps, check("ssh", "SSH client for the remote claude backend", "Built-in on macOS and Linux", true))
	}

	return deps
}

// MissingRequired filters deps down to required tools that are absent.
func MissingRequired(deps []Dependency) []Dependency {
	var missing []Dependency
	for _, d := range deps {
		if d.Required && !d.Present {
			missing = append(missing, d)
		}
	}
	return missing
}

func check(name, description, install string, required bool) Dependency {
	return Dependency{
		Name:        name,
		Description: description,
		Install:     install,
		Required:    required,
		Present:     commandExists(name),
	}
}

func anyExists(names ...string) bool {
	for _, n := range names {
		if commandExists(n) {
			return true
		}
	}
	return false
}
