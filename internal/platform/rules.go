package platform

import "fmt"

// Rules is the safety policy for one platform: which command prefixes may
// run, and which substrings are always forbidden. The allow-list is also the
// source of the command reference shown to the reasoning backend, so the
// prompt never advertises a capability the validator would reject.
type Rules struct {
	// AllowedPrefixes are the permitted leading tokens for a command.
	AllowedPrefixes []string

	// DeniedTokens are case-insensitive substrings that reject a command
	// outright (destructive file ops, privilege escalation, remote fetch,
	// process kill).
	DeniedTokens []string
}

// deniedTokens is shared across platforms.
var deniedTokens = []string{
	"rm ", "sudo", "curl ", "wget ", "kill ", "pkill", "eval ", ">>",
}

// RulesFor returns the command policy for the detected environment.
// Fails when no input tool is available on Linux.
func RulesFor(info *Info) (Rules, error) {
	switch info.OS {
	case MacOS:
		return Rules{
			AllowedPrefixes: []string{"cliclick", "osascript"},
			DeniedTokens:    deniedTokens,
		}, nil
	case Linux:
		switch info.InputTool {
		case "ydotool":
			return Rules{
				AllowedPrefixes: []string{"ydotool", "wmctrl"},
				DeniedTokens:    deniedTokens,
			}, nil
		case "xdotool":
			return Rules{
				AllowedPrefixes: []string{"xdotool", "wmctrl"},
				DeniedTokens:    deniedTokens,
			}, nil
		default:
			return Rules{}, fmt.Errorf("no input tool found: install ydotool (Wayland) or xdotool (X11)")
		}
	default:
		return Rules{}, fmt.Errorf("unsupported platform: %s", info.OS)
	}
}
