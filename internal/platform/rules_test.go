package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRulesFor(t *testing.T) {
	tests := []struct {
		name         string
		info         *Info
		wantPrefixes []string
		wantErr      bool
	}{
		{
			name:         "macos",
			info:         &Info{OS: MacOS, InputTool: "cliclick"},
			wantPrefixes: []string{"cliclick", "osascript"},
		},
		{
			name:         "linux ydotool",
			info:         &Info{OS: Linux, DisplayServer: Wayland, InputTool: "ydotool"},
			wantPrefixes: []string{"ydotool", "wmctrl"},
		},
		{
			name:         "linux xdotool",
			info:         &Info{OS: Linux, DisplayServer: X11, InputTool: "xdotool"},
			wantPrefixes: []string{"xdotool", "wmctrl"},
		},
		{
			name:    "linux without input tool",
			info:    &Info{OS: Linux, DisplayServer: X11},
			wantErr: true,
		},
		{
			name:    "unknown platform",
			info:    &Info{OS: Unknown},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rules, err := RulesFor(tt.info)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantPrefixes, rules.AllowedPrefixes)
			assert.NotEmpty(t, rules.DeniedTokens)
		})
	}
}

func TestCommandReference_OnlyAdvertisesAllowedTools(t *testing.T) {
	infos := []*Info{
		{OS: MacOS, InputTool: "cliclick"},
		{OS: Linux, DisplayServer: Wayland, InputTool: "ydotool"},
		{OS: Linux, DisplayServer: X11, InputTool: "xdotool"},
	}

	for _, info := range infos {
		rules, err := RulesFor(info)
		require.NoError(t, err)

		ref := CommandReference(info)
		require.NotEmpty(t, ref)

		// Every tool documented in the reference must be an allowed prefix.
		for _, prefix := range rules.AllowedPrefixes {
			assert.Contains(t, ref, prefix, "reference for %s/%s should document %s", info.OS, info.InputTool, prefix)
		}
	}
}
