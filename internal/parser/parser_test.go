package parser

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wellFormed = `###OBS
The desktop is visible with a Firefox icon in the dock.

###THINK
I should open Firefox by clicking its icon.

###CMD
cliclick c:512,950
`

func TestParse_WellFormed(t *testing.T) {
	resp, err := Parse(wellFormed)
	require.NoError(t, err)

	assert.Equal(t, "The desktop is visible with a Firefox icon in the dock.", resp.Observation)
	assert.Equal(t, "I should open Firefox by clicking its icon.", resp.Reasoning)
	assert.Equal(t, []string{"cliclick c:512,950"}, resp.Commands)
	assert.Empty(t, resp.Notes)
	assert.False(t, resp.GoalAchieved())
}

func TestParse_BlocksInAnyOrder(t *testing.T) {
	raw := `###CMD
xdotool key Return
###THINK
press enter
###OBS
A dialog is open.
`
	resp, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "A dialog is open.", resp.Observation)
	assert.Equal(t, []string{"xdotool key Return"}, resp.Commands)
}

func TestParse_Notes(t *testing.T) {
	raw := `###OBS
Settings page is open.
###THINK
Record where we are.
###NOTE
current_page: settings
login_state: signed in as admin
malformed line without separator
: empty key skipped
###CMD
cliclick c:100,100
`
	resp, err := Parse(raw)
	require.NoError(t, err)

	require.Len(t, resp.Notes, 2)
	assert.Equal(t, Note{Key: "current_page", Value: "settings"}, resp.Notes[0])
	assert.Equal(t, Note{Key: "login_state", Value: "signed in as admin"}, resp.Notes[1])
}

func TestParse_ExactlyFiveCommands(t *testing.T) {
	var cmds strings.Builder
	for i := 1; i <= 5; i++ {
		fmt.Fprintf(&cmds, "cliclick c:%d,%d\n", i*10, i*10)
	}
	raw := "###OBS\nok\n###THINK\nbatch\n###CMD\n" + cmds.String()

	resp, err := Parse(raw)
	require.NoError(t, err)
	require.Len(t, resp.Commands, 5)
	assert.Equal(t, "cliclick c:10,10", resp.Commands[0])
	assert.Equal(t, "cliclick c:50,50", resp.Commands[4])
}

func TestParse_SixCommandsFails(t *testing.T) {
	var cmds strings.Builder
	for i := 1; i <= 6; i++ {
		fmt.Fprintf(&cmds, "cliclick c:%d,%d\n", i*10, i*10)
	}
	raw := "###OBS\nok\n###THINK\nbatch\n###CMD\n" + cmds.String()

	_, err := Parse(raw)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Contains(t, perr.Reason, "6 commands")
}

func TestParse_MissingObservationFails(t *testing.T) {
	raw := "###THINK\nthinking\n###CMD\ncliclick c:1,1\n"

	_, err := Parse(raw)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Contains(t, perr.Reason, "###OBS")
}

func TestParse_MissingCommandsFailsUnlessGoalAchieved(t *testing.T) {
	noCmd := "###OBS\nStill working on it.\n###THINK\nhmm\n"
	_, err := Parse(noCmd)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)

	achieved := "###OBS\nGOAL ACHIEVED - the page is loaded.\n###THINK\ndone\n"
	resp, err := Parse(achieved)
	require.NoError(t, err)
	assert.True(t, resp.GoalAchieved())
	assert.Empty(t, resp.Commands)
}

func TestParse_EmptyCommandBlockFails(t *testing.T) {
	raw := "###OBS\nNot done yet.\n###THINK\nhmm\n###CMD\n\n\n"
	_, err := Parse(raw)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Contains(t, perr.Reason, "empty")
}

func TestParse_OnlyFirstCommandsBlockUsed(t *testing.T) {
	raw := `###OBS
ok
###THINK
t
###CMD
cliclick c:1,1
###CMD
cliclick c:2,2
cliclick c:3,3
`
	resp, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, []string{"cliclick c:1,1"}, resp.Commands)
}

func TestGoalAchieved(t *testing.T) {
	tests := []struct {
		name        string
		observation string
		want        bool
	}{
		{"exact prefix", "GOAL ACHIEVED", true},
		{"prefix with detail", "GOAL ACHIEVED: browser shows the page", true},
		{"case insensitive", "goal achieved, all done", true},
		{"mid-text mention is not completion", "The goal is not yet achieved.", false},
		{"unrelated", "A window is open.", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &ParsedResponse{Observation: tt.observation}
			assert.Equal(t, tt.want, p.GoalAchieved())
		})
	}
}
