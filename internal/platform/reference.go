package platform

// CommandReference returns the prompt-facing documentation of the commands
// legal on this platform. The text only describes tools present in the
// validator's allow-list.
func CommandReference(info *Info) string {
	switch info.OS {
	case MacOS:
		return macOSReference
	case Linux:
		if info.InputTool == "ydotool" {
			return ydotoolReference
		}
		return xdotoolReference
	default:
		return ""
	}
}

const macOSReference = `## cliclick (mouse/keyboard control)
- Move mouse: cliclick m:x,y
- Click at position: cliclick c:x,y
- Click current: cliclick c:.
- Double-click: cliclick dc:x,y
- Right-click: cliclick rc:x,y
- Type text: cliclick t:"text here"
- Press key: cliclick kp:enter (also: return, tab, space, delete, escape, arrow-up/down/left/right)
- Key combo: cliclick kp:cmd-l, kp:cmd-t, kp:cmd-w, kp:cmd-a, kp:cmd-c, kp:cmd-v
- Combined: cliclick m:100,200 c:.

## osascript (AppleScript - for complex automation)
- Open URL: osascript -e 'open location "https://example.com"'
- Activate app: osascript -e 'tell application "AppName" to activate'`

const ydotoolReference = `## ydotool (mouse/keyboard control for Wayland)
- Move mouse: ydotool mousemove -a x y
- Left click: ydotool click 0xC0
- Right click: ydotool click 0xC1
- Type text: ydotool type "text here"
- Type with delay: ydotool type --delay 50 "text here"
- Press key: ydotool key enter (also: tab, space, backspace, esc, up, down, left, right)
- Key combo: ydotool key ctrl+l, ctrl+t, ctrl+w, ctrl+a, ctrl+c, ctrl+v, alt+F4
- Super key: ydotool key super

Note: ydotool uses absolute coordinates with the -a flag. Issue mouse moves
and clicks as separate commands, one per line.

## wmctrl (window management)
- Activate window: wmctrl -a "Window Title"
- Close window: wmctrl -c "Window Title"`

const xdotoolReference = `## xdotool (mouse/keyboard control for X11)
- Move mouse: xdotool mousemove x y
- Click at position: xdotool mousemove x y click 1
- Left click: xdotool click 1
- Right click: xdotool click 3
- Double-click: xdotool click --repeat 2 --delay 100 1
- Type text: xdotool type "text here"
- Type with delay: xdotool type --delay 50 "text here"
- Press key: xdotool key Return (also: Tab, space, BackSpace, Escape, Up, Down, Left, Right)
- Key combo: xdotool key ctrl+l, ctrl+t, ctrl+w, ctrl+a, ctrl+c, ctrl+v, alt+F4
- Super key: xdotool key super
- Focus window: xdotool search --name "Window Title" windowactivate

## wmctrl (window management)
- Activate window: wmctrl -a "Window Title"
- Close window: wmctrl -c "Window Title"`
