package platform

import (
	"context"
	"os/exec"
	"regexp"
	"strconv"
	"time"
)

// Default resolution reported when no probe succeeds.
const (
	DefaultWidth  = 1920
	DefaultHeight = 1080
)

const probeTimeout = 10 * time.Second

var (
	macResolutionRe  = regexp.MustCompile(`Resolution: (\d+) x (\d+)`)
	wlrResolutionRe  = regexp.MustCompile(`(\d+)x(\d+)`)
	xdpyResolutionRe = regexp.MustCompile(`dimensions:\s+(\d+)x(\d+)`)
)

// ScreenResolution probes the display size using platform tools. Probe
// failures fall back to 1920x1080 rather than erroring: the resolution is
// advisory context for the reasoning backend, not a correctness input.
func ScreenResolution(ctx context.Context, info *Info) (width, height int) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	switch info.OS {
	case MacOS:
		if w, h, ok := probe(ctx, macResolutionRe, "system_profiler", "SPDisplaysDataType"); ok {
			return w, h
		}
	case Linux:
		if info.DisplayServer == Wayland {
			if w, h, ok := probe(ctx, wlrResolutionRe, "wlr-randr"); ok {
				return w, h
			}
		}
		if w, h, ok := probe(ctx, xdpyResolutionRe, "xdpyinfo"); ok {
			return w, h
		}
	}

	return DefaultWidth, DefaultHeight
}

func probe(ctx context.Context, re *regexp.Regexp, name string, args ...string) (int, int, bool) {
	out, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		return 0, 0, false
	}

	match := re.FindSubmatch(out)
	if match == nil {
		return 0, 0, false
	}

	w, err := strconv.Atoi(string(match[1]))
	if err != nil {
		return 0, 0, false
	}
	h, err := strconv.Atoi(string(match[2]))
	if err != nil {
		return 0, 0, false
	}
	return w, h, true
}
