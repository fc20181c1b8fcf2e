package fullscreen

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/saaga0h/gammad/pkg/shell"
)

var (
	errNoActiveWindow = errors.New("no active window")

	activeWindowPattern = regexp.MustCompile(`window id # (0x[0-9a-fA-F]+)`)
	dimensionsPattern   = regexp.MustCompile(`dimensions:\s+(\d+)x(\d+) pixels`)
)

// DefaultStrategies returns the built-in strategies in preference order
func DefaultStrategies(runner shell.Runner) []Strategy {
	xdo := &XdotoolProbe{runner: runner}
	xwin := &XwininfoProbe{runner: runner}
	return []Strategy{
		NewGeometryStrategy("xdotool", xdo, func() bool {
			return runner.Available("xdotool")
		}),
		NewGeometryStrategy("xwininfo", xwin, func() bool {
			return runner.Available("xprop") && runner.Available("xwininfo") && runner.Available("xdpyinfo")
		}),
		&HintStrategy{runner: runner},
	}
}

// XdotoolProbe queries geometry with xdotool
type XdotoolProbe struct {
	runner shell.Runner
}

func (p *XdotoolProbe) ActiveWindow(ctx context.Context) (Geometry, error) {
	out, err := p.runner.Run(ctx, "xdotool", "getactivewindow", "getwindowgeometry", "--shell")
	if err != nil {
		return Geometry{}, err
	}
	vars := parseShellVars(out)
	w, errW := strconv.Atoi(vars["WIDTH"])
	h, errH := strconv.Atoi(vars["HEIGHT"])
	if errW != nil || errH != nil {
		return Geometry{}, fmt.Errorf("unexpected xdotool output %q", strings.TrimSpace(string(out)))
	}
	return Geometry{Width: w, Height: h}, nil
}

func (p *XdotoolProbe) Screen(ctx context.Context) (Geometry, error) {
	out, err := p.runner.Run(ctx, "xdotool", "getdisplaygeometry")
	if err != nil {
		return Geometry{}, err
	}
	fields := strings.Fields(string(out))
	if len(fields) != 2 {
		return Geometry{}, fmt.Errorf("unexpected display geometry %q", strings.TrimSpace(string(out)))
	}
	w, errW := strconv.Atoi(fields[0])
	h, errH := strconv.Atoi(fields[1])
	if errW != nil || errH != nil {
		return Geometry{}, fmt.Errorf("unexpected display geometry %q", strings.TrimSpace(string(out)))
	}
	return Geometry{Width: w, Height: h}, nil
}

// XwininfoProbe finds the active window with xprop, sizes it with xwininfo
// and reads the screen size from xdpyinfo
type XwininfoProbe struct {
	runner shell.Runner
}

func (p *XwininfoProbe) ActiveWindow(ctx context.Context) (Geometry, error) {
	id, err := activeWindowID(ctx, p.runner)
	if err != nil {
		return Geometry{}, err
	}
	out, err := p.runner.Run(ctx, "xwininfo", "-id", id)
	if err != nil {
		return Geometry{}, err
	}

	var g Geometry
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if v, ok := strings.CutPrefix(line, "Width:"); ok {
			g.Width, _ = strconv.Atoi(strings.TrimSpace(v))
		}
		if v, ok := strings.CutPrefix(line, "Height:"); ok {
			g.Height, _ = strconv.Atoi(strings.TrimSpace(v))
		}
	}
	if g.Width == 0 || g.Height == 0 {
		return Geometry{}, fmt.Errorf("no geometry in xwininfo output for %s", id)
	}
	return g, nil
}

func (p *XwininfoProbe) Screen(ctx context.Context) (Geometry, error) {
	out, err := p.runner.Run(ctx, "xdpyinfo")
	if err != nil {
		return Geometry{}, err
	}
	m := dimensionsPattern.FindSubmatch(out)
	if m == nil {
		return Geometry{}, errors.New("no dimensions in xdpyinfo output")
	}
	w, _ := strconv.Atoi(string(m[1]))
	h, _ := strconv.Atoi(string(m[2]))
	return Geometry{Width: w, Height: h}, nil
}

// HintStrategy asks the window manager whether the active window carries a
// fullscreen state hint. Best effort: not every window manager sets it.
type HintStrategy struct {
	runner shell.Runner
}

func (h *HintStrategy) Name() string { return "xprop-hint" }

func (h *HintStrategy) Available() bool {
	return h.runner.Available("xprop")
}

func (h *HintStrategy) Fullscreen(ctx context.Context) (bool, error) {
	id, err := activeWindowID(ctx, h.runner)
	if err != nil {
		return false, err
	}
	out, err := h.runner.Run(ctx, "xprop", "-id", id, "_NET_WM_STATE")
	if err != nil {
		return false, err
	}
	return strings.Contains(strings.ToLower(string(out)), "fullscreen"), nil
}

func activeWindowID(ctx context.Context, runner shell.Runner) (string, error) {
	out, err := runner.Run(ctx, "xprop", "-root", "_NET_ACTIVE_WINDOW")
	if err != nil {
		return "", err
	}
	m := activeWindowPattern.FindSubmatch(out)
	if m == nil {
		return "", errNoActiveWindow
	}
	id := string(m[1])
	if v, err := strconv.ParseUint(id[2:], 16, 64); err != nil || v == 0 {
		return "", errNoActiveWindow
	}
	return id, nil
}

// parseShellVars reads KEY=VALUE lines
func parseShellVars(out []byte) map[string]string {
	vars := make(map[string]string)
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		if k, v, ok := strings.Cut(strings.TrimSpace(scanner.Text()), "="); ok {
			vars[k] = v
		}
	}
	return vars
}
