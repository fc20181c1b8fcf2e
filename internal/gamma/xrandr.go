package gamma

import (
	"bufio"
	"bytes"
	"context"
	"strings"

	"github.com/saaga0h/gammad/pkg/shell"
)

// XrandrDisplay drives outputs through the xrandr CLI
type XrandrDisplay struct {
	runner shell.Runner
}

// NewXrandrDisplay creates an xrandr-backed Display
func NewXrandrDisplay(runner shell.Runner) *XrandrDisplay {
	return &XrandrDisplay{runner: runner}
}

// Outputs parses "xrandr --query" for outputs in the connected state
func (x *XrandrDisplay) Outputs(ctx context.Context) ([]string, error) {
	out, err := x.runner.Run(ctx, "xrandr", "--query")
	if err != nil {
		return nil, err
	}
	return parseConnected(out), nil
}

func (x *XrandrDisplay) SetGamma(ctx context.Context, output string, p Preset) error {
	_, err := x.runner.Run(ctx, "xrandr", "--output", output, "--gamma", p.Gamma())
	return err
}

func parseConnected(out []byte) []string {
	var outputs []string
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) >= 2 && fields[1] == "connected" {
			outputs = append(outputs, fields[0])
		}
	}
	return outputs
}
