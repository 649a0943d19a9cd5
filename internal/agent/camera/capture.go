package camera

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"optix.io/optix/internal/pkg/execx"
)

// ErrNoCaptureTool is returned when none of the configured capture tools is installed.
var ErrNoCaptureTool = errors.New("no capture tool available")

const toolRaspistill = "raspistill"

// Capturer takes one JPEG per call with the first installed capture tool.
type Capturer struct {
	runner          execx.Runner
	tools           []string
	timeout         time.Duration
	workDir         string
	autofocusWindow string
}

func NewCapturer(runner execx.Runner, tools []string, timeout time.Duration, workDir, autofocusWindow string) *Capturer {
	return &Capturer{
		runner:          runner,
		tools:           tools,
		timeout:         timeout,
		workDir:         workDir,
		autofocusWindow: autofocusWindow,
	}
}

// Tool returns the capture tool that would be used.
func (c *Capturer) Tool() (string, error) {
	for _, t := range c.tools {
		if _, err := c.runner.LookPath(t); err == nil {
			return t, nil
		}
	}
	return "", ErrNoCaptureTool
}

// Capture writes the picture to a temporary file and returns its bytes.
func (c *Capturer) Capture(ctx context.Context, p Profile) ([]byte, error) {
	tool, err := c.Tool()
	if err != nil {
		return nil, err
	}

	f, err := os.CreateTemp(c.workDir, "optix-*.jpg")
	if err != nil {
		return nil, fmt.Errorf("create capture file: %w", err)
	}
	path := f.Name()
	_ = f.Close()
	defer os.Remove(path)

	if _, err := execx.RunTimeout(ctx, c.runner, c.timeout, tool, c.args(tool, path, p)...); err != nil {
		return nil, fmt.Errorf("capture %s: %w", p.Name, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read capture: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("capture %s: empty image", p.Name)
	}
	return data, nil
}

func (c *Capturer) args(tool, path string, p Profile) []string {
	if tool == toolRaspistill {
		return []string{
			"-w", strconv.Itoa(p.Width),
			"-h", strconv.Itoa(p.Height),
			"-q", strconv.Itoa(min(p.Quality, 100)),
			"-t", "1000", "-n", "-o", path,
		}
	}

	args := []string{
		"--width", strconv.Itoa(p.Width),
		"--height", strconv.Itoa(p.Height),
		"--quality", strconv.Itoa(p.Quality),
		"--timeout", "1000",
		"--nopreview",
		"--output", path,
		"--autofocus-mode", "continuous",
		"--autofocus-range", p.AutofocusRange,
		"--autofocus-speed", p.AutofocusSpeed,
		"--autofocus-window", c.autofocusWindow,
		"--exposure", p.ExposureMode,
		"--flicker-period", "10000us",
	}
	if p.DenoiseMode != "" {
		args = append(args, "--denoise", p.DenoiseMode)
	}
	if p.ShutterMicros > 0 {
		args = append(args, "--shutter", fmt.Sprintf("%dus", p.ShutterMicros))
	}
	return args
}
