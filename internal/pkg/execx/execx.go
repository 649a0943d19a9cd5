// Package execx runs external tools with a bounded timeout.
package execx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// ErrToolNotFound is returned when the requested binary is not on PATH.
var ErrToolNotFound = errors.New("tool not found")

// Runner runs an external command and returns its standard output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
	LookPath(name string) (string, error)
}

type osRunner struct{}

// NewRunner returns a Runner backed by os/exec.
func NewRunner() Runner {
	return osRunner{}
}

func (osRunner) LookPath(name string) (string, error) {
	p, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%s: %w", name, ErrToolNotFound)
	}
	return p, nil
}

func (r osRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if _, err := r.LookPath(name); err != nil {
		return nil, err
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return stdout.Bytes(), fmt.Errorf("%s: %w", name, ctxErr)
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return stdout.Bytes(), fmt.Errorf("%s: %w", name, err)
		}
		return stdout.Bytes(), fmt.Errorf("%s: %w: %s", name, err, msg)
	}

	return stdout.Bytes(), nil
}

// RunTimeout runs name under a context bounded by timeout.
func RunTimeout(ctx context.Context, r Runner, timeout time.Duration, name string, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return r.Run(ctx, name, args...)
}

// SplitCommand splits a configured command line such as "systemctl restart dhcpcd".
func SplitCommand(line string) (string, []string, bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", nil, false
	}
	return fields[0], fields[1:], true
}
