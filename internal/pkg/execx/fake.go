package execx

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Call records one invocation seen by a FakeRunner.
type Call struct {
	Name string
	Args []string
}

// Line returns the call as a single command line.
func (c Call) Line() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// FakeRunner is an in-memory Runner for tests. Handlers are keyed by tool name;
// tools listed in Missing are reported as not found.
type FakeRunner struct {
	mu       sync.Mutex
	Handlers map[string]func(args []string) ([]byte, error)
	Missing  map[string]bool
	calls    []Call
}

func NewFakeRunner() *FakeRunner {
	return &FakeRunner{
		Handlers: map[string]func([]string) ([]byte, error){},
		Missing:  map[string]bool{},
	}
}

func (f *FakeRunner) LookPath(name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Missing[name] {
		return "", fmt.Errorf("%s: %w", name, ErrToolNotFound)
	}
	return "/usr/bin/" + name, nil
}

func (f *FakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if _, err := f.LookPath(name); err != nil {
		return nil, err
	}

	f.mu.Lock()
	f.calls = append(f.calls, Call{Name: name, Args: append([]string(nil), args...)})
	h := f.Handlers[name]
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if h == nil {
		return nil, nil
	}
	return h(args)
}

// Calls returns a copy of the recorded invocations.
func (f *FakeRunner) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// CallsTo returns the recorded invocations of one tool.
func (f *FakeRunner) CallsTo(name string) []Call {
	var out []Call
	for _, c := range f.Calls() {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// Handle sets the handler of a tool.
func (f *FakeRunner) Handle(name string, h func(args []string) ([]byte, error)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Handlers[name] = h
}
