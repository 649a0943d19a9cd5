// Package command routes command-endpoint strings to module handlers.
package command

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"optix.io/optix/internal/agent/core"
	"optix.io/optix/pkg/log"
)

// Router maps verbs to handlers.
type Router struct {
	mu     sync.RWMutex
	routes map[core.Verb]core.CommandFunc
	owners map[core.Verb]string
	logger log.Logger
}

func NewRouter() *Router {
	return &Router{
		routes: map[core.Verb]core.CommandFunc{},
		owners: map[core.Verb]string{},
		logger: log.WithName("command"),
	}
}

// Register adds every route of m. A verb already owned by another module is an error.
func (r *Router) Register(m core.Module) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	routes := m.Routes()
	for verb := range routes {
		if owner, ok := r.owners[verb]; ok {
			return fmt.Errorf("verb %q of module %s already registered by %s", verb, m.Name(), owner)
		}
	}
	for verb, fn := range routes {
		r.routes[verb] = fn
		r.owners[verb] = m.Name()
	}
	r.logger.Info("Module registered", "module", m.Name(), "verbs", len(routes))
	return nil
}

// Dispatch runs the handler for cmd. Unknown verbs and handler errors are logged only.
func (r *Router) Dispatch(ctx context.Context, cmd string) {
	cmd = strings.TrimSpace(cmd)
	if cmd == "" {
		return
	}

	r.mu.RLock()
	verb, fn, arg, ok := r.lookup(cmd)
	r.mu.RUnlock()
	if !ok {
		name, _, _ := strings.Cut(cmd, ":")
		r.logger.Warn("Unknown command", "command", name)
		return
	}

	if err := fn(ctx, arg); err != nil {
		r.logger.Error(err, "Command failed", "verb", string(verb))
	}
}

// lookup tries an exact verb first, then the prefix up to the first ':'.
func (r *Router) lookup(cmd string) (core.Verb, core.CommandFunc, string, bool) {
	if fn, ok := r.routes[core.Verb(cmd)]; ok && !core.Verb(cmd).IsPrefix() {
		return core.Verb(cmd), fn, "", true
	}
	head, arg, found := strings.Cut(cmd, ":")
	if !found {
		return "", nil, "", false
	}
	verb := core.Verb(head + ":")
	fn, ok := r.routes[verb]
	return verb, fn, arg, ok
}
