package core

import (
	"context"
	"sync"
)

// Status strings pushed to the controller over the status endpoint.
const (
	StatusReady            = "Ready"
	StatusWiFiConnected    = "WiFi Connected"
	StatusWiFiDisconnected = "WiFi Disconnected"
	StatusWiFiFailed       = "WiFi Connection Failed"
	StatusAuthSuccess      = "Authentication Success"
	StatusAuthFailed       = "Authentication Failed"
	StatusAuthError        = "Authentication Error"
	StatusRegisterComplete = "Registration Complete"
	StatusRegisterFailed   = "Registration Failed"
	StatusRegisterError    = "Registration Error"
	statusSerialPrefix     = "Serial: "
)

// SerialStatus formats the reply to get_serial.
func SerialStatus(serial string) string {
	return statusSerialPrefix + serial
}

// StatusNotifier pushes a status string to whoever listens. Implementations
// must not block for long and must swallow their own errors.
type StatusNotifier interface {
	Notify(ctx context.Context, msg string)
}

// NotifierFunc adapts a function to StatusNotifier.
type NotifierFunc func(ctx context.Context, msg string)

func (f NotifierFunc) Notify(ctx context.Context, msg string) { f(ctx, msg) }

// Broadcaster fans a status out to every attached notifier. Targets can be
// attached after construction, so subsystems can be wired before the radio is up.
type Broadcaster struct {
	mu      sync.RWMutex
	targets map[string]StatusNotifier
}

var _ StatusNotifier = (*Broadcaster)(nil)

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{targets: map[string]StatusNotifier{}}
}

// Attach registers (or replaces) the notifier stored under name.
func (b *Broadcaster) Attach(name string, n StatusNotifier) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.targets[name] = n
}

// Detach removes the notifier stored under name.
func (b *Broadcaster) Detach(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.targets, name)
}

func (b *Broadcaster) Notify(ctx context.Context, msg string) {
	b.mu.RLock()
	targets := make([]StatusNotifier, 0, len(b.targets))
	for _, t := range b.targets {
		targets = append(targets, t)
	}
	b.mu.RUnlock()

	for _, t := range targets {
		t.Notify(ctx, msg)
	}
}
