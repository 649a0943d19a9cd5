package command

import (
	"context"

	"optix.io/optix/internal/agent/core"
	"optix.io/optix/pkg/log"
)

const (
	VerbScanWiFi  core.Verb = "scan_wifi"
	VerbGetSerial core.Verb = "get_serial"
)

// Scanner lists visible network names.
type Scanner interface {
	Scan(ctx context.Context) ([]string, error)
}

// Builtin answers the device-level verbs.
type Builtin struct {
	state    *core.State
	scanner  Scanner
	notifier core.StatusNotifier
	logger   log.Logger
}

var _ core.Module = (*Builtin)(nil)

func NewBuiltin(state *core.State, scanner Scanner, notifier core.StatusNotifier) *Builtin {
	return &Builtin{
		state:    state,
		scanner:  scanner,
		notifier: notifier,
		logger:   log.WithName("builtin"),
	}
}

func (b *Builtin) Name() string { return "builtin" }

func (b *Builtin) Routes() map[core.Verb]core.CommandFunc {
	return map[core.Verb]core.CommandFunc{
		VerbScanWiFi:  b.scanWiFi,
		VerbGetSerial: b.getSerial,
	}
}

// scanWiFi only logs what it sees; nothing is sent back to the phone.
func (b *Builtin) scanWiFi(ctx context.Context, _ string) error {
	networks, err := b.scanner.Scan(ctx)
	if err != nil {
		return err
	}
	b.logger.Info("WiFi scan finished", "count", len(networks), "networks", networks)
	return nil
}

func (b *Builtin) getSerial(ctx context.Context, _ string) error {
	b.notifier.Notify(ctx, core.SerialStatus(b.state.Serial()))
	return nil
}
