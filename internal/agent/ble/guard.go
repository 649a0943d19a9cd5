package ble

import (
	"context"

	"k8s.io/utils/clock"

	"optix.io/optix/internal/agent/core"
	"optix.io/optix/internal/agent/metrics"
	"optix.io/optix/pkg/log"
)

// Advertiser is the slice of the radio the guard needs.
type Advertiser interface {
	ActiveInstances(ctx context.Context) (int, error)
	Register(ctx context.Context) error
	Unregister(ctx context.Context) error
}

// Guard re-registers the advertisement when BlueZ reports none active.
type Guard struct {
	state   *core.State
	metrics *metrics.Metrics
	clock   clock.PassiveClock
	logger  log.Logger
}

type GuardOption func(*Guard)

func WithGuardMetrics(m *metrics.Metrics) GuardOption { return func(g *Guard) { g.metrics = m } }
func WithGuardClock(c clock.PassiveClock) GuardOption { return func(g *Guard) { g.clock = c } }

func NewGuard(state *core.State, opts ...GuardOption) *Guard {
	g := &Guard{
		state:  state,
		clock:  clock.RealClock{},
		logger: log.WithName("adv-guard"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Register registers the advertisement once.
func (g *Guard) Register(ctx context.Context, adv Advertiser) error {
	if err := adv.Register(ctx); err != nil {
		g.logger.Error(err, "Advertisement registration failed")
		return err
	}
	g.metrics.AdvertisementRegistered()
	g.state.MarkAdvertisingConfirmed(g.clock.Now())
	return nil
}

// Check confirms the advertisement is live. With zero active instances it
// unregisters (best effort) and registers exactly once. A failed query is
// logged and left for the next cycle.
func (g *Guard) Check(ctx context.Context, adv Advertiser) {
	if adv == nil {
		return
	}

	n, err := adv.ActiveInstances(ctx)
	if err != nil {
		g.logger.Warn("Cannot query advertising state", "error", err.Error())
		return
	}
	if n > 0 {
		g.state.MarkAdvertisingConfirmed(g.clock.Now())
		return
	}

	g.logger.Warn("No active advertisement, registering again")
	if err := adv.Unregister(ctx); err != nil {
		g.logger.Debug("Stale advertisement not unregistered", "error", err.Error())
	}
	_ = g.Register(ctx, adv)
}
