package agent

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"
	"k8s.io/utils/clock"

	"optix.io/optix/internal/agent/ble"
	"optix.io/optix/internal/agent/core"
	"optix.io/optix/internal/agent/metrics"
	"optix.io/optix/internal/agent/telemetry"
	"optix.io/optix/pkg/log"
)

const streamStopTimeout = 5 * time.Second

// Radio starts and stops the provisioning service.
type Radio interface {
	Start(ctx context.Context) (RadioHandle, error)
	Stop(h RadioHandle)
}

// RadioHandle is one live registration of the provisioning service.
type RadioHandle interface {
	ble.Advertiser
	Alive() bool
}

// Streamer is the frame pipeline towards the collector.
type Streamer interface {
	Start(ctx context.Context, addr string) bool
	Stop()
	Wait(ctx context.Context) error
	Running() bool
}

// LinkChecker reports live connectivity.
type LinkChecker interface {
	Connected(ctx context.Context) bool
}

// LifecyclePublisher receives the per-cycle snapshot.
type LifecyclePublisher interface {
	PublishLifecycle(ctx context.Context, l telemetry.Lifecycle)
}

// Service is a long-running component run next to the supervisor.
type Service struct {
	Name string
	Run  func(ctx context.Context) error
}

// Agent is the supervisor: it keeps the radio up, the advertisement alive
// and the stream running while the network is connected.
type Agent struct {
	state     *core.State
	radio     Radio
	guard     *ble.Guard
	link      LinkChecker
	streamer  Streamer
	collector string
	interval  time.Duration
	publisher LifecyclePublisher
	metrics   *metrics.Metrics
	services  []Service
	clock     clock.PassiveClock

	handle   RadioHandle
	radioLC  *Lifecycle
	streamLC *Lifecycle
}

// Run starts every service and supervises until ctx is done. Service
// failures are logged; only ctx ends Run.
func (a *Agent) Run(ctx context.Context) error {
	log.Info("Starting optix-agent", "serial", a.state.Serial(), "deviceHash", a.state.DeviceHash(), "interval", a.interval)

	g, gctx := errgroup.WithContext(ctx)
	for _, s := range a.services {
		g.Go(func() error {
			if err := s.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error(err, "Service stopped with error", "service", s.Name)
			}
			return nil
		})
	}

	g.Go(func() error {
		a.supervise(gctx)
		return nil
	})

	err := g.Wait()
	a.shutdown()
	return err
}

func (a *Agent) supervise(ctx context.Context) {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	a.runOnce(ctx)

	for {
		select {
		case <-ticker.C:
			a.runOnce(ctx)
		case <-ctx.Done():
			log.Info("Shutting down optix-agent")
			return
		}
	}
}

// runOnce is one supervisory cycle.
func (a *Agent) runOnce(ctx context.Context) {
	a.superviseRadio(ctx)

	// Advertising can die without the radio worker noticing.
	var adv ble.Advertiser
	if a.handle != nil {
		adv = a.handle
	}
	a.guard.Check(ctx, adv)

	connected := a.link.Connected(ctx)
	a.state.SetNetworkConnected(connected)
	a.metrics.SetUp(metrics.SubsystemNetwork, connected)

	a.superviseStream(ctx, connected)

	if a.publisher != nil {
		a.publisher.PublishLifecycle(ctx, a.lifecycle())
	}
}

func (a *Agent) superviseRadio(ctx context.Context) {
	if a.handle != nil && a.handle.Alive() && a.radioLC.Up() {
		return
	}

	if a.handle != nil {
		log.Warn("Radio worker ended, restarting")
		a.radio.Stop(a.handle)
		a.handle = nil
		a.state.SetRadioActive(false)
		a.fire(ctx, a.radioLC, EventStop)
		a.metrics.RadioRestarted()
	}

	a.fire(ctx, a.radioLC, EventStart)
	h, err := a.radio.Start(ctx)
	if err != nil {
		log.Error(err, "Radio start failed, retrying next cycle")
		a.fire(ctx, a.radioLC, EventFail)
		return
	}

	a.handle = h
	if err := a.guard.Register(ctx, h); err != nil {
		log.Warn("Advertising not registered yet", "error", err.Error())
	}
	a.state.SetRadioActive(true)
	a.fire(ctx, a.radioLC, EventReady)
}

func (a *Agent) superviseStream(ctx context.Context, connected bool) {
	if a.streamLC.Up() && !a.streamer.Running() {
		log.Warn("Streaming loop ended")
		a.fire(ctx, a.streamLC, EventStop)
	}

	switch {
	case connected && !a.streamLC.Up():
		a.fire(ctx, a.streamLC, EventStart)
		if !a.streamer.Start(ctx, a.collector) {
			a.fire(ctx, a.streamLC, EventFail)
			return
		}
		a.fire(ctx, a.streamLC, EventReady)

	case !connected && a.streamLC.Up():
		log.Info("Network lost, stopping stream")
		a.streamer.Stop()
		a.fire(ctx, a.streamLC, EventStop)
	}
}

func (a *Agent) fire(ctx context.Context, lc *Lifecycle, event string) {
	if err := lc.Fire(ctx, event); err != nil {
		log.Error(err, "Lifecycle transition failed", "event", event)
	}
}

func (a *Agent) lifecycle() telemetry.Lifecycle {
	return telemetry.Lifecycle{
		State: a.state.Snapshot(a.clock.Now()),
		Subsystems: map[string]string{
			metrics.SubsystemRadio:     a.radioLC.Current(),
			metrics.SubsystemStreaming: a.streamLC.Current(),
		},
	}
}

// shutdown brings every subsystem down. The stream gets a bounded wait.
func (a *Agent) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), streamStopTimeout)
	defer cancel()

	a.streamer.Stop()
	if err := a.streamer.Wait(ctx); err != nil {
		log.Warn("Streaming loop did not stop in time", "error", err.Error())
	}
	a.fire(ctx, a.streamLC, EventStop)

	if a.handle != nil {
		a.radio.Stop(a.handle)
		a.handle = nil
	}
	a.state.SetRadioActive(false)
	a.fire(ctx, a.radioLC, EventStop)

	a.state.SetNetworkConnected(false)
	a.metrics.SetUp(metrics.SubsystemNetwork, false)
	log.Info("All subsystems down")
}
