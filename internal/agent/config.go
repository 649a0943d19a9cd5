package agent

import (
	"context"
	"fmt"

	"k8s.io/utils/clock"

	"optix.io/optix/internal/agent/archive"
	"optix.io/optix/internal/agent/auth"
	"optix.io/optix/internal/agent/ble"
	"optix.io/optix/internal/agent/camera"
	"optix.io/optix/internal/agent/command"
	"optix.io/optix/internal/agent/core"
	"optix.io/optix/internal/agent/hal"
	"optix.io/optix/internal/agent/httpserver"
	"optix.io/optix/internal/agent/metrics"
	"optix.io/optix/internal/agent/stream"
	"optix.io/optix/internal/agent/telemetry"
	"optix.io/optix/internal/agent/wifi"
	"optix.io/optix/internal/pkg/execx"
	"optix.io/optix/pkg/log"
	"optix.io/optix/pkg/options"
)

type Config struct {
	RadioOptions   *options.RadioOptions
	NetworkOptions *options.NetworkOptions
	CameraOptions  *options.CameraOptions
	StreamOptions  *options.StreamOptions
	AuthOptions    *options.AuthOptions
	MqttOptions    *options.MqttOptions
	S3Options      *options.S3Options
	HttpOptions    *options.HttpOptions
}

// NewAgent wires every component. Optional ones (MQTT, S3, HTTP) are only
// built when configured.
func (cfg *Config) NewAgent() (*Agent, error) {
	serial := hal.NewHAL(cfg.NetworkOptions.Interface).SerialNumber()
	if serial == "" {
		return nil, fmt.Errorf("unable to determine device serial")
	}

	state := core.NewState(serial)
	m := metrics.New()
	runner := execx.NewRunner()
	status := core.NewBroadcaster()

	// Network
	netOpts := cfg.NetworkOptions
	conn := wifi.NewConnectivity(runner, netOpts.Interface, netOpts.CommandTimeout)
	configurator := wifi.NewConfigurator(wifi.ConfiguratorConfig{
		Path:           netOpts.SupplicantConfig,
		Country:        netOpts.Country,
		ReloadCommands: netOpts.ReloadCommands,
		PollInterval:   netOpts.PollInterval,
		ConnectTimeout: netOpts.ConnectTimeout,
		CommandTimeout: netOpts.CommandTimeout,
	}, runner, conn)
	converger := wifi.NewConverger(
		wifi.ConvergerConfig{RetryCooldown: netOpts.RetryCooldown},
		state, configurator, status,
		wifi.WithLinkChecker(conn),
		wifi.WithConvergerMetrics(m),
	)

	// Commands
	router := command.NewRouter()
	authOpts := cfg.AuthOptions
	modules := []core.Module{
		command.NewBuiltin(state, conn, status),
		auth.NewModule(auth.NewClient(authOpts.BaseURL, authOpts.APIKey, authOpts.Timeout), state, status),
	}
	for _, mod := range modules {
		if err := router.Register(mod); err != nil {
			return nil, err
		}
	}

	// Radio
	radioOpts := cfg.RadioOptions
	svc := ble.NewService(ble.ServiceConfig{
		ServiceUUID:    radioOpts.ServiceUUID,
		CredentialUUID: radioOpts.CredentialUUID,
		StatusUUID:     radioOpts.StatusUUID,
		CommandUUID:    radioOpts.CommandUUID,
	}, state, converger, router)
	status.Attach("ble", svc)
	radio := ble.NewRadio(ble.RadioConfig{
		Adapter:     radioOpts.Adapter,
		LocalName:   radioOpts.LocalName,
		CallTimeout: radioOpts.CallTimeout,
	}, svc)

	// Camera and stream
	camOpts := cfg.CameraOptions
	selector := camera.NewSelector(camera.Thresholds{
		DarkExposureMicros: camOpts.DarkExposureMicros,
		DarkGain:           camOpts.DarkGain,
		SlowFPS:            camOpts.SlowFPS,
		Hits:               camOpts.HysteresisHits,
	})
	probe := camera.NewProbe(runner, camOpts.ProbeTool, camOpts.ProbeTimeout)
	capturer := camera.NewCapturer(runner, camOpts.CaptureTools, camOpts.CaptureTimeout, camOpts.WorkDir, camOpts.AutofocusWindow)
	if tool, err := capturer.Tool(); err != nil {
		log.Warn("No capture tool found, streaming will fail until one is installed", "tools", camOpts.CaptureTools)
	} else {
		log.Info("Capture tool selected", "tool", tool)
	}

	var services []Service
	streamOpts := []stream.Option{stream.WithMetrics(m)}

	if cfg.S3Options.Enabled() {
		store, err := archive.NewMinIOStore(cfg.S3Options)
		if err != nil {
			return nil, err
		}
		archiver := archive.NewArchiver(store, cfg.S3Options.ArchiveEvery, state.DeviceHash(), archive.WithMetrics(m))
		streamOpts = append(streamOpts, stream.WithArchiver(archiver))
		services = append(services, Service{Name: "archive", Run: archiver.Run})
	}

	so := cfg.StreamOptions
	streamer := stream.NewStreamer(stream.Config{
		Interval:      so.Interval,
		DialTimeout:   so.DialTimeout,
		WriteTimeout:  so.WriteTimeout,
		MaxFrameBytes: so.MaxFrameBytes,
	}, state, probe, selector, capturer, streamOpts...)

	a := &Agent{
		state:     state,
		radio:     &bleRadio{radio: radio},
		guard:     ble.NewGuard(state, ble.WithGuardMetrics(m)),
		link:      conn,
		streamer:  streamer,
		collector: so.Collector,
		interval:  radioOpts.SupervisorInterval,
		metrics:   m,
		clock:     clock.RealClock{},
		radioLC:   NewLifecycle(metrics.SubsystemRadio, m),
		streamLC:  NewLifecycle(metrics.SubsystemStreaming, m),
	}

	services = append(services, Service{Name: "converger", Run: converger.Run})
	if netOpts.CredentialFile != "" {
		watcher := wifi.NewWatcher(netOpts.CredentialFile, netOpts.Debounce, converger.Submit)
		services = append(services, Service{Name: "watcher", Run: watcher.Run})
	}

	if cfg.MqttOptions.Enabled() {
		relay, err := telemetry.NewRelay(cfg.MqttOptions.ToClientConfig(), cfg.MqttOptions.TopicRoot, serial, router)
		if err != nil {
			return nil, fmt.Errorf("failed to init mqtt client: %w", err)
		}
		status.Attach("mqtt", relay)
		a.publisher = relay
		services = append(services, Service{Name: "telemetry", Run: relay.Run})
	}

	if cfg.HttpOptions.Enabled() {
		srv := httpserver.NewServer(cfg.HttpOptions, a.Ready, m.Handler())
		services = append(services, Service{Name: "http", Run: srv.Start})
	}

	a.services = services
	return a, nil
}

// Ready fails until the radio is up. Network state does not affect readiness.
func (a *Agent) Ready() error {
	if !a.state.RadioActive() {
		return fmt.Errorf("radio is %s", a.radioLC.Current())
	}
	return nil
}

// bleRadio adapts *ble.Radio to the Radio interface.
type bleRadio struct {
	radio *ble.Radio
}

func (r *bleRadio) Start(ctx context.Context) (RadioHandle, error) {
	h, err := r.radio.Start(ctx)
	if err != nil {
		return nil, err
	}
	return h, nil
}

func (r *bleRadio) Stop(h RadioHandle) {
	if bh, ok := h.(*ble.Handle); ok {
		r.radio.Stop(bh)
	}
}
