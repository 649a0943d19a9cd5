package stream

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"k8s.io/utils/clock"

	"optix.io/optix/internal/agent/camera"
	"optix.io/optix/internal/agent/core"
	"optix.io/optix/internal/agent/metrics"
	"optix.io/optix/pkg/log"
)

// SampleSource reads the scene conditions.
type SampleSource interface {
	Sample(ctx context.Context) camera.Sample
}

// FrameSource captures one image under a profile.
type FrameSource interface {
	Capture(ctx context.Context, p camera.Profile) ([]byte, error)
}

// Archiver receives every successfully sent frame and decides itself what to keep.
type Archiver interface {
	Offer(ctx context.Context, profile string, frame []byte)
}

// DialFunc opens the collector connection.
type DialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

type Config struct {
	Interval      time.Duration
	DialTimeout   time.Duration
	WriteTimeout  time.Duration
	MaxFrameBytes int
}

// Streamer runs the probe, select, capture, send loop. Only one loop runs at a time.
type Streamer struct {
	cfg      Config
	state    *core.State
	probe    SampleSource
	selector *camera.Selector
	frames   FrameSource
	archiver Archiver
	metrics  *metrics.Metrics
	dial     DialFunc
	clock    clock.Clock
	logger   log.Logger

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

// Option customizes a Streamer.
type Option func(*Streamer)

func WithArchiver(a Archiver) Option        { return func(s *Streamer) { s.archiver = a } }
func WithMetrics(m *metrics.Metrics) Option { return func(s *Streamer) { s.metrics = m } }
func WithDialer(d DialFunc) Option          { return func(s *Streamer) { s.dial = d } }
func WithClock(c clock.Clock) Option        { return func(s *Streamer) { s.clock = c } }

func NewStreamer(cfg Config, state *core.State, probe SampleSource, selector *camera.Selector, frames FrameSource, opts ...Option) *Streamer {
	s := &Streamer{
		cfg:      cfg,
		state:    state,
		probe:    probe,
		selector: selector,
		frames:   frames,
		dial:     (&net.Dialer{}).DialContext,
		clock:    clock.RealClock{},
		logger:   log.WithName("streamer"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches the loop towards addr. It is a no-op while a previous loop
// is still running, including one that was asked to stop but has not exited.
func (s *Streamer) Start(ctx context.Context, addr string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running() {
		s.logger.Debug("Streamer already running", "collector", addr)
		return false
	}

	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	s.state.SetStreamingActive(true)
	s.metrics.SetUp(metrics.SubsystemStreaming, true)

	go s.loop(ctx, addr, s.stop, s.done)
	return true
}

// Stop asks the loop to exit at its next check. It does not wait.
func (s *Streamer) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stop != nil {
		close(s.stop)
		s.stop = nil
	}
}

// Wait blocks until the current loop has exited or ctx ends.
func (s *Streamer) Wait(ctx context.Context) error {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()

	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Running reports whether a loop goroutine is alive.
func (s *Streamer) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running()
}

func (s *Streamer) running() bool {
	if s.done == nil {
		return false
	}
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

func (s *Streamer) loop(ctx context.Context, addr string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	defer func() {
		s.state.SetStreamingActive(false)
		s.metrics.SetUp(metrics.SubsystemStreaming, false)
	}()

	dialCtx, cancel := context.WithTimeout(ctx, s.cfg.DialTimeout)
	conn, err := s.dial(dialCtx, "tcp", addr)
	cancel()
	if err != nil {
		s.logger.Error(err, "Failed to connect to collector", "collector", addr)
		return
	}
	defer conn.Close()

	s.logger.Info("Streaming started", "collector", addr)
	defer s.logger.Info("Streaming stopped", "collector", addr)

	h := camera.NewHysteresisState(camera.Quality)
	s.metrics.ProfileActive(h.Current.Name, profileNames(), false)

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		default:
		}

		if err := s.cycle(ctx, conn, h); err != nil {
			s.logger.Error(err, "Send to collector failed", "collector", addr)
			return
		}

		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-s.clock.After(s.cfg.Interval):
		}
	}
}

// cycle runs one probe, select, capture, send pass. Only send failures are returned.
func (s *Streamer) cycle(ctx context.Context, conn net.Conn, h *camera.HysteresisState) error {
	sample := s.probe.Sample(ctx)
	suggestion := s.selector.Suggest(sample)
	profile, switched := s.selector.Advance(h, suggestion)
	if switched {
		s.logger.Info("Capture profile switched", "profile", profile.Name,
			"exposureUs", sample.ExposureMicros, "gain", sample.AnalogueGain, "fps", sample.FPS)
		s.metrics.ProfileActive(profile.Name, profileNames(), true)
	}

	frame, err := s.frames.Capture(ctx, profile)
	if err != nil {
		s.logger.Warn("Capture failed, skipping cycle", "profile", profile.Name, "error", err.Error())
		s.metrics.CaptureFailed()
		return nil
	}

	if err := conn.SetWriteDeadline(s.clock.Now().Add(s.cfg.WriteTimeout)); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	if err := WriteFrame(conn, frame, s.cfg.MaxFrameBytes); err != nil {
		if errors.Is(err, ErrFrameTooLarge) {
			s.logger.Warn("Dropping oversized frame", "profile", profile.Name, "bytes", len(frame))
			return nil
		}
		return err
	}

	s.metrics.FrameSent(len(frame))
	s.logger.Debug("Frame sent", "profile", profile.Name, "bytes", len(frame))

	if s.archiver != nil {
		s.archiver.Offer(ctx, profile.Name, frame)
	}
	return nil
}

func profileNames() []string {
	ps := camera.Profiles()
	names := make([]string, 0, len(ps))
	for _, p := range ps {
		names = append(names, p.Name)
	}
	return names
}
