package wifi

import (
	"context"
	"time"

	"k8s.io/utils/clock"

	"optix.io/optix/internal/agent/core"
	"optix.io/optix/internal/agent/metrics"
	"optix.io/optix/pkg/log"
)

// Applier performs one configure-and-verify attempt.
type Applier interface {
	Apply(ctx context.Context, ssid, password string) error
}

// LinkChecker reports live connectivity. It is consulted right before an
// attempt so that queued candidates are dropped once the device is online.
type LinkChecker interface {
	Connected(ctx context.Context) bool
}

type ConvergerConfig struct {
	// QueueSize bounds the number of candidates waiting behind the one in flight.
	QueueSize int

	// RetryCooldown lets a pair that failed be attempted again after it elapses.
	// Zero never re-attempts an identical pair.
	RetryCooldown time.Duration
}

// Converger is the single consumer of credential candidates. Producers call
// Submit; Run applies candidates one at a time in arrival order.
type Converger struct {
	cfg      ConvergerConfig
	state    *core.State
	applier  Applier
	link     LinkChecker
	notifier core.StatusNotifier
	metrics  *metrics.Metrics
	clock    clock.PassiveClock
	logger   log.Logger

	queue chan Candidate

	// owned by Run
	last    uint64
	lastOK  bool
	lastAt  time.Time
	hasLast bool
}

type ConvergerOption func(*Converger)

func WithLinkChecker(l LinkChecker) ConvergerOption {
	return func(c *Converger) { c.link = l }
}

func WithConvergerMetrics(m *metrics.Metrics) ConvergerOption {
	return func(c *Converger) { c.metrics = m }
}

func WithConvergerClock(clk clock.PassiveClock) ConvergerOption {
	return func(c *Converger) { c.clock = clk }
}

func NewConverger(cfg ConvergerConfig, state *core.State, applier Applier, notifier core.StatusNotifier, opts ...ConvergerOption) *Converger {
	if cfg.QueueSize < 1 {
		cfg.QueueSize = 8
	}
	c := &Converger{
		cfg:      cfg,
		state:    state,
		applier:  applier,
		notifier: notifier,
		clock:    clock.RealClock{},
		logger:   log.WithName("converger"),
		queue:    make(chan Candidate, cfg.QueueSize),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Submit never blocks. Candidates are dropped when invalid, when the device
// is already connected, or when the queue is full.
func (c *Converger) Submit(cand Candidate) {
	if !cand.Valid() {
		c.logger.Warn("Dropping incomplete credentials", "source", cand.Source)
		return
	}
	if c.state.NetworkConnected() {
		c.logger.Info("Already connected, skipping credentials", "source", cand.Source, "ssid", cand.SSID)
		return
	}

	select {
	case c.queue <- cand:
		c.logger.Debug("Credentials queued", "source", cand.Source, "ssid", cand.SSID)
	default:
		c.logger.Warn("Credential queue full, dropping", "source", cand.Source, "ssid", cand.SSID)
	}
}

// Run consumes candidates until ctx is done.
func (c *Converger) Run(ctx context.Context) error {
	c.logger.Info("Credential converger started")
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Credential converger stopped")
			return nil
		case cand := <-c.queue:
			c.process(ctx, cand)
		}
	}
}

func (c *Converger) process(ctx context.Context, cand Candidate) {
	if c.state.NetworkConnected() || (c.link != nil && c.link.Connected(ctx)) {
		c.logger.Info("Already connected, skipping queued credentials", "source", cand.Source, "ssid", cand.SSID)
		return
	}

	h := cand.Hash()
	now := c.clock.Now()
	if c.hasLast && h == c.last && !c.retryAllowed(now) {
		c.logger.Info("Duplicate credentials, skipping", "source", cand.Source, "ssid", cand.SSID)
		return
	}

	c.last, c.lastOK, c.hasLast = h, false, true

	c.logger.Info("Applying credentials", "source", cand.Source, "ssid", cand.SSID)
	err := c.applier.Apply(ctx, cand.SSID, cand.Password)
	// The cool-down counts from the end of the attempt.
	c.lastAt, c.lastOK = c.clock.Now(), err == nil
	c.metrics.CredentialApplied(string(cand.Source), c.lastOK)

	if err != nil {
		if ctx.Err() != nil {
			return
		}
		c.logger.Error(err, "Failed to apply credentials", "source", cand.Source, "ssid", cand.SSID)
		c.notifier.Notify(ctx, core.StatusWiFiFailed)
		return
	}
	c.notifier.Notify(ctx, core.StatusWiFiConnected)
}

// retryAllowed applies to a re-delivery of the last attempted pair.
func (c *Converger) retryAllowed(now time.Time) bool {
	if c.lastOK || c.cfg.RetryCooldown <= 0 {
		return false
	}
	return now.Sub(c.lastAt) >= c.cfg.RetryCooldown
}
