// Package telemetry mirrors device status to an MQTT broker and accepts
// remote commands from it.
package telemetry

import (
	"context"
	"encoding/json"
	"time"

	"optix.io/optix/internal/agent/core"
	"optix.io/optix/pkg/log"
	"optix.io/optix/pkg/mqtt"
	"optix.io/optix/pkg/mqtt/topic"
)

const (
	payloadOnline  = "online"
	payloadOffline = "offline"

	publishTimeout = 3 * time.Second
)

// Dispatcher runs a command string the same way the command endpoint does.
type Dispatcher interface {
	Dispatch(ctx context.Context, cmd string)
}

// Lifecycle is the retained document published every supervisor cycle.
type Lifecycle struct {
	State      core.Snapshot     `json:"state"`
	Subsystems map[string]string `json:"subsystems"`
}

// ClientFactory builds the underlying MQTT client.
type ClientFactory func(cfg *mqtt.ClientConfig, opts ...mqtt.Option) (mqtt.Client, error)

type Option func(*Relay)

// WithClientFactory replaces mqtt.NewClient.
func WithClientFactory(f ClientFactory) Option { return func(r *Relay) { r.factory = f } }

// Relay owns the MQTT session of one device.
type Relay struct {
	client   mqtt.Client
	factory  ClientFactory
	topics   *topic.TopicBuilder
	serial   string
	commands Dispatcher
	logger   log.Logger
}

var _ core.StatusNotifier = (*Relay)(nil)

// NewRelay prepares the client; nothing connects until Run.
func NewRelay(cfg *mqtt.ClientConfig, root string, serial string, commands Dispatcher, opts ...Option) (*Relay, error) {
	r := &Relay{
		factory:  mqtt.NewClient,
		topics:   topic.NewTopicBuilder(root),
		serial:   serial,
		commands: commands,
		logger:   log.WithName("telemetry"),
	}
	for _, opt := range opts {
		opt(r)
	}

	c := *cfg
	if c.ClientID == "" {
		c.ClientID = "optix-" + serial
	}
	c.WillTopic = r.topics.Online(serial)
	c.WillPayload = []byte(payloadOffline)
	c.WillQoS = 1
	c.WillRetain = true

	client, err := r.factory(&c, mqtt.WithOnConnectionUp(r.onConnected))
	if err != nil {
		return nil, err
	}
	r.client = client
	return r, nil
}

// Run connects, listens for commands and blocks until ctx is done.
func (r *Relay) Run(ctx context.Context) error {
	if err := r.client.Start(ctx); err != nil {
		return err
	}

	cmdTopic := r.topics.Command(r.serial)
	if err := r.client.Subscribe(ctx, cmdTopic, 1, r.handleCommand); err != nil {
		// The subscription is kept and restored once the broker is reachable.
		r.logger.Debug("Command subscription deferred", "topic", cmdTopic, "error", err.Error())
	}

	<-ctx.Done()

	sctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if r.client.IsConnected() {
		r.publish(sctx, r.topics.Online(r.serial), true, []byte(payloadOffline))
	}
	r.client.Disconnect(sctx)
	return nil
}

func (r *Relay) onConnected() {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	r.publish(ctx, r.topics.Online(r.serial), true, []byte(payloadOnline))
}

func (r *Relay) handleCommand(ctx context.Context, t string, payload []byte) {
	r.logger.Info("Remote command received", "topic", t)
	r.commands.Dispatch(ctx, string(payload))
}

// Notify publishes a status string. It is a no-op while disconnected.
func (r *Relay) Notify(ctx context.Context, msg string) {
	if !r.client.IsConnected() {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	r.publish(ctx, r.topics.Status(r.serial), false, []byte(msg))
}

// PublishLifecycle replaces the retained lifecycle document.
func (r *Relay) PublishLifecycle(ctx context.Context, l Lifecycle) {
	if !r.client.IsConnected() {
		return
	}
	payload, err := json.Marshal(l)
	if err != nil {
		r.logger.Error(err, "Failed to encode lifecycle")
		return
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	r.publish(ctx, r.topics.Lifecycle(r.serial), true, payload)
}

func (r *Relay) publish(ctx context.Context, t string, retain bool, payload []byte) {
	if err := r.client.Publish(ctx, t, 1, retain, payload); err != nil {
		r.logger.Warn("Publish failed", "topic", t, "error", err.Error())
	}
}
