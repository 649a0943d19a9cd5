package topic

import (
	"fmt"
)

// Topic kinds exchanged between a device and the fleet backend.
// Structure of every device topic: {root}/{kind}/{serial}
const (
	// KindStatus carries the status strings also notified over BLE (Device -> Cloud).
	KindStatus = "status"

	// KindLifecycle carries the retained supervisor snapshot (Device -> Cloud).
	KindLifecycle = "lifecycle"

	// KindOnline carries "online" on connect and "offline" as last will (Device -> Cloud).
	KindOnline = "online"

	// KindCommand carries command strings routed like the BLE command endpoint (Cloud -> Device).
	KindCommand = "command"
)

// Wildcard is the single-level MQTT wildcard.
const Wildcard = "+"

// TopicBuilder encapsulates the logic for constructing MQTT topic strings.
type TopicBuilder struct {
	// root is the base namespace for all topics (e.g., "optix/v1").
	root string
}

// NewTopicBuilder creates a new instance of TopicBuilder with the specified root namespace.
func NewTopicBuilder(root string) *TopicBuilder {
	return &TopicBuilder{root: root}
}

// Status returns the topic a device publishes its status strings to.
func (b *TopicBuilder) Status(serial string) string {
	return b.build(KindStatus, serial)
}

// Lifecycle returns the topic of the retained lifecycle snapshot.
func (b *TopicBuilder) Lifecycle(serial string) string {
	return b.build(KindLifecycle, serial)
}

// Online returns the presence topic, also used as the last will topic.
func (b *TopicBuilder) Online(serial string) string {
	return b.build(KindOnline, serial)
}

// Command returns the topic a device receives remote commands on.
func (b *TopicBuilder) Command(serial string) string {
	return b.build(KindCommand, serial)
}

// StatusWildcard matches the status topic of every device.
// Result: {root}/status/+
func (b *TopicBuilder) StatusWildcard() string {
	return b.build(KindStatus, Wildcard)
}

// build constructs {root}/{kind}/{id}.
func (b *TopicBuilder) build(kind, id string) string {
	return fmt.Sprintf("%s/%s/%s", b.root, kind, id)
}
