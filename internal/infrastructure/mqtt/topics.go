package mqtt

import (
	"fmt"
	"strings"
)

// Topic prefixes for the Verdant MQTT hierarchy.
//
// Node topics use the flat scheme: verdant/{category}/{mac}
// The MAC address in topics is the normalised form (AA:BB:CC:DD:EE:FF).
const (
	// TopicPrefix is the base for all Verdant topics.
	TopicPrefix = "verdant"

	// TopicPrefixEvent is the base for core-published events.
	TopicPrefixEvent = "verdant/event"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "verdant/system"
)

// Topics provides builders for Verdant MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	topic := topics.NodeProvision("AA:BB:CC:DD:EE:FF")
//	// Returns: "verdant/provision/AA:BB:CC:DD:EE:FF"
type Topics struct{}

// NodeProvision returns the topic a garden node announces itself on when
// it first powers up in the field.
//
// Example: verdant/provision/AA:BB:CC:DD:EE:FF
func (Topics) NodeProvision(mac string) string {
	return fmt.Sprintf("%s/provision/%s", TopicPrefix, mac)
}

// NodeHeartbeat returns the topic a node publishes periodic telemetry on.
//
// Example: verdant/heartbeat/AA:BB:CC:DD:EE:FF
func (Topics) NodeHeartbeat(mac string) string {
	return fmt.Sprintf("%s/heartbeat/%s", TopicPrefix, mac)
}

// NodeCommand returns the topic for commands to a specific node.
//
// Example: verdant/command/AA:BB:CC:DD:EE:FF
func (Topics) NodeCommand(mac string) string {
	return fmt.Sprintf("%s/command/%s", TopicPrefix, mac)
}

// Event returns the topic for a core-published event.
//
// Example: verdant/event/claimed
func (Topics) Event(eventType string) string {
	return fmt.Sprintf("%s/%s", TopicPrefixEvent, eventType)
}

// DeviceClaimed returns the topic published when a device is successfully
// registered to an owner.
//
// Example: verdant/event/claimed
func (t Topics) DeviceClaimed() string {
	return t.Event("claimed")
}

// DeviceProvisioned returns the topic published when a new unclaimed
// device enters the inventory.
//
// Example: verdant/event/provisioned
func (t Topics) DeviceProvisioned() string {
	return t.Event("provisioned")
}

// SystemStatus returns the system status topic.
//
// Example: verdant/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// SystemShutdown returns the shutdown signal topic.
//
// Example: verdant/system/shutdown
func (Topics) SystemShutdown() string {
	return fmt.Sprintf("%s/shutdown", TopicPrefixSystem)
}

// AllProvisions returns a pattern matching all node provision announcements.
//
// Pattern: verdant/provision/+
func (Topics) AllProvisions() string {
	return fmt.Sprintf("%s/provision/+", TopicPrefix)
}

// AllHeartbeats returns a pattern matching all node heartbeats.
//
// Pattern: verdant/heartbeat/+
func (Topics) AllHeartbeats() string {
	return fmt.Sprintf("%s/heartbeat/+", TopicPrefix)
}

// AllEvents returns a pattern matching all core events.
//
// Pattern: verdant/event/+
func (Topics) AllEvents() string {
	return fmt.Sprintf("%s/+", TopicPrefixEvent)
}

// AllTopics returns a pattern matching all Verdant topics.
// Use with caution - this receives ALL traffic.
//
// Pattern: verdant/#
func (Topics) AllTopics() string {
	return "verdant/#"
}

// NodeMAC extracts the MAC address segment from a node topic such as
// verdant/provision/AA:BB:CC:DD:EE:FF. Returns the empty string when the
// topic does not carry a node segment.
func NodeMAC(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) != nodeTopicParts || parts[0] != TopicPrefix {
		return ""
	}
	return parts[2]
}

// nodeTopicParts is the segment count of verdant/{category}/{mac} topics.
const nodeTopicParts = 3
