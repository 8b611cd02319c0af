// Package provision ingests MQTT announcements from garden nodes.
//
// A node fresh from the factory announces itself on the provision
// topic; the listener records it as an unclaimed device so it shows up
// in discovery. Heartbeats on the companion topic flow straight into
// telemetry storage.
package provision
