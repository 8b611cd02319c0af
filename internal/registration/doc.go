// Package registration implements the device claim transaction.
//
// A field technician submits a device MAC plus an owner profile. The
// service normalises both, then in a single database transaction finds
// or creates the owner (deduplicated by lowercased email), and claims
// the device with a conditional update that only succeeds while the
// device is unowned. Every attempt, successful or not, lands in an
// audit trail, and successful claims are announced over MQTT.
package registration
