package provision

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/verdantgrid/verdant-core/internal/device"
	"github.com/verdantgrid/verdant-core/internal/infrastructure/mqtt"
)

// Logger defines the logging interface used by the Listener.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}

// Subscriber is the broker surface the listener needs.
// *mqtt.Client satisfies it.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// Telemetry receives node measurements. *influxdb.Client satisfies it;
// writes are fire-and-forget.
type Telemetry interface {
	WriteHeartbeat(deviceID string, rssiDBm float64, batteryPct float64, uptimeSeconds float64)
	WriteNodeMetric(deviceID string, measurement string, value float64)
}

// provisionAnnouncement is what a factory-fresh node publishes on boot.
type provisionAnnouncement struct {
	DeviceName string `json:"deviceName,omitempty"`
	Firmware   string `json:"firmware,omitempty"`
}

// heartbeat is the periodic health report from a node.
type heartbeat struct {
	UptimeSeconds float64            `json:"uptimeSeconds"`
	RSSIDBm       float64            `json:"rssiDbm,omitempty"`
	BatteryPct    float64            `json:"batteryPct,omitempty"`
	Metrics       map[string]float64 `json:"metrics,omitempty"`
}

// Listener ingests node announcements from the broker.
//
// Provision announcements create unclaimed inventory entries, which is
// how hardware becomes visible to field technicians. Heartbeats are
// forwarded to telemetry storage. Both handlers are idempotent so
// retained or replayed messages are harmless.
type Listener struct {
	inventory *device.Inventory
	telemetry Telemetry
	topics    mqtt.Topics
	logger    Logger
}

// NewListener creates a listener over the inventory. Telemetry may be
// nil when time-series storage is disabled.
func NewListener(inv *device.Inventory, telemetry Telemetry) *Listener {
	return &Listener{
		inventory: inv,
		telemetry: telemetry,
		logger:    noopLogger{},
	}
}

// SetLogger sets the logger for the listener.
func (l *Listener) SetLogger(logger Logger) {
	l.logger = logger
}

// Start subscribes to the provision and heartbeat topic trees.
// The context bounds inventory writes triggered by incoming messages.
func (l *Listener) Start(ctx context.Context, sub Subscriber, qos byte) error {
	err := sub.Subscribe(l.topics.AllProvisions(), qos, func(topic string, payload []byte) error {
		return l.handleProvision(ctx, topic, payload)
	})
	if err != nil {
		return fmt.Errorf("subscribing to provisions: %w", err)
	}

	err = sub.Subscribe(l.topics.AllHeartbeats(), qos, func(topic string, payload []byte) error {
		return l.handleHeartbeat(topic, payload)
	})
	if err != nil {
		return fmt.Errorf("subscribing to heartbeats: %w", err)
	}

	return nil
}

// Stop removes the listener's subscriptions.
func (l *Listener) Stop(sub Subscriber) error {
	var errs []error
	if err := sub.Unsubscribe(l.topics.AllProvisions()); err != nil {
		errs = append(errs, err)
	}
	if err := sub.Unsubscribe(l.topics.AllHeartbeats()); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// handleProvision registers a node announcement as an unclaimed device.
// A repeat announcement from a known node is a no-op.
func (l *Listener) handleProvision(ctx context.Context, topic string, payload []byte) error {
	mac, err := device.NormalizeMAC(mqtt.NodeMAC(topic))
	if err != nil {
		l.logger.Warn("dropping provision with bad MAC", "topic", topic, "error", err)
		return nil
	}

	var announcement provisionAnnouncement
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &announcement); err != nil {
			l.logger.Warn("dropping malformed provision payload", "device_id", mac, "error", err)
			return nil
		}
	}

	dev := &device.Device{
		ID:     mac,
		Name:   announcement.DeviceName,
		Status: device.StatusUnclaimed,
	}

	if err := l.inventory.CreateDevice(ctx, dev); err != nil {
		if errors.Is(err, device.ErrDeviceExists) {
			l.logger.Debug("node re-announced", "device_id", mac)
			return nil
		}
		return fmt.Errorf("provisioning device %s: %w", mac, err)
	}

	l.logger.Info("node provisioned", "device_id", mac, "firmware", announcement.Firmware)
	return nil
}

// handleHeartbeat forwards node health to telemetry storage.
func (l *Listener) handleHeartbeat(topic string, payload []byte) error {
	if l.telemetry == nil {
		return nil
	}

	mac, err := device.NormalizeMAC(mqtt.NodeMAC(topic))
	if err != nil {
		l.logger.Warn("dropping heartbeat with bad MAC", "topic", topic, "error", err)
		return nil
	}

	var hb heartbeat
	if err := json.Unmarshal(payload, &hb); err != nil {
		l.logger.Warn("dropping malformed heartbeat", "device_id", mac, "error", err)
		return nil
	}

	l.telemetry.WriteHeartbeat(mac, hb.RSSIDBm, hb.BatteryPct, hb.UptimeSeconds)
	for name, value := range hb.Metrics {
		l.telemetry.WriteNodeMetric(mac, name, value)
	}

	return nil
}
