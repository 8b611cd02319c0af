package registration

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/verdantgrid/verdant-core/internal/device"
	"github.com/verdantgrid/verdant-core/internal/infrastructure/mqtt"
	"github.com/verdantgrid/verdant-core/internal/owner"
)

// claimedEvent is the wire payload published when a device is claimed.
type claimedEvent struct {
	DeviceID   string    `json:"deviceId"`
	DeviceName string    `json:"deviceName"`
	OwnerID    string    `json:"ownerId"`
	OwnerEmail string    `json:"ownerEmail"`
	ClaimedAt  time.Time `json:"claimedAt"`
}

// MQTTPublisher publishes claim events to the broker.
type MQTTPublisher struct {
	client *mqtt.Client
	topics mqtt.Topics
}

// NewMQTTPublisher creates a publisher over a connected MQTT client.
func NewMQTTPublisher(client *mqtt.Client) *MQTTPublisher {
	return &MQTTPublisher{client: client}
}

// DeviceClaimed publishes the claim event for a newly registered device.
func (p *MQTTPublisher) DeviceClaimed(dev device.Device, o owner.Owner) error {
	event := claimedEvent{
		DeviceID:   dev.ID,
		DeviceName: dev.Name,
		OwnerID:    o.ID,
		OwnerEmail: o.Email,
		ClaimedAt:  time.Now().UTC(),
	}
	if dev.RegisteredAt != nil {
		event.ClaimedAt = *dev.RegisteredAt
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding claim event: %w", err)
	}

	return p.client.Publish(p.topics.DeviceClaimed(), payload, 1, false)
}
