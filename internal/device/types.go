package device

import "time"

// Status describes the lifecycle state of a garden node.
type Status string

// Device lifecycle statuses.
const (
	// StatusUnclaimed is a pre-provisioned node not yet registered to an owner.
	StatusUnclaimed Status = "unclaimed"

	// StatusActive is a node claimed by an owner and reporting normally.
	StatusActive Status = "active"

	// StatusInactive is a claimed node that has been administratively disabled.
	StatusInactive Status = "inactive"
)

// AllStatuses returns every valid device status.
func AllStatuses() []Status {
	return []Status{StatusUnclaimed, StatusActive, StatusInactive}
}

// Device represents a garden node in the inventory.
//
// The ID is the node's normalised MAC address (AA:BB:CC:DD:EE:FF), burned
// in at manufacture and printed on the enclosure label. A device without
// an owner is unclaimed and visible to field technicians for registration.
type Device struct {
	// Identity
	ID   string `json:"id"`
	Name string `json:"deviceName"`

	// Ownership. Nil until the device is claimed.
	OwnerID      *string    `json:"ownerId,omitempty"`
	RegisteredAt *time.Time `json:"registeredAt,omitempty"`

	// Lifecycle
	IsConfigured bool   `json:"isConfigured"`
	Status       Status `json:"status"`

	// Timestamps
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// IsClaimed reports whether the device has been registered to an owner.
func (d *Device) IsClaimed() bool {
	return d.OwnerID != nil && *d.OwnerID != ""
}

// DeepCopy creates an independent copy of the Device.
// Pointer fields are cloned so modifications to the copy do not affect
// the original. This is essential for cache isolation.
func (d *Device) DeepCopy() *Device {
	if d == nil {
		return nil
	}

	cpy := *d // Shallow copy of value fields

	if d.OwnerID != nil {
		owner := *d.OwnerID
		cpy.OwnerID = &owner
	}
	if d.RegisteredAt != nil {
		registered := *d.RegisteredAt
		cpy.RegisteredAt = &registered
	}

	return &cpy
}
