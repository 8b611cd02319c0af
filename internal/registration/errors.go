package registration

import "errors"

// Sentinel errors for registration operations. Device-level failures
// (device.ErrDeviceNotFound, device.ErrDeviceClaimed) pass through from
// the device package so callers can branch on the full taxonomy with
// errors.Is().
var (
	// ErrValidation is returned when submitted registration input is
	// structurally invalid (bad MAC, missing email).
	ErrValidation = errors.New("registration: validation failed")

	// ErrStore is returned when the underlying store fails mid-registration.
	// The transaction is rolled back; no partial writes survive.
	ErrStore = errors.New("registration: store failure")
)
