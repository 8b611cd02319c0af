package owner

import (
	"strings"
	"time"
)

// Owner is a customer profile that garden nodes are registered against.
//
// Owners are deduplicated by normalised email address: registering a
// second device with the same email reuses the existing profile rather
// than creating a duplicate.
type Owner struct {
	ID    string `json:"id"`
	Email string `json:"email"`

	FirstName  string `json:"firstName"`
	MiddleName string `json:"middleName"`
	LastName   string `json:"lastName"`

	// FullName is derived from the name parts; see DeriveFullName.
	FullName string `json:"fullName"`

	Mobile  string  `json:"mobileNumber"`
	Address Address `json:"address"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Address is the owner's service address.
type Address struct {
	Barangay string `json:"barangay"`
	Street   string `json:"street"`
}

// NormalizeEmail canonicalises an email address for dedup lookups:
// surrounding whitespace is stripped and the address is lowercased.
func NormalizeEmail(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// DeriveFullName joins the non-empty name parts with single spaces.
func DeriveFullName(first, middle, last string) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{first, middle, last} {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return strings.Join(parts, " ")
}

// Merge overlays submitted profile fields onto the existing owner.
// Non-empty fields in the update win; empty fields preserve what is
// already stored. The full name is re-derived afterwards.
func (o *Owner) Merge(update Owner) {
	if update.FirstName != "" {
		o.FirstName = update.FirstName
	}
	if update.MiddleName != "" {
		o.MiddleName = update.MiddleName
	}
	if update.LastName != "" {
		o.LastName = update.LastName
	}
	if update.Mobile != "" {
		o.Mobile = update.Mobile
	}
	if update.Address.Barangay != "" {
		o.Address.Barangay = update.Address.Barangay
	}
	if update.Address.Street != "" {
		o.Address.Street = update.Address.Street
	}
	o.FullName = DeriveFullName(o.FirstName, o.MiddleName, o.LastName)
}
