package device

import (
	"fmt"
	"regexp"
	"strings"
)

// Validation constants.
const (
	maxNameLength = 100

	// macOctets is the number of octets in a MAC-48 address.
	macOctets = 6
)

// macRegex matches a bare 12-digit hex string after separator stripping.
var macRegex = regexp.MustCompile(`^[0-9A-F]{12}$`)

// validStatuses is a pre-computed set for O(1) status lookups.
var validStatuses map[Status]struct{}

func init() {
	validStatuses = make(map[Status]struct{}, len(AllStatuses()))
	for _, s := range AllStatuses() {
		validStatuses[s] = struct{}{}
	}
}

// NormalizeMAC canonicalises a MAC address to AA:BB:CC:DD:EE:FF form.
//
// Input may use colons, dashes, or dots as separators, any letter case,
// and surrounding whitespace. Returns ErrInvalidMAC when the input does
// not contain exactly twelve hex digits.
//
//	NormalizeMAC("aa-bb-cc-dd-ee-ff")  // "AA:BB:CC:DD:EE:FF"
//	NormalizeMAC(" AABB.CCDD.EEFF ")   // "AA:BB:CC:DD:EE:FF"
func NormalizeMAC(raw string) (string, error) {
	stripped := strings.ToUpper(strings.TrimSpace(raw))
	stripped = strings.NewReplacer(":", "", "-", "", ".", "").Replace(stripped)

	if !macRegex.MatchString(stripped) {
		return "", fmt.Errorf("%w: %q", ErrInvalidMAC, raw)
	}

	octets := make([]string, macOctets)
	for i := 0; i < macOctets; i++ {
		octets[i] = stripped[i*2 : i*2+2]
	}
	return strings.Join(octets, ":"), nil
}

// Validate checks a device for structural validity before persistence.
func Validate(d *Device) error {
	normalized, err := NormalizeMAC(d.ID)
	if err != nil {
		return err
	}
	if normalized != d.ID {
		return fmt.Errorf("%w: id %q is not in canonical form", ErrInvalidMAC, d.ID)
	}

	if len(d.Name) > maxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidName, maxNameLength)
	}

	if _, ok := validStatuses[d.Status]; !ok {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, d.Status)
	}

	if d.Status == StatusUnclaimed && d.IsClaimed() {
		return fmt.Errorf("%w: unclaimed device has owner", ErrInvalidStatus)
	}

	return nil
}
