package adapter

import (
	"net/netip"

	"jfscan/internal/domain"
)

// AddressClassifier classifies IP literals with net/netip
type AddressClassifier struct{}

// Classify returns the family of value, or FamilyInvalid when value is not a
// plain IPv4 or IPv6 literal. Zoned IPv6 addresses ("fe80::1%eth0") and
// surrounding whitespace are rejected.
func (AddressClassifier) Classify(value string) domain.Family {
	addr, err := netip.ParseAddr(value)
	if err != nil || addr.Zone() != "" {
		return domain.FamilyInvalid
	}
	if addr.Is4() {
		return domain.FamilyIPv4
	}
	return domain.FamilyIPv6
}
