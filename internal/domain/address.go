package domain

import "net/netip"

// Family is the IP address family of an address or range
type Family int

const (
	FamilyInvalid Family = 0
	FamilyIPv4    Family = 4
	FamilyIPv6    Family = 6
)

// Valid reports whether f is IPv4 or IPv6
func (f Family) Valid() bool {
	return f == FamilyIPv4 || f == FamilyIPv6
}

func (f Family) String() string {
	switch f {
	case FamilyIPv4:
		return "ipv4"
	case FamilyIPv6:
		return "ipv6"
	default:
		return "invalid"
	}
}

// AddressID is the store-assigned key of an Address row.
// Zero is never assigned.
type AddressID int64

// Address is a single IP literal known to the store
type Address struct {
	ID     AddressID `json:"id" db:"id"`
	Value  string    `json:"value" db:"value"`
	Family Family    `json:"family" db:"family"`
}

// AddressRange is an unenumerated block of addresses, usually in CIDR notation.
// Range is kept exactly as supplied.
type AddressRange struct {
	Range  string `json:"range" db:"cidr"`
	Family Family `json:"family" db:"family"`
}

// RangeFamily returns the family of a CIDR string. Anything that does not parse
// as an IPv6 prefix is tagged IPv4, so malformed ranges are still stored.
func RangeFamily(cidr string) Family {
	if p, err := netip.ParsePrefix(cidr); err == nil && p.Addr().Is6() {
		return FamilyIPv6
	}
	return FamilyIPv4
}

// EstimatedSize returns the number of scannable hosts in an IPv4 range.
//
// Prefixes up to /30 exclude the network and broadcast addresses. A /31 counts
// both addresses (point-to-point link) and a /32 counts its single host.
// ok is false for IPv6 ranges and for input that is not a valid prefix.
func (r AddressRange) EstimatedSize() (size uint64, ok bool) {
	if r.Family != FamilyIPv4 {
		return 0, false
	}

	bits, ok := prefixLength(r.Range)
	if !ok || bits < 0 || bits > 32 {
		return 0, false
	}

	switch bits {
	case 32:
		return 1, true
	case 31:
		return 2, true
	}
	return (uint64(1) << (32 - bits)) - 2, true
}

// prefixLength extracts the prefix length of an IPv4 CIDR. Input with host bits
// set ("10.0.0.7/24") is accepted.
func prefixLength(cidr string) (int, bool) {
	p, err := netip.ParsePrefix(cidr)
	if err != nil {
		return 0, false
	}
	if !p.Addr().Is4() {
		return 0, false
	}
	return p.Bits(), true
}
