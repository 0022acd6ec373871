package domain

// DomainLink associates a domain name with at most one resolved address.
// A domain that resolves to N addresses is stored as N links; a domain that
// resolves to nothing is stored once with a nil AddressID.
type DomainLink struct {
	Name      string     `json:"name" db:"name"`
	AddressID *AddressID `json:"address_id,omitempty" db:"address_id"`
}

// Resolved reports whether the link points at an address
func (l DomainLink) Resolved() bool {
	return l.AddressID != nil
}

// PortLink is one open service on one address
type PortLink struct {
	Port      int       `json:"port" db:"port"`
	Protocol  string    `json:"protocol" db:"protocol"`
	AddressID AddressID `json:"address_id" db:"address_id"`
}

// Endpoint is a host (address value or domain name) paired with an open port
type Endpoint struct {
	Host string `db:"host"`
	Port int    `db:"port"`
}
