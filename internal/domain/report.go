package domain

// HostSummary is the per-address reporting view: an address with at least one
// open port, the domains that resolve to it, and its open ports.
type HostSummary struct {
	Domains []string `json:"domains" yaml:"domains"`
	Address string   `json:"address" yaml:"address"`
	Ports   []int    `json:"ports" yaml:"ports,flow"`
}

// Stats is a point-in-time snapshot of store counters used for scan progress
type Stats struct {
	Addresses           int    `json:"addresses" yaml:"addresses"`
	AddressRanges       int    `json:"address_ranges" yaml:"address_ranges"`
	Domains             int    `json:"domains" yaml:"domains"`
	OpenPorts           int    `json:"open_ports" yaml:"open_ports"`
	ResponsiveAddresses int    `json:"responsive_addresses" yaml:"responsive_addresses"`
	TargetEstimate      uint64 `json:"target_estimate" yaml:"target_estimate"`
}

// Report is the full result of a scan session
type Report struct {
	Hosts  []HostSummary `json:"hosts" yaml:"hosts"`
	Ranges []string      `json:"ranges" yaml:"ranges"`
	Stats  Stats         `json:"stats" yaml:"stats"`
}
