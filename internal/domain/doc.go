// Package domain defines the core entity types of the jfscan result store.
//
// The store keeps four kinds of facts collected during a reconnaissance run:
//
//   - Address: a single IPv4 or IPv6 literal, identified by an AddressID assigned
//     when the row is created.
//   - DomainLink: a domain name paired with zero or one resolved address.
//   - PortLink: an open port and protocol observed on one address.
//   - AddressRange: a block of addresses (CIDR notation) targeted as a whole.
//
// Facts are only ever inserted or read. Dependent facts (domain and port links)
// reference addresses by AddressID, never by value, so an address row always
// exists before anything points at it.
//
// # Reporting Types
//
// HostSummary is the joined per-address view used for reports, and Stats is a
// snapshot of the counters that drive scan progress.
//
// This package has no database or network dependencies.
package domain
