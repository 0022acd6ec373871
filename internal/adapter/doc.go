// Package adapter implements the external collaborators of the jfscan result
// store.
//
// The store itself never touches the network. It consumes three contracts:
//
//   - Resolver maps a domain name to zero or more address strings. DNSResolver
//     queries A and AAAA records over a list of nameservers.
//   - Classifier tags a string as an IPv4 literal, an IPv6 literal, or invalid.
//   - RootExtractor reduces a hostname to its registrable domain using the
//     public suffix list, failing for input it cannot parse.
//
// # Importers
//
// NmapImporter reads nmap XML output and feeds every open port into a
// PortSink, which is how externally produced scan results enter the store.
//
// All collaborators are best effort. Callers treat a failure as "skip this
// item" and never abort a batch because of it.
package adapter
