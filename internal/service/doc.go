// Package service implements the jfscan result store on top of the repository
// layer.
//
// ReconService accepts scan facts (address ranges, addresses, domains, open
// ports), resolves and classifies them through the adapter collaborators, and
// answers the aggregate queries used for progress and reporting.
//
// # Ingestion Policy
//
// Reconnaissance input is noisy. Values that fail classification, names
// without a registrable domain and domains that do not resolve are dropped or
// stored without an address; they are never reported as errors. Errors are
// returned only when the underlying store fails, and a failure for one derived
// fact never stops the remaining facts of the same call.
//
// # Events
//
// Every accepted or dropped input is published on an EventBus so callers can
// follow ingestion without polling the store.
package service
