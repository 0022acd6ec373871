// Package repository defines the storage contract for jfscan scan results.
//
// The Store interface covers the four entity kinds of the domain package:
// addresses, domain links, port links and address ranges. The implementation
// lives in the sqlite subpackage.
//
// # Identity
//
// Addresses are the only independent entity. EnsureAddress inserts an address
// if absent and returns its AddressID; domain and port links can only be
// created with an ID obtained this way, and the engine rejects IDs that do not
// exist.
//
// # Lifetime
//
// A store lives for one scan session. There are no update or delete
// operations; Close discards everything.
package repository
