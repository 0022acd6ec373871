package repository

import (
	"context"

	"jfscan/internal/domain"
)

// Store defines entity storage for scan results. Every write is idempotent:
// inserting a fact that already exists is a no-op, not an error.
type Store interface {
	// Write operations
	EnsureAddress(ctx context.Context, value string, family domain.Family) (domain.AddressID, error)
	InsertDomainLink(ctx context.Context, name string, addressID *domain.AddressID) error
	InsertPortLink(ctx context.Context, link domain.PortLink) error
	InsertAddressRange(ctx context.Context, r domain.AddressRange) error

	// Read operations
	ListAddresses(ctx context.Context) ([]string, error)
	ListAddressRanges(ctx context.Context) ([]domain.AddressRange, error)
	ListDomainNames(ctx context.Context) ([]string, error)
	ListHostsWithPorts(ctx context.Context) ([]domain.HostSummary, error)
	ListAddressEndpoints(ctx context.Context) ([]domain.Endpoint, error)
	ListDomainEndpoints(ctx context.Context) ([]domain.Endpoint, error)

	// Counters
	CountAddresses(ctx context.Context) (int, error)
	CountAddressRanges(ctx context.Context) (int, error)
	CountDomainNames(ctx context.Context) (int, error)
	CountPortLinks(ctx context.Context) (int, error)
	CountResponsiveAddresses(ctx context.Context) (int, error)

	// Close releases the store; its content is gone afterwards
	Close() error
}
