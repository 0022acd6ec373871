package adapter

import (
	"context"

	"jfscan/internal/domain"
)

// Resolver maps a host name to the address strings it resolves to.
// The result may be empty and may contain values that are not IP literals.
type Resolver interface {
	Resolve(ctx context.Context, name string) ([]string, error)
}

// Classifier decides the address family of a string
type Classifier interface {
	Classify(value string) domain.Family
}

// RootExtractor reduces a hostname to its registrable domain
type RootExtractor interface {
	RootDomain(name string) (string, error)
}

// PortSink receives open ports found by importers
type PortSink interface {
	AddPort(ctx context.Context, address string, port int, protocol string) error
}
