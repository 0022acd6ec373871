package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	"jfscan/internal/adapter"
	"jfscan/internal/domain"
	"jfscan/internal/logger"
	"jfscan/internal/repository"
)

// ReconService is the result store of a scan session: it ingests discovered
// hosts and ports, links them, and answers aggregate queries
type ReconService struct {
	repo     repository.Store
	resolver adapter.Resolver
	classify adapter.Classifier
	roots    adapter.RootExtractor
	eventBus *EventBus
	workers  int
	logger   *logger.Logger
}

// Option configures a ReconService
type Option func(*ReconService)

// WithClassifier replaces the default net/netip classifier
func WithClassifier(c adapter.Classifier) Option {
	return func(s *ReconService) {
		s.classify = c
	}
}

// WithRootExtractor replaces the default public suffix extractor
func WithRootExtractor(e adapter.RootExtractor) Option {
	return func(s *ReconService) {
		s.roots = e
	}
}

// WithEventBus publishes ingestion events on bus
func WithEventBus(bus *EventBus) Option {
	return func(s *ReconService) {
		s.eventBus = bus
	}
}

// WithWorkers sets how many targets AddTargets ingests concurrently
func WithWorkers(n int) Option {
	return func(s *ReconService) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithLogger sets the service logger
func WithLogger(l *logger.Logger) Option {
	return func(s *ReconService) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewReconService creates a result store over repo. Domains are resolved with
// resolver; classification and root-domain extraction default to the adapter
// implementations.
func NewReconService(repo repository.Store, resolver adapter.Resolver, opts ...Option) *ReconService {
	s := &ReconService{
		repo:     repo,
		resolver: resolver,
		classify: adapter.AddressClassifier{},
		roots:    adapter.PublicSuffixExtractor{},
		workers:  1,
		logger:   logger.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithComponent("recon")
	return s
}

// Close tears down the underlying store and everything in it
func (s *ReconService) Close() error {
	return s.repo.Close()
}

// ============================================================================
// Ingestion
// ============================================================================

// AddAddressRange records a range as given. The family is IPv6 for IPv6
// prefixes and IPv4 for everything else, including malformed input.
func (s *ReconService) AddAddressRange(ctx context.Context, cidr string) error {
	rng := domain.AddressRange{Range: cidr, Family: domain.RangeFamily(cidr)}
	if err := s.repo.InsertAddressRange(ctx, rng); err != nil {
		return err
	}
	s.eventBus.Publish(Event{Type: EventRangeAdded, Payload: rng})
	return nil
}

// AddAddress records an IP literal. Values that are not IPv4 or IPv6 literals
// are dropped without error.
func (s *ReconService) AddAddress(ctx context.Context, value string) error {
	_, _, err := s.ensureAddress(ctx, value)
	return err
}

// AddDomain resolves name and links it to every valid address it resolves to.
// A name that resolves to nothing (or fails to resolve) is stored without an
// address. Resolved values that are not IP literals are skipped.
func (s *ReconService) AddDomain(ctx context.Context, name string) error {
	if strings.TrimSpace(name) == "" {
		s.drop("domain", name, "empty name")
		return nil
	}

	values, err := s.resolver.Resolve(ctx, name)
	if err != nil {
		s.logger.Debugw("Resolution failed, storing domain without address",
			"domain", name,
			"error", err,
		)
		values = nil
	}

	if len(values) == 0 {
		if err := s.repo.InsertDomainLink(ctx, name, nil); err != nil {
			return err
		}
		s.eventBus.Publish(Event{Type: EventDomainAdded, Payload: domain.DomainLink{Name: name}})
		return nil
	}

	var errs []error
	for _, value := range values {
		id, ok, err := s.ensureAddress(ctx, value)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !ok {
			continue
		}

		if err := s.repo.InsertDomainLink(ctx, name, &id); err != nil {
			s.logger.Warnw("Failed to link domain", "domain", name, "address", value, "error", err)
			errs = append(errs, err)
			continue
		}
		s.eventBus.Publish(Event{Type: EventDomainAdded, Payload: domain.DomainLink{Name: name, AddressID: &id}})
	}

	return errors.Join(errs...)
}

// AddPort records an open port on address, creating the address first. If
// address is not an IP literal nothing is stored.
func (s *ReconService) AddPort(ctx context.Context, address string, port int, protocol string) error {
	id, ok, err := s.ensureAddress(ctx, address)
	if err != nil || !ok {
		return err
	}

	link := domain.PortLink{Port: port, Protocol: protocol, AddressID: id}
	if err := s.repo.InsertPortLink(ctx, link); err != nil {
		return err
	}
	s.eventBus.Publish(Event{Type: EventPortAdded, Payload: link})
	return nil
}

// ensureAddress classifies value and returns its ID, inserting it if absent.
// ok is false when value is not an IP literal.
func (s *ReconService) ensureAddress(ctx context.Context, value string) (id domain.AddressID, ok bool, err error) {
	family := s.classify.Classify(value)
	if !family.Valid() {
		s.drop("address", value, "not an IP literal")
		return 0, false, nil
	}

	id, err = s.repo.EnsureAddress(ctx, value, family)
	if err != nil {
		return 0, false, err
	}
	s.eventBus.Publish(Event{Type: EventAddressAdded, Payload: domain.Address{ID: id, Value: value, Family: family}})
	return id, true, nil
}

func (s *ReconService) drop(kind, value, reason string) {
	s.logger.Debugw("Dropping input", "kind", kind, "value", value, "reason", reason)
	s.eventBus.Publish(Event{
		Type:    EventInputDropped,
		Payload: map[string]string{"kind": kind, "value": value, "reason": reason},
	})
}

// ============================================================================
// Queries
// ============================================================================

// ListAddresses returns every distinct address value
func (s *ReconService) ListAddresses(ctx context.Context) ([]string, error) {
	return s.repo.ListAddresses(ctx)
}

// ListAddressRanges returns every distinct range string
func (s *ReconService) ListAddressRanges(ctx context.Context) ([]string, error) {
	ranges, err := s.repo.ListAddressRanges(ctx)
	if err != nil {
		return nil, err
	}

	values := make([]string, 0, len(ranges))
	for _, r := range ranges {
		values = append(values, r.Range)
	}
	return uniqueStrings(values), nil
}

// ListDomainNames returns every distinct domain name, resolved or not
func (s *ReconService) ListDomainNames(ctx context.Context) ([]string, error) {
	return s.repo.ListDomainNames(ctx)
}

// ListRootDomains returns the distinct registrable domains of all stored
// names. Names without one are skipped.
func (s *ReconService) ListRootDomains(ctx context.Context) ([]string, error) {
	names, err := s.repo.ListDomainNames(ctx)
	if err != nil {
		return nil, err
	}

	roots := make([]string, 0, len(names))
	for _, name := range names {
		root, err := s.roots.RootDomain(name)
		if err != nil {
			s.logger.Debugw("Skipping name without root domain", "domain", name, "error", err)
			continue
		}
		roots = append(roots, root)
	}
	return uniqueStrings(roots), nil
}

// GroupByAddress returns one record per address with at least one open port
func (s *ReconService) GroupByAddress(ctx context.Context) ([]domain.HostSummary, error) {
	return s.repo.ListHostsWithPorts(ctx)
}

// FormatEndpoints lists "host:port" strings for addresses, domains, or both.
// IPv6 hosts are bracketed.
func (s *ReconService) FormatEndpoints(ctx context.Context, includeAddresses, includeDomains bool) ([]string, error) {
	results := []string{}

	if includeAddresses {
		endpoints, err := s.repo.ListAddressEndpoints(ctx)
		if err != nil {
			return nil, err
		}
		results = appendEndpoints(results, endpoints)
	}

	if includeDomains {
		endpoints, err := s.repo.ListDomainEndpoints(ctx)
		if err != nil {
			return nil, err
		}
		results = appendEndpoints(results, endpoints)
	}

	return results, nil
}

// EstimateTargetAddressCount estimates the number of addresses in scope: the
// host count of every IPv4 range plus every individually known address.
// IPv6 and malformed ranges add nothing.
func (s *ReconService) EstimateTargetAddressCount(ctx context.Context) (uint64, error) {
	ranges, err := s.repo.ListAddressRanges(ctx)
	if err != nil {
		return 0, err
	}

	seen := make(map[string]struct{}, len(ranges))
	var total uint64
	for _, r := range ranges {
		if _, dup := seen[r.Range]; dup {
			continue
		}
		seen[r.Range] = struct{}{}

		size, ok := r.EstimatedSize()
		if !ok {
			s.logger.Debugw("Range not counted in estimate", "range", r.Range, "family", r.Family.String())
			continue
		}
		total += size
	}

	addresses, err := s.repo.CountAddresses(ctx)
	if err != nil {
		return 0, err
	}

	return total + uint64(addresses), nil
}

// CountOpenPorts returns the number of stored (port, protocol, address) facts
func (s *ReconService) CountOpenPorts(ctx context.Context) (int, error) {
	return s.repo.CountPortLinks(ctx)
}

// CountResponsiveAddresses returns the number of addresses with an open port
func (s *ReconService) CountResponsiveAddresses(ctx context.Context) (int, error) {
	return s.repo.CountResponsiveAddresses(ctx)
}

// Stats takes a snapshot of all counters
func (s *ReconService) Stats(ctx context.Context) (domain.Stats, error) {
	var (
		stats domain.Stats
		err   error
	)

	if stats.Addresses, err = s.repo.CountAddresses(ctx); err != nil {
		return stats, fmt.Errorf("stats: %w", err)
	}
	if stats.AddressRanges, err = s.repo.CountAddressRanges(ctx); err != nil {
		return stats, fmt.Errorf("stats: %w", err)
	}
	if stats.Domains, err = s.repo.CountDomainNames(ctx); err != nil {
		return stats, fmt.Errorf("stats: %w", err)
	}
	if stats.OpenPorts, err = s.repo.CountPortLinks(ctx); err != nil {
		return stats, fmt.Errorf("stats: %w", err)
	}
	if stats.ResponsiveAddresses, err = s.repo.CountResponsiveAddresses(ctx); err != nil {
		return stats, fmt.Errorf("stats: %w", err)
	}
	if stats.TargetEstimate, err = s.EstimateTargetAddressCount(ctx); err != nil {
		return stats, fmt.Errorf("stats: %w", err)
	}

	return stats, nil
}

func appendEndpoints(dst []string, endpoints []domain.Endpoint) []string {
	for _, e := range endpoints {
		dst = append(dst, net.JoinHostPort(e.Host, strconv.Itoa(e.Port)))
	}
	return dst
}

// uniqueStrings removes duplicates, keeping first occurrences in order
func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// Report collects the per-host view, targeted ranges and counters
func (s *ReconService) Report(ctx context.Context) (*domain.Report, error) {
	hosts, err := s.GroupByAddress(ctx)
	if err != nil {
		return nil, fmt.Errorf("report: %w", err)
	}
	ranges, err := s.ListAddressRanges(ctx)
	if err != nil {
		return nil, fmt.Errorf("report: %w", err)
	}
	stats, err := s.Stats(ctx)
	if err != nil {
		return nil, err
	}

	return &domain.Report{Hosts: hosts, Ranges: ranges, Stats: stats}, nil
}
