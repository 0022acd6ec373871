package sqlite

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"jfscan/internal/domain"
	"jfscan/internal/logger"
)

const driverName = "sqlite"

func init() {
	sqlx.BindDriver(driverName, sqlx.QUESTION)
}

// Repository implements repository.Store using SQLite.
//
// All operations are serialized by one mutex, so a Repository may be shared by
// concurrent ingestion workers.
type Repository struct {
	mu     sync.Mutex
	db     *sqlx.DB
	logger *logger.Logger
}

// Option configures a Repository
type Option func(*Repository)

// WithLogger sets the logger used for store diagnostics
func WithLogger(l *logger.Logger) Option {
	return func(r *Repository) {
		r.logger = l
	}
}

// New opens a SQLite store. dsn is usually ":memory:"; the pool is pinned to a
// single connection because every in-memory connection is a separate database.
func New(dsn string, opts ...Option) (*Repository, error) {
	db, err := sqlx.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	repo := &Repository{db: db, logger: logger.NewNop()}
	for _, opt := range opts {
		opt(repo)
	}
	repo.logger = repo.logger.WithComponent("store")

	start := time.Now()
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	repo.logger.Debugw("Result store initialized",
		"dsn", dsn,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return repo, nil
}

func (r *Repository) migrate() error {
	if _, err := r.db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		return fmt.Errorf("enable foreign keys: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS addresses (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		value TEXT NOT NULL,
		family INTEGER NOT NULL CHECK (family IN (4, 6)),
		UNIQUE (value, family)
	);

	CREATE TABLE IF NOT EXISTS domains (
		name TEXT NOT NULL,
		address_id INTEGER REFERENCES addresses(id)
	);

	CREATE TABLE IF NOT EXISTS ports (
		port INTEGER NOT NULL,
		protocol TEXT NOT NULL,
		address_id INTEGER NOT NULL REFERENCES addresses(id),
		UNIQUE (port, protocol, address_id)
	);

	CREATE TABLE IF NOT EXISTS address_ranges (
		cidr TEXT NOT NULL,
		family INTEGER NOT NULL,
		UNIQUE (cidr, family)
	);

	-- NULLs are distinct in UNIQUE constraints; fold them to 0 so an
	-- unresolved domain is stored once. AUTOINCREMENT never hands out 0.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_domains_link ON domains(name, COALESCE(address_id, 0));
	CREATE INDEX IF NOT EXISTS idx_domains_address ON domains(address_id);
	CREATE INDEX IF NOT EXISTS idx_ports_address ON ports(address_id);
	`

	_, err := r.db.Exec(schema)
	return err
}

// ============================================================================
// Write operations
// ============================================================================

// EnsureAddress inserts the address if absent and returns its ID
func (r *Repository) EnsureAddress(ctx context.Context, value string, family domain.Family) (domain.AddressID, error) {
	if !family.Valid() {
		return 0, fmt.Errorf("address %q: invalid family %d", value, family)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO addresses (value, family) VALUES (?, ?)
		ON CONFLICT (value, family) DO NOTHING
	`, value, int(family)); err != nil {
		return 0, fmt.Errorf("failed to insert address %s: %w", value, err)
	}

	var id int64
	if err := r.db.GetContext(ctx, &id, `
		SELECT id FROM addresses WHERE value = ? AND family = ?
	`, value, int(family)); err != nil {
		return 0, fmt.Errorf("failed to look up address %s: %w", value, err)
	}

	return domain.AddressID(id), nil
}

// InsertDomainLink stores a (name, address) link. A nil addressID records a
// domain that resolved to nothing.
func (r *Repository) InsertDomainLink(ctx context.Context, name string, addressID *domain.AddressID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO domains (name, address_id) VALUES (?, ?)
		ON CONFLICT DO NOTHING
	`, name, addressIDToNull(addressID))
	if err != nil {
		return fmt.Errorf("failed to insert domain %s: %w", name, err)
	}
	return nil
}

// InsertPortLink stores an open port on an existing address
func (r *Repository) InsertPortLink(ctx context.Context, link domain.PortLink) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO ports (port, protocol, address_id) VALUES (?, ?, ?)
		ON CONFLICT (port, protocol, address_id) DO NOTHING
	`, link.Port, link.Protocol, int64(link.AddressID))
	if err != nil {
		return fmt.Errorf("failed to insert port %d/%s: %w", link.Port, link.Protocol, err)
	}
	return nil
}

// InsertAddressRange stores an address range as given
func (r *Repository) InsertAddressRange(ctx context.Context, rng domain.AddressRange) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO address_ranges (cidr, family) VALUES (?, ?)
		ON CONFLICT (cidr, family) DO NOTHING
	`, rng.Range, int(rng.Family))
	if err != nil {
		return fmt.Errorf("failed to insert address range %s: %w", rng.Range, err)
	}
	return nil
}

// ============================================================================
// Read operations
// ============================================================================

// ListAddresses returns distinct address values in insertion order
func (r *Repository) ListAddresses(ctx context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	values := []string{}
	if err := r.db.SelectContext(ctx, &values, `
		SELECT value FROM addresses GROUP BY value ORDER BY MIN(id)
	`); err != nil {
		return nil, fmt.Errorf("failed to query addresses: %w", err)
	}
	return values, nil
}

// ListAddressRanges returns every stored range with its family
func (r *Repository) ListAddressRanges(ctx context.Context) ([]domain.AddressRange, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ranges := []domain.AddressRange{}
	if err := r.db.SelectContext(ctx, &ranges, `
		SELECT cidr, family FROM address_ranges ORDER BY rowid
	`); err != nil {
		return nil, fmt.Errorf("failed to query address ranges: %w", err)
	}
	return ranges, nil
}

// ListDomainNames returns distinct domain names in insertion order
func (r *Repository) ListDomainNames(ctx context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := []string{}
	if err := r.db.SelectContext(ctx, &names, `
		SELECT name FROM domains GROUP BY name ORDER BY MIN(rowid)
	`); err != nil {
		return nil, fmt.Errorf("failed to query domains: %w", err)
	}
	return names, nil
}

// ListHostsWithPorts joins addresses that have at least one open port with
// their ports and linked domains. Records follow address creation order.
func (r *Repository) ListHostsWithPorts(ctx context.Context) ([]domain.HostSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var portRows []hostPortRow
	if err := r.db.SelectContext(ctx, &portRows, `
		SELECT a.id, a.value, p.port
		FROM ports p JOIN addresses a ON a.id = p.address_id
		GROUP BY a.id, p.port
		ORDER BY a.id, p.port
	`); err != nil {
		return nil, fmt.Errorf("failed to query host ports: %w", err)
	}

	var domainRows []hostDomainRow
	if err := r.db.SelectContext(ctx, &domainRows, `
		SELECT d.address_id, d.name
		FROM domains d
		WHERE d.address_id IN (SELECT address_id FROM ports)
		ORDER BY d.address_id, d.name
	`); err != nil {
		return nil, fmt.Errorf("failed to query host domains: %w", err)
	}

	return buildHostSummaries(portRows, domainRows), nil
}

// ListAddressEndpoints returns distinct (address, port) pairs
func (r *Repository) ListAddressEndpoints(ctx context.Context) ([]domain.Endpoint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	endpoints := []domain.Endpoint{}
	if err := r.db.SelectContext(ctx, &endpoints, `
		SELECT a.value AS host, p.port
		FROM ports p JOIN addresses a ON a.id = p.address_id
		GROUP BY a.value, p.port
		ORDER BY MIN(a.id), p.port
	`); err != nil {
		return nil, fmt.Errorf("failed to query address endpoints: %w", err)
	}
	return endpoints, nil
}

// ListDomainEndpoints returns distinct (domain, port) pairs where the port is
// open on an address the domain resolves to
func (r *Repository) ListDomainEndpoints(ctx context.Context) ([]domain.Endpoint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	endpoints := []domain.Endpoint{}
	if err := r.db.SelectContext(ctx, &endpoints, `
		SELECT d.name AS host, p.port
		FROM domains d JOIN ports p ON p.address_id = d.address_id
		GROUP BY d.name, p.port
		ORDER BY MIN(d.rowid), p.port
	`); err != nil {
		return nil, fmt.Errorf("failed to query domain endpoints: %w", err)
	}
	return endpoints, nil
}

// ============================================================================
// Counters
// ============================================================================

// CountAddresses returns the number of distinct address values
func (r *Repository) CountAddresses(ctx context.Context) (int, error) {
	return r.count(ctx, "addresses", `SELECT COUNT(DISTINCT value) FROM addresses`)
}

// CountAddressRanges returns the number of distinct range strings
func (r *Repository) CountAddressRanges(ctx context.Context) (int, error) {
	return r.count(ctx, "address ranges", `SELECT COUNT(DISTINCT cidr) FROM address_ranges`)
}

// CountDomainNames returns the number of distinct domain names
func (r *Repository) CountDomainNames(ctx context.Context) (int, error) {
	return r.count(ctx, "domains", `SELECT COUNT(DISTINCT name) FROM domains`)
}

// CountPortLinks returns the number of stored port links
func (r *Repository) CountPortLinks(ctx context.Context) (int, error) {
	return r.count(ctx, "ports", `SELECT COUNT(*) FROM ports`)
}

// CountResponsiveAddresses returns the number of addresses with an open port
func (r *Repository) CountResponsiveAddresses(ctx context.Context) (int, error) {
	return r.count(ctx, "responsive addresses", `SELECT COUNT(DISTINCT address_id) FROM ports`)
}

func (r *Repository) count(ctx context.Context, what, query string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int
	if err := r.db.GetContext(ctx, &n, query); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", what, err)
	}
	return n, nil
}

// Close closes the database connection. For an in-memory store this discards
// all results.
func (r *Repository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.db.Close()
}
