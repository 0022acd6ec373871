package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jfscan/internal/domain"
	"jfscan/internal/repository"
)

var _ repository.Store = (*Repository)(nil)

// ============================================================================
// Test Helpers
// ============================================================================

// newTestRepo creates an in-memory SQLite repository for testing
func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := New(":memory:")
	require.NoError(t, err, "failed to create test repository")

	t.Cleanup(func() {
		repo.Close()
	})
	return repo
}

// rowCount counts raw rows in a table, bypassing DISTINCT in the public counters
func rowCount(t *testing.T, repo *Repository, table string) int {
	t.Helper()
	var n int
	require.NoError(t, repo.db.Get(&n, "SELECT COUNT(*) FROM "+table))
	return n
}

func mustAddress(t *testing.T, repo *Repository, value string, family domain.Family) domain.AddressID {
	t.Helper()
	id, err := repo.EnsureAddress(context.Background(), value, family)
	require.NoError(t, err)
	return id
}

// ============================================================================
// Construction
// ============================================================================

func TestNew(t *testing.T) {
	t.Run("in-memory", func(t *testing.T) {
		repo, err := New(":memory:")
		require.NoError(t, err)
		assert.NoError(t, repo.Close())
	})

	t.Run("file database", func(t *testing.T) {
		repo, err := New(filepath.Join(t.TempDir(), "results.db"))
		require.NoError(t, err)
		assert.NoError(t, repo.Close())
	})

	t.Run("unopenable path fails", func(t *testing.T) {
		repo, err := New(filepath.Join(t.TempDir(), "missing", "dir", "results.db"))
		assert.Error(t, err)
		assert.Nil(t, repo)
	})
}

func TestStoresAreIndependent(t *testing.T) {
	ctx := context.Background()
	a := newTestRepo(t)
	b := newTestRepo(t)

	mustAddress(t, a, "10.0.0.1", domain.FamilyIPv4)

	n, err := b.CountAddresses(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

// ============================================================================
// Addresses
// ============================================================================

func TestEnsureAddress(t *testing.T) {
	repo := newTestRepo(t)

	first := mustAddress(t, repo, "1.1.1.1", domain.FamilyIPv4)
	again := mustAddress(t, repo, "1.1.1.1", domain.FamilyIPv4)
	other := mustAddress(t, repo, "2606:4700:4700::1111", domain.FamilyIPv6)

	assert.NotZero(t, first)
	assert.Equal(t, first, again, "same address must keep its ID")
	assert.NotEqual(t, first, other)
	assert.Equal(t, 2, rowCount(t, repo, "addresses"))
}

func TestEnsureAddressRejectsInvalidFamily(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.EnsureAddress(context.Background(), "1.1.1.1", domain.FamilyInvalid)
	assert.Error(t, err)
	assert.Equal(t, 0, rowCount(t, repo, "addresses"))
}

func TestEnsureAddressConcurrent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	const workers = 16
	ids := make([]domain.AddressID, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i], errs[i] = repo.EnsureAddress(ctx, "192.0.2.10", domain.FamilyIPv4)
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}
	assert.Equal(t, 1, rowCount(t, repo, "addresses"))
}

// ============================================================================
// Domain links
// ============================================================================

func TestInsertDomainLink(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	id1 := mustAddress(t, repo, "93.184.216.34", domain.FamilyIPv4)
	id2 := mustAddress(t, repo, "2606:2800:220:1::1", domain.FamilyIPv6)

	require.NoError(t, repo.InsertDomainLink(ctx, "example.com", &id1))
	require.NoError(t, repo.InsertDomainLink(ctx, "example.com", &id1))
	require.NoError(t, repo.InsertDomainLink(ctx, "example.com", &id2))

	assert.Equal(t, 2, rowCount(t, repo, "domains"), "one row per distinct address")

	names, err := repo.ListDomainNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"example.com"}, names)
}

func TestInsertUnresolvedDomainOnce(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.InsertDomainLink(ctx, "nohost.invalid", nil))
	require.NoError(t, repo.InsertDomainLink(ctx, "nohost.invalid", nil))

	assert.Equal(t, 1, rowCount(t, repo, "domains"))
}

func TestInsertDomainLinkUnknownAddress(t *testing.T) {
	repo := newTestRepo(t)

	missing := domain.AddressID(42)
	err := repo.InsertDomainLink(context.Background(), "example.com", &missing)
	assert.Error(t, err, "foreign key must reject unknown address IDs")
	assert.Equal(t, 0, rowCount(t, repo, "domains"))
}

// ============================================================================
// Port links
// ============================================================================

func TestInsertPortLink(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	id := mustAddress(t, repo, "10.0.0.5", domain.FamilyIPv4)

	links := []domain.PortLink{
		{Port: 443, Protocol: "tcp", AddressID: id},
		{Port: 443, Protocol: "tcp", AddressID: id},
		{Port: 443, Protocol: "udp", AddressID: id},
		{Port: 22, Protocol: "tcp", AddressID: id},
	}
	for _, l := range links {
		require.NoError(t, repo.InsertPortLink(ctx, l))
	}

	n, err := repo.CountPortLinks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	responsive, err := repo.CountResponsiveAddresses(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, responsive)
}

func TestInsertPortLinkUnknownAddress(t *testing.T) {
	repo := newTestRepo(t)

	err := repo.InsertPortLink(context.Background(), domain.PortLink{Port: 80, Protocol: "tcp", AddressID: 7})
	assert.Error(t, err)
	assert.Equal(t, 0, rowCount(t, repo, "ports"))
}

// ============================================================================
// Address ranges
// ============================================================================

func TestInsertAddressRange(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.InsertAddressRange(ctx, domain.AddressRange{Range: "10.0.0.0/24", Family: domain.FamilyIPv4}))
	require.NoError(t, repo.InsertAddressRange(ctx, domain.AddressRange{Range: "10.0.0.0/24", Family: domain.FamilyIPv4}))
	require.NoError(t, repo.InsertAddressRange(ctx, domain.AddressRange{Range: "garbage", Family: domain.FamilyIPv4}))
	require.NoError(t, repo.InsertAddressRange(ctx, domain.AddressRange{Range: "2001:db8::/64", Family: domain.FamilyIPv6}))

	ranges, err := repo.ListAddressRanges(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.AddressRange{
		{Range: "10.0.0.0/24", Family: domain.FamilyIPv4},
		{Range: "garbage", Family: domain.FamilyIPv4},
		{Range: "2001:db8::/64", Family: domain.FamilyIPv6},
	}, ranges)

	n, err := repo.CountAddressRanges(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

// ============================================================================
// Queries
// ============================================================================

func TestListAddressesEmpty(t *testing.T) {
	repo := newTestRepo(t)

	values, err := repo.ListAddresses(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, values)
	assert.Empty(t, values)
}

func TestListHostsWithPorts(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	web := mustAddress(t, repo, "93.184.216.34", domain.FamilyIPv4)
	bare := mustAddress(t, repo, "10.0.0.9", domain.FamilyIPv4)
	quiet := mustAddress(t, repo, "10.0.0.10", domain.FamilyIPv4)

	require.NoError(t, repo.InsertDomainLink(ctx, "www.example.com", &web))
	require.NoError(t, repo.InsertDomainLink(ctx, "example.com", &web))
	require.NoError(t, repo.InsertDomainLink(ctx, "quiet.example.com", &quiet))
	require.NoError(t, repo.InsertDomainLink(ctx, "nohost.invalid", nil))

	require.NoError(t, repo.InsertPortLink(ctx, domain.PortLink{Port: 443, Protocol: "tcp", AddressID: web}))
	require.NoError(t, repo.InsertPortLink(ctx, domain.PortLink{Port: 80, Protocol: "tcp", AddressID: web}))
	require.NoError(t, repo.InsertPortLink(ctx, domain.PortLink{Port: 80, Protocol: "udp", AddressID: web}))
	require.NoError(t, repo.InsertPortLink(ctx, domain.PortLink{Port: 22, Protocol: "tcp", AddressID: bare}))

	hosts, err := repo.ListHostsWithPorts(ctx)
	require.NoError(t, err)

	assert.Equal(t, []domain.HostSummary{
		{Domains: []string{"example.com", "www.example.com"}, Address: "93.184.216.34", Ports: []int{80, 443}},
		{Domains: []string{}, Address: "10.0.0.9", Ports: []int{22}},
	}, hosts)
}

func TestListEndpoints(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	v4 := mustAddress(t, repo, "93.184.216.34", domain.FamilyIPv4)
	v6 := mustAddress(t, repo, "2606:2800:220:1::1", domain.FamilyIPv6)

	require.NoError(t, repo.InsertDomainLink(ctx, "example.com", &v4))
	require.NoError(t, repo.InsertDomainLink(ctx, "example.com", &v6))
	require.NoError(t, repo.InsertPortLink(ctx, domain.PortLink{Port: 443, Protocol: "tcp", AddressID: v4}))
	require.NoError(t, repo.InsertPortLink(ctx, domain.PortLink{Port: 443, Protocol: "tcp", AddressID: v6}))
	require.NoError(t, repo.InsertPortLink(ctx, domain.PortLink{Port: 443, Protocol: "udp", AddressID: v6}))

	addrs, err := repo.ListAddressEndpoints(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.Endpoint{
		{Host: "93.184.216.34", Port: 443},
		{Host: "2606:2800:220:1::1", Port: 443},
	}, addrs)

	domains, err := repo.ListDomainEndpoints(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.Endpoint{{Host: "example.com", Port: 443}}, domains)
}

func TestCounters(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	id := mustAddress(t, repo, "1.1.1.1", domain.FamilyIPv4)
	mustAddress(t, repo, "2606:4700:4700::1111", domain.FamilyIPv6)
	require.NoError(t, repo.InsertDomainLink(ctx, "one.one.one.one", &id))
	require.NoError(t, repo.InsertDomainLink(ctx, "nohost.invalid", nil))

	addresses, err := repo.CountAddresses(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, addresses)

	domains, err := repo.CountDomainNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, domains)

	responsive, err := repo.CountResponsiveAddresses(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, responsive)
}

func TestReferentialIntegrity(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for _, v := range []string{"10.0.0.1", "10.0.0.2"} {
		id := mustAddress(t, repo, v, domain.FamilyIPv4)
		require.NoError(t, repo.InsertDomainLink(ctx, "host.example.com", &id))
		require.NoError(t, repo.InsertPortLink(ctx, domain.PortLink{Port: 8080, Protocol: "tcp", AddressID: id}))
	}
	require.NoError(t, repo.InsertDomainLink(ctx, "nohost.invalid", nil))

	var dangling int
	require.NoError(t, repo.db.Get(&dangling, `
		SELECT
			(SELECT COUNT(*) FROM domains WHERE address_id IS NOT NULL
				AND address_id NOT IN (SELECT id FROM addresses)) +
			(SELECT COUNT(*) FROM ports WHERE address_id NOT IN (SELECT id FROM addresses))
	`))
	assert.Equal(t, 0, dangling)
}

// ============================================================================
// Helper Function Tests
// ============================================================================

func TestAddressIDNullConversion(t *testing.T) {
	assert.Equal(t, sql.NullInt64{}, addressIDToNull(nil))

	id := domain.AddressID(5)
	assert.Equal(t, sql.NullInt64{Int64: 5, Valid: true}, addressIDToNull(&id))

	assert.Nil(t, nullToAddressID(sql.NullInt64{}))
	got := nullToAddressID(sql.NullInt64{Int64: 5, Valid: true})
	require.NotNil(t, got)
	assert.Equal(t, id, *got)
}

func TestBuildHostSummaries(t *testing.T) {
	ports := []hostPortRow{
		{AddressID: 1, Value: "10.0.0.1", Port: 22},
		{AddressID: 1, Value: "10.0.0.1", Port: 80},
		{AddressID: 3, Value: "10.0.0.3", Port: 443},
	}
	domains := []hostDomainRow{
		{AddressID: sql.NullInt64{Int64: 1, Valid: true}, Name: "a.example.com"},
		{AddressID: sql.NullInt64{Int64: 2, Valid: true}, Name: "b.example.com"},
		{AddressID: sql.NullInt64{}, Name: "c.example.com"},
	}

	got := buildHostSummaries(ports, domains)
	assert.Equal(t, []domain.HostSummary{
		{Domains: []string{"a.example.com"}, Address: "10.0.0.1", Ports: []int{22, 80}},
		{Domains: []string{}, Address: "10.0.0.3", Ports: []int{443}},
	}, got)

	assert.Empty(t, buildHostSummaries(nil, nil))
}
