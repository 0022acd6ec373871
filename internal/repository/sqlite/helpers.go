package sqlite

import (
	"database/sql"

	"jfscan/internal/domain"
)

// ============================================================================
// Null Type Conversion Helpers
// ============================================================================

// addressIDToNull converts an optional address reference to sql.NullInt64
func addressIDToNull(id *domain.AddressID) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*id), Valid: true}
}

// nullToAddressID converts a nullable column back to an optional reference
func nullToAddressID(ni sql.NullInt64) *domain.AddressID {
	if !ni.Valid {
		return nil
	}
	id := domain.AddressID(ni.Int64)
	return &id
}

// ============================================================================
// Host Summary Rows
// ============================================================================

// hostPortRow is one (address, port) pair from the host ports query
type hostPortRow struct {
	AddressID int64  `db:"id"`
	Value     string `db:"value"`
	Port      int    `db:"port"`
}

// hostDomainRow is one domain linked to an address with open ports
type hostDomainRow struct {
	AddressID sql.NullInt64 `db:"address_id"`
	Name      string        `db:"name"`
}

// buildHostSummaries folds ordered port rows into one summary per address and
// attaches linked domains. portRows must be ordered by address ID.
func buildHostSummaries(portRows []hostPortRow, domainRows []hostDomainRow) []domain.HostSummary {
	summaries := []domain.HostSummary{}
	index := make(map[int64]int)

	for _, row := range portRows {
		i, ok := index[row.AddressID]
		if !ok {
			i = len(summaries)
			index[row.AddressID] = i
			summaries = append(summaries, domain.HostSummary{
				Domains: []string{},
				Address: row.Value,
				Ports:   []int{},
			})
		}
		summaries[i].Ports = append(summaries[i].Ports, row.Port)
	}

	for _, row := range domainRows {
		id := nullToAddressID(row.AddressID)
		if id == nil {
			continue
		}
		if i, ok := index[int64(*id)]; ok {
			summaries[i].Domains = append(summaries[i].Domains, row.Name)
		}
	}

	return summaries
}
