package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"jfscan/internal/domain"
)

const namespace = "jfscan"

// collectTimeout bounds one Stats snapshot
const collectTimeout = 5 * time.Second

// StatsSource provides a snapshot of the result store counters
type StatsSource interface {
	Stats(ctx context.Context) (domain.Stats, error)
}

// Collector exposes result store counters as gauges. Every collect takes a
// fresh snapshot, so the values always match the store.
type Collector struct {
	source StatsSource

	targetEstimate      *prometheus.Desc
	addresses           *prometheus.Desc
	addressRanges       *prometheus.Desc
	domains             *prometheus.Desc
	openPorts           *prometheus.Desc
	responsiveAddresses *prometheus.Desc
}

// NewCollector creates a collector over source
func NewCollector(source StatsSource) *Collector {
	return &Collector{
		source: source,
		targetEstimate: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "target_addresses_estimate"),
			"Estimated number of addresses in scope (IPv4 ranges plus known addresses)",
			nil, nil,
		),
		addresses: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "addresses"),
			"Distinct addresses known to the store",
			nil, nil,
		),
		addressRanges: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "address_ranges"),
			"Distinct address ranges targeted",
			nil, nil,
		),
		domains: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "domains"),
			"Distinct domain names, resolved or not",
			nil, nil,
		),
		openPorts: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "open_ports"),
			"Open (port, protocol, address) facts",
			nil, nil,
		),
		responsiveAddresses: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "responsive_addresses"),
			"Addresses with at least one open port",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.targetEstimate
	ch <- c.addresses
	ch <- c.addressRanges
	ch <- c.domains
	ch <- c.openPorts
	ch <- c.responsiveAddresses
}

// Collect implements prometheus.Collector
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), collectTimeout)
	defer cancel()

	stats, err := c.source.Stats(ctx)
	if err != nil {
		ch <- prometheus.NewInvalidMetric(c.addresses, fmt.Errorf("collect stats: %w", err))
		return
	}

	gauge := func(desc *prometheus.Desc, v float64) {
		ch <- prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, v)
	}
	gauge(c.targetEstimate, float64(stats.TargetEstimate))
	gauge(c.addresses, float64(stats.Addresses))
	gauge(c.addressRanges, float64(stats.AddressRanges))
	gauge(c.domains, float64(stats.Domains))
	gauge(c.openPorts, float64(stats.OpenPorts))
	gauge(c.responsiveAddresses, float64(stats.ResponsiveAddresses))
}

// WriteTextfile registers a collector for source on a fresh registry and
// writes it to path in the text exposition format, for the node_exporter
// textfile collector. The file is replaced atomically.
func WriteTextfile(path string, source StatsSource) error {
	reg := prometheus.NewRegistry()
	if err := reg.Register(NewCollector(source)); err != nil {
		return fmt.Errorf("register collector: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, reg); err != nil {
		return fmt.Errorf("write metrics to %s: %w", path, err)
	}
	return nil
}
