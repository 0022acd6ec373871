package adapter

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"os"

	nmap "github.com/Ullaakut/nmap/v3"

	"jfscan/internal/logger"
)

// NmapImporter feeds open ports from nmap XML output (-oX) into a PortSink
type NmapImporter struct {
	sink   PortSink
	logger *logger.Logger
}

// NewNmapImporter creates an importer writing to sink
func NewNmapImporter(sink PortSink, log *logger.Logger) *NmapImporter {
	if log == nil {
		log = logger.NewNop()
	}
	return &NmapImporter{
		sink:   sink,
		logger: log.WithComponent("nmap"),
	}
}

// ImportFile reads and imports one nmap XML report
func (n *NmapImporter) ImportFile(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read nmap report: %w", err)
	}
	return n.ImportXML(ctx, data)
}

// ImportXML parses an nmap XML report and returns the number of open ports
// handed to the sink
func (n *NmapImporter) ImportXML(ctx context.Context, data []byte) (int, error) {
	var run nmap.Run
	if err := xml.Unmarshal(data, &run); err != nil {
		return 0, fmt.Errorf("parse nmap report: %w", err)
	}
	return n.processResults(ctx, &run)
}

// processResults stores every open port of every host that is up. A port is
// linked to each IPv4 and IPv6 address of its host; MAC addresses are ignored.
func (n *NmapImporter) processResults(ctx context.Context, result *nmap.Run) (int, error) {
	if result == nil {
		return 0, fmt.Errorf("nil scan result")
	}

	var (
		imported int
		errs     []error
	)

	for _, host := range result.Hosts {
		if host.Status.State != "up" {
			continue
		}

		for _, addr := range host.Addresses {
			if addr.AddrType != "ipv4" && addr.AddrType != "ipv6" {
				continue
			}

			for _, port := range host.Ports {
				if port.State.State != "open" {
					continue
				}
				if err := n.sink.AddPort(ctx, addr.Addr, int(port.ID), port.Protocol); err != nil {
					n.logger.Warnw("Failed to store nmap port",
						"address", addr.Addr,
						"port", port.ID,
						"protocol", port.Protocol,
						"error", err,
					)
					errs = append(errs, err)
					continue
				}
				imported++
			}
		}
	}

	n.logger.Debugw("Imported nmap results", "hosts", len(result.Hosts), "ports", imported)
	return imported, errors.Join(errs...)
}
