// Package codec renders scan reports in the supported output formats.
package codec

import (
	"fmt"
	"io"

	"jfscan/internal/domain"
)

// Exporter writes a report in one format
type Exporter interface {
	Export(report *domain.Report, w io.Writer) error
	Format() string
}

// ForFormat returns the exporter for format
func ForFormat(format string) (Exporter, error) {
	switch format {
	case "", "text":
		return NewTextCodec(), nil
	case "json":
		return NewJSONCodec(), nil
	case "yaml", "yml":
		return NewYAMLCodec(), nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}
