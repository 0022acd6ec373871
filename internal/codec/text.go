package codec

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"jfscan/internal/domain"
)

// TextCodec writes one aligned line per responsive host:
// address, comma separated ports, comma separated domains
type TextCodec struct{}

// NewTextCodec creates a new text codec
func NewTextCodec() *TextCodec {
	return &TextCodec{}
}

// Format returns the codec format identifier
func (c *TextCodec) Format() string {
	return "text"
}

// Export writes the host lines of report
func (c *TextCodec) Export(report *domain.Report, w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	for _, h := range report.Hosts {
		ports := make([]string, 0, len(h.Ports))
		for _, p := range h.Ports {
			ports = append(ports, strconv.Itoa(p))
		}

		line := strings.TrimRight(fmt.Sprintf("%s\t%s\t%s", h.Address, strings.Join(ports, ","), strings.Join(h.Domains, ",")), "\t")
		if _, err := fmt.Fprintln(tw, line); err != nil {
			return err
		}
	}

	return tw.Flush()
}
