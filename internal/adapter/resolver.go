package adapter

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/miekg/dns"

	"jfscan/internal/config"
	"jfscan/internal/logger"
)

// DNSResolver resolves names to A and AAAA records over plain DNS
type DNSResolver struct {
	servers []string
	client  *dns.Client
	logger  *logger.Logger
}

// NewDNSResolver creates a resolver that asks servers in order until one answers
func NewDNSResolver(cfg config.ResolverConfig, log *logger.Logger) *DNSResolver {
	if log == nil {
		log = logger.NewNop()
	}
	return &DNSResolver{
		servers: cfg.Servers,
		client: &dns.Client{
			Net:     "udp",
			Timeout: cfg.Timeout.Duration(),
		},
		logger: log.WithComponent("resolver"),
	}
}

// Resolve returns the IPv4 addresses of name followed by its IPv6 addresses.
// A name that does not exist yields an empty result and no error. An error is
// returned only when no nameserver could be reached for either record type.
func (r *DNSResolver) Resolve(ctx context.Context, name string) ([]string, error) {
	host := strings.TrimSpace(name)
	if host == "" {
		return nil, nil
	}
	fqdn := dns.Fqdn(host)

	var (
		values   []string
		errs     []error
		answered bool
	)

	for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA} {
		found, err := r.query(ctx, fqdn, qtype)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		answered = true
		values = append(values, found...)
	}

	if !answered {
		return nil, errors.Join(errs...)
	}

	r.logger.Debugw("Resolved host", "host", host, "addresses", len(values))
	return dedupe(values), nil
}

// query asks each server in turn for one record type
func (r *DNSResolver) query(ctx context.Context, fqdn string, qtype uint16) ([]string, error) {
	if len(r.servers) == 0 {
		return nil, errors.New("no nameservers configured")
	}

	m := new(dns.Msg)
	m.SetQuestion(fqdn, qtype)

	var lastErr error
	for _, server := range r.servers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		resp, _, err := r.client.ExchangeContext(ctx, m, server)
		if err != nil {
			lastErr = fmt.Errorf("query %s %s via %s: %w", fqdn, dns.TypeToString[qtype], server, err)
			continue
		}

		switch resp.Rcode {
		case dns.RcodeSuccess:
		case dns.RcodeNameError:
			// NXDOMAIN is an authoritative empty answer
			return nil, nil
		default:
			lastErr = fmt.Errorf("query %s %s via %s: %s", fqdn, dns.TypeToString[qtype], server, dns.RcodeToString[resp.Rcode])
			continue
		}

		var values []string
		for _, ans := range resp.Answer {
			switch v := ans.(type) {
			case *dns.A:
				values = append(values, v.A.String())
			case *dns.AAAA:
				values = append(values, v.AAAA.String())
			}
		}
		return values, nil
	}

	return nil, lastErr
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := values[:0]
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
