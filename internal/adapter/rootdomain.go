package adapter

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// ErrNoRootDomain is returned for names without a registrable domain
var ErrNoRootDomain = errors.New("no registrable domain")

// PublicSuffixExtractor finds registrable domains with the public suffix list
// compiled into golang.org/x/net/publicsuffix
type PublicSuffixExtractor struct{}

// RootDomain returns the eTLD+1 of name: "a.b.example.co.uk" becomes
// "example.co.uk". Names are lower-cased and a trailing dot is ignored.
func (PublicSuffixExtractor) RootDomain(name string) (string, error) {
	host := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(name)), ".")
	if host == "" {
		return "", ErrNoRootDomain
	}
	if _, err := netip.ParseAddr(host); err == nil {
		return "", fmt.Errorf("%s is an address: %w", host, ErrNoRootDomain)
	}

	root, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return "", fmt.Errorf("%s: %w", err.Error(), ErrNoRootDomain)
	}
	return root, nil
}
