// Package icon resolves site icons: cache lookup in the document store, an
// ordered list of remote sources, and a synthesized placeholder when every
// source fails.
package icon

import (
	"errors"
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// ErrInvalidDomain is returned when the input cannot be turned into a hostname.
var ErrInvalidDomain = errors.New("icon: invalid domain")

// Icon is image bytes plus what is known about where they came from.
type Icon struct {
	Data        []byte
	ContentType string
	Source      string // candidate name, or "synthesized"
	Synthesized bool
	Stale       bool // a refresh found nothing and kept this previously fetched icon
}

// ParseHost extracts a lower-cased hostname from a bare domain or a URL.
func ParseHost(input string) (string, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return "", ErrInvalidDomain
	}
	if !strings.Contains(s, "://") {
		s = "http://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return "", ErrInvalidDomain
	}
	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	if host == "" || !validHost(host) {
		return "", ErrInvalidDomain
	}
	return host, nil
}

func validHost(host string) bool {
	if net.ParseIP(host) != nil {
		return true
	}
	if len(host) > 253 {
		return false
	}
	for _, label := range strings.Split(host, ".") {
		if label == "" || len(label) > 63 || label[0] == '-' || label[len(label)-1] == '-' {
			return false
		}
		for _, r := range label {
			if r == '-' || r == '_' || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r > 0x7f {
				continue
			}
			return false
		}
	}
	return true
}

// NormalizeDomain returns the cache key for input: the registrable domain
// (eTLD+1) when the public suffix list knows one, else the bare hostname.
func NormalizeDomain(input string) (string, error) {
	host, err := ParseHost(input)
	if err != nil {
		return "", err
	}
	if net.ParseIP(host) != nil {
		return host, nil
	}
	if reg, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
		return reg, nil
	}
	return host, nil
}

// IsPublicHost reports whether host can be fetched on behalf of anonymous
// callers: not an IP literal, and under a suffix the public suffix list knows.
// Unknown TLDs such as "localhost" or "corp" only match the list's implicit
// "*" rule, which yields a single label and no ICANN flag.
func IsPublicHost(host string) bool {
	if net.ParseIP(host) != nil {
		return false
	}
	suffix, icann := publicsuffix.PublicSuffix(host)
	return icann || strings.Contains(suffix, ".")
}

// CachePath is the document store path of the cache entry for a normalized domain.
func CachePath(key string) string {
	return "icons/" + key + ".json"
}
