// Package validation checks user-supplied instance URLs and request inputs.
//
// Instance URLs are guarded against server-side request forgery: cloud
// metadata endpoints are always rejected, and loopback or private ranges
// only pass when TUSK_ALLOW_PRIVATE is set or SetAllowPrivate(true) is called.
package validation

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

var allowPrivate atomic.Bool

var privatePrefixes = mustPrefixes(
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"100.64.0.0/10",
	"192.0.0.0/24",
	"192.0.2.0/24",
	"198.18.0.0/15",
	"198.51.100.0/24",
	"203.0.113.0/24",
	"240.0.0.0/4",
	"fc00::/7",
	"100::/64",
	"2001:db8::/32",
)

var metadataHosts = map[string]bool{
	"169.254.169.254":          true,
	"metadata.google.internal": true,
	"metadata":                 true,
	"instance-data":            true,
	"fd00:ec2::254":            true,
}

// lookupHost is replaced in tests.
var lookupHost = func(ctx context.Context, host string) ([]netip.Addr, error) {
	return net.DefaultResolver.LookupNetIP(ctx, "ip", host)
}

func init() {
	v, _ := strconv.ParseBool(strings.TrimSpace(os.Getenv("TUSK_ALLOW_PRIVATE")))
	allowPrivate.Store(v)
}

func mustPrefixes(cidrs ...string) []netip.Prefix {
	out := make([]netip.Prefix, 0, len(cidrs))
	for _, c := range cidrs {
		out = append(out, netip.MustParsePrefix(c))
	}
	return out
}

// SetAllowPrivate permits loopback and private instance URLs. Metadata
// endpoints stay blocked.
func SetAllowPrivate(enabled bool) {
	allowPrivate.Store(enabled)
}

// AllowPrivateEnabled reports whether private instance URLs are permitted.
func AllowPrivateEnabled() bool {
	return allowPrivate.Load()
}

// NormalizeAPIURL turns an instance name or URL into an API base URL.
// "mastodon.social" becomes "https://mastodon.social/api/v1/"; a URL that
// already has a path keeps it, with a trailing slash added.
func NormalizeAPIURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if strings.Trim(u.Path, "/") == "" {
		u.Path = "/api/v1/"
	} else if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u.String()
}

// ValidateInstanceURL checks that rawURL is an http(s) URL whose host is
// neither a metadata endpoint nor, unless allowed, a private address.
func ValidateInstanceURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("URL cannot be empty")
	}
	if len(rawURL) > MaxURLLength {
		return fmt.Errorf("URL exceeds maximum length of %d characters", MaxURLLength)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL format: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid URL scheme: only http and https are allowed, got %q", u.Scheme)
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return fmt.Errorf("URL must contain a hostname")
	}
	if metadataHosts[host] || strings.HasSuffix(host, ".metadata.google.internal") {
		return fmt.Errorf("cloud metadata endpoints are not allowed")
	}
	if !allowPrivate.Load() && (host == "localhost" || strings.HasSuffix(host, ".localhost")) {
		return fmt.Errorf("localhost URLs are not allowed")
	}

	if addr, err := netip.ParseAddr(host); err == nil {
		return validateAddr(addr)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	addrs, err := lookupHost(ctx, host)
	if err != nil {
		// Unresolvable hosts are left to fail at request time.
		return nil
	}
	for _, addr := range addrs {
		if err := validateAddr(addr); err != nil {
			return fmt.Errorf("domain %q resolves to forbidden IP %s: %w", host, addr, err)
		}
	}
	return nil
}

func validateAddr(addr netip.Addr) error {
	addr = addr.Unmap()
	if metadataHosts[addr.String()] {
		return fmt.Errorf("cloud metadata IP address is not allowed")
	}
	if addr.IsUnspecified() {
		return fmt.Errorf("unspecified IP addresses are not allowed")
	}
	if addr.IsLinkLocalUnicast() || addr.IsLinkLocalMulticast() || addr.IsMulticast() {
		return fmt.Errorf("link-local or multicast IP addresses are not allowed")
	}
	if allowPrivate.Load() {
		return nil
	}
	if addr.IsLoopback() {
		return fmt.Errorf("loopback IP addresses are not allowed")
	}
	for _, p := range privatePrefixes {
		if p.Contains(addr) {
			return fmt.Errorf("private IP addresses are not allowed")
		}
	}
	return nil
}
