package httpfetch

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// URLValidationOptions controla as regras de validação de URLs de saída
type URLValidationOptions struct {
	AllowLocalhost       bool
	AllowPrivateNetworks bool
}

// blockedNetworks cobre faixas que IsPrivate/IsLoopback não cobrem
var blockedNetworks = mustParseCIDRs(
	"0.0.0.0/8",
	"100.64.0.0/10", // CGNAT
	"192.0.0.0/24",
	"198.18.0.0/15",
	"64:ff9b::/96",
)

// ValidateOutboundURL garante que a URL é http(s) e não aponta, literalmente,
// para endereços locais ou privados. Nomes são checados de novo na conexão.
func ValidateOutboundURL(raw string, opts URLValidationOptions) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("url is required")
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}
	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return nil, fmt.Errorf("unsupported url scheme: %q", scheme)
	}
	if parsed.User != nil {
		return nil, fmt.Errorf("urls with credentials are not allowed")
	}
	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return nil, fmt.Errorf("url host is required")
	}
	if !opts.AllowLocalhost && isLocalHostname(host) {
		return nil, fmt.Errorf("local urls are not allowed")
	}
	if ip := net.ParseIP(host); ip != nil {
		if err := checkIP(ip, opts); err != nil {
			return nil, err
		}
	}
	return parsed, nil
}

func checkIP(ip net.IP, opts URLValidationOptions) error {
	if !opts.AllowLocalhost && (ip.IsLoopback() || ip.IsUnspecified()) {
		return fmt.Errorf("local address %s is not allowed", ip)
	}
	if !opts.AllowPrivateNetworks && isPrivateIP(ip) {
		return fmt.Errorf("private address %s is not allowed", ip)
	}
	return nil
}

func isLocalHostname(host string) bool {
	return host == "localhost" || strings.HasSuffix(host, ".localhost")
}

func isPrivateIP(ip net.IP) bool {
	if ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsMulticast() {
		return true
	}
	for _, n := range blockedNetworks {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

func mustParseCIDRs(cidrs ...string) []*net.IPNet {
	nets := make([]*net.IPNet, 0, len(cidrs))
	for _, c := range cidrs {
		_, n, err := net.ParseCIDR(c)
		if err != nil {
			panic(err)
		}
		nets = append(nets, n)
	}
	return nets
}
