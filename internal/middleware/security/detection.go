// Package security extracts client IPs behind trusted proxies, flags
// suspicious requests and sets response security headers.
package security

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"slices"
	"strings"
	"sync/atomic"

	"spendlens/internal/log"
)

const (
	maxURLLength = 2048
	maxProxyHops = 5
)

var (
	probePatterns = []string{
		"../", "..\\", ".env", ".git", ".ssh", "wp-admin", "phpmyadmin",
		"admin.php", "config.php", "etc/passwd", "cmd.exe",
		"<script", "javascript:", "eval(", "union select",
	}
	scannerAgents = []string{"sqlmap", "nmap", "nikto", "gobuster", "dirb", "masscan", "zgrab"}
	oddMethods    = []string{"TRACE", "TRACK", "DEBUG", "CONNECT"}

	privateNetworks = []netip.Prefix{
		netip.MustParsePrefix("127.0.0.0/8"),
		netip.MustParsePrefix("10.0.0.0/8"),
		netip.MustParsePrefix("172.16.0.0/12"),
		netip.MustParsePrefix("192.168.0.0/16"),
		netip.MustParsePrefix("::1/128"),
	}
)

// Detector resolves client addresses and counts requests that look like
// probes or scanners.
type Detector struct {
	trusted []netip.Prefix
	flagged atomic.Int64
}

// NewDetector trusts loopback and private networks as proxies.
func NewDetector() *Detector {
	return &Detector{trusted: slices.Clone(privateNetworks)}
}

// AddTrustedProxy trusts forwarded headers from peers inside cidr.
func (d *Detector) AddTrustedProxy(cidr string) error {
	p, err := netip.ParsePrefix(strings.TrimSpace(cidr))
	if err != nil {
		return fmt.Errorf("invalid trusted proxy %q: %w", cidr, err)
	}
	d.trusted = append(d.trusted, p.Masked())
	return nil
}

func (d *Detector) trusts(addr netip.Addr) bool {
	addr = addr.Unmap()
	return slices.ContainsFunc(d.trusted, func(p netip.Prefix) bool { return p.Contains(addr) })
}

// ExtractClientIP returns the peer address, or the first X-Forwarded-For
// entry (then X-Real-IP) when the peer is a trusted proxy.
func (d *Detector) ExtractClientIP(r *http.Request) string {
	peer, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		peer = r.RemoteAddr
	}
	addr, err := netip.ParseAddr(peer)
	if err != nil || !d.trusts(addr) {
		return peer
	}

	first, _, _ := strings.Cut(r.Header.Get("X-Forwarded-For"), ",")
	for _, candidate := range []string{first, r.Header.Get("X-Real-IP")} {
		candidate = strings.TrimSpace(candidate)
		if _, err := netip.ParseAddr(candidate); err == nil {
			return candidate
		}
	}
	return peer
}

// DetectSuspiciousRequest reports whether r looks like a probe and counts it.
func (d *Detector) DetectSuspiciousRequest(r *http.Request) bool {
	if !looksSuspicious(r) {
		return false
	}
	d.flagged.Add(1)
	return true
}

func looksSuspicious(r *http.Request) bool {
	switch {
	case slices.Contains(oddMethods, r.Method):
		return true
	case len(r.URL.String()) > maxURLLength:
		return true
	case strings.Count(r.Header.Get("X-Forwarded-For"), ",") > maxProxyHops:
		return true
	}
	return matches(r.URL.Path, probePatterns) ||
		matches(r.URL.RawQuery, probePatterns) ||
		matches(r.UserAgent(), scannerAgents)
}

func matches(s string, patterns []string) bool {
	s = strings.ToLower(s)
	return slices.ContainsFunc(patterns, func(p string) bool { return strings.Contains(s, p) })
}

// SuspiciousCount returns how many requests were flagged.
func (d *Detector) SuspiciousCount() int64 {
	return d.flagged.Load()
}

// Middleware logs suspicious requests and lets them through.
func (d *Detector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if d.DetectSuspiciousRequest(r) {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Suspicious request",
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path,
				log.FieldClientIP, d.ExtractClientIP(r),
				log.FieldUserAgent, r.UserAgent())
		}
		next.ServeHTTP(w, r)
	})
}
