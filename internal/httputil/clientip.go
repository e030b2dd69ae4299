package httputil

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// ClientIP returns the address of the client that sent r, for request logs.
//
// With trustProxy set, the proxy headers are consulted in order: Forwarded
// (first for= element), X-Forwarded-For (leftmost entry), X-Real-IP. Values
// that do not parse as an IP address are skipped. Without trustProxy, or
// when no header yields an address, the host part of RemoteAddr is used.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		for _, candidate := range []string{
			forwardedFor(r.Header.Get("Forwarded")),
			firstListEntry(r.Header.Get("X-Forwarded-For")),
			r.Header.Get("X-Real-IP"),
		} {
			if ip, ok := parseIP(candidate); ok {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func firstListEntry(v string) string {
	if i := strings.IndexByte(v, ','); i >= 0 {
		v = v[:i]
	}
	return v
}

// forwardedFor extracts the for= parameter of the first element of an
// RFC 7239 Forwarded header.
func forwardedFor(v string) string {
	for _, pair := range strings.Split(firstListEntry(v), ";") {
		k, val, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if ok && strings.EqualFold(k, "for") {
			return strings.Trim(val, `"`)
		}
	}
	return ""
}

// parseIP accepts a bare address or an address with a port, including the
// bracketed IPv6 form.
func parseIP(v string) (string, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", false
	}
	if ap, err := netip.ParseAddrPort(v); err == nil {
		return ap.Addr().String(), true
	}
	if addr, err := netip.ParseAddr(strings.Trim(v, "[]")); err == nil {
		return addr.String(), true
	}
	return "", false
}
