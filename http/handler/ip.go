package handler

import (
	"net"
	"net/http"
	"strings"

	"github.com/leeforge/recaptcha/captcha"
)

// ClientIP resolves the visitor address. Forwarding headers (X-Real-Ip,
// CF-Connecting-IP, then X-Forwarded-For) are only read when the direct peer
// matches trusted; otherwise RemoteAddr is the answer.
func ClientIP(r *http.Request, trusted *captcha.IPPolicy) string {
	peer := hostOnly(r.RemoteAddr)
	if !trusted.Matches(peer) {
		return peer
	}

	for _, header := range []string{"X-Real-Ip", "CF-Connecting-IP"} {
		if ip := hostOnly(r.Header.Get(header)); net.ParseIP(ip) != nil {
			return ip
		}
	}

	// walk right to left, skipping our own proxies; the first untrusted hop
	// is the client
	hops := strings.Split(r.Header.Get("X-Forwarded-For"), ",")
	client := ""
	for i := len(hops) - 1; i >= 0; i-- {
		ip := hostOnly(hops[i])
		if net.ParseIP(ip) == nil {
			break
		}
		client = ip
		if !trusted.Matches(ip) {
			break
		}
	}
	if client != "" {
		return client
	}
	return peer
}

func hostOnly(addr string) string {
	addr = strings.TrimSpace(addr)
	if host, _, err := net.SplitHostPort(addr); err == nil {
		addr = host
	}
	return strings.TrimSuffix(strings.TrimPrefix(addr, "["), "]")
}
